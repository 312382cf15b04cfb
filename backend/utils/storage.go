package utils

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// SaveFile writes data under destDir with a random name and returns the
// stored path. Used for rendered certificate documents.
func SaveFile(data []byte, destDir, ext string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", err
	}

	filePath := filepath.Join(destDir, uuid.NewString()+ext)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", err
	}
	return filePath, nil
}

// FileURL maps a stored path to the URL it is served under.
func FileURL(baseURL, filePath string) string {
	if filePath == "" {
		return ""
	}
	return baseURL + "/" + filepath.ToSlash(filePath)
}
