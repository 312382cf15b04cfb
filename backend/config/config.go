package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	ServerPort string

	// Outgoing mail for user invitations. Left empty, invites are created
	// without sending anything.
	SMTPHost    string
	SMTPPort    string
	EmailSender string
	EmailPass   string

	// Generative content endpoints.
	GeminiAPIKey string
	GeminiModel  string

	// Rendered certificates and their template assets.
	UploadDir        string
	PublicBaseURL    string
	CertTemplatePath string
	CertFontPath     string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "training_platform"),
		JWTSecret:  getEnv("JWT_SECRET", "secret"),
		ServerPort: getEnv("SERVER_PORT", "8080"),

		SMTPHost:    getEnv("SMTP_HOST", ""),
		SMTPPort:    getEnv("SMTP_PORT", "587"),
		EmailSender: getEnv("EMAIL_SENDER", ""),
		EmailPass:   getEnv("EMAIL_PASSWORD", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		UploadDir:        getEnv("UPLOAD_DIR", "uploads"),
		PublicBaseURL:    getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		CertTemplatePath: getEnv("CERT_TEMPLATE_PATH", "assets/certificate-template.png"),
		CertFontPath:     getEnv("CERT_FONT_PATH", "assets/certificate-font.ttf"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
