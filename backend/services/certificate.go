package services

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"lms/backend/config"
	"lms/backend/models"
	"lms/backend/utils"

	"github.com/fogleman/gg"
	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CertificateService renders completion certificates and stores them keyed
// by (user, course). Issuance failures never roll back a completed course:
// callers report them separately and may retry through Issue again.
type CertificateService struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Logger *log.Logger
}

func NewCertificateService(db *gorm.DB, cfg *config.Config, logger *log.Logger) *CertificateService {
	return &CertificateService{DB: db, Cfg: cfg, Logger: logger}
}

// Issue renders the certificate PDF for a user who completed a course and
// upserts the certificates row. Idempotent per (user, course): reissuing
// overwrites the stored document instead of duplicating the row.
func (cs *CertificateService) Issue(userID, courseID uint) (*models.Certificate, error) {
	var user models.User
	if err := cs.DB.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	var course models.Course
	if err := cs.DB.First(&course, courseID).Error; err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}

	issuedAt := time.Now()
	pdfBytes, err := cs.render(user.FullName, course.Title, issuedAt)
	if err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}

	path, err := utils.SaveFile(pdfBytes, filepath.Join(cs.Cfg.UploadDir, "certificates"), ".pdf")
	if err != nil {
		return nil, fmt.Errorf("store certificate: %w", err)
	}

	cert := models.Certificate{
		UserID:       userID,
		CourseID:     courseID,
		SerialNumber: uuid.NewString(),
		PDFURL:       utils.FileURL(cs.Cfg.PublicBaseURL, path),
		IssuedAt:     issuedAt,
	}

	err = cs.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"pdf_url", "issued_at", "updated_at"}),
	}).Create(&cert).Error
	if err != nil {
		return nil, fmt.Errorf("save certificate row: %w", err)
	}

	// The conflict path keeps the original serial number; re-read so callers
	// always see the persisted row.
	var saved models.Certificate
	if err := cs.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&saved).Error; err != nil {
		return nil, err
	}

	cs.Logger.Printf("certificate issued user=%d course=%d serial=%s", userID, courseID, saved.SerialNumber)
	return &saved, nil
}

// render composites the learner's name, course title and issue date onto the
// template image and wraps the raster into a single-page PDF.
func (cs *CertificateService) render(fullName, courseTitle string, issuedAt time.Time) ([]byte, error) {
	const width, height = 1123, 794 // A4 landscape at ~96dpi

	dc := gg.NewContext(width, height)

	if template, err := gg.LoadImage(cs.Cfg.CertTemplatePath); err == nil {
		dc.DrawImage(template, 0, 0)
	} else {
		dc.SetHexColor("#151515")
		dc.Clear()
	}

	if cs.Cfg.CertFontPath == "" {
		return nil, errors.New("certificate font not configured")
	}
	if err := dc.LoadFontFace(cs.Cfg.CertFontPath, 52); err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	dc.SetHexColor("#1A1A1A")
	dc.DrawStringAnchored(fullName, width/2, 380, 0.5, 0.5)

	if err := dc.LoadFontFace(cs.Cfg.CertFontPath, 30); err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	dc.DrawStringAnchored("has successfully completed the training course", width/2, 450, 0.5, 0.5)
	dc.DrawStringAnchored(courseTitle, width/2, 505, 0.5, 0.5)

	if err := dc.LoadFontFace(cs.Cfg.CertFontPath, 22); err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	dc.DrawStringAnchored(issuedAt.Format("January 2, 2006"), width/2, 580, 0.5, 0.5)

	var png bytes.Buffer
	if err := dc.EncodePNG(&png); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.AddPage()
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("certificate", opts, &png)
	pdf.ImageOptions("certificate", 0, 0, width, height, false, opts, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return out.Bytes(), nil
}
