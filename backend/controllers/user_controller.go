package controllers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"strconv"

	"lms/backend/config"
	"lms/backend/models"
	"lms/backend/services"
	"lms/backend/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/gofiber/fiber/v2"
)

type UserController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Logger *log.Logger
}

func NewUserController(db *gorm.DB, cfg *config.Config, logger *log.Logger) *UserController {
	return &UserController{DB: db, Cfg: cfg, Logger: logger}
}

func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var user models.User
	if err := uc.DB.Preload("Sector").First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	sectorName := ""
	if user.Sector != nil {
		sectorName = user.Sector.Name
	}

	return c.JSON(fiber.Map{
		"id":        user.ID,
		"full_name": user.FullName,
		"email":     user.Email,
		"role":      user.Role,
		"sector":    sectorName,
	})
}

func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var input struct {
		FullName string `json:"full_name"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	if input.FullName != "" {
		user.FullName = input.FullName
	}
	if input.Password != "" {
		if len(input.Password) < 8 {
			return utils.ValidationError(c, map[string]string{"password": "Password must be at least 8 characters"})
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return utils.InternalServerError(c, "Could not hash password")
		}
		user.PasswordHash = string(hashed)
	}

	if err := uc.DB.Save(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not update profile")
	}

	return c.JSON(fiber.Map{"message": "Profile updated"})
}

// ListUsers returns every account with its sector and role, for the admin
// user-management screen.
func (uc *UserController) ListUsers(c *fiber.Ctx) error {
	var users []models.User
	if err := uc.DB.Preload("Sector").Order("full_name").Find(&users).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	result := make([]fiber.Map, 0, len(users))
	for _, user := range users {
		sectorName := ""
		if user.Sector != nil {
			sectorName = user.Sector.Name
		}
		result = append(result, fiber.Map{
			"id":        user.ID,
			"full_name": user.FullName,
			"email":     user.Email,
			"role":      user.Role,
			"sector":    sectorName,
		})
	}

	return c.JSON(fiber.Map{"users": result})
}

// InviteUser creates an account with a temporary password and mails it to
// the new user. The password is only returned in the response when no mail
// relay is configured, so the admin can hand it over manually.
func (uc *UserController) InviteUser(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		FullName string `json:"full_name"`
		Role     string `json:"role"`
		SectorID *uint  `json:"sector_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	fieldErrors := make(map[string]string)
	if input.Email == "" {
		fieldErrors["email"] = "Email is required"
	}
	if input.FullName == "" {
		fieldErrors["full_name"] = "Full name is required"
	}
	if input.Role == "" {
		input.Role = "user"
	}
	if input.Role != "user" && input.Role != "admin" {
		fieldErrors["role"] = "Role must be user or admin"
	}
	if len(fieldErrors) > 0 {
		return utils.ValidationError(c, fieldErrors)
	}

	tempPassword := randomPassword()
	hashed, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return utils.InternalServerError(c, "Could not hash password")
	}

	user := models.User{
		Email:        input.Email,
		FullName:     input.FullName,
		Role:         input.Role,
		SectorID:     input.SectorID,
		PasswordHash: string(hashed),
	}
	if err := uc.DB.Create(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not create user")
	}

	response := fiber.Map{
		"message": "User invited",
		"user": fiber.Map{
			"id":        user.ID,
			"email":     user.Email,
			"full_name": user.FullName,
			"role":      user.Role,
		},
	}

	if err := services.SendInviteEmail(uc.Cfg, user.Email, user.FullName, tempPassword); err != nil {
		if !errors.Is(err, services.ErrMailNotConfigured) {
			uc.Logger.Printf("invite email to %s failed: %v", user.Email, err)
		}
		response["email_sent"] = false
		response["temp_password"] = tempPassword
	} else {
		response["email_sent"] = true
	}

	return utils.Created(c, response)
}

func (uc *UserController) UpdateUser(c *fiber.Ctx) error {
	targetID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	var input struct {
		FullName string `json:"full_name"`
		Role     string `json:"role"`
		SectorID *uint  `json:"sector_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var user models.User
	if err := uc.DB.First(&user, targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "User not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if input.FullName != "" {
		user.FullName = input.FullName
	}
	if input.Role != "" {
		if input.Role != "user" && input.Role != "admin" {
			return utils.ValidationError(c, map[string]string{"role": "Role must be user or admin"})
		}
		user.Role = input.Role
	}
	if input.SectorID != nil {
		user.SectorID = input.SectorID
	}

	if err := uc.DB.Save(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not update user")
	}

	return c.JSON(fiber.Map{"message": "User updated"})
}

// DeleteUser removes the account and everything hanging off it: lesson and
// course progress, attempts and certificates.
func (uc *UserController) DeleteUser(c *fiber.Ctx) error {
	targetID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid user ID")
	}

	var user models.User
	if err := uc.DB.First(&user, targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "User not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	err = uc.DB.Transaction(func(tx *gorm.DB) error {
		for _, step := range []error{
			tx.Where("user_id = ?", user.ID).Delete(&models.LessonProgress{}).Error,
			tx.Where("user_id = ?", user.ID).Delete(&models.CourseProgress{}).Error,
			tx.Where("user_id = ?", user.ID).Delete(&models.QuizAttempt{}).Error,
			tx.Where("user_id = ?", user.ID).Delete(&models.FinalExamAttempt{}).Error,
			tx.Where("user_id = ?", user.ID).Delete(&models.Certificate{}).Error,
			tx.Delete(&user).Error,
		} {
			if step != nil {
				return step
			}
		}
		return nil
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not delete user")
	}

	return c.JSON(fiber.Map{"message": "User deleted"})
}

// --- Sectors ---

func (uc *UserController) ListSectors(c *fiber.Ctx) error {
	var sectors []models.Sector
	if err := uc.DB.Order("name").Find(&sectors).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return c.JSON(fiber.Map{"sectors": sectors})
}

func (uc *UserController) CreateSector(c *fiber.Ctx) error {
	var input struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Name == "" {
		return utils.ValidationError(c, map[string]string{"name": "Name is required"})
	}

	sector := models.Sector{Name: input.Name}
	if err := uc.DB.Create(&sector).Error; err != nil {
		return utils.InternalServerError(c, "Could not create sector")
	}
	return utils.Created(c, sector)
}

func (uc *UserController) DeleteSector(c *fiber.Ctx) error {
	sectorID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid sector ID")
	}

	res := uc.DB.Delete(&models.Sector{}, sectorID)
	if res.Error != nil {
		return utils.InternalServerError(c, "Could not delete sector")
	}
	if res.RowsAffected == 0 {
		return utils.NotFound(c, "Sector not found")
	}
	return c.JSON(fiber.Map{"message": "Sector deleted"})
}

func randomPassword() string {
	buf := make([]byte, 9)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
