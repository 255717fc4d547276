package controllers

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"geoclaim/internal/middleware"
	"geoclaim/internal/models"
	"geoclaim/internal/store"
)

// AuthController handles player signup and login.
type AuthController struct {
	DB *gorm.DB
	// AdminEmails are the only addresses that sign up as admins.
	AdminEmails []string
}

func NewAuthController(db *gorm.DB, adminEmails []string) *AuthController {
	return &AuthController{DB: db, AdminEmails: adminEmails}
}

type signupInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

func (ac *AuthController) SignupUser(c *gin.Context) {
	var input signupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := normalizeEmail(input.Email)
	hashedPassword, err := hashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hash password"})
		return
	}

	user := models.User{
		Name:     strings.TrimSpace(input.Name),
		Email:    email,
		Password: hashedPassword,
		Role:     ac.roleFor(email),
	}
	if err := ac.DB.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		if store.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
			return
		}
		logrus.WithError(err).Error("SignupUser: could not create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("Player signed up.")
	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  prepareUserResponse(user),
	})
}

func (ac *AuthController) LoginUser(c *gin.Context) {
	var body struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	err := ac.DB.WithContext(c.Request.Context()).Where("email = ?", normalizeEmail(body.Email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found or invalid credentials"})
		} else {
			logrus.WithError(err).Error("LoginUser: database error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		}
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(body.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found or invalid credentials"})
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  prepareUserResponse(user),
	})
}

// Me returns the caller's profile with claim totals.
func (ac *AuthController) Me(c *gin.Context) {
	userID, ok := mustUser(c)
	if !ok {
		return
	}
	db := ac.DB.WithContext(c.Request.Context())

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	var totals struct {
		Territories int64
		AreaM2      float64
	}
	if err := db.Model(&models.Territory{}).
		Select("count(*) AS territories, coalesce(sum(area_m2), 0) AS area_m2").
		Where("user_id = ?", userID).
		Scan(&totals).Error; err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Me: could not sum territories")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	resp := prepareUserResponse(user)
	resp["territories"] = totals.Territories
	resp["total_area_m2"] = totals.AreaM2
	c.JSON(http.StatusOK, resp)
}

// roleFor picks the role for a new account. Clients cannot choose it.
func (ac *AuthController) roleFor(email string) string {
	if slices.Contains(ac.AdminEmails, email) {
		return models.RoleAdmin
	}
	return models.RolePlayer
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func prepareUserResponse(user models.User) gin.H {
	return gin.H{
		"ID":        user.ID,
		"CreatedAt": user.CreatedAt,
		"UpdatedAt": user.UpdatedAt,
		"name":      user.Name,
		"email":     user.Email,
		"role":      user.Role,
	}
}
