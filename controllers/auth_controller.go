package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"sprintarena-api/models"
	"sprintarena-api/services"
	"sprintarena-api/utils"
)

type AuthController struct {
	db           *gorm.DB
	jwtSecret    string
	emailService *services.EmailService
}

func NewAuthController(db *gorm.DB, jwtSecret string, emailService *services.EmailService) *AuthController {
	return &AuthController{
		db:           db,
		jwtSecret:    jwtSecret,
		emailService: emailService,
	}
}

type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Color    string `json:"color"`
	Avatar   string `json:"avatar"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (ac *AuthController) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, err.Error())
		return
	}

	var existing models.User
	if err := ac.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		utils.SendError(c, http.StatusConflict, "Email already registered")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := models.User{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Email:       req.Email,
		Password:    string(hashed),
		Color:       req.Color,
		Avatar:      req.Avatar,
		RaceHistory: models.RaceHistory{},
	}

	if err := ac.db.Create(&user).Error; err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to create user")
		return
	}

	// Best effort; signup succeeds even when SMTP is down
	go func() {
		if err := ac.emailService.SendWelcomeEmail(user.Email, user.Name); err != nil {
			log.Warn().Err(err).Msg("welcome email not delivered")
		}
	}()

	token, err := ac.issueToken(user.ID)
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to create session")
		return
	}

	user.Password = ""
	utils.SendCreated(c, gin.H{"token": token, "user": user})
}

func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, err.Error())
		return
	}

	var user models.User
	if err := ac.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		utils.SendError(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		utils.SendError(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := ac.issueToken(user.ID)
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to create session")
		return
	}

	user.Password = ""
	utils.SendSuccess(c, gin.H{"token": token, "user": user})
}

func (ac *AuthController) Logout(c *gin.Context) {
	// Stateless tokens: logout is client-side, the endpoint exists so
	// clients have one uniform call to make.
	utils.SendSuccess(c, gin.H{"message": "Logged out"})
}

// Session returns the authenticated user, or success with a null user so
// anonymous racers don't treat the probe as an error.
func (ac *AuthController) Session(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		utils.SendSuccess(c, gin.H{"user": nil})
		return
	}

	var user models.User
	if err := ac.db.First(&user, "id = ?", userID).Error; err != nil {
		utils.SendSuccess(c, gin.H{"user": nil})
		return
	}

	user.Password = ""
	utils.SendSuccess(c, gin.H{"user": user})
}

func (ac *AuthController) issueToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(30 * 24 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(ac.jwtSecret))
}
