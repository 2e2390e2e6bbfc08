package controllers

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"sprintarena-api/models"
	"sprintarena-api/utils"
)

type UserController struct {
	db *gorm.DB
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db}
}

func (uc *UserController) GetProfile(c *gin.Context) {
	userID := c.GetString("user_id")

	var user models.User
	if err := uc.db.First(&user, "id = ?", userID).Error; err != nil {
		utils.SendError(c, http.StatusNotFound, "User not found")
		return
	}

	user.Password = ""
	utils.SendSuccess(c, gin.H{"user": user})
}

type UpdateProfileRequest struct {
	Name   string `json:"name"`
	Color  string `json:"color"`
	Avatar string `json:"avatar"`
}

func (uc *UserController) UpdateProfile(c *gin.Context) {
	userID := c.GetString("user_id")

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Color != "" {
		updates["color"] = req.Color
	}
	if req.Avatar != "" {
		updates["avatar"] = req.Avatar
	}

	if len(updates) > 0 {
		if err := uc.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			utils.SendError(c, http.StatusInternalServerError, "Failed to update profile")
			return
		}
	}

	uc.GetProfile(c)
}

type RaceHistoryRequest struct {
	Result models.RaceResult `json:"result" binding:"required"`
}

// AddRaceResult prepends a finished race to the user's history.
func (uc *UserController) AddRaceResult(c *gin.Context) {
	userID := c.GetString("user_id")

	var req RaceHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Result is required")
		return
	}

	var user models.User
	if err := uc.db.First(&user, "id = ?", userID).Error; err != nil {
		utils.SendError(c, http.StatusNotFound, "User not found")
		return
	}

	user.RaceHistory = append(models.RaceHistory{req.Result}, user.RaceHistory...)

	if err := uc.db.Model(&user).Update("race_history", user.RaceHistory).Error; err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to save race result")
		return
	}

	utils.SendSuccess(c, gin.H{"raceHistory": user.RaceHistory})
}

// GetPlayerID derives a stable-enough anonymous player id from the caller's
// IP, for racers without an account.
func (uc *UserController) GetPlayerID(c *gin.Context) {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}

	sum := sha256.Sum256([]byte(ip))
	playerID := fmt.Sprintf("player-%s-%d", hex.EncodeToString(sum[:4]), time.Now().UnixMilli())

	utils.SendSuccess(c, gin.H{
		"ip":       ip,
		"playerId": playerID,
	})
}
