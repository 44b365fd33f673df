package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"emuhub/internal/apperr"
	"emuhub/internal/db"
	"emuhub/internal/models"
	"emuhub/internal/services"
	"emuhub/internal/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// publicProfile strips the fields that belong only to the account owner.
func publicProfile(user *models.User) gin.H {
	levelName, levelIcon := utils.GetUserLevel(user.Reputation)
	return gin.H{
		"id":          user.ID,
		"username":    user.Username,
		"avatar":      user.Avatar,
		"bio":         user.Bio,
		"reputation":  user.Reputation,
		"role":        user.Role,
		"level_name":  levelName,
		"level_icon":  levelIcon,
		"days_joined": utils.GetDaysSinceJoined(user.CreatedAt),
		"created_at":  user.CreatedAt,
	}
}

// Profile returns a user's public page: identity plus one tab of their
// activity (configs, comments or favorites).
func (h *UserHandler) Profile(c *gin.Context) {
	id := utils.StringToUint(c.Param("id"))

	var user models.User
	if err := db.DB.First(&user, id).Error; err != nil {
		Fail(c, apperr.NotFound("user not found"))
		return
	}

	var configCount, commentCount int64
	db.DB.Model(&models.Config{}).Where("user_id = ? AND is_hidden = ?", user.ID, false).Count(&configCount)
	db.DB.Model(&models.Comment{}).Where("user_id = ?", user.ID).Count(&commentCount)

	payload := gin.H{
		"user":          publicProfile(&user),
		"config_count":  configCount,
		"comment_count": commentCount,
	}

	tab := c.DefaultQuery("tab", "configs")
	switch tab {
	case "configs":
		configs, _, err := services.ListConfigs(services.ListConfigsOptions{
			UserID:        user.ID,
			IncludeLegacy: true,
			PerPage:       50,
			Viewer:        CurrentUser(c),
		})
		if err != nil {
			Fail(c, err)
			return
		}
		fillCommentCounts(configs)
		payload["configs"] = configs
	case "comments":
		var comments []models.Comment
		db.DB.Preload("Config").Preload("Config.Game").
			Where("user_id = ?", user.ID).
			Order("created_at DESC").
			Limit(50).
			Find(&comments)
		views := make([]gin.H, 0, len(comments))
		for _, cm := range comments {
			if cm.Config.IsHidden {
				continue
			}
			views = append(views, gin.H{
				"id":         cm.ID,
				"cid":        cm.Cid,
				"content":    cm.Content,
				"upvotes":    cm.Upvotes,
				"downvotes":  cm.Downvotes,
				"created_at": cm.CreatedAt,
				"config_pid": cm.Config.Pid,
				"game_title": cm.Config.Game.Title,
			})
		}
		payload["comments"] = views
	case "favorites":
		payload["favorites"] = favoriteConfigs(user.ID, CurrentUser(c))
	}
	payload["active_tab"] = tab

	c.JSON(http.StatusOK, payload)
}

// favoriteConfigs returns the configs a user favorited, newest favorite
// first, with hidden configs filtered by the viewer's visibility.
func favoriteConfigs(userID uint, viewer *models.User) []models.Config {
	var favorites []models.Favorite
	db.DB.Preload("Config").
		Preload("Config.User").
		Preload("Config.Game").
		Preload("Config.Detail").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(50).
		Find(&favorites)

	configs := make([]models.Config, 0, len(favorites))
	for _, f := range favorites {
		if f.Config.IsHidden && (viewer == nil || !viewer.CanEditContent(f.Config.UserID)) {
			continue
		}
		configs = append(configs, f.Config)
	}
	fillCommentCounts(configs)
	return configs
}

// Favorites returns the viewer's own favorites list.
func (h *UserHandler) Favorites(c *gin.Context) {
	user := CurrentUser(c)
	configs := favoriteConfigs(user.ID, user)
	c.JSON(http.StatusOK, gin.H{"configs": configs})
}

// ReputationLog returns the viewer's 100 newest reputation entries.
func (h *UserHandler) ReputationLog(c *gin.Context) {
	user := CurrentUser(c)

	var logs []models.ReputationLog
	db.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(100).
		Find(&logs)

	c.JSON(http.StatusOK, gin.H{
		"reputation": user.Reputation,
		"logs":       logs,
	})
}

// CheckIn grants the once-per-day reputation bonus.
func (h *UserHandler) CheckIn(c *gin.Context) {
	user := CurrentUser(c)

	earned, bonus, alreadyCheckedIn, err := services.CheckIn(user.ID)
	if err != nil {
		Fail(c, apperr.Internal(err))
		return
	}
	if alreadyCheckedIn {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "already checked in today",
		})
		return
	}

	total := earned + bonus
	message := fmt.Sprintf("checked in, +%d reputation", total)
	if bonus > 0 {
		message = fmt.Sprintf("checked in, +%d reputation (%d bonus!)", total, bonus)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"earned":  earned,
		"bonus":   bonus,
		"total":   total,
	})
}

// Emojis lists the avatar choices offered by the settings page.
func (h *UserHandler) Emojis(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"emojis": utils.GetCommonEmojis()})
}

// UpdateSettings applies a partial update to the viewer's account. Absent
// fields keep their value. A password change needs the old password.
func (h *UserHandler) UpdateSettings(c *gin.Context) {
	user := CurrentUser(c)

	var req struct {
		Username    *string `json:"username" binding:"omitempty,min=2,max=20"`
		Email       *string `json:"email" binding:"omitempty,email"`
		Avatar      *string `json:"avatar" binding:"omitempty,max=20"`
		Bio         *string `json:"bio" binding:"omitempty,max=200"`
		OldPassword string  `json:"oldPassword"`
		NewPassword string  `json:"newPassword" binding:"omitempty,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		FailValidation(c, err)
		return
	}

	updates := make(map[string]interface{})

	if req.Username != nil {
		if name := strings.TrimSpace(*req.Username); name != "" && name != user.Username {
			updates["username"] = name
		}
	}
	if req.Email != nil && *req.Email != user.Email {
		var existing models.User
		if err := db.DB.Where("email = ? AND id != ?", *req.Email, user.ID).First(&existing).Error; err == nil {
			Fail(c, apperr.Conflict("this email is already in use"))
			return
		}
		updates["email"] = *req.Email
	}
	if req.Avatar != nil && *req.Avatar != "" {
		updates["avatar"] = *req.Avatar
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}

	if req.NewPassword != "" {
		if !utils.CheckPasswordHash(req.OldPassword, user.Password) {
			Fail(c, apperr.PermissionDenied("old password is wrong"))
			return
		}
		hash, err := utils.HashPassword(req.NewPassword)
		if err != nil {
			Fail(c, apperr.Internal(err))
			return
		}
		updates["password"] = hash
	}

	if len(updates) > 0 {
		if err := db.DB.Model(user).Updates(updates).Error; err != nil {
			Fail(c, apperr.Internal(err))
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
