package handlers

import (
	"fmt"
	"net/http"
	"time"

	"emuhub/internal/apperr"
	"emuhub/internal/db"
	"emuhub/internal/models"
	"emuhub/internal/utils"

	"github.com/gin-gonic/gin"
)

// AdminHandler holds the moderation endpoints. Role checks live in the
// router middleware, not here.
type AdminHandler struct{}

func NewAdminHandler() *AdminHandler {
	return &AdminHandler{}
}

// ListReports returns open reports, newest first.
func (h *AdminHandler) ListReports(c *gin.Context) {
	var reports []models.Report
	db.DB.Preload("User").Order("created_at DESC").Limit(100).Find(&reports)

	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// ResolveReport discards a handled report.
func (h *AdminHandler) ResolveReport(c *gin.Context) {
	id := utils.StringToUint(c.Param("id"))

	result := db.DB.Delete(&models.Report{}, id)
	if result.RowsAffected == 0 {
		Fail(c, apperr.NotFound("report not found"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "report resolved"})
}

// PunishUser mutes or bans an account, or lifts a punishment. Mutes carry
// an expiry; bans do not.
func (h *AdminHandler) PunishUser(c *gin.Context) {
	id := utils.StringToUint(c.Param("id"))

	var req struct {
		Status int    `json:"status" binding:"min=0,max=2"`
		Days   int    `json:"days" binding:"min=0,max=3650"`
		Reason string `json:"reason" binding:"max=200"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		FailValidation(c, err)
		return
	}

	var target models.User
	if err := db.DB.First(&target, id).Error; err != nil {
		Fail(c, apperr.NotFound("user not found"))
		return
	}
	if target.IsAdmin() {
		Fail(c, apperr.PermissionDenied("admins cannot be punished"))
		return
	}

	updates := map[string]interface{}{
		"status": req.Status,
	}
	if req.Status != models.StatusActive && req.Days > 0 {
		expires := time.Now().AddDate(0, 0, req.Days)
		updates["punish_expires"] = &expires
	} else {
		updates["punish_expires"] = nil
	}

	if err := db.DB.Model(&models.User{}).Where("id = ?", target.ID).Updates(updates).Error; err != nil {
		Fail(c, apperr.Internal(err))
		return
	}

	go func() {
		reason := punishmentNotice(req.Status, req.Days)
		if req.Reason != "" {
			reason = fmt.Sprintf("%s Reason: %s", reason, req.Reason)
		}
		notification := models.Notification{
			UserID: target.ID,
			Type:   models.NotificationTypeModeration,
			Reason: reason,
		}
		db.DB.Create(&notification)
	}()

	c.JSON(http.StatusOK, gin.H{"message": "user status updated"})
}

func punishmentNotice(status, days int) string {
	switch status {
	case models.StatusMuted:
		if days > 0 {
			return fmt.Sprintf("Your account has been muted for %d days.", days)
		}
		return "Your account has been muted."
	case models.StatusBanned:
		return "Your account has been banned."
	default:
		return "Your account is in good standing again."
	}
}
