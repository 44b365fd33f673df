package handlers

import (
	"net/http"

	"emuhub/internal/apperr"
	"emuhub/internal/db"
	"emuhub/internal/models"
	"emuhub/internal/utils"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct{}

func NewNotificationHandler() *NotificationHandler {
	return &NotificationHandler{}
}

// List returns the viewer's 50 newest notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	user := CurrentUser(c)

	var notifications []models.Notification
	db.DB.Where("user_id = ?", user.ID).
		Preload("Actor").
		Order("created_at DESC").
		Limit(50).
		Find(&notifications)

	var unread int64
	db.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		Count(&unread)

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"unread_count":  unread,
	})
}

// Read marks one notification as read.
func (h *NotificationHandler) Read(c *gin.Context) {
	user := CurrentUser(c)
	id := utils.StringToUint(c.Param("id"))

	var notification models.Notification
	if err := db.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&notification).Error; err != nil {
		Fail(c, apperr.NotFound("notification not found"))
		return
	}

	if !notification.IsRead {
		notification.IsRead = true
		db.DB.Save(&notification)
	}

	c.JSON(http.StatusOK, gin.H{"message": "notification marked as read"})
}

// ReadAll marks every unread notification of the viewer as read.
func (h *NotificationHandler) ReadAll(c *gin.Context) {
	user := CurrentUser(c)

	db.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		Update("is_read", true)

	c.JSON(http.StatusOK, gin.H{"message": "all notifications marked as read"})
}

// Delete removes one notification. Scoped to the viewer so nobody can
// delete someone else's inbox entries.
func (h *NotificationHandler) Delete(c *gin.Context) {
	user := CurrentUser(c)
	id := utils.StringToUint(c.Param("id"))

	result := db.DB.Where("id = ? AND user_id = ?", id, user.ID).Delete(&models.Notification{})
	if result.RowsAffected == 0 {
		Fail(c, apperr.NotFound("notification not found"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "notification deleted"})
}
