package handlers

import (
	"log"
	"net/http"
	"time"

	"emuhub/internal/apperr"
	"emuhub/internal/db"
	"emuhub/internal/middleware"
	"emuhub/internal/models"

	"github.com/gin-gonic/gin"
)

// Fail writes the JSON error envelope for any service error. Internal
// causes are logged server-side; the client only ever sees the category
// and a safe message.
func Fail(c *gin.Context, err error) {
	if apperr.CategoryOf(err) == apperr.CategoryInternal {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(apperr.HTTPStatus(err), gin.H{
		"error": apperr.Message(err),
		"code":  string(apperr.CategoryOf(err)),
	})
}

// FailValidation wraps a binding error into the validation envelope.
func FailValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": "invalid request: " + err.Error(),
		"code":  string(apperr.CategoryValidation),
	})
}

// CurrentUser returns the session user, or nil.
func CurrentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

// RequireActive gates submission paths for muted and banned users. A mute
// whose term has passed lifts itself on the next attempt; bans only lift
// through the admin surface.
func RequireActive(c *gin.Context, user *models.User) bool {
	switch user.Status {
	case models.StatusBanned:
		Fail(c, apperr.PermissionDenied("your account is banned"))
		return false
	case models.StatusMuted:
		if user.PunishExpires != nil && time.Now().After(*user.PunishExpires) {
			db.DB.Model(user).Updates(map[string]interface{}{
				"status":         models.StatusActive,
				"punish_expires": nil,
			})
			user.Status = models.StatusActive
			return true
		}
		Fail(c, apperr.PermissionDenied("your account is muted"))
		return false
	}
	return true
}
