package handlers

import (
	"fmt"
	"net/http"
	"os"

	"emuhub/internal/apperr"
	"emuhub/internal/db"
	"emuhub/internal/models"
	"emuhub/internal/services"
	"emuhub/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CommentHandler struct {
	mailService *services.MailService
}

func NewCommentHandler() *CommentHandler {
	return &CommentHandler{
		mailService: services.NewMailService(),
	}
}

// commentView is a comment plus its rendered body and per-viewer vote.
type commentView struct {
	models.Comment
	ContentHTML string `json:"content_html"`
	Floor       int    `json:"floor"`
	ViewerVote  int    `json:"viewer_vote"`
}

// List returns a config's comments oldest-first with rendered markdown.
// Threading is left to the client via parent_id.
func (h *CommentHandler) List(c *gin.Context) {
	viewer := CurrentUser(c)
	configID := utils.StringToUint(c.Param("id"))

	if _, err := services.GetConfigForViewer(viewer, configID); err != nil {
		Fail(c, err)
		return
	}

	var comments []models.Comment
	db.DB.Preload("User").
		Where("config_id = ?", configID).
		Order("created_at ASC").
		Find(&comments)

	var viewerVotes map[uint]int
	if viewer != nil {
		ids := make([]uint, len(comments))
		for i, com := range comments {
			ids[i] = com.ID
		}
		viewerVotes, _ = services.VotesFor(viewer.ID, services.TargetComment, ids)
	}

	views := make([]commentView, len(comments))
	for i, com := range comments {
		views[i] = commentView{
			Comment:     com,
			ContentHTML: utils.RenderMarkdown(com.Content),
			Floor:       i + 1,
			ViewerVote:  viewerVotes[com.ID],
		}
	}

	c.JSON(http.StatusOK, gin.H{"comments": views})
}

func (h *CommentHandler) Create(c *gin.Context) {
	user := CurrentUser(c)
	if !RequireActive(c, user) {
		return
	}
	configID := utils.StringToUint(c.Param("id"))

	cfg, err := services.GetConfigForViewer(user, configID)
	if err != nil {
		Fail(c, err)
		return
	}

	var req struct {
		Content  string `json:"content" binding:"required,max=10000"`
		ParentID *uint  `json:"parentId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		FailValidation(c, err)
		return
	}

	// A parent must be a comment on the same config.
	var parent *models.Comment
	if req.ParentID != nil {
		var p models.Comment
		if err := db.DB.Preload("User").First(&p, *req.ParentID).Error; err != nil || p.ConfigID != cfg.ID {
			Fail(c, apperr.NotFound("parent comment not found"))
			return
		}
		parent = &p
	}

	comment := models.Comment{
		Cid:      utils.RandStringBytesMaskImpr(8),
		ConfigID: cfg.ID,
		UserID:   user.ID,
		ParentID: req.ParentID,
		Content:  req.Content,
	}
	if err := db.DB.Create(&comment).Error; err != nil {
		Fail(c, apperr.Internal(err))
		return
	}

	utils.GetCache().Delete(configDetailKey(cfg.ID))
	services.GetRankingService().ScheduleUpdate(cfg.ID)

	go func() {
		if services.CanEarnCommentRep(user.ID) {
			_ = services.AddReputation(user.ID, services.RepCommentCreate, services.ActionCommentCreate)
		}
	}()

	go func(comment models.Comment, cfg models.Config, parent *models.Comment, actor models.User) {
		link := fmt.Sprintf("%s/c/%s#comment-%d", os.Getenv("SITE_URL"), cfg.Pid, comment.ID)
		if parent != nil {
			if parent.UserID != actor.ID {
				db.DB.Create(&models.Notification{
					UserID:  parent.UserID,
					ActorID: &actor.ID,
					Type:    models.NotificationTypeReplyComment,
					Reason:  fmt.Sprintf("Replied to your comment on the %s config /c/%s", cfg.Game.Title, cfg.Pid),
				})
				h.mailService.SendReplyNotification(
					parent.User.Email,
					actor.Username,
					cfg.Game.Title,
					comment.Content,
					link,
				)
			}
			return
		}
		if cfg.UserID != actor.ID {
			db.DB.Create(&models.Notification{
				UserID:  cfg.UserID,
				ActorID: &actor.ID,
				Type:    models.NotificationTypeCommentConfig,
				Reason:  fmt.Sprintf("Commented on your %s config /c/%s", cfg.Game.Title, cfg.Pid),
			})
		}
	}(comment, *cfg, parent, *user)

	comment.User = *user
	c.JSON(http.StatusCreated, gin.H{"comment": commentView{
		Comment:     comment,
		ContentHTML: utils.RenderMarkdown(comment.Content),
	}})
}

// Delete applies the comment removal policy: admins erase the row and its
// ledger, the owner (or a moderator) just blanks the content so the thread
// keeps its shape.
func (h *CommentHandler) Delete(c *gin.Context) {
	user := CurrentUser(c)
	cid := c.Param("cid")

	var comment models.Comment
	if err := db.DB.Where("cid = ?", cid).First(&comment).Error; err != nil {
		Fail(c, apperr.NotFound("comment not found"))
		return
	}

	switch {
	case user.IsAdmin():
		err := db.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("comment_id = ?", comment.ID).Delete(&models.CommentVote{}).Error; err != nil {
				return err
			}
			return tx.Delete(&comment).Error
		})
		if err != nil {
			Fail(c, apperr.Internal(err))
			return
		}
	case user.CanEditContent(comment.UserID):
		comment.Content = "[deleted]"
		if err := db.DB.Save(&comment).Error; err != nil {
			Fail(c, apperr.Internal(err))
			return
		}
	default:
		Fail(c, apperr.PermissionDenied("you cannot delete this comment"))
		return
	}

	utils.GetCache().Delete(configDetailKey(comment.ConfigID))
	if comment.UserID == user.ID {
		services.AddReputationAsync(user.ID, services.RepCommentDeleted, services.ActionCommentDeleted)
	}

	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}
