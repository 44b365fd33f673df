package handlers

import (
	"fmt"
	"net/http"

	"emuhub/internal/apperr"
	"emuhub/internal/db"
	"emuhub/internal/models"
	"emuhub/internal/services"
	"emuhub/internal/utils"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct{}

func NewVoteHandler() *VoteHandler {
	return &VoteHandler{}
}

type voteRequest struct {
	// Pointer so an absent value binds as nil instead of a silent 0
	// (0 is a meaningful request: retract my vote).
	Value *int `json:"value" binding:"required"`
}

// VoteConfig casts, flips or retracts the session user's vote on a config.
func (h *VoteHandler) VoteConfig(c *gin.Context) {
	user := CurrentUser(c)
	configID := utils.StringToUint(c.Param("id"))

	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailValidation(c, err)
		return
	}

	result, err := services.CastVote(user, services.TargetConfig, configID, *req.Value)
	if err != nil {
		Fail(c, err)
		return
	}

	if result.Changed() {
		services.GetRankingService().ScheduleUpdate(configID)
		services.ApplyVoteChangeAsync(services.TargetConfig, result.AuthorID, user.ID, result.Previous, result.Value)
		utils.GetCache().Delete(configDetailKey(configID))
	}

	c.JSON(http.StatusOK, gin.H{
		"config": gin.H{
			"id":        result.TargetID,
			"upvotes":   result.Upvotes,
			"downvotes": result.Downvotes,
		},
	})
}

// MyConfigVote reports the session user's current vote on a config:
// {"vote": {"value": n}} or {"vote": null} when none.
func (h *VoteHandler) MyConfigVote(c *gin.Context) {
	user := CurrentUser(c)
	configID := utils.StringToUint(c.Param("id"))

	if _, err := services.GetConfigForViewer(user, configID); err != nil {
		Fail(c, err)
		return
	}

	value, err := services.GetVoteValue(user.ID, services.TargetConfig, configID)
	if err != nil {
		Fail(c, apperr.Internal(err))
		return
	}
	if value == 0 {
		c.JSON(http.StatusOK, gin.H{"vote": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"vote": gin.H{"value": value}})
}

// VoteComment runs the same ledger state machine against a comment.
func (h *VoteHandler) VoteComment(c *gin.Context) {
	user := CurrentUser(c)
	commentID := utils.StringToUint(c.Param("id"))

	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailValidation(c, err)
		return
	}

	result, err := services.CastVote(user, services.TargetComment, commentID, *req.Value)
	if err != nil {
		Fail(c, err)
		return
	}

	if result.Changed() {
		services.ApplyVoteChangeAsync(services.TargetComment, result.AuthorID, user.ID, result.Previous, result.Value)
	}

	c.JSON(http.StatusOK, gin.H{
		"value":     result.Value,
		"upvotes":   result.Upvotes,
		"downvotes": result.Downvotes,
	})
}

// Report files a complaint about a config or comment and pings the admins.
func (h *VoteHandler) Report(c *gin.Context) {
	user := CurrentUser(c)

	var req struct {
		ItemType string `json:"itemType" binding:"required,oneof=config comment"`
		ItemID   uint   `json:"itemId" binding:"required"`
		Reason   string `json:"reason" binding:"required,max=200"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		FailValidation(c, err)
		return
	}

	// Resolve the public id for the admin surface: the config's own pid,
	// or the parent config's pid for comments.
	var itemPid string
	if req.ItemType == models.ReportItemConfig {
		var cfg models.Config
		if err := db.DB.First(&cfg, req.ItemID).Error; err != nil {
			Fail(c, apperr.NotFound("config not found"))
			return
		}
		itemPid = cfg.Pid
	} else {
		var comment models.Comment
		if err := db.DB.Preload("Config").First(&comment, req.ItemID).Error; err != nil {
			Fail(c, apperr.NotFound("comment not found"))
			return
		}
		itemPid = comment.Config.Pid
	}

	report := models.Report{
		UserID:   user.ID,
		ItemType: req.ItemType,
		ItemID:   req.ItemID,
		ItemPid:  itemPid,
		Reason:   req.Reason,
	}
	if err := db.DB.Create(&report).Error; err != nil {
		Fail(c, apperr.Internal(err))
		return
	}

	go func(actorID uint, itemType, itemPid, reason string) {
		var admins []models.User
		if err := db.DB.Where("role = ?", models.RoleAdmin).Find(&admins).Error; err != nil {
			return
		}
		for _, admin := range admins {
			db.DB.Create(&models.Notification{
				UserID:  admin.ID,
				ActorID: &actorID,
				Type:    models.NotificationTypeReport,
				Reason:  fmt.Sprintf("Reported a %s (/c/%s): %s", itemType, itemPid, reason),
			})
		}
	}(user.ID, req.ItemType, itemPid, req.Reason)

	c.JSON(http.StatusCreated, gin.H{"message": "report filed"})
}
