package handlers

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"emuhub/internal/apperr"
	"emuhub/internal/db"
	"emuhub/internal/models"
	"emuhub/internal/services"
	"emuhub/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ConfigHandler struct {
	mailService *services.MailService
}

func NewConfigHandler() *ConfigHandler {
	return &ConfigHandler{
		mailService: services.NewMailService(),
	}
}

// configDetailPayload is the viewer-independent part of a detail response,
// safe to share through the cache. Viewer-specific fields (own vote,
// favorite state) are layered on per request.
type configDetailPayload struct {
	Config    models.Config
	NotesHTML string
}

func configDetailKey(configID uint) string {
	return fmt.Sprintf("config:detail:%d", configID)
}

// invalidateConfigCaches drops the cached detail payload and the first
// pages of the public listings after any visible mutation.
func invalidateConfigCaches(configID uint) {
	utils.GetCache().Delete(configDetailKey(configID))
	utils.GetCache().Delete("config:list:new:page:1")
	utils.GetCache().Delete("config:list:top:page:1")
}

// fillCommentCounts batch-loads comment tallies for a page of configs.
func fillCommentCounts(configs []models.Config) {
	if len(configs) == 0 {
		return
	}
	configIDs := make([]uint, len(configs))
	for i, cfg := range configs {
		configIDs[i] = cfg.ID
	}

	type countRow struct {
		ConfigID uint
		Count    int
	}
	var rows []countRow
	db.DB.Model(&models.Comment{}).
		Select("config_id, COUNT(*) as count").
		Where("config_id IN ?", configIDs).
		Group("config_id").
		Scan(&rows)

	counts := make(map[uint]int, len(rows))
	for _, r := range rows {
		counts[r.ConfigID] = r.Count
	}
	for i := range configs {
		configs[i].CommentCount = counts[configs[i].ID]
	}
}

func (h *ConfigHandler) List(c *gin.Context) {
	viewer := CurrentUser(c)

	opts := services.ListConfigsOptions{
		GameID:        utils.StringToUint(c.Query("gameId")),
		UserID:        utils.StringToUint(c.Query("userId")),
		Tag:           c.Query("tag"),
		IncludeLegacy: c.Query("legacy") == "true",
		Sort:          c.Query("sort"),
		Page:          utils.StringToInt(c.Query("page")),
		Viewer:        viewer,
	}
	if opts.Page < 1 {
		opts.Page = 1
	}
	sortKey := "new"
	if opts.Sort == "top" {
		sortKey = "top"
	}

	// Only the filterless anonymous listing is worth caching; everything
	// else fans out into too many key shapes.
	cacheable := viewer == nil && opts.GameID == 0 && opts.UserID == 0 &&
		opts.Tag == "" && !opts.IncludeLegacy
	cacheKey := fmt.Sprintf("config:list:%s:page:%d", sortKey, opts.Page)

	if cacheable {
		if cached := utils.GetCache().Get(cacheKey); cached != nil {
			if payload, ok := cached.(gin.H); ok {
				c.JSON(http.StatusOK, payload)
				return
			}
		}
	}

	configs, total, err := services.ListConfigs(opts)
	if err != nil {
		Fail(c, err)
		return
	}
	fillCommentCounts(configs)

	totalPages := int(math.Ceil(float64(total) / float64(20)))
	if totalPages == 0 {
		totalPages = 1
	}

	payload := gin.H{
		"configs":     configs,
		"total":       total,
		"page":        opts.Page,
		"total_pages": totalPages,
	}
	if cacheable {
		utils.GetCache().Set(cacheKey, payload, 1*time.Minute)
		c.JSON(http.StatusOK, payload)
		return
	}

	// Authenticated listings carry the viewer's votes for optimistic UIs
	// to reconcile against.
	if viewer != nil {
		ids := make([]uint, len(configs))
		for i, cfg := range configs {
			ids[i] = cfg.ID
		}
		votes, _ := services.VotesFor(viewer.ID, services.TargetConfig, ids)
		payload["viewer_votes"] = votes
	}
	c.JSON(http.StatusOK, payload)
}

func (h *ConfigHandler) Detail(c *gin.Context) {
	viewer := CurrentUser(c)
	configID := utils.StringToUint(c.Param("id"))

	cacheKey := configDetailKey(configID)
	if cached := utils.GetCache().Get(cacheKey); cached != nil {
		if payload, ok := cached.(configDetailPayload); ok {
			// Hidden state may be newer than the cache entry; re-check.
			if payload.Config.IsHidden && (viewer == nil || !viewer.CanEditContent(payload.Config.UserID)) {
				Fail(c, apperr.NotFound("config not found"))
				return
			}
			db.DB.Model(&models.Config{}).Where("id = ?", configID).
				UpdateColumn("views", gorm.Expr("views + 1"))
			services.GetRankingService().ScheduleUpdate(configID)

			h.renderDetail(c, viewer, payload)
			return
		}
	}

	cfg, err := services.GetConfigForViewer(viewer, configID)
	if err != nil {
		Fail(c, err)
		return
	}

	db.DB.Model(cfg).UpdateColumn("views", gorm.Expr("views + 1"))
	cfg.Views++
	services.GetRankingService().ScheduleUpdate(cfg.ID)

	payload := configDetailPayload{
		Config:    *cfg,
		NotesHTML: utils.RenderMarkdown(cfg.Detail.Notes),
	}
	if !cfg.IsHidden {
		utils.GetCache().Set(cacheKey, payload, 5*time.Minute)
	}

	h.renderDetail(c, viewer, payload)
}

// DetailByPid serves the public-id links used in feeds and share URLs.
func (h *ConfigHandler) DetailByPid(c *gin.Context) {
	pid := c.Param("pid")

	var id uint
	if err := db.DB.Model(&models.Config{}).Where("pid = ?", pid).
		Select("id").Take(&id).Error; err != nil {
		Fail(c, apperr.NotFound("config not found"))
		return
	}

	c.Params = append(c.Params, gin.Param{Key: "id", Value: fmt.Sprint(id)})
	h.Detail(c)
}

func (h *ConfigHandler) renderDetail(c *gin.Context, viewer *models.User, payload configDetailPayload) {
	viewerVote := 0
	isFavorited := false
	if viewer != nil {
		viewerVote, _ = services.GetVoteValue(viewer.ID, services.TargetConfig, payload.Config.ID)
		var fav models.Favorite
		if err := db.DB.Where("user_id = ? AND config_id = ?", viewer.ID, payload.Config.ID).
			First(&fav).Error; err == nil {
			isFavorited = true
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"config":       payload.Config,
		"notes_html":   payload.NotesHTML,
		"viewer_vote":  viewerVote,
		"is_favorited": isFavorited,
	})
}

func (h *ConfigHandler) Create(c *gin.Context) {
	user := CurrentUser(c)
	if !RequireActive(c, user) {
		return
	}

	var input services.CreateConfigInput
	if err := c.ShouldBindJSON(&input); err != nil {
		FailValidation(c, err)
		return
	}

	cfg, err := services.CreateConfig(user, input)
	if err != nil {
		Fail(c, err)
		return
	}

	go func() {
		if services.CanEarnConfigRep(user.ID) {
			_ = services.AddReputation(user.ID, services.RepConfigCreate, services.ActionConfigCreate)
		}
	}()
	services.GetRankingService().ScheduleUpdate(cfg.ID)
	invalidateConfigCaches(cfg.ID)

	c.JSON(http.StatusCreated, cfg)
}

func (h *ConfigHandler) Update(c *gin.Context) {
	user := CurrentUser(c)
	if !RequireActive(c, user) {
		return
	}
	configID := utils.StringToUint(c.Param("id"))

	var patch services.ConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		FailValidation(c, err)
		return
	}

	cfg, err := services.UpdateConfig(user, configID, patch)
	if err != nil {
		Fail(c, err)
		return
	}
	invalidateConfigCaches(cfg.ID)

	// A staff edit of somebody else's config leaves a trace for the owner.
	if user.ID != cfg.UserID {
		go func(ownerID, actorID uint, pid string) {
			db.DB.Create(&models.Notification{
				UserID:  ownerID,
				ActorID: &actorID,
				Type:    models.NotificationTypeModeration,
				Reason:  fmt.Sprintf("A moderator edited your config /c/%s", pid),
			})
		}(cfg.UserID, user.ID, cfg.Pid)
	}

	c.JSON(http.StatusOK, cfg)
}

func (h *ConfigHandler) Revert(c *gin.Context) {
	user := CurrentUser(c)
	if !RequireActive(c, user) {
		return
	}
	configID := utils.StringToUint(c.Param("id"))
	versionID := utils.StringToUint(c.Param("versionId"))

	cfg, err := services.RevertConfig(user, configID, versionID)
	if err != nil {
		Fail(c, err)
		return
	}
	invalidateConfigCaches(cfg.ID)

	c.JSON(http.StatusOK, cfg)
}

func (h *ConfigHandler) Delete(c *gin.Context) {
	user := CurrentUser(c)
	configID := utils.StringToUint(c.Param("id"))

	// Read the owner before the row can go away.
	var target struct {
		UserID uint
		Pid    string
	}
	db.DB.Model(&models.Config{}).Select("user_id, pid").Where("id = ?", configID).Take(&target)

	hard, err := services.DeleteConfig(user, configID)
	if err != nil {
		Fail(c, err)
		return
	}
	invalidateConfigCaches(configID)

	message := "config hidden"
	if hard {
		message = "config deleted"
	}

	if target.UserID != 0 && target.UserID != user.ID {
		go func(ownerID, actorID uint, pid string) {
			db.DB.Create(&models.Notification{
				UserID:  ownerID,
				ActorID: &actorID,
				Type:    models.NotificationTypeModeration,
				Reason:  "A moderator removed your config /c/" + pid,
			})
		}(target.UserID, user.ID, target.Pid)
		services.AddReputationAsync(target.UserID, services.RepConfigDeleted, services.ActionConfigDeleted)
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

func (h *ConfigHandler) Restore(c *gin.Context) {
	user := CurrentUser(c)
	configID := utils.StringToUint(c.Param("id"))

	if err := services.RestoreConfig(user, configID); err != nil {
		Fail(c, err)
		return
	}
	invalidateConfigCaches(configID)
	c.JSON(http.StatusOK, gin.H{"message": "config restored"})
}

func (h *ConfigHandler) ListVersions(c *gin.Context) {
	viewer := CurrentUser(c)
	configID := utils.StringToUint(c.Param("id"))

	versions, err := services.ListVersions(viewer, configID)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

func (h *ConfigHandler) GetVersion(c *gin.Context) {
	viewer := CurrentUser(c)
	configID := utils.StringToUint(c.Param("id"))
	versionID := utils.StringToUint(c.Param("versionId"))

	version, err := services.GetVersion(viewer, configID, versionID)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": version})
}

// ToggleLegacy flips the legacy flag, marking configs written for outdated
// runtime versions. Staff only; the route is gated by middleware.
func (h *ConfigHandler) ToggleLegacy(c *gin.Context) {
	configID := utils.StringToUint(c.Param("id"))

	var cfg models.Config
	if err := db.DB.First(&cfg, configID).Error; err != nil {
		Fail(c, apperr.NotFound("config not found"))
		return
	}
	if err := db.DB.Model(&cfg).UpdateColumn("is_legacy", !cfg.IsLegacy).Error; err != nil {
		Fail(c, apperr.Internal(err))
		return
	}
	invalidateConfigCaches(configID)

	c.JSON(http.StatusOK, gin.H{"is_legacy": !cfg.IsLegacy})
}

// ToggleFavorite saves or unsaves a config for the session user.
func (h *ConfigHandler) ToggleFavorite(c *gin.Context) {
	user := CurrentUser(c)
	configID := utils.StringToUint(c.Param("id"))

	cfg, err := services.GetConfigForViewer(user, configID)
	if err != nil {
		Fail(c, err)
		return
	}

	var favorite models.Favorite
	err = db.DB.Where("user_id = ? AND config_id = ?", user.ID, cfg.ID).First(&favorite).Error
	favorited := false
	switch {
	case err == nil:
		if err := db.DB.Delete(&favorite).Error; err != nil {
			Fail(c, apperr.Internal(err))
			return
		}
		if cfg.UserID != user.ID {
			services.AddReputationAsync(cfg.UserID, services.RepConfigUnfavorited, services.ActionConfigUnfavorited)
		}
	default:
		if err := db.DB.Create(&models.Favorite{UserID: user.ID, ConfigID: cfg.ID}).Error; err != nil {
			Fail(c, apperr.Internal(err))
			return
		}
		favorited = true
		if cfg.UserID != user.ID {
			services.AddReputationAsync(cfg.UserID, services.RepConfigFavorited, services.ActionConfigFavorited)
		}
	}

	services.GetRankingService().ScheduleUpdate(cfg.ID)
	invalidateConfigCaches(cfg.ID)

	var count int64
	db.DB.Model(&models.Favorite{}).Where("config_id = ?", cfg.ID).Count(&count)
	c.JSON(http.StatusOK, gin.H{"favorited": favorited, "favorite_count": count})
}
