package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"emuhub/internal/apperr"
	"emuhub/internal/db"
	"emuhub/internal/models"
	"emuhub/internal/utils"

	"gorm.io/gorm"
)

const versionAttempts = 3

// NullableString distinguishes "field absent" from "explicit null" in a
// PATCH body: absent keeps the stored value, null clears it.
type NullableString struct {
	Set   bool
	Value *string
}

func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// CreateConfigInput is the POST /configs body.
type CreateConfigInput struct {
	GameID         uint               `json:"gameId" binding:"required"`
	GamehubVersion string             `json:"gamehubVersion" binding:"required,gamehub_version"`
	VideoURL       *string            `json:"videoUrl" binding:"omitempty,url"`
	Tags           []string           `json:"tags"`
	Details        ConfigDetailsInput `json:"details"`
}

// ConfigDetailsInput carries the tunable fields on create.
type ConfigDetailsInput struct {
	Resolution  string   `json:"resolution" binding:"max=20"`
	GPUDriver   string   `json:"gpuDriver" binding:"max=50"`
	DXWrapper   string   `json:"dxWrapper" binding:"max=50"`
	AudioDriver string   `json:"audioDriver" binding:"max=50"`
	EnvVars     string   `json:"envVars"`
	LaunchArgs  string   `json:"launchArgs"`
	Components  []string `json:"components"`
	Notes       string   `json:"notes"`
}

// ConfigPatch is the PATCH /configs/{id} body. Pointer fields that stay nil
// were absent from the request and leave the stored value untouched.
type ConfigPatch struct {
	GamehubVersion *string        `json:"gamehubVersion" binding:"omitempty,gamehub_version"`
	VideoURL       NullableString `json:"videoUrl"`
	Resolution     *string        `json:"resolution" binding:"omitempty,max=20"`
	GPUDriver      *string        `json:"gpuDriver" binding:"omitempty,max=50"`
	DXWrapper      *string        `json:"dxWrapper" binding:"omitempty,max=50"`
	AudioDriver    *string        `json:"audioDriver" binding:"omitempty,max=50"`
	EnvVars        *string        `json:"envVars"`
	LaunchArgs     *string        `json:"launchArgs"`
	Components     *[]string      `json:"components"`
	Tags           *[]string      `json:"tags"`
	Notes          *string        `json:"notes"`
	ChangeSummary  string         `json:"changeSummary"`
}

// apply merges the patch onto the loaded rows.
func (p *ConfigPatch) apply(cfg *models.Config, detail *models.ConfigDetail) {
	if p.GamehubVersion != nil {
		cfg.GamehubVersion = *p.GamehubVersion
	}
	if p.VideoURL.Set {
		cfg.VideoURL = p.VideoURL.Value
	}
	if p.Resolution != nil {
		detail.Resolution = *p.Resolution
	}
	if p.GPUDriver != nil {
		detail.GPUDriver = *p.GPUDriver
	}
	if p.DXWrapper != nil {
		detail.DXWrapper = *p.DXWrapper
	}
	if p.AudioDriver != nil {
		detail.AudioDriver = *p.AudioDriver
	}
	if p.EnvVars != nil {
		detail.EnvVars = *p.EnvVars
	}
	if p.LaunchArgs != nil {
		detail.LaunchArgs = *p.LaunchArgs
	}
	if p.Components != nil {
		detail.Components = models.EncodeStringList(*p.Components)
	}
	if p.Tags != nil {
		detail.Tags = models.EncodeStringList(*p.Tags)
	}
	if p.Notes != nil {
		detail.Notes = *p.Notes
	}
}

// CreateConfig inserts a config, its detail row and version 1 in one
// transaction. The (user, game) unique index enforces one config per user
// per game and surfaces as a conflict error.
func CreateConfig(author *models.User, input CreateConfigInput) (*models.Config, error) {
	if strings.TrimSpace(input.GamehubVersion) == "" {
		return nil, apperr.Validation("gamehubVersion is required")
	}

	var game models.Game
	if err := db.DB.First(&game, input.GameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("game not found")
		}
		return nil, err
	}

	cfg := &models.Config{
		Pid:            utils.RandStringBytesMaskImpr(8),
		UserID:         author.ID,
		GameID:         game.ID,
		GamehubVersion: strings.TrimSpace(input.GamehubVersion),
		VideoURL:       input.VideoURL,
	}
	detail := &models.ConfigDetail{
		Resolution:  input.Details.Resolution,
		GPUDriver:   input.Details.GPUDriver,
		DXWrapper:   input.Details.DXWrapper,
		AudioDriver: input.Details.AudioDriver,
		EnvVars:     input.Details.EnvVars,
		LaunchArgs:  input.Details.LaunchArgs,
		Components:  models.EncodeStringList(input.Details.Components),
		Tags:        models.EncodeStringList(input.Tags),
		Notes:       input.Details.Notes,
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(cfg).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("you already have a config for this game")
			}
			return err
		}
		detail.ConfigID = cfg.ID
		if err := tx.Create(detail).Error; err != nil {
			return err
		}
		return insertVersion(tx, cfg, detail, author.ID, 1, "Initial configuration")
	})
	if err != nil {
		return nil, err
	}

	cfg.Detail = *detail
	cfg.Game = game
	cfg.User = *author
	return cfg, nil
}

// UpdateConfig merges a partial edit onto the stored details and appends the
// next version, all in one transaction. Two editors racing for the same
// version number collide on the (config, number) unique index; the loser
// retries against the fresh watermark.
func UpdateConfig(editor *models.User, configID uint, patch ConfigPatch) (*models.Config, error) {
	if strings.TrimSpace(patch.ChangeSummary) == "" {
		return nil, apperr.Validation("a change summary is required")
	}

	for attempt := 0; attempt < versionAttempts; attempt++ {
		cfg, err := updateConfigOnce(editor, configID, patch)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		return cfg, err
	}
	return nil, apperr.Internal(fmt.Errorf("version allocation for config %d kept racing", configID))
}

func updateConfigOnce(editor *models.User, configID uint, patch ConfigPatch) (*models.Config, error) {
	var cfg models.Config
	var detail models.ConfigDetail

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&cfg, configID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("config not found")
			}
			return err
		}
		if !editor.CanEditContent(cfg.UserID) {
			return apperr.PermissionDenied("you cannot edit this config")
		}
		if err := tx.Where("config_id = ?", configID).Take(&detail).Error; err != nil {
			return err
		}

		patch.apply(&cfg, &detail)

		// Only the patched columns are written back; the vote counters on
		// this row belong to the ledger transactions and must not be
		// overwritten with the values read here.
		if err := tx.Model(&models.Config{}).Where("id = ?", cfg.ID).Updates(map[string]any{
			"gamehub_version": cfg.GamehubVersion,
			"video_url":       cfg.VideoURL,
		}).Error; err != nil {
			return err
		}
		if err := tx.Save(&detail).Error; err != nil {
			return err
		}

		next, err := nextVersionNumber(tx, configID)
		if err != nil {
			return err
		}
		return insertVersion(tx, &cfg, &detail, editor.ID, next, strings.TrimSpace(patch.ChangeSummary))
	})
	if err != nil {
		return nil, err
	}

	cfg.Detail = detail
	return &cfg, nil
}

// RevertConfig copies a stored snapshot over the live fields and appends a
// new version recording the revert. History only ever grows: the reverted-
// away-from versions stay in place.
func RevertConfig(actor *models.User, configID, versionID uint) (*models.Config, error) {
	for attempt := 0; attempt < versionAttempts; attempt++ {
		cfg, err := revertConfigOnce(actor, configID, versionID)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		return cfg, err
	}
	return nil, apperr.Internal(fmt.Errorf("version allocation for config %d kept racing", configID))
}

func revertConfigOnce(actor *models.User, configID, versionID uint) (*models.Config, error) {
	var cfg models.Config
	var detail models.ConfigDetail

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&cfg, configID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("config not found")
			}
			return err
		}
		if !actor.CanEditContent(cfg.UserID) {
			return apperr.PermissionDenied("you cannot revert this config")
		}

		var version models.ConfigVersion
		if err := tx.Where("id = ? AND config_id = ?", versionID, configID).Take(&version).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("version not found")
			}
			return err
		}
		snapshot, err := models.DecodeSnapshot(version.Snapshot)
		if err != nil {
			return err
		}
		if err := tx.Where("config_id = ?", configID).Take(&detail).Error; err != nil {
			return err
		}

		snapshot.Apply(&cfg, &detail)

		if err := tx.Model(&models.Config{}).Where("id = ?", cfg.ID).Updates(map[string]any{
			"gamehub_version": cfg.GamehubVersion,
			"video_url":       cfg.VideoURL,
		}).Error; err != nil {
			return err
		}
		if err := tx.Save(&detail).Error; err != nil {
			return err
		}

		next, err := nextVersionNumber(tx, configID)
		if err != nil {
			return err
		}
		summary := fmt.Sprintf("Reverted to version %d", version.VersionNumber)
		return insertVersion(tx, &cfg, &detail, actor.ID, next, summary)
	})
	if err != nil {
		return nil, err
	}

	cfg.Detail = detail
	return &cfg, nil
}

// DeleteConfig is the two-case deletion policy: admins erase the config and
// everything hanging off it, owners and moderators soft-hide it. Returns
// whether the delete was the hard variant.
func DeleteConfig(actor *models.User, configID uint) (bool, error) {
	var cfg models.Config
	if err := db.DB.First(&cfg, configID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, apperr.NotFound("config not found")
		}
		return false, err
	}

	switch {
	case actor.IsAdmin():
		return true, hardDeleteConfig(configID)
	case actor.CanEditContent(cfg.UserID):
		return false, db.DB.Model(&models.Config{}).
			Where("id = ?", configID).
			UpdateColumn("is_hidden", true).Error
	default:
		return false, apperr.PermissionDenied("you cannot delete this config")
	}
}

func hardDeleteConfig(configID uint) error {
	return db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			"DELETE FROM comment_votes WHERE comment_id IN (SELECT id FROM comments WHERE config_id = ?)",
			configID,
		).Error; err != nil {
			return err
		}
		if err := tx.Where("config_id = ?", configID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("config_id = ?", configID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("config_id = ?", configID).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("config_id = ?", configID).Delete(&models.ConfigVersion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("config_id = ?", configID).Delete(&models.ConfigDetail{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Config{}, configID).Error
	})
}

// RestoreConfig clears the soft-delete flag. Same actors as soft delete.
func RestoreConfig(actor *models.User, configID uint) error {
	var cfg models.Config
	if err := db.DB.First(&cfg, configID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("config not found")
		}
		return err
	}
	if !actor.CanEditContent(cfg.UserID) {
		return apperr.PermissionDenied("you cannot restore this config")
	}
	return db.DB.Model(&models.Config{}).
		Where("id = ?", configID).
		UpdateColumn("is_hidden", false).Error
}

// GetConfigForViewer loads a config with its associations, enforcing the
// soft-delete gate: hidden configs stay visible to their owner and staff
// and read as missing for everyone else.
func GetConfigForViewer(viewer *models.User, configID uint) (*models.Config, error) {
	var cfg models.Config
	err := db.DB.Preload("User").Preload("Game").Preload("Detail").First(&cfg, configID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("config not found")
		}
		return nil, err
	}
	if cfg.IsHidden && (viewer == nil || !viewer.CanEditContent(cfg.UserID)) {
		return nil, apperr.NotFound("config not found")
	}

	var comments, favorites int64
	db.DB.Model(&models.Comment{}).Where("config_id = ?", cfg.ID).Count(&comments)
	db.DB.Model(&models.Favorite{}).Where("config_id = ?", cfg.ID).Count(&favorites)
	cfg.CommentCount = int(comments)
	cfg.FavoriteCount = int(favorites)

	return &cfg, nil
}

// ListVersions returns a config's history, newest first.
func ListVersions(viewer *models.User, configID uint) ([]models.ConfigVersion, error) {
	if _, err := GetConfigForViewer(viewer, configID); err != nil {
		return nil, err
	}
	var versions []models.ConfigVersion
	if err := db.DB.Preload("User").
		Where("config_id = ?", configID).
		Order("version_number DESC").
		Find(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

// GetVersion returns one version, checked against the config it claims.
func GetVersion(viewer *models.User, configID, versionID uint) (*models.ConfigVersion, error) {
	if _, err := GetConfigForViewer(viewer, configID); err != nil {
		return nil, err
	}
	var version models.ConfigVersion
	err := db.DB.Preload("User").
		Where("id = ? AND config_id = ?", versionID, configID).
		Take(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("version not found")
	}
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// ListConfigsOptions filters and pages the public config listing.
type ListConfigsOptions struct {
	GameID        uint
	UserID        uint
	Tag           string
	IncludeLegacy bool
	Sort          string // "top" or "new"
	Page          int
	PerPage       int
	Viewer        *models.User
}

// ListConfigs returns one page of configs plus the unpaged total. Hidden
// configs only show up for staff, or for their owner.
func ListConfigs(opts ListConfigsOptions) ([]models.Config, int64, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PerPage < 1 || opts.PerPage > 50 {
		opts.PerPage = 20
	}

	query := db.DB.Model(&models.Config{})

	if opts.Viewer == nil {
		query = query.Where("configs.is_hidden = ?", false)
	} else if !opts.Viewer.IsStaff() {
		query = query.Where("configs.is_hidden = ? OR configs.user_id = ?", false, opts.Viewer.ID)
	}
	if opts.GameID != 0 {
		query = query.Where("configs.game_id = ?", opts.GameID)
	}
	if opts.UserID != 0 {
		query = query.Where("configs.user_id = ?", opts.UserID)
	}
	if !opts.IncludeLegacy {
		query = query.Where("configs.is_legacy = ?", false)
	}
	if opts.Tag != "" {
		// Tags are stored as a JSON array; matching the quoted element in
		// the serialized column works on both postgres and sqlite.
		query = query.
			Joins("JOIN config_details ON config_details.config_id = configs.id").
			Where(`CAST(config_details.tags AS TEXT) LIKE ?`, `%"`+opts.Tag+`"%`)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch opts.Sort {
	case "top":
		query = query.Order("configs.score DESC, configs.upvotes DESC, configs.id DESC")
	default:
		query = query.Order("configs.created_at DESC, configs.id DESC")
	}

	var configs []models.Config
	if err := query.
		Preload("User").Preload("Game").Preload("Detail").
		Limit(opts.PerPage).
		Offset((opts.Page - 1) * opts.PerPage).
		Find(&configs).Error; err != nil {
		return nil, 0, err
	}
	return configs, total, nil
}

func nextVersionNumber(tx *gorm.DB, configID uint) (int, error) {
	var next int
	if err := tx.Model(&models.ConfigVersion{}).
		Where("config_id = ?", configID).
		Select("COALESCE(MAX(version_number), 0) + 1").
		Scan(&next).Error; err != nil {
		return 0, err
	}
	return next, nil
}

func insertVersion(tx *gorm.DB, cfg *models.Config, detail *models.ConfigDetail, userID uint, number int, summary string) error {
	snapshot, err := models.SnapshotOf(cfg, detail).Encode()
	if err != nil {
		return err
	}
	return tx.Create(&models.ConfigVersion{
		ConfigID:      cfg.ID,
		UserID:        userID,
		VersionNumber: number,
		Snapshot:      snapshot,
		Summary:       summary,
	}).Error
}
