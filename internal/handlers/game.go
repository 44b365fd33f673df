package handlers

import (
	"log"
	"net/http"
	"strings"

	"emuhub/internal/apperr"
	"emuhub/internal/db"
	"emuhub/internal/models"
	"emuhub/internal/services"
	"emuhub/internal/utils"

	"github.com/gin-gonic/gin"
)

type GameHandler struct{}

func NewGameHandler() *GameHandler {
	return &GameHandler{}
}

// fillConfigCounts batch-loads visible config tallies for a page of games.
func fillConfigCounts(games []models.Game) {
	if len(games) == 0 {
		return
	}
	gameIDs := make([]uint, len(games))
	for i, g := range games {
		gameIDs[i] = g.ID
	}

	type countRow struct {
		GameID uint
		Count  int
	}
	var rows []countRow
	db.DB.Model(&models.Config{}).
		Select("game_id, COUNT(*) as count").
		Where("game_id IN ? AND is_hidden = ?", gameIDs, false).
		Group("game_id").
		Scan(&rows)

	counts := make(map[uint]int, len(rows))
	for _, r := range rows {
		counts[r.GameID] = r.Count
	}
	for i := range games {
		games[i].ConfigCount = counts[games[i].ID]
	}
}

// List returns games ordered by title, optionally filtered by a search
// term. LOWER LIKE instead of ILIKE keeps the query portable across
// postgres and the sqlite test store.
func (h *GameHandler) List(c *gin.Context) {
	page := utils.StringToInt(c.Query("page"))
	if page < 1 {
		page = 1
	}
	perPage := 30

	query := db.DB.Model(&models.Game{})
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		query = query.Where("LOWER(title) LIKE LOWER(?)", "%"+q+"%")
	}

	var total int64
	query.Count(&total)

	var games []models.Game
	query.Order("title ASC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&games)
	fillConfigCounts(games)

	c.JSON(http.StatusOK, gin.H{
		"games": games,
		"total": total,
		"page":  page,
	})
}

// Detail returns a game by slug with its ten highest ranked configs.
func (h *GameHandler) Detail(c *gin.Context) {
	slug := c.Param("slug")

	var game models.Game
	if err := db.DB.Where("slug = ?", slug).First(&game).Error; err != nil {
		Fail(c, apperr.NotFound("game not found"))
		return
	}

	configs, total, err := services.ListConfigs(services.ListConfigsOptions{
		GameID:  game.ID,
		Sort:    "top",
		PerPage: 10,
		Viewer:  CurrentUser(c),
	})
	if err != nil {
		Fail(c, err)
		return
	}
	fillCommentCounts(configs)
	game.ConfigCount = int(total)

	c.JSON(http.StatusOK, gin.H{
		"game":        game,
		"top_configs": configs,
	})
}

// Create adds a game to the directory. Missing fields are autofilled from
// the metadata service when it is configured; otherwise whatever the
// submitter typed is what the game gets.
func (h *GameHandler) Create(c *gin.Context) {
	user := CurrentUser(c)
	if !RequireActive(c, user) {
		return
	}

	var req struct {
		Title     string `json:"title" binding:"required,max=200"`
		Developer string `json:"developer" binding:"max=100"`
		Year      int    `json:"year"`
		BoxartURL string `json:"boxartUrl" binding:"omitempty,url"`
		Summary   string `json:"summary" binding:"max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		FailValidation(c, err)
		return
	}
	title := strings.TrimSpace(req.Title)

	var existing models.Game
	if err := db.DB.Where("LOWER(title) = LOWER(?)", title).First(&existing).Error; err == nil {
		Fail(c, apperr.Conflict("this game is already in the directory"))
		return
	}

	game := models.Game{
		Slug:      utils.RandStringBytesMaskImpr(8),
		Title:     title,
		Developer: strings.TrimSpace(req.Developer),
		Year:      req.Year,
		BoxartURL: req.BoxartURL,
		Summary:   req.Summary,
		CreatedBy: user.ID,
	}

	if game.Developer == "" || game.Year == 0 || game.BoxartURL == "" {
		meta, err := services.GetMetadataService().Lookup(title)
		if err != nil {
			log.Printf("metadata lookup for %q failed: %v", title, err)
		}
		if meta != nil {
			if game.Developer == "" {
				game.Developer = meta.Developer
			}
			if game.Year == 0 {
				game.Year = meta.Year
			}
			if game.BoxartURL == "" {
				game.BoxartURL = meta.BoxartURL
			}
			if game.Summary == "" {
				game.Summary = meta.Summary
			}
		}
	}

	if err := db.DB.Create(&game).Error; err != nil {
		Fail(c, apperr.Internal(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"game": game})
}
