// Package testutil boots an in-memory database and stock fixtures for the
// service and handler test suites.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"emuhub/internal/db"
	"emuhub/internal/models"
	"emuhub/internal/services"
	"emuhub/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Password is the plaintext every fixture user logs in with.
const Password = "password123"

var (
	dbSeq   int64
	userSeq int64
	gameSeq int64

	passwordHash string
)

// SetupDB points the global connection at a fresh in-memory sqlite store and
// clears the response cache. Each test gets its own database; the single
// connection keeps every goroutine on the same in-memory store and
// serializes sqlite writes.
func SetupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:emuhub_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		// Same setting as production: unique violations surface as
		// gorm.ErrDuplicatedKey.
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(gdb))

	db.DB = gdb
	utils.GetCache().Purge()
	t.Cleanup(func() { sqlDB.Close() })
	return gdb
}

// hashedPassword bcrypts Password once and reuses it for every fixture.
func hashedPassword(t *testing.T) string {
	t.Helper()
	if passwordHash == "" {
		h, err := utils.HashPassword(Password)
		require.NoError(t, err)
		passwordHash = h
	}
	return passwordHash
}

// CreateUser inserts an activated account in good standing.
func CreateUser(t *testing.T) *models.User {
	return CreateUserWithRole(t, models.RoleUser)
}

func CreateModerator(t *testing.T) *models.User {
	return CreateUserWithRole(t, models.RoleModerator)
}

func CreateAdmin(t *testing.T) *models.User {
	return CreateUserWithRole(t, models.RoleAdmin)
}

func CreateUserWithRole(t *testing.T, role string) *models.User {
	t.Helper()
	n := atomic.AddInt64(&userSeq, 1)
	user := &models.User{
		Username:    fmt.Sprintf("player%d", n),
		Email:       fmt.Sprintf("player%d@example.com", n),
		Password:    hashedPassword(t),
		Avatar:      "🎮",
		Role:        role,
		IsActivated: true,
	}
	require.NoError(t, db.DB.Create(user).Error)
	return user
}

// CreateGame inserts a game row directly.
func CreateGame(t *testing.T) *models.Game {
	t.Helper()
	n := atomic.AddInt64(&gameSeq, 1)
	game := &models.Game{
		Slug:      fmt.Sprintf("game%04d", n),
		Title:     fmt.Sprintf("Test Game %d", n),
		Developer: "Test Studio",
		Year:      2020,
	}
	require.NoError(t, db.DB.Create(game).Error)
	return game
}

// ConfigInput is a valid creation payload for the given game.
func ConfigInput(gameID uint) services.CreateConfigInput {
	return services.CreateConfigInput{
		GameID:         gameID,
		GamehubVersion: "1.4.2",
		Tags:           []string{"performance", "stable"},
		Details: services.ConfigDetailsInput{
			Resolution: "1920x1080",
			GPUDriver:  "vulkan",
			DXWrapper:  "dxvk-2.3",
			EnvVars:    "DXVK_HUD=fps",
			LaunchArgs: "--fullscreen",
			Components: []string{"vcrun2019"},
			Notes:      "Runs at a steady 60fps.",
		},
	}
}

// CreateConfig runs the real creation path, so the fixture carries a detail
// row and version 1 exactly like production data.
func CreateConfig(t *testing.T, owner *models.User, game *models.Game) *models.Config {
	t.Helper()
	cfg, err := services.CreateConfig(owner, ConfigInput(game.ID))
	require.NoError(t, err)
	return cfg
}

// CreateComment inserts a comment through the model layer.
func CreateComment(t *testing.T, author *models.User, cfg *models.Config, content string) *models.Comment {
	t.Helper()
	comment := &models.Comment{
		Cid:      utils.RandStringBytesMaskImpr(8),
		ConfigID: cfg.ID,
		UserID:   author.ID,
		Content:  content,
	}
	require.NoError(t, db.DB.Create(comment).Error)
	return comment
}
