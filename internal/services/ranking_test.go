package services_test

import (
	"testing"
	"time"

	"emuhub/internal/db"
	"emuhub/internal/models"
	"emuhub/internal/services"
	"emuhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoreOf(t *testing.T, id uint) int {
	t.Helper()
	var cfg models.Config
	require.NoError(t, db.DB.First(&cfg, id).Error)
	return cfg.Score
}

func TestUpdateConfigScore(t *testing.T) {
	testutil.SetupDB(t)
	game := testutil.CreateGame(t)
	owner := testutil.CreateUser(t)
	cfg := testutil.CreateConfig(t, owner, game)

	// No engagement, no score.
	services.UpdateConfigScoreSync(cfg.ID)
	assert.Equal(t, 0, scoreOf(t, cfg.ID))

	for i := 0; i < 5; i++ {
		voter := testutil.CreateUser(t)
		_, err := services.CastVote(voter, services.TargetConfig, cfg.ID, 1)
		require.NoError(t, err)
	}
	fan := testutil.CreateUser(t)
	require.NoError(t, db.DB.Create(&models.Favorite{UserID: fan.ID, ConfigID: cfg.ID}).Error)
	testutil.CreateComment(t, fan, cfg, "confirmed on a 1080 Ti")

	services.UpdateConfigScoreSync(cfg.ID)
	freshScore := scoreOf(t, cfg.ID)
	assert.Greater(t, freshScore, 0)

	// The same engagement on an old config ranks lower.
	aged := time.Now().Add(-200 * time.Hour)
	require.NoError(t, db.DB.Model(&models.Config{}).Where("id = ?", cfg.ID).
		UpdateColumn("created_at", aged).Error)
	services.UpdateConfigScoreSync(cfg.ID)
	assert.Less(t, scoreOf(t, cfg.ID), freshScore)
}

func TestUpdateConfigScoreFloorsAtZero(t *testing.T) {
	testutil.SetupDB(t)
	game := testutil.CreateGame(t)
	cfg := testutil.CreateConfig(t, testutil.CreateUser(t), game)

	for i := 0; i < 3; i++ {
		voter := testutil.CreateUser(t)
		_, err := services.CastVote(voter, services.TargetConfig, cfg.ID, -1)
		require.NoError(t, err)
	}

	services.UpdateConfigScoreSync(cfg.ID)
	assert.Equal(t, 0, scoreOf(t, cfg.ID))
}
