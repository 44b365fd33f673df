package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"emuhub/internal/db"
	"emuhub/internal/models"
	"emuhub/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSubmitAPI(t *testing.T) {
	engine := newServer(t)
	game := testutil.CreateGame(t)

	t.Run("anonymous is rejected", func(t *testing.T) {
		c := newClient(t, engine)
		w := c.do("POST", "/configs", configBody(game.ID))
		requireError(t, w, http.StatusUnauthorized, "authentication_required")
	})

	t.Run("submit and duplicate", func(t *testing.T) {
		user := testutil.CreateUser(t)
		c := newClient(t, engine)
		c.login(user)

		w := c.do("POST", "/configs", configBody(game.ID))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		cfg := decode(t, w)
		assert.Len(t, cfg["pid"], 8)
		assert.Equal(t, "1.4.2", cfg["gamehub_version"])
		assert.EqualValues(t, game.ID, cfg["game_id"])
		assert.EqualValues(t, user.ID, cfg["user_id"])

		// One config per user per game.
		w = c.do("POST", "/configs", configBody(game.ID))
		requireError(t, w, http.StatusConflict, "conflict")
	})

	t.Run("unknown game", func(t *testing.T) {
		user := testutil.CreateUser(t)
		c := newClient(t, engine)
		c.login(user)
		w := c.do("POST", "/configs", configBody(99999))
		requireError(t, w, http.StatusNotFound, "not_found")
	})

	t.Run("malformed runtime version", func(t *testing.T) {
		user := testutil.CreateUser(t)
		c := newClient(t, engine)
		c.login(user)

		body := configBody(game.ID)
		body["gamehubVersion"] = "1.4 2!"
		w := c.do("POST", "/configs", body)
		requireError(t, w, http.StatusBadRequest, "validation")
	})

	t.Run("muted user cannot submit", func(t *testing.T) {
		muted := testutil.CreateUser(t)
		until := time.Now().Add(24 * time.Hour)
		require.NoError(t, db.DB.Model(muted).Updates(map[string]interface{}{
			"status":         models.StatusMuted,
			"punish_expires": &until,
		}).Error)

		c := newClient(t, engine)
		c.login(muted)
		w := c.do("POST", "/configs", configBody(game.ID))
		requireError(t, w, http.StatusForbidden, "permission_denied")
	})
}

func TestConfigDetailAPI(t *testing.T) {
	engine := newServer(t)
	owner := testutil.CreateUser(t)
	game := testutil.CreateGame(t)
	cfg := testutil.CreateConfig(t, owner, game)

	t.Run("anonymous detail", func(t *testing.T) {
		c := newClient(t, engine)
		w := c.do("GET", fmt.Sprintf("/configs/%d", cfg.ID), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decode(t, w)
		payload := asMap(t, body["config"])
		assert.Equal(t, cfg.Pid, payload["pid"])
		assert.Contains(t, body["notes_html"], "<p>")
		assert.EqualValues(t, 0, body["viewer_vote"])
		assert.Equal(t, false, body["is_favorited"])
	})

	t.Run("public id link", func(t *testing.T) {
		c := newClient(t, engine)
		w := c.do("GET", "/c/"+cfg.Pid, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		payload := asMap(t, decode(t, w)["config"])
		assert.EqualValues(t, cfg.ID, payload["id"])

		w = c.do("GET", "/c/nope1234", nil)
		requireError(t, w, http.StatusNotFound, "not_found")
	})

	t.Run("views count every hit", func(t *testing.T) {
		c := newClient(t, engine)
		before := freshConfig(t, cfg.ID).Views
		c.do("GET", fmt.Sprintf("/configs/%d", cfg.ID), nil)
		c.do("GET", fmt.Sprintf("/configs/%d", cfg.ID), nil)
		assert.Equal(t, before+2, freshConfig(t, cfg.ID).Views)
	})

	t.Run("viewer state is layered on", func(t *testing.T) {
		viewer := testutil.CreateUser(t)
		c := newClient(t, engine)
		c.login(viewer)

		w := c.do("POST", fmt.Sprintf("/configs/%d/vote", cfg.ID), gin.H{"value": 1})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		w = c.do("POST", fmt.Sprintf("/configs/%d/favorite", cfg.ID), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = c.do("GET", fmt.Sprintf("/configs/%d", cfg.ID), nil)
		body := decode(t, w)
		assert.EqualValues(t, 1, body["viewer_vote"])
		assert.Equal(t, true, body["is_favorited"])

		// A different session sees neutral state on the same payload.
		other := newClient(t, engine)
		other.login(testutil.CreateUser(t))
		w = other.do("GET", fmt.Sprintf("/configs/%d", cfg.ID), nil)
		body = decode(t, w)
		assert.EqualValues(t, 0, body["viewer_vote"])
		assert.Equal(t, false, body["is_favorited"])
	})

	t.Run("unknown id", func(t *testing.T) {
		c := newClient(t, engine)
		w := c.do("GET", "/configs/99999", nil)
		requireError(t, w, http.StatusNotFound, "not_found")
	})
}

func TestConfigEditAPI(t *testing.T) {
	engine := newServer(t)
	owner := testutil.CreateUser(t)
	game := testutil.CreateGame(t)
	cfg := testutil.CreateConfig(t, owner, game)

	ownerClient := newClient(t, engine)
	ownerClient.login(owner)

	t.Run("owner edit appends a version", func(t *testing.T) {
		w := ownerClient.do("PATCH", fmt.Sprintf("/configs/%d", cfg.ID), gin.H{
			"resolution":    "2560x1440",
			"changeSummary": "bump to 1440p",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		detail := asMap(t, decode(t, w)["detail"])
		assert.Equal(t, "2560x1440", detail["resolution"])

		w = ownerClient.do("GET", fmt.Sprintf("/configs/%d/versions", cfg.ID), nil)
		versions := asList(t, decode(t, w)["versions"])
		require.Len(t, versions, 2)
	})

	t.Run("empty change summary", func(t *testing.T) {
		w := ownerClient.do("PATCH", fmt.Sprintf("/configs/%d", cfg.ID), gin.H{
			"resolution":    "1280x720",
			"changeSummary": "   ",
		})
		requireError(t, w, http.StatusBadRequest, "validation")
	})

	t.Run("stranger cannot edit", func(t *testing.T) {
		stranger := newClient(t, engine)
		stranger.login(testutil.CreateUser(t))
		w := stranger.do("PATCH", fmt.Sprintf("/configs/%d", cfg.ID), gin.H{
			"resolution":    "640x480",
			"changeSummary": "potato mode",
		})
		requireError(t, w, http.StatusForbidden, "permission_denied")
	})

	t.Run("moderator edit notifies the owner", func(t *testing.T) {
		mod := newClient(t, engine)
		mod.login(testutil.CreateModerator(t))
		w := mod.do("PATCH", fmt.Sprintf("/configs/%d", cfg.ID), gin.H{
			"gpuDriver":     "amdvlk",
			"changeSummary": "driver fix",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		assert.Eventually(t, func() bool {
			var count int64
			db.DB.Model(&models.Notification{}).
				Where("user_id = ? AND type = ?", owner.ID, models.NotificationTypeModeration).
				Count(&count)
			return count == 1
		}, 2*time.Second, 20*time.Millisecond)
	})
}

func TestConfigVersionAPI(t *testing.T) {
	engine := newServer(t)
	owner := testutil.CreateUser(t)
	game := testutil.CreateGame(t)
	cfg := testutil.CreateConfig(t, owner, game)

	c := newClient(t, engine)
	c.login(owner)

	w := c.do("PATCH", fmt.Sprintf("/configs/%d", cfg.ID), gin.H{
		"resolution":    "2560x1440",
		"changeSummary": "bump to 1440p",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// History is public.
	anon := newClient(t, engine)
	w = anon.do("GET", fmt.Sprintf("/configs/%d/versions", cfg.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	versions := asList(t, decode(t, w)["versions"])
	require.Len(t, versions, 2)

	latest := asMap(t, versions[0])
	oldest := asMap(t, versions[len(versions)-1])
	assert.EqualValues(t, 2, latest["version_number"])
	assert.Equal(t, "bump to 1440p", latest["summary"])
	assert.EqualValues(t, 1, oldest["version_number"])

	firstID := uint(oldest["id"].(float64))
	w = anon.do("GET", fmt.Sprintf("/configs/%d/versions/%d", cfg.ID, firstID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	version := asMap(t, decode(t, w)["version"])
	snapshot := asMap(t, version["snapshot"])
	assert.Equal(t, "1920x1080", snapshot["resolution"])

	// A version id under the wrong config 404s.
	otherCfg := testutil.CreateConfig(t, testutil.CreateUser(t), game)
	w = anon.do("GET", fmt.Sprintf("/configs/%d/versions/%d", otherCfg.ID, firstID), nil)
	requireError(t, w, http.StatusNotFound, "not_found")

	// Revert lands as a new version, not a rollback.
	w = anon.do("POST", fmt.Sprintf("/configs/%d/versions/%d/revert", cfg.ID, firstID), nil)
	requireError(t, w, http.StatusUnauthorized, "authentication_required")

	w = c.do("POST", fmt.Sprintf("/configs/%d/versions/%d/revert", cfg.ID, firstID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	reverted := decode(t, w)
	detail := asMap(t, reverted["detail"])
	assert.Equal(t, "1920x1080", detail["resolution"])

	w = c.do("GET", fmt.Sprintf("/configs/%d/versions", cfg.ID), nil)
	versions = asList(t, decode(t, w)["versions"])
	require.Len(t, versions, 3)
	assert.Equal(t, "Reverted to version 1", asMap(t, versions[0])["summary"])
}

func TestConfigRemovalAPI(t *testing.T) {
	engine := newServer(t)
	game := testutil.CreateGame(t)

	t.Run("owner delete hides", func(t *testing.T) {
		owner := testutil.CreateUser(t)
		cfg := testutil.CreateConfig(t, owner, game)

		c := newClient(t, engine)
		c.login(owner)
		w := c.do("DELETE", fmt.Sprintf("/configs/%d", cfg.ID), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "config hidden", decode(t, w)["message"])

		anon := newClient(t, engine)
		w = anon.do("GET", fmt.Sprintf("/configs/%d", cfg.ID), nil)
		requireError(t, w, http.StatusNotFound, "not_found")

		// The owner still sees it, flagged hidden.
		w = c.do("GET", fmt.Sprintf("/configs/%d", cfg.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		payload := asMap(t, decode(t, w)["config"])
		assert.Equal(t, true, payload["is_hidden"])
	})

	t.Run("stranger cannot delete", func(t *testing.T) {
		cfg := testutil.CreateConfig(t, testutil.CreateUser(t), game)
		c := newClient(t, engine)
		c.login(testutil.CreateUser(t))
		w := c.do("DELETE", fmt.Sprintf("/configs/%d", cfg.ID), nil)
		requireError(t, w, http.StatusForbidden, "permission_denied")
	})

	t.Run("staff restore", func(t *testing.T) {
		owner := testutil.CreateUser(t)
		cfg := testutil.CreateConfig(t, owner, game)

		ownerClient := newClient(t, engine)
		ownerClient.login(owner)
		w := ownerClient.do("DELETE", fmt.Sprintf("/configs/%d", cfg.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		// Restoring is a staff power, not an owner one.
		w = ownerClient.do("POST", fmt.Sprintf("/configs/%d/restore", cfg.ID), nil)
		requireError(t, w, http.StatusForbidden, "permission_denied")

		mod := newClient(t, engine)
		mod.login(testutil.CreateModerator(t))
		w = mod.do("POST", fmt.Sprintf("/configs/%d/restore", cfg.ID), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		anon := newClient(t, engine)
		w = anon.do("GET", fmt.Sprintf("/configs/%d", cfg.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("admin delete erases", func(t *testing.T) {
		owner := testutil.CreateUser(t)
		cfg := testutil.CreateConfig(t, owner, game)

		admin := newClient(t, engine)
		admin.login(testutil.CreateAdmin(t))
		w := admin.do("DELETE", fmt.Sprintf("/configs/%d", cfg.ID), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "config deleted", decode(t, w)["message"])

		// Gone for everyone, the owner included.
		ownerClient := newClient(t, engine)
		ownerClient.login(owner)
		w = ownerClient.do("GET", fmt.Sprintf("/configs/%d", cfg.ID), nil)
		requireError(t, w, http.StatusNotFound, "not_found")

		var versionCount int64
		db.DB.Model(&models.ConfigVersion{}).Where("config_id = ?", cfg.ID).Count(&versionCount)
		assert.EqualValues(t, 0, versionCount)
	})
}

func TestConfigListAPI(t *testing.T) {
	engine := newServer(t)
	game := testutil.CreateGame(t)
	otherGame := testutil.CreateGame(t)

	alice := testutil.CreateUser(t)
	bob := testutil.CreateUser(t)
	carol := testutil.CreateUser(t)

	cfgA := testutil.CreateConfig(t, alice, game)
	cfgB := testutil.CreateConfig(t, bob, otherGame)
	cfgHidden := testutil.CreateConfig(t, carol, game)
	require.NoError(t, db.DB.Model(cfgHidden).Update("is_hidden", true).Error)

	t.Run("hidden rows stay out", func(t *testing.T) {
		c := newClient(t, engine)
		w := c.do("GET", "/configs?gameId="+fmt.Sprint(game.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.EqualValues(t, 1, body["total"])
		configs := asList(t, body["configs"])
		require.Len(t, configs, 1)
		assert.Equal(t, cfgA.Pid, asMap(t, configs[0])["pid"])
	})

	t.Run("pagination envelope", func(t *testing.T) {
		c := newClient(t, engine)
		w := c.do("GET", "/configs", nil)
		body := decode(t, w)
		assert.EqualValues(t, 2, body["total"])
		assert.EqualValues(t, 1, body["page"])
		assert.EqualValues(t, 1, body["total_pages"])
	})

	t.Run("tag filter", func(t *testing.T) {
		c := newClient(t, engine)
		w := c.do("GET", "/configs?tag=performance", nil)
		body := decode(t, w)
		assert.EqualValues(t, 2, body["total"])

		w = c.do("GET", "/configs?tag=nosuchtag", nil)
		body = decode(t, w)
		assert.EqualValues(t, 0, body["total"])
	})

	t.Run("viewer votes ride along", func(t *testing.T) {
		c := newClient(t, engine)
		c.login(carol)
		w := c.do("POST", fmt.Sprintf("/configs/%d/vote", cfgA.ID), gin.H{"value": 1})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = c.do("GET", "/configs", nil)
		body := decode(t, w)
		votes := asMap(t, body["viewer_votes"])
		assert.EqualValues(t, 1, votes[fmt.Sprint(cfgA.ID)])
	})

	t.Run("legacy flag drops from default listing", func(t *testing.T) {
		mod := newClient(t, engine)
		mod.login(testutil.CreateModerator(t))
		w := mod.do("POST", fmt.Sprintf("/configs/%d/legacy", cfgB.ID), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, true, decode(t, w)["is_legacy"])

		c := newClient(t, engine)
		w = c.do("GET", "/configs", nil)
		assert.EqualValues(t, 1, decode(t, w)["total"])

		w = c.do("GET", "/configs?legacy=true", nil)
		assert.EqualValues(t, 2, decode(t, w)["total"])
	})
}

func TestConfigFavoriteAPI(t *testing.T) {
	engine := newServer(t)
	owner := testutil.CreateUser(t)
	game := testutil.CreateGame(t)
	cfg := testutil.CreateConfig(t, owner, game)

	c := newClient(t, engine)
	c.login(testutil.CreateUser(t))

	w := c.do("POST", fmt.Sprintf("/configs/%d/favorite", cfg.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["favorited"])
	assert.EqualValues(t, 1, body["favorite_count"])

	// Toggling again unsaves.
	w = c.do("POST", fmt.Sprintf("/configs/%d/favorite", cfg.ID), nil)
	body = decode(t, w)
	assert.Equal(t, false, body["favorited"])
	assert.EqualValues(t, 0, body["favorite_count"])
}

func freshConfig(t *testing.T, id uint) *models.Config {
	t.Helper()
	var cfg models.Config
	require.NoError(t, db.DB.First(&cfg, id).Error)
	return &cfg
}
