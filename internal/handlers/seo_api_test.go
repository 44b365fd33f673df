package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"emuhub/internal/db"
	"emuhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRobotsTxt(t *testing.T) {
	engine := newServer(t)
	c := newClient(t, engine)

	w := c.do("GET", "/robots.txt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "User-agent: *")
	assert.Contains(t, body, "Disallow: /me/")
	assert.Contains(t, body, "Disallow: /admin/")
	assert.Contains(t, body, "Sitemap: https://emuhub.example.com/sitemap.xml")
}

func TestSitemapXML(t *testing.T) {
	engine := newServer(t)
	game := testutil.CreateGame(t)
	visible := testutil.CreateConfig(t, testutil.CreateUser(t), game)
	hidden := testutil.CreateConfig(t, testutil.CreateUser(t), game)
	require.NoError(t, db.DB.Model(hidden).Update("is_hidden", true).Error)

	c := newClient(t, engine)
	w := c.do("GET", "/sitemap.xml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")

	body := w.Body.String()
	assert.Contains(t, body, "<urlset")
	assert.Contains(t, body, "https://emuhub.example.com/g/"+game.Slug)
	assert.Contains(t, body, "https://emuhub.example.com/c/"+visible.Pid)
	assert.NotContains(t, body, hidden.Pid)

	// Fresh configs are flagged for frequent recrawls.
	assert.Contains(t, body, "<changefreq>daily</changefreq>")
	assert.Contains(t, body, "<priority>0.8</priority>")
}

func TestRSSFeed(t *testing.T) {
	engine := newServer(t)
	game := testutil.CreateGame(t)
	owner := testutil.CreateUser(t)
	cfg := testutil.CreateConfig(t, owner, game)
	hidden := testutil.CreateConfig(t, testutil.CreateUser(t), game)
	require.NoError(t, db.DB.Model(hidden).Update("is_hidden", true).Error)

	c := newClient(t, engine)
	w := c.do("GET", "/feed.xml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/rss+xml")

	body := w.Body.String()
	assert.Contains(t, body, "<rss version=\"2.0\"")
	assert.Contains(t, body, "<title>EmuHub</title>")
	assert.Contains(t, body, fmt.Sprintf("<title>%s on GameHub 1.4.2</title>", game.Title))
	assert.Contains(t, body, "https://emuhub.example.com/c/"+cfg.Pid)
	assert.Contains(t, body, "Runs at a steady 60fps.")
	assert.Contains(t, body, "<author>"+owner.Username+"</author>")
	assert.NotContains(t, body, hidden.Pid)
}
