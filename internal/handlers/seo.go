package handlers

import (
	"fmt"
	"html"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"emuhub/internal/db"
	"emuhub/internal/models"
	"emuhub/internal/utils"

	"github.com/gin-gonic/gin"
)

type SEOHandler struct{}

func NewSEOHandler() *SEOHandler {
	return &SEOHandler{}
}

func getSiteURL() string {
	siteURL := os.Getenv("SITE_URL")
	if siteURL == "" {
		siteURL = "https://emuhub.example.com"
	}
	return siteURL
}

// RobotsTxt keeps crawlers out of account and API surfaces.
func (h *SEOHandler) RobotsTxt(c *gin.Context) {
	siteURL := getSiteURL()
	content := fmt.Sprintf(`User-agent: *
Allow: /

Disallow: /me/
Disallow: /admin/
Disallow: /auth/
Disallow: /upload

Sitemap: %s/sitemap.xml

Crawl-delay: 1
`, siteURL)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

// SitemapXML lists the landing pages, every game page, and the 500 newest
// visible configs. Fresh configs get a higher priority.
func (h *SEOHandler) SitemapXML(c *gin.Context) {
	siteURL := getSiteURL()
	now := time.Now().Format("2006-01-02")

	xml := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
`

	xml += fmt.Sprintf(`  <url>
    <loc>%s/</loc>
    <lastmod>%s</lastmod>
    <changefreq>daily</changefreq>
    <priority>1.0</priority>
  </url>
`, siteURL, now)

	xml += fmt.Sprintf(`  <url>
    <loc>%s/configs</loc>
    <lastmod>%s</lastmod>
    <changefreq>hourly</changefreq>
    <priority>0.9</priority>
  </url>
`, siteURL, now)

	xml += fmt.Sprintf(`  <url>
    <loc>%s/games</loc>
    <lastmod>%s</lastmod>
    <changefreq>weekly</changefreq>
    <priority>0.8</priority>
  </url>
`, siteURL, now)

	var games []models.Game
	db.DB.Find(&games)
	for _, game := range games {
		xml += fmt.Sprintf(`  <url>
    <loc>%s/g/%s</loc>
    <lastmod>%s</lastmod>
    <changefreq>daily</changefreq>
    <priority>0.7</priority>
  </url>
`, siteURL, game.Slug, now)
	}

	var configs []models.Config
	db.DB.Where("is_hidden = ?", false).Order("created_at DESC").Limit(500).Find(&configs)
	for _, cfg := range configs {
		lastmod := cfg.UpdatedAt.Format("2006-01-02")
		daysSinceCreated := time.Since(cfg.CreatedAt).Hours() / 24
		priority := 0.6
		changefreq := "weekly"

		if daysSinceCreated < 7 {
			priority = 0.8
			changefreq = "daily"
		} else if daysSinceCreated < 30 {
			priority = 0.7
		}

		xml += fmt.Sprintf(`  <url>
    <loc>%s/c/%s</loc>
    <lastmod>%s</lastmod>
    <changefreq>%s</changefreq>
    <priority>%.1f</priority>
  </url>
`, siteURL, cfg.Pid, lastmod, changefreq, priority)
	}

	xml += `</urlset>`

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, xml)
}

// RSSFeed serves the 20 newest visible configs as RSS 2.0.
func (h *SEOHandler) RSSFeed(c *gin.Context) {
	siteURL := getSiteURL()
	now := time.Now()

	var configs []models.Config
	db.DB.Preload("User").Preload("Game").Preload("Detail").
		Where("is_hidden = ?", false).
		Order("created_at DESC").
		Limit(20).
		Find(&configs)

	rss := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">
  <channel>
    <title>EmuHub</title>
    <link>` + siteURL + `</link>
    <description>Community-tested emulator configurations, ranked by the people who actually run them</description>
    <language>en</language>
    <lastBuildDate>` + now.Format(time.RFC1123Z) + `</lastBuildDate>
    <atom:link href="` + siteURL + `/feed.xml" rel="self" type="application/rss+xml"/>
`

	for _, cfg := range configs {
		link := fmt.Sprintf("%s/c/%s", siteURL, cfg.Pid)

		notesHTML := utils.RenderMarkdown(cfg.Detail.Notes)
		content := truncateByParagraph(notesHTML, 3)
		content += fmt.Sprintf(`<p><br><a href="%s">Full settings, version history and discussion →</a></p>`, link)

		title := escapeXML(fmt.Sprintf("%s on GameHub %s", cfg.Game.Title, cfg.GamehubVersion))
		author := escapeXML(cfg.User.Username)

		rss += `    <item>
      <title>` + title + `</title>
      <link>` + link + `</link>
      <description><![CDATA[` + content + `]]></description>
      <author>` + author + `</author>
      <category>` + escapeXML(cfg.Game.Title) + `</category>
      <pubDate>` + cfg.CreatedAt.Format(time.RFC1123Z) + `</pubDate>
      <guid isPermaLink="true">` + link + `</guid>
    </item>
`
	}

	rss += `  </channel>
</rss>`

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.String(http.StatusOK, rss)
}

func escapeXML(s string) string {
	return html.EscapeString(s)
}

// truncateByParagraph keeps the first few complete block elements so feed
// readers get a teaser without broken markup.
func truncateByParagraph(content string, maxBlocks int) string {
	re := regexp.MustCompile(`(?s)(<(?:p|div|h[1-6]|ul|ol|blockquote|pre)[^>]*>.*?</(?:p|div|h[1-6]|ul|ol|blockquote|pre)>)`)
	matches := re.FindAllString(content, maxBlocks)

	if len(matches) == 0 {
		runes := []rune(stripHTML(content))
		if len(runes) > 300 {
			return string(runes[:300]) + "..."
		}
		return content
	}

	return strings.Join(matches, "\n")
}

func stripHTML(s string) string {
	re := regexp.MustCompile(`<[^>]*>`)
	return re.ReplaceAllString(s, "")
}
