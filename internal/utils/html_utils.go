package utils

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// EnhanceHTML post-processes rendered markdown: lazy-loads images and turns
// bare YouTube links into embedded players so setup walkthrough videos play
// inline on config pages.
func EnhanceHTML(htmlStr string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return htmlStr
	}

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("loading", "lazy")
		s.SetAttr("referrerpolicy", "no-referrer")
	})

	doc.Find("a").Each(func(i int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}
		if vid := youtubeVideoID(href); vid != "" {
			embed := fmt.Sprintf(`<div class="video-embed"><iframe src="https://www.youtube.com/embed/%s" frameborder="0" allowfullscreen loading="lazy"></iframe></div>`, vid)
			s.ReplaceWithHtml(embed)
		}
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return htmlStr
	}
	return out
}

func youtubeVideoID(rawURL string) string {
	if strings.Contains(rawURL, "youtube.com/watch") {
		parts := strings.Split(rawURL, "v=")
		if len(parts) < 2 {
			return ""
		}
		id := parts[1]
		if idx := strings.IndexAny(id, "&#"); idx != -1 {
			id = id[:idx]
		}
		return id
	}
	if strings.Contains(rawURL, "youtu.be/") {
		parts := strings.Split(rawURL, "youtu.be/")
		if len(parts) < 2 {
			return ""
		}
		id := parts[1]
		if idx := strings.IndexAny(id, "?&#"); idx != -1 {
			id = id[:idx]
		}
		return id
	}
	return ""
}
