package utils

import (
	"strings"
	"testing"
)

func TestRenderMarkdown(t *testing.T) {
	out := RenderMarkdown("**60fps** with `DXVK_HUD=fps`")
	if !strings.Contains(out, "<strong>60fps</strong>") {
		t.Errorf("bold not rendered: %s", out)
	}
	if !strings.Contains(out, "<code>DXVK_HUD=fps</code>") {
		t.Errorf("inline code not rendered: %s", out)
	}
}

func TestRenderMarkdownTables(t *testing.T) {
	src := "| driver | fps |\n|---|---|\n| vulkan | 60 |\n"
	out := RenderMarkdown(src)
	if !strings.Contains(out, "<table>") {
		t.Errorf("GFM table not rendered: %s", out)
	}
}

func TestRenderMarkdownSanitizes(t *testing.T) {
	out := RenderMarkdown("hello <script>alert(1)</script> world")
	if strings.Contains(out, "<script") {
		t.Errorf("script tag survived sanitization: %s", out)
	}

	out = RenderMarkdown(`<a href="https://example.com" onclick="steal()">link</a>`)
	if strings.Contains(out, "onclick") {
		t.Errorf("event handler survived sanitization: %s", out)
	}
}

func TestRenderMarkdownExternalLinks(t *testing.T) {
	out := RenderMarkdown("[driver page](https://example.com/driver)")
	if !strings.Contains(out, `target="_blank"`) {
		t.Errorf("external link missing target=_blank: %s", out)
	}
	if !strings.Contains(out, "noreferrer") {
		t.Errorf("external link missing noreferrer: %s", out)
	}
}

func TestRenderMarkdownEmbedsYoutube(t *testing.T) {
	out := RenderMarkdown("[setup video](https://www.youtube.com/watch?v=dQw4w9WgXcQ)")
	if !strings.Contains(out, "youtube.com/embed/dQw4w9WgXcQ") {
		t.Errorf("youtube link not embedded: %s", out)
	}
}

func TestRenderMarkdownLazyImages(t *testing.T) {
	out := RenderMarkdown("![screenshot](https://i.imgur.com/abc.png)")
	if !strings.Contains(out, `loading="lazy"`) {
		t.Errorf("image missing lazy loading: %s", out)
	}
}

func TestYoutubeVideoID(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=abc123", "abc123"},
		{"https://www.youtube.com/watch?v=abc123&t=90s", "abc123"},
		{"https://youtu.be/abc123", "abc123"},
		{"https://youtu.be/abc123?t=5", "abc123"},
		{"https://www.youtube.com/watch", ""},
		{"https://vimeo.com/12345", ""},
	}
	for _, c := range cases {
		if got := youtubeVideoID(c.url); got != c.want {
			t.Errorf("youtubeVideoID(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}
