package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"emuhub/internal/apperr"
	"emuhub/internal/services"

	"github.com/gin-gonic/gin"
)

const hotlinkSVG = `<svg width="200" height="200" xmlns="http://www.w3.org/2000/svg">
  <rect width="100%" height="100%" fill="#f8f9fa"/>
  <text x="50%" y="50%" font-family="Arial" font-size="14" fill="#6c757d" text-anchor="middle">
    Image hosted for EmuHub
  </text>
  <text x="50%" y="70%" font-family="Arial" font-size="12" fill="#adb5bd" text-anchor="middle">
    emuhub
  </text>
</svg>`

// ImageHandler uploads screenshots to Imgur and proxies them back so config
// pages never hotlink Imgur directly.
type ImageHandler struct{}

func NewImageHandler() *ImageHandler {
	return &ImageHandler{}
}

// Upload accepts one multipart image and stores it on Imgur.
func (h *ImageHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		Fail(c, apperr.Validation("an image file is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		Fail(c, apperr.Validation("only image files can be uploaded"))
		return
	}

	if header.Size > 10*1024*1024 {
		Fail(c, apperr.Validation("images cannot be larger than 10MB"))
		return
	}

	result, err := services.UploadImage(file, header)
	if err != nil {
		Fail(c, apperr.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url": result.URL,
		"id":  result.ID,
	})
}

// Proxy streams an Imgur image through our origin. Sec-Fetch headers tell
// cross-site embeds apart from our own pages; hotlinkers get a placeholder.
func (h *ImageHandler) Proxy(c *gin.Context) {
	imageID := c.Param("id")
	if imageID == "" {
		c.String(http.StatusBadRequest, "missing image id")
		return
	}

	if !isAllowedRequest(c) {
		c.Header("Content-Type", "image/svg+xml")
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.String(http.StatusOK, hotlinkSVG)
		return
	}

	ext := filepath.Ext(imageID)
	id := strings.TrimSuffix(imageID, ext)
	if ext == "" {
		ext = ".jpg"
	}

	imgurURL := fmt.Sprintf("https://i.imgur.com/%s%s", id, ext)

	client := &http.Client{Timeout: 15 * time.Second}
	req, err := http.NewRequest("GET", imgurURL, nil)
	if err != nil {
		c.String(http.StatusInternalServerError, "request failed")
		return
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		c.String(http.StatusBadGateway, "image fetch failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.String(resp.StatusCode, "image not found")
		return
	}

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		c.Header("Content-Type", contentType)
	}

	c.Header("Cache-Control", "public, max-age=604800")
	c.Header("Vary", "Sec-Fetch-Site, Sec-Fetch-Mode")

	c.Status(http.StatusOK)
	io.Copy(c.Writer, resp.Body)
}

// isAllowedRequest treats missing Sec-Fetch headers, same-site requests and
// direct navigation as legitimate. Cross-site subresource loads are not.
func isAllowedRequest(c *gin.Context) bool {
	secFetchSite := c.GetHeader("Sec-Fetch-Site")
	secFetchMode := c.GetHeader("Sec-Fetch-Mode")

	switch secFetchSite {
	case "", "same-origin", "same-site", "none":
		return true
	}
	return secFetchMode == "navigate"
}
