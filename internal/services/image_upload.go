package services

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"
)

type imgurResponse struct {
	Data struct {
		ID         string `json:"id"`
		Link       string `json:"link"`
		DeleteHash string `json:"deletehash"`
		Type       string `json:"type"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

// ImageUploadResult is what the upload endpoint hands back: the hosted URL
// users paste into their notes or comments.
type ImageUploadResult struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

// UploadToImgur pushes a screenshot to Imgur and returns its direct link.
// Requires IMGUR_CLIENT_ID.
func UploadToImgur(file multipart.File, header *multipart.FileHeader) (*ImageUploadResult, error) {
	clientID := os.Getenv("IMGUR_CLIENT_ID")
	if clientID == "" {
		return nil, fmt.Errorf("IMGUR_CLIENT_ID is not configured")
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	base64Image := base64.StdEncoding.EncodeToString(fileBytes)

	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)
	if err := writer.WriteField("image", base64Image); err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if err := writer.WriteField("type", "base64"); err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	writer.Close()

	req, err := http.NewRequest(http.MethodPost, "https://api.imgur.com/3/image", &requestBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+clientID)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var imgur imgurResponse
	if err := json.Unmarshal(body, &imgur); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if !imgur.Success {
		return nil, fmt.Errorf("imgur upload failed with status %d", imgur.Status)
	}

	return &ImageUploadResult{
		URL: imgur.Data.Link,
		ID:  imgur.Data.ID,
	}, nil
}

// UploadImage is the generic entry point so the backing store can change
// without touching handlers. Currently Imgur.
func UploadImage(file multipart.File, header *multipart.FileHeader) (*ImageUploadResult, error) {
	return UploadToImgur(file, header)
}
