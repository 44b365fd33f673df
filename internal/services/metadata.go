package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// MetadataService queries an external game database to autofill title,
// developer, year and boxart on game submission. Without METADATA_API_URL
// the service is disabled and lookups return nothing, leaving submissions
// fully manual.
type MetadataService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var metadataService *MetadataService

func GetMetadataService() *MetadataService {
	if metadataService == nil {
		metadataService = &MetadataService{
			baseURL: os.Getenv("METADATA_API_URL"),
			apiKey:  os.Getenv("METADATA_API_KEY"),
			client:  &http.Client{Timeout: 10 * time.Second},
		}
		if metadataService.baseURL == "" {
			log.Println("game metadata lookup disabled: METADATA_API_URL not set")
		}
	}
	return metadataService
}

func (s *MetadataService) Enabled() bool {
	return s.baseURL != ""
}

// GameMetadata is one search hit from the metadata API.
type GameMetadata struct {
	Title     string `json:"title"`
	Developer string `json:"developer"`
	Year      int    `json:"year"`
	BoxartURL string `json:"boxart_url"`
	Summary   string `json:"summary"`
}

type metadataSearchResponse struct {
	Results []GameMetadata `json:"results"`
}

// Lookup returns the best match for a game title, or nil when the service
// is disabled or nothing matches.
func (s *MetadataService) Lookup(title string) (*GameMetadata, error) {
	if !s.Enabled() || title == "" {
		return nil, nil
	}

	payload, err := json.Marshal(map[string]string{"query": title})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, s.baseURL+"/games/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata lookup: unexpected status %d", resp.StatusCode)
	}

	var result metadataSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("metadata lookup: %w", err)
	}
	if len(result.Results) == 0 {
		return nil, nil
	}
	return &result.Results[0], nil
}
