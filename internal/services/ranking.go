package services

import (
	"log"
	"sync"
	"time"

	"emuhub/internal/db"
	"emuhub/internal/models"
	"emuhub/internal/utils"
)

// RankingService recomputes the trending score of configs off the request
// path. The score column is a display-only cache for the "top" sort; the
// vote and version transactions never read it.
type RankingService struct {
	queue   chan uint
	pending map[uint]bool
	mu      sync.Mutex
}

var (
	rankingService *RankingService
	rankingOnce    sync.Once
)

// GetRankingService returns the singleton and starts its worker on first use.
func GetRankingService() *RankingService {
	rankingOnce.Do(func() {
		rankingService = &RankingService{
			queue:   make(chan uint, 1000),
			pending: make(map[uint]bool),
		}
		go rankingService.worker()
	})
	return rankingService
}

// ScheduleUpdate queues a config for recomputation, deduplicating configs
// already waiting.
func (s *RankingService) ScheduleUpdate(configID uint) {
	s.mu.Lock()
	if s.pending[configID] {
		s.mu.Unlock()
		return
	}
	s.pending[configID] = true
	s.mu.Unlock()

	select {
	case s.queue <- configID:
	default:
		s.mu.Lock()
		delete(s.pending, configID)
		s.mu.Unlock()
		log.Printf("ranking queue full, skipping config %d", configID)
	}
}

func (s *RankingService) worker() {
	batch := make([]uint, 0, 50)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case configID := <-s.queue:
			batch = append(batch, configID)
			if len(batch) >= 50 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *RankingService) processBatch(configIDs []uint) {
	for _, configID := range configIDs {
		s.updateConfigScore(configID)

		s.mu.Lock()
		delete(s.pending, configID)
		s.mu.Unlock()
	}
}

func (s *RankingService) updateConfigScore(configID uint) {
	var cfg models.Config
	if err := db.DB.First(&cfg, configID).Error; err != nil {
		log.Printf("score update skipped, config %d not found", configID)
		return
	}

	var favorites int64
	db.DB.Model(&models.Favorite{}).Where("config_id = ?", configID).Count(&favorites)

	var comments int64
	db.DB.Model(&models.Comment{}).Where("config_id = ?", configID).Count(&comments)

	newScore := utils.CalculateScore(
		cfg.CreatedAt,
		cfg.Upvotes,
		cfg.Downvotes,
		int(favorites),
		cfg.Views,
		int(comments),
	)

	if err := db.DB.Model(&cfg).UpdateColumn("score", int(newScore)).Error; err != nil {
		log.Printf("score update failed for config %d: %v", configID, err)
	}
}

// UpdateConfigScoreSync recomputes one score immediately.
func UpdateConfigScoreSync(configID uint) {
	GetRankingService().updateConfigScore(configID)
}

// StartScheduledScoreUpdate refreshes hot configs every night at 3am so the
// time decay keeps pulling stale entries down even without new votes.
func (s *RankingService) StartScheduledScoreUpdate() {
	go func() {
		for {
			now := time.Now()
			next := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, now.Location())
			if now.After(next) {
				next = next.Add(24 * time.Hour)
			}
			time.Sleep(time.Until(next))

			log.Println("refreshing trending scores...")
			s.updateHotConfigs()
			log.Println("trending score refresh done")
		}
	}()
}

func (s *RankingService) updateHotConfigs() {
	processed := make(map[uint]bool)
	count := 0

	sevenDaysAgo := time.Now().AddDate(0, 0, -7)
	var recent []models.Config
	db.DB.Where("created_at >= ?", sevenDaysAgo).Select("id").Find(&recent)
	for _, c := range recent {
		s.updateConfigScore(c.ID)
		processed[c.ID] = true
		count++
	}

	var top []models.Config
	db.DB.Order("score DESC").Limit(30).Select("id").Find(&top)
	for _, c := range top {
		if !processed[c.ID] {
			s.updateConfigScore(c.ID)
			count++
		}
	}

	log.Printf("refreshed %d config scores", count)
}
