package services

import (
	"log"
	"math/rand"
	"time"

	"emuhub/internal/db"
	"emuhub/internal/models"

	"gorm.io/gorm"
)

// Reputation action labels, shown verbatim in the user's ledger.
const (
	ActionConfigCreate      = "Published a config"
	ActionConfigLiked       = "Config upvoted"
	ActionConfigUnliked     = "Config upvote withdrawn"
	ActionConfigDownvoted   = "Config downvoted"
	ActionConfigUndownvoted = "Config downvote withdrawn"
	ActionConfigFavorited   = "Config favorited"
	ActionConfigUnfavorited = "Config unfavorited"
	ActionConfigDeleted     = "Config removed"

	ActionCommentCreate      = "Posted a comment"
	ActionCommentLiked       = "Comment upvoted"
	ActionCommentUnliked     = "Comment upvote withdrawn"
	ActionCommentDownvoted   = "Comment downvoted"
	ActionCommentUndownvoted = "Comment downvote withdrawn"
	ActionCommentDeleted     = "Comment removed"

	ActionDownvoteCast      = "Downvoted someone's work"
	ActionDownvoteWithdrawn = "Withdrew a downvote"

	ActionCheckIn      = "Daily check-in"
	ActionCheckInBonus = "Check-in bonus"
)

// Reputation amounts.
const (
	RepConfigCreate      = 2
	RepConfigLiked       = 1
	RepConfigDownvoted   = -3
	RepConfigFavorited   = 3
	RepConfigUnfavorited = -3
	RepConfigDeleted     = -10

	RepCommentCreate    = 1
	RepCommentLiked     = 1
	RepCommentDownvoted = -3
	RepCommentDeleted   = -3

	RepDownvoteOther = -1
	RepCheckIn       = 1
)

// Daily earn caps on submissions.
const (
	DailyConfigLimit  = 3
	DailyCommentLimit = 3
)

// AddReputation writes one ledger entry and moves the cached balance in the
// same transaction.
func AddReputation(userID uint, amount int, action string) error {
	return db.DB.Transaction(func(tx *gorm.DB) error {
		entry := models.ReputationLog{
			UserID: userID,
			Amount: amount,
			Action: action,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("reputation", gorm.Expr("reputation + ?", amount)).
			Error
	})
}

// AddReputationAsync applies a reputation change off the request path.
func AddReputationAsync(userID uint, amount int, action string) {
	go func() {
		if err := AddReputation(userID, amount, action); err != nil {
			log.Printf("reputation update failed for user %d (%s): %v", userID, action, err)
		}
	}()
}

// ApplyVoteChange translates one ledger transition into reputation deltas.
// Leaving a vote state refunds exactly what entering it granted, so no
// sequence of casts can farm or burn reputation.
func ApplyVoteChange(kind TargetKind, authorID, voterID uint, previous, current int) {
	if previous == current || authorID == 0 {
		return
	}
	isConfig := kind == TargetConfig

	switch previous {
	case 1:
		if isConfig {
			_ = AddReputation(authorID, -RepConfigLiked, ActionConfigUnliked)
		} else {
			_ = AddReputation(authorID, -RepCommentLiked, ActionCommentUnliked)
		}
	case -1:
		if isConfig {
			_ = AddReputation(authorID, -RepConfigDownvoted, ActionConfigUndownvoted)
		} else {
			_ = AddReputation(authorID, -RepCommentDownvoted, ActionCommentUndownvoted)
		}
		_ = AddReputation(voterID, -RepDownvoteOther, ActionDownvoteWithdrawn)
	}

	switch current {
	case 1:
		if isConfig {
			_ = AddReputation(authorID, RepConfigLiked, ActionConfigLiked)
		} else {
			_ = AddReputation(authorID, RepCommentLiked, ActionCommentLiked)
		}
	case -1:
		if isConfig {
			_ = AddReputation(authorID, RepConfigDownvoted, ActionConfigDownvoted)
		} else {
			_ = AddReputation(authorID, RepCommentDownvoted, ActionCommentDownvoted)
		}
		_ = AddReputation(voterID, RepDownvoteOther, ActionDownvoteCast)
	}
}

// ApplyVoteChangeAsync runs ApplyVoteChange in a goroutine, for handlers.
func ApplyVoteChangeAsync(kind TargetKind, authorID, voterID uint, previous, current int) {
	go ApplyVoteChange(kind, authorID, voterID, previous, current)
}

func getTodayRange() (time.Time, time.Time) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return startOfDay, startOfDay.Add(24 * time.Hour)
}

func countTodayReputationLogs(userID uint, action string) int64 {
	startOfDay, endOfDay := getTodayRange()
	var count int64
	db.DB.Model(&models.ReputationLog{}).
		Where("user_id = ? AND action = ? AND created_at >= ? AND created_at < ?", userID, action, startOfDay, endOfDay).
		Count(&count)
	return count
}

// CanEarnConfigRep reports whether today's config submissions still earn.
func CanEarnConfigRep(userID uint) bool {
	return countTodayReputationLogs(userID, ActionConfigCreate) < DailyConfigLimit
}

// CanEarnCommentRep reports whether today's comments still earn.
func CanEarnCommentRep(userID uint) bool {
	return countTodayReputationLogs(userID, ActionCommentCreate) < DailyCommentLimit
}

// HasCheckedInToday reports whether the user already checked in today.
func HasCheckedInToday(userID uint) bool {
	return countTodayReputationLogs(userID, ActionCheckIn) > 0
}

// CheckIn grants the daily reputation, with a roughly 30% chance of a small
// extra bonus.
func CheckIn(userID uint) (earned int, bonus int, alreadyCheckedIn bool, err error) {
	if HasCheckedInToday(userID) {
		return 0, 0, true, nil
	}

	earned = RepCheckIn

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		baseEntry := models.ReputationLog{
			UserID: userID,
			Amount: earned,
			Action: ActionCheckIn,
		}
		if err := tx.Create(&baseEntry).Error; err != nil {
			return err
		}

		if rand.Intn(100) < 30 {
			bonus = rand.Intn(3) + 1
			bonusEntry := models.ReputationLog{
				UserID: userID,
				Amount: bonus,
				Action: ActionCheckInBonus,
			}
			if err := tx.Create(&bonusEntry).Error; err != nil {
				return err
			}
		}

		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("reputation", gorm.Expr("reputation + ?", earned+bonus)).
			Error
	})

	return earned, bonus, false, err
}
