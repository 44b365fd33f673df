package services

import (
	"errors"
	"fmt"
	"time"

	"emuhub/internal/apperr"
	"emuhub/internal/db"
	"emuhub/internal/models"

	"gorm.io/gorm"
)

// TargetKind selects which vote ledger CastVote operates on.
type TargetKind string

const (
	TargetConfig  TargetKind = "config"
	TargetComment TargetKind = "comment"
)

// voteTarget describes one ledger/counter pairing. Config and comment votes
// run through the exact same state machine; only the table names differ.
type voteTarget struct {
	counterTable string
	ledgerTable  string
	targetColumn string
	hiddenColumn string // empty when the target has no soft-delete flag
}

var voteTargets = map[TargetKind]voteTarget{
	TargetConfig:  {counterTable: "configs", ledgerTable: "votes", targetColumn: "config_id", hiddenColumn: "is_hidden"},
	TargetComment: {counterTable: "comments", ledgerTable: "comment_votes", targetColumn: "comment_id"},
}

// errVoteRace signals that a guarded ledger write found the row already
// changed by a concurrent transaction. The whole transaction is retried.
var errVoteRace = errors.New("vote ledger changed underneath us")

const voteAttempts = 3

// VoteResult is the state after a cast: fresh counters read inside the same
// transaction that wrote them, plus the caller's effective vote (0 = no row).
type VoteResult struct {
	TargetID  uint `json:"target_id"`
	Upvotes   int  `json:"upvotes"`
	Downvotes int  `json:"downvotes"`
	Value     int  `json:"value"`
	Previous  int  `json:"-"` // vote before the cast, for reputation side effects
	AuthorID  uint `json:"-"` // content author, for reputation side effects
}

// Changed reports whether the cast actually moved the ledger.
func (r *VoteResult) Changed() bool {
	return r.Previous != r.Value
}

// CastVote applies one user's vote to a config or comment. value +1 and -1
// set the vote, 0 retracts it. The ledger row and the denormalized counters
// on the target move inside a single transaction, so the counters always
// equal the ledger tally.
//
// Concurrent casts on the same (user, target) pair are handled optimistically:
// inserts lean on the unique ledger index, updates and deletes carry the
// previously read value as a guard. Either miss aborts the transaction and
// the whole cast is retried from a fresh read.
func CastVote(voter *models.User, kind TargetKind, targetID uint, value int) (*VoteResult, error) {
	if value != -1 && value != 0 && value != 1 {
		return nil, apperr.Validation("vote value must be -1, 0 or 1")
	}
	target, ok := voteTargets[kind]
	if !ok {
		return nil, apperr.Validation("unknown vote target kind")
	}

	var lastErr error
	for attempt := 0; attempt < voteAttempts; attempt++ {
		result, err := castVoteOnce(voter, kind, target, targetID, value)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, errVoteRace) || errors.Is(err, gorm.ErrDuplicatedKey) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, apperr.Internal(fmt.Errorf("vote on %s %d kept racing: %w", kind, targetID, lastErr))
}

func castVoteOnce(voter *models.User, kind TargetKind, target voteTarget, targetID uint, value int) (*VoteResult, error) {
	result := &VoteResult{TargetID: targetID}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var row struct {
			ID        uint
			UserID    uint
			Upvotes   int
			Downvotes int
			IsHidden  bool
		}
		selects := "id, user_id, upvotes, downvotes"
		if target.hiddenColumn != "" {
			selects += ", " + target.hiddenColumn
		}
		if err := tx.Table(target.counterTable).
			Select(selects).
			Where("id = ?", targetID).
			Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound(string(kind) + " not found")
			}
			return err
		}
		if row.IsHidden && !voter.IsStaff() {
			return apperr.NotFound(string(kind) + " not found")
		}
		if row.UserID == voter.ID {
			return apperr.PermissionDenied("you cannot vote on your own " + string(kind))
		}
		result.AuthorID = row.UserID

		var ledger struct {
			ID    uint
			Value int
		}
		err := tx.Table(target.ledgerTable).
			Select("id, value").
			Where("user_id = ? AND "+target.targetColumn+" = ?", voter.ID, targetID).
			Take(&ledger).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			result.Previous = 0
		case err != nil:
			return err
		default:
			result.Previous = ledger.Value
		}

		if result.Previous == value {
			// Covers both "retract nothing" and "repeat same vote".
			result.Upvotes, result.Downvotes = row.Upvotes, row.Downvotes
			result.Value = value
			return nil
		}

		now := time.Now()
		switch {
		case result.Previous == 0:
			// First nonzero vote. A concurrent insert for the same pair
			// trips the unique index and comes back as ErrDuplicatedKey.
			if err := tx.Table(target.ledgerTable).Create(map[string]any{
				"user_id":           voter.ID,
				target.targetColumn: targetID,
				"value":             value,
				"created_at":        now,
				"updated_at":        now,
			}).Error; err != nil {
				return err
			}
		case value == 0:
			res := tx.Exec(
				"DELETE FROM "+target.ledgerTable+" WHERE id = ? AND value = ?",
				ledger.ID, result.Previous,
			)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errVoteRace
			}
		default:
			// Sign flip.
			res := tx.Exec(
				"UPDATE "+target.ledgerTable+" SET value = ?, updated_at = ? WHERE id = ? AND value = ?",
				value, now, ledger.ID, result.Previous,
			)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errVoteRace
			}
		}

		// Counter deltas ride the same transaction as the ledger write, and
		// are relative expressions so concurrent casts on the same target
		// never clobber each other's increments.
		if err := adjustCounter(tx, target, targetID, result.Previous, -1); err != nil {
			return err
		}
		if err := adjustCounter(tx, target, targetID, value, +1); err != nil {
			return err
		}

		var fresh struct {
			Upvotes   int
			Downvotes int
		}
		if err := tx.Table(target.counterTable).
			Select("upvotes, downvotes").
			Where("id = ?", targetID).
			Take(&fresh).Error; err != nil {
			return err
		}
		result.Upvotes, result.Downvotes = fresh.Upvotes, fresh.Downvotes
		result.Value = value
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// adjustCounter bumps the counter matching voteValue by delta. voteValue 0
// touches nothing.
func adjustCounter(tx *gorm.DB, target voteTarget, targetID uint, voteValue, delta int) error {
	var column string
	switch voteValue {
	case 1:
		column = "upvotes"
	case -1:
		column = "downvotes"
	default:
		return nil
	}
	return tx.Table(target.counterTable).
		Where("id = ?", targetID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}

// GetVoteValue returns the user's current vote on a target, 0 when none.
func GetVoteValue(userID uint, kind TargetKind, targetID uint) (int, error) {
	target, ok := voteTargets[kind]
	if !ok {
		return 0, apperr.Validation("unknown vote target kind")
	}
	var value int
	err := db.DB.Table(target.ledgerTable).
		Select("value").
		Where("user_id = ? AND "+target.targetColumn+" = ?", userID, targetID).
		Take(&value).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return value, nil
}

// VotesFor loads the user's votes on a batch of targets in one query, for
// annotating listings. Missing pairs are simply absent from the map.
func VotesFor(userID uint, kind TargetKind, targetIDs []uint) (map[uint]int, error) {
	votes := make(map[uint]int, len(targetIDs))
	if userID == 0 || len(targetIDs) == 0 {
		return votes, nil
	}
	target, ok := voteTargets[kind]
	if !ok {
		return nil, apperr.Validation("unknown vote target kind")
	}
	var rows []struct {
		TargetID uint
		Value    int
	}
	if err := db.DB.Table(target.ledgerTable).
		Select(target.targetColumn+" AS target_id, value").
		Where("user_id = ? AND "+target.targetColumn+" IN ?", userID, targetIDs).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		votes[r.TargetID] = r.Value
	}
	return votes, nil
}
