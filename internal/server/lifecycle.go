package server

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Vigno04/Cooplyst-sub000/internal/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Lifecycle engine. Every operation validates its rule checks first and
// then applies a single state change, so a failed call never leaves a
// game partially updated. Handlers run each operation inside one
// transaction.

func transitionStatus(tx *gorm.DB, game *db.Game, target string) error {
	now := timeNowUTC()
	err := tx.Model(&db.Game{}).Where("id = ?", game.ID).Updates(map[string]any{
		"status":            target,
		"status_changed_at": now,
	}).Error
	if err != nil {
		return err
	}
	game.Status = target
	game.StatusChangedAt = now
	return nil
}

func yesVoteCount(tx *gorm.DB, gameID uint) (int, error) {
	var count int64
	err := tx.Model(&db.Vote{}).Where("game_id = ? AND value = 1", gameID).Count(&count).Error
	return int(count), err
}

// castVote upserts the caller's vote and advances the game state. The
// first vote of any kind moves a proposed game to voting, independent
// of the vote's value; reaching the yes-vote threshold promotes to
// backlog and populates players.
func castVote(tx *gorm.DB, game *db.Game, userID uint, value int, threshold int) (promoted bool, err error) {
	if value != 0 && value != 1 {
		return false, errInvalidVote
	}
	if game.Status != db.StatusProposed && game.Status != db.StatusVoting {
		return false, errVotingClosed
	}

	now := timeNowUTC()
	vote := db.Vote{GameID: game.ID, UserID: userID, Value: value, CreatedAt: now, UpdatedAt: now}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&vote).Error
	if err != nil {
		return false, err
	}

	if game.Status == db.StatusProposed {
		if err := transitionStatus(tx, game, db.StatusVoting); err != nil {
			return false, err
		}
	}
	return checkPromotion(tx, game, threshold)
}

// checkPromotion promotes the game to backlog once the yes-vote count
// reaches the threshold. The comparison is >= so a jump past the
// threshold still promotes, and promotion is one-way: a later drop in
// the count never demotes.
func checkPromotion(tx *gorm.DB, game *db.Game, threshold int) (bool, error) {
	if game.Status != db.StatusProposed && game.Status != db.StatusVoting {
		return false, nil
	}
	count, err := yesVoteCount(tx, game.ID)
	if err != nil {
		return false, err
	}
	if count < threshold {
		return false, nil
	}
	if err := transitionStatus(tx, game, db.StatusBacklog); err != nil {
		return false, err
	}
	if err := populatePlayers(tx, game.ID); err != nil {
		return false, err
	}
	return true, nil
}

// populatePlayers inserts every current yes-voter as a player.
// Idempotent: duplicate memberships are no-ops, so it is safe to call
// from both auto-promotion and admin-forced transitions.
func populatePlayers(tx *gorm.DB, gameID uint) error {
	var votes []db.Vote
	if err := tx.Where("game_id = ? AND value = 1", gameID).Order("id").Find(&votes).Error; err != nil {
		return err
	}
	now := timeNowUTC()
	for _, vote := range votes {
		player := db.Player{
			GameID:    gameID,
			UserID:    vote.UserID,
			JoinedAt:  now,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&player).Error; err != nil {
			return err
		}
	}
	return nil
}

// forceStatus is the admin transition: any of the five statuses can be
// set directly, with side effects keyed on the target state.
func forceStatus(tx *gorm.DB, game *db.Game, target string) error {
	if !db.ValidStatus(target) {
		return fmt.Errorf("%w: %q", errInvalidStatus, target)
	}
	previous := game.Status
	if err := transitionStatus(tx, game, target); err != nil {
		return err
	}
	fromOpen := previous == db.StatusProposed || previous == db.StatusVoting
	if fromOpen && (target == db.StatusBacklog || target == db.StatusPlaying) {
		if err := populatePlayers(tx, game.ID); err != nil {
			return err
		}
	}
	if target == db.StatusPlaying {
		var runs int64
		if err := tx.Model(&db.Run{}).Where("game_id = ?", game.ID).Count(&runs).Error; err != nil {
			return err
		}
		if runs == 0 {
			if _, err := createRun(tx, game, ""); err != nil {
				return err
			}
		}
	}
	return nil
}

// resetVotes deletes every vote for the game and, when the game is
// still in voting, reverts it to proposed. Players already populated
// are left alone.
func resetVotes(tx *gorm.DB, game *db.Game) error {
	if err := tx.Where("game_id = ?", game.ID).Delete(&db.Vote{}).Error; err != nil {
		return err
	}
	if game.Status == db.StatusVoting {
		return transitionStatus(tx, game, db.StatusProposed)
	}
	return nil
}

// createRun numbers the new run one past both the highest existing run
// and the game's run counter, so numbers stay monotonic and are never
// reused after a deletion.
func createRun(tx *gorm.DB, game *db.Game, name string) (*db.Run, error) {
	var maxNumber int
	err := tx.Model(&db.Run{}).
		Where("game_id = ?", game.ID).
		Select("COALESCE(MAX(run_number), 0)").
		Scan(&maxNumber).Error
	if err != nil {
		return nil, err
	}
	if game.RunCounter > maxNumber {
		maxNumber = game.RunCounter
	}
	number := maxNumber + 1
	if name == "" {
		name = fmt.Sprintf("Run #%d", number)
	}
	now := timeNowUTC()
	run := db.Run{GameID: game.ID, RunNumber: number, Name: name, CreatedAt: now, UpdatedAt: now}
	if err := tx.Create(&run).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&db.Game{}).Where("id = ?", game.ID).Update("run_counter", number).Error; err != nil {
		return nil, err
	}
	game.RunCounter = number
	return &run, nil
}

// startRun creates the next run and moves the game to playing. The run
// is created explicitly here, so the playing transition skips the
// auto-run side effect of forceStatus.
func startRun(tx *gorm.DB, game *db.Game, name string) (*db.Run, error) {
	run, err := createRun(tx, game, name)
	if err != nil {
		return nil, err
	}
	if game.Status != db.StatusPlaying {
		if err := transitionStatus(tx, game, db.StatusPlaying); err != nil {
			return nil, err
		}
	}
	return run, nil
}

func findRun(tx *gorm.DB, gameID uint, runNumber int) (*db.Run, error) {
	var run db.Run
	err := tx.Where("game_id = ? AND run_number = ?", gameID, runNumber).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errRunNotFound
		}
		return nil, err
	}
	return &run, nil
}

// completeRun stamps the run and, when it was the last incomplete run
// of the game, marks the whole game completed.
func completeRun(tx *gorm.DB, game *db.Game, run *db.Run) error {
	now := timeNowUTC()
	err := tx.Model(&db.Run{}).Where("id = ?", run.ID).Updates(map[string]any{
		"completed_at": now,
		"updated_at":   now,
	}).Error
	if err != nil {
		return err
	}
	run.CompletedAt = &now
	var open int64
	err = tx.Model(&db.Run{}).
		Where("game_id = ? AND completed_at IS NULL", game.ID).
		Count(&open).Error
	if err != nil {
		return err
	}
	if open == 0 {
		return transitionStatus(tx, game, db.StatusCompleted)
	}
	return nil
}

// deleteRun removes the run and its ratings. Deleting the last run of
// a playing game reverts the game to backlog.
func deleteRun(tx *gorm.DB, game *db.Game, run *db.Run) error {
	if err := tx.Where("run_id = ?", run.ID).Delete(&db.Rating{}).Error; err != nil {
		return err
	}
	if err := tx.Delete(&db.Run{}, run.ID).Error; err != nil {
		return err
	}
	var remaining int64
	if err := tx.Model(&db.Run{}).Where("game_id = ?", game.ID).Count(&remaining).Error; err != nil {
		return err
	}
	if remaining == 0 && game.Status == db.StatusPlaying {
		return transitionStatus(tx, game, db.StatusBacklog)
	}
	return nil
}

func isPlayer(tx *gorm.DB, gameID, userID uint) (bool, error) {
	var count int64
	err := tx.Model(&db.Player{}).Where("game_id = ? AND user_id = ?", gameID, userID).Count(&count).Error
	return count > 0, err
}

// submitRating upserts the caller's score for a run. Only current
// players of the parent game may rate, and the score must be 1-10.
func submitRating(tx *gorm.DB, game *db.Game, run *db.Run, userID uint, score int, comment string) error {
	if err := validateScore(score); err != nil {
		return err
	}
	member, err := isPlayer(tx, game.ID, userID)
	if err != nil {
		return err
	}
	if !member {
		return errNotPlayer
	}
	now := timeNowUTC()
	rating := db.Rating{
		RunID:     run.ID,
		UserID:    userID,
		Score:     score,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "comment", "updated_at"}),
	}).Create(&rating).Error
}

// medianRating computes the median over all ratings across all runs of
// the game; on an even count the two middle scores are averaged. The
// second return is false when the game has no ratings at all.
func medianRating(tx *gorm.DB, gameID uint) (float64, bool, error) {
	var scores []int
	err := tx.Model(&db.Rating{}).
		Joins("JOIN runs ON runs.id = ratings.run_id").
		Where("runs.game_id = ?", gameID).
		Pluck("ratings.score", &scores).Error
	if err != nil {
		return 0, false, err
	}
	if len(scores) == 0 {
		return 0, false, nil
	}
	sort.Ints(scores)
	mid := len(scores) / 2
	if len(scores)%2 == 1 {
		return float64(scores[mid]), true, nil
	}
	return float64(scores[mid-1]+scores[mid]) / 2, true, nil
}
