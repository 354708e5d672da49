// Package store persists suggestions and posted markers in postgres.
//
// The two tables are deliberately independent: a PostedMarker is a permanent
// tombstone keyed by submission id, not a child of the Suggestion row. That
// keeps the never-repost guarantee intact whether the Suggestion row is
// hard-deleted or merely hidden.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned when an operation references a submission id with
// no matching suggestion row.
var ErrNotFound = errors.New("suggestion not found")

// Visibility windows. Posts older than the window for their subreddit stop
// showing up in the pending list (and are not worth scraping at all).
const (
	PriorityWindow = 3 * 24 * time.Hour
	DefaultWindow  = 24 * time.Hour
)

// Suggestion is a scraped post awaiting a human decision.
type Suggestion struct {
	SubmissionID     string    `gorm:"primaryKey;column:submission_id" json:"id"`
	Title            string    `gorm:"not null" json:"title"`
	Subreddit        string    `gorm:"index:idx_subreddit_added" json:"subreddit"`
	Author           string    `json:"author"`
	Selftext         string    `json:"selftext"`
	PostURL          string    `json:"postUrl"`
	ImageURLs        []string  `gorm:"serializer:json" json:"imageUrls"`
	SuggestedComment string    `json:"suggestedComment"`
	PostCreatedAt    time.Time `json:"createdAt"`
	AddedAt          time.Time `gorm:"index:idx_subreddit_added" json:"addedAt"`
}

// PostedMarker records that a submission id has already received our reply.
// Created once at approval time, never mutated or deleted.
type PostedMarker struct {
	SubmissionID string    `gorm:"primaryKey;column:submission_id"`
	PostedAt     time.Time `gorm:"not null"`
}

// Store wraps the gorm connection plus the one piece of policy the SQL
// needs: which subreddit gets the long window.
type Store struct {
	db                *gorm.DB
	prioritySubreddit string
}

// Open connects to postgres, migrates the schema and returns a Store.
func Open(dsn, prioritySubreddit string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&Suggestion{}, &PostedMarker{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db, prioritySubreddit: prioritySubreddit}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InsertIfAbsent inserts the suggestion unless its submission id already
// exists. Returns true when a row was actually inserted. Safe under
// concurrent scraper runs: the unique primary key plus ON CONFLICT DO
// NOTHING guarantees exactly one winner.
func (s *Store) InsertIfAbsent(ctx context.Context, sug Suggestion) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "submission_id"}},
			DoNothing: true,
		}).
		Create(&sug)
	if res.Error != nil {
		return false, fmt.Errorf("failed to insert suggestion %s: %w", sug.SubmissionID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Get fetches a suggestion by submission id.
func (s *Store) Get(ctx context.Context, submissionID string) (*Suggestion, error) {
	var sug Suggestion
	err := s.db.WithContext(ctx).First(&sug, "submission_id = ?", submissionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load suggestion %s: %w", submissionID, err)
	}
	return &sug, nil
}

// ListPending returns every suggestion that has no posted marker and is not
// past its subreddit's visibility window, newest first (submission id breaks
// ties so the order is deterministic).
func (s *Store) ListPending(ctx context.Context, now time.Time) ([]Suggestion, error) {
	priority := strings.ToLower(s.prioritySubreddit)
	var out []Suggestion
	err := s.db.WithContext(ctx).
		Where("submission_id NOT IN (?)",
			s.db.Model(&PostedMarker{}).Select("submission_id")).
		Where(
			s.db.Where("LOWER(subreddit) = ? AND added_at > ?", priority, now.Add(-PriorityWindow)).
				Or("LOWER(subreddit) <> ? AND added_at > ?", priority, now.Add(-DefaultWindow)),
		).
		Order("added_at DESC, submission_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending suggestions: %w", err)
	}
	return out, nil
}

// UpdateComment overwrites the suggested comment for a suggestion.
func (s *Store) UpdateComment(ctx context.Context, submissionID, text string) error {
	res := s.db.WithContext(ctx).
		Model(&Suggestion{}).
		Where("submission_id = ?", submissionID).
		Update("suggested_comment", text)
	if res.Error != nil {
		return fmt.Errorf("failed to update comment for %s: %w", submissionID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove deletes a suggestion row. Removing an id that is already gone is
// not an error.
func (s *Store) Remove(ctx context.Context, submissionID string) error {
	err := s.db.WithContext(ctx).
		Delete(&Suggestion{}, "submission_id = ?", submissionID).Error
	if err != nil {
		return fmt.Errorf("failed to remove suggestion %s: %w", submissionID, err)
	}
	return nil
}

// MarkPosted records the submission id in the posted set. Idempotent.
func (s *Store) MarkPosted(ctx context.Context, submissionID string, when time.Time) error {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "submission_id"}},
			DoNothing: true,
		}).
		Create(&PostedMarker{SubmissionID: submissionID, PostedAt: when})
	if res.Error != nil {
		return fmt.Errorf("failed to mark %s as posted: %w", submissionID, res.Error)
	}
	return nil
}

// IsPosted reports whether a reply was already submitted for this id.
func (s *Store) IsPosted(ctx context.Context, submissionID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&PostedMarker{}).
		Where("submission_id = ?", submissionID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check posted marker for %s: %w", submissionID, err)
	}
	return count > 0, nil
}

// PurgeExpired physically deletes suggestion rows past their visibility
// window. Garbage collection only; ListPending already hides them.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	priority := strings.ToLower(s.prioritySubreddit)
	res := s.db.WithContext(ctx).
		Where(
			s.db.Where("LOWER(subreddit) = ? AND added_at <= ?", priority, now.Add(-PriorityWindow)).
				Or("LOWER(subreddit) <> ? AND added_at <= ?", priority, now.Add(-DefaultWindow)),
		).
		Delete(&Suggestion{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge expired suggestions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Window returns the visibility window for a subreddit. The priority
// subreddit name is matched case-insensitively.
func Window(subreddit, prioritySubreddit string) time.Duration {
	if prioritySubreddit != "" && strings.EqualFold(subreddit, prioritySubreddit) {
		return PriorityWindow
	}
	return DefaultWindow
}

// Expired reports whether a suggestion is past its visibility window at the
// given instant. Shared by the SQL-free test fake so listing semantics stay
// in one place.
func Expired(sug Suggestion, now time.Time, prioritySubreddit string) bool {
	return now.Sub(sug.AddedAt) > Window(sug.Subreddit, prioritySubreddit)
}
