package domain

import (
	"fmt"
	"time"
)

// Reviewer is one allow-list entry. The directory is maintained externally;
// the core only reads it.
type Reviewer struct {
	ID     string
	Active bool
}

// Ratings holds the five Likert answers of one review, each in [1,5].
type Ratings struct {
	Political     int
	Intensity     int
	Sensational   int
	Threat        int
	GroupConflict int
}

// Validate checks every rating against the closed [1,5] range and reports
// the first violation by field name.
func (r Ratings) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"political", r.Political},
		{"intensity", r.Intensity},
		{"sensational", r.Sensational},
		{"threat", r.Threat},
		{"group_conflict", r.GroupConflict},
	}

	for _, f := range fields {
		if f.value < 1 || f.value > 5 {
			return fmt.Errorf("%w: %s rating %d outside [1,5]", ErrValidationFailed, f.name, f.value)
		}
	}

	return nil
}

// Review is one reviewer's completed rating of one article. Reviews are
// immutable once written; CreatedAt is assigned by the repository at
// insert time.
type Review struct {
	ID         string
	ReviewerID string
	ArticleID  string
	Ratings    Ratings
	Emotions   string
	Highlight  string
	CreatedAt  time.Time
}

// LeaderboardEntry is one ranked row of the leaderboard.
type LeaderboardEntry struct {
	ReviewerID string
	Count      int
	Streak     int
}

// Progress summarizes one reviewer's position against the current pool.
type Progress struct {
	Reviewed  int
	Remaining int
	Total     int
}
