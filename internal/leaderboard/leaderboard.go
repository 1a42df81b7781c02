package leaderboard

import (
	"sort"
	"time"

	"newsreview/internal/domain"
	"newsreview/internal/identity"
)

// Compute aggregates the full review history into a leaderboard: one entry
// per reviewer with lifetime count and current daily streak, ranked by
// count descending. Ties keep the order reviewers first appear in the
// history, stable across calls with identical input.
//
// This is a pure function recomputed from scratch on every request; review
// volume is small enough that no incremental aggregate is kept.
func Compute(reviews []domain.Review) []domain.LeaderboardEntry {
	var order []string
	counts := make(map[string]int)
	days := make(map[string]map[time.Time]struct{})

	for _, review := range reviews {
		reviewer := identity.Normalize(review.ReviewerID)
		if reviewer == "" {
			continue
		}

		if _, seen := counts[reviewer]; !seen {
			order = append(order, reviewer)
			days[reviewer] = make(map[time.Time]struct{})
		}
		counts[reviewer]++

		if !review.CreatedAt.IsZero() {
			days[reviewer][civilDay(review.CreatedAt)] = struct{}{}
		}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(order))
	for _, reviewer := range order {
		entries = append(entries, domain.LeaderboardEntry{
			ReviewerID: reviewer,
			Count:      counts[reviewer],
			Streak:     streak(days[reviewer]),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})

	return entries
}

// HistoricalCount returns the reviewer's lifetime review total across the
// whole history, independent of the current article pool.
func HistoricalCount(reviews []domain.Review, reviewerID string) int {
	target := identity.Normalize(reviewerID)
	if target == "" {
		return 0
	}

	count := 0
	for _, review := range reviews {
		if identity.Normalize(review.ReviewerID) == target {
			count++
		}
	}
	return count
}

// streak counts consecutive calendar days ending on the most recent
// reviewed day. Multiple reviews on one day count once; the walk stops at
// the first gap of two days or more.
func streak(daySet map[time.Time]struct{}) int {
	if len(daySet) == 0 {
		return 0
	}

	days := make([]time.Time, 0, len(daySet))
	for day := range daySet {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	run := 1
	for i := len(days) - 1; i > 0; i-- {
		if days[i-1].AddDate(0, 0, 1).Equal(days[i]) {
			run++
			continue
		}
		break
	}

	return run
}

// civilDay truncates a timestamp to its UTC calendar day.
func civilDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
