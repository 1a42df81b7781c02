package assignment

import (
	"math/rand/v2"
	"sync"
	"time"

	"newsreview/internal/domain"
)

// Mode selects the article-selection policy.
type Mode string

const (
	// ModeRandom draws uniformly from the reviewer's unreviewed articles.
	// Preferred: it spreads coverage across a growing pool.
	ModeRandom Mode = "random"

	// ModeSequential walks the pool in repository order and serves the
	// first article whose stored review count is under its quota. The
	// submission path must increment the counter afterwards.
	ModeSequential Mode = "sequential"
)

// Engine selects the next article to present to a reviewer. Safe for use
// from concurrent sessions: the random source is guarded.
type Engine struct {
	mode Mode

	mu  sync.Mutex
	rng *rand.Rand
}

// Option tweaks engine construction.
type Option func(*Engine)

// WithSeed makes random selection deterministic, for tests.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// New builds an engine for the given mode; unknown modes fall back to
// random selection.
func New(mode Mode, opts ...Option) *Engine {
	e := &Engine{mode: mode}
	if e.mode != ModeSequential {
		e.mode = ModeRandom
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.rng == nil {
		now := uint64(time.Now().UnixNano())
		e.rng = rand.New(rand.NewPCG(now, now<<1|1))
	}

	return e
}

// Mode reports the active selection policy.
func (e *Engine) Mode() Mode {
	return e.mode
}

// Candidates computes the subset of the pool still assignable for a
// reviewer: active articles the reviewer has not reviewed, and, in
// sequential mode, articles still under their review quota. Order follows
// the repository listing.
func (e *Engine) Candidates(pool []domain.Article, reviewed map[string]struct{}) []domain.Article {
	candidates := make([]domain.Article, 0, len(pool))
	for _, article := range pool {
		if !article.Active {
			continue
		}
		if _, done := reviewed[article.ID]; done {
			continue
		}
		if e.mode == ModeSequential && article.ReviewCount >= article.Quota() {
			continue
		}
		candidates = append(candidates, article)
	}
	return candidates
}

// Next selects one article for the reviewer, or ErrQueueExhausted when
// nothing assignable remains. A skip is simply another Next call: it draws
// independently and with a single candidate may return the same article.
func (e *Engine) Next(pool []domain.Article, reviewed map[string]struct{}) (domain.Article, error) {
	candidates := e.Candidates(pool, reviewed)
	if len(candidates) == 0 {
		return domain.Article{}, domain.ErrQueueExhausted
	}

	if e.mode == ModeSequential {
		return candidates[0], nil
	}

	e.mu.Lock()
	pick := e.rng.IntN(len(candidates))
	e.mu.Unlock()

	return candidates[pick], nil
}
