package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"newsreview/internal/assignment"
	"newsreview/internal/domain"
	"newsreview/internal/identity"
	"newsreview/internal/review"
	"newsreview/internal/usecase"
)

type fakeStore struct {
	mu        sync.Mutex
	articles  []domain.Article
	reviews   []domain.Review
	reviewers []domain.Reviewer
}

func (f *fakeStore) ListArticles(ctx context.Context) ([]domain.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Article, len(f.articles))
	copy(out, f.articles)
	return out, nil
}

func (f *fakeStore) GetArticle(ctx context.Context, id string) (domain.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.articles {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Article{}, fmt.Errorf("%w: article %s", domain.ErrValidationFailed, id)
}

func (f *fakeStore) ArticleExistsByURL(ctx context.Context, url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.articles {
		if a.URL == url {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) AppendArticle(ctx context.Context, article domain.Article) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.articles = append(f.articles, article)
	return nil
}

func (f *fakeStore) IncrementReviewCount(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.articles {
		if f.articles[i].ID == id {
			f.articles[i].ReviewCount++
		}
	}
	return nil
}

func (f *fakeStore) ListReviews(ctx context.Context) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Review, len(f.reviews))
	copy(out, f.reviews)
	return out, nil
}

func (f *fakeStore) ListReviewsByReviewer(ctx context.Context, reviewerID string) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Review
	for _, r := range f.reviews {
		if identity.Normalize(r.ReviewerID) == identity.Normalize(reviewerID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) AppendReview(ctx context.Context, rev domain.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rev.CreatedAt = time.Now().UTC()
	f.reviews = append(f.reviews, rev)
	return nil
}

func (f *fakeStore) ListReviewers(ctx context.Context) ([]domain.Reviewer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Reviewer, len(f.reviewers))
	copy(out, f.reviewers)
	return out, nil
}

func newTestServer(t *testing.T, store *fakeStore) *Server {
	t.Helper()

	verifier := identity.NewVerifier(store, time.Minute, nil)
	engine := assignment.New(assignment.ModeRandom, assignment.WithSeed(7))
	submitter := review.NewSubmitter(store, store, assignment.ModeRandom, nil)
	service := usecase.NewService(usecase.ServiceDeps{
		Articles:  store,
		Reviews:   store,
		Verifier:  verifier,
		Engine:    engine,
		Submitter: submitter,
	})
	return New(":0", service, nil)
}

func seededStore() *fakeStore {
	return &fakeStore{
		reviewers: []domain.Reviewer{{ID: "alice@example.org", Active: true}},
		articles: []domain.Article{
			{ID: "a1", Headline: "First story", Content: "Body one", URL: "https://example.org/1", Active: true},
		},
	}
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func getJSON(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestStartSessionRejectsMissingIdentifier(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, seededStore())
	rec := postJSON(t, srv.Handler(), "/api/session", map[string]string{"reviewer_id": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStartSessionRejectsUnknownReviewer(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, seededStore())
	rec := postJSON(t, srv.Handler(), "/api/session", map[string]string{"reviewer_id": "mallory@example.org"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestReviewFlow(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, seededStore())
	handler := srv.Handler()

	rec := postJSON(t, handler, "/api/session", map[string]string{"reviewer_id": " Alice@Example.org "})
	if rec.Code != http.StatusOK {
		t.Fatalf("session start: %d %s", rec.Code, rec.Body.String())
	}
	sessionID, _ := decode(t, rec)["session_id"].(string)
	if sessionID != "alice@example.org" {
		t.Fatalf("session id not normalized: %q", sessionID)
	}

	rec = getJSON(t, handler, "/api/session/"+sessionID+"/next")
	if rec.Code != http.StatusOK {
		t.Fatalf("next: %d %s", rec.Code, rec.Body.String())
	}
	next := decode(t, rec)
	if next["id"] != "a1" {
		t.Fatalf("expected article a1, got %v", next)
	}

	rec = postJSON(t, handler, "/api/session/"+sessionID+"/reviews", map[string]any{
		"article_id": "a1", "political": 3, "intensity": 2,
		"sensational": 4, "threat": 1, "group_conflict": 5,
		"emotions": "anger", "highlight": "Body one",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}

	rec = getJSON(t, handler, "/api/session/"+sessionID+"/next")
	if rec.Code != http.StatusOK {
		t.Fatalf("next after submit: %d %s", rec.Code, rec.Body.String())
	}
	if done, _ := decode(t, rec)["done"].(bool); !done {
		t.Fatalf("expected exhaustion, got %s", rec.Body.String())
	}

	rec = getJSON(t, handler, "/api/session/"+sessionID+"/progress")
	if rec.Code != http.StatusOK {
		t.Fatalf("progress: %d %s", rec.Code, rec.Body.String())
	}
	progress := decode(t, rec)
	if progress["reviewed"].(float64) != 1 || progress["remaining"].(float64) != 0 {
		t.Fatalf("unexpected progress: %v", progress)
	}
}

func TestSubmitRejectsOutOfRangeRating(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, seededStore())
	handler := srv.Handler()

	rec := postJSON(t, handler, "/api/session", map[string]string{"reviewer_id": "alice@example.org"})
	if rec.Code != http.StatusOK {
		t.Fatalf("session start: %d", rec.Code)
	}

	rec = postJSON(t, handler, "/api/session/alice@example.org/reviews", map[string]any{
		"article_id": "a1", "political": 9, "intensity": 2,
		"sensational": 4, "threat": 1, "group_conflict": 5,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, seededStore())
	rec := getJSON(t, srv.Handler(), "/api/session/nobody/next")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestEmptyFieldsGetFallbacks(t *testing.T) {
	t.Parallel()

	store := seededStore()
	store.articles = []domain.Article{{ID: "bare", Active: true}}
	srv := newTestServer(t, store)
	handler := srv.Handler()

	rec := postJSON(t, handler, "/api/session", map[string]string{"reviewer_id": "alice@example.org"})
	if rec.Code != http.StatusOK {
		t.Fatalf("session start: %d", rec.Code)
	}

	rec = getJSON(t, handler, "/api/session/alice@example.org/next")
	next := decode(t, rec)
	if next["headline"] != "No headline" || next["content"] != "No content available" {
		t.Fatalf("fallbacks missing: %v", next)
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	t.Parallel()

	store := seededStore()
	day := time.Date(2026, time.August, 10, 12, 0, 0, 0, time.UTC)
	store.reviews = []domain.Review{
		{ReviewerID: "alice@example.org", ArticleID: "x1", CreatedAt: day},
		{ReviewerID: "alice@example.org", ArticleID: "x2", CreatedAt: day.AddDate(0, 0, 1)},
		{ReviewerID: "bob@example.org", ArticleID: "x1", CreatedAt: day},
	}
	srv := newTestServer(t, store)

	rec := getJSON(t, srv.Handler(), "/api/leaderboard?n=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("leaderboard: %d %s", rec.Code, rec.Body.String())
	}

	var out struct {
		Leaderboard []struct {
			ReviewerID string `json:"reviewer_id"`
			Count      int    `json:"count"`
			Streak     int    `json:"streak"`
		} `json:"leaderboard"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Leaderboard) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(out.Leaderboard))
	}
	top := out.Leaderboard[0]
	if top.ReviewerID != "alice@example.org" || top.Count != 2 || top.Streak != 2 {
		t.Fatalf("unexpected top entry: %+v", top)
	}

	rec = getJSON(t, srv.Handler(), "/api/leaderboard?n=-1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative n, got %d", rec.Code)
	}
}
