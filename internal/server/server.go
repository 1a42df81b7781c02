// Package server exposes the review workflow over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"newsreview/internal/domain"
	"newsreview/internal/usecase"
)

const (
	headlineFallback = "No headline"
	contentFallback  = "No content available"
)

// Server serves the reviewer-facing API on top of the session service.
type Server struct {
	service *usecase.Service
	logger  *slog.Logger
	http    *http.Server
}

// New builds the server with routes registered.
func New(addr string, service *usecase.Service, logger *slog.Logger) *Server {
	s := &Server{service: service, logger: logger}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	s.routes(router)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.POST("/session", s.startSession)
		api.GET("/session/:id/next", s.nextArticle)
		api.POST("/session/:id/skip", s.skipArticle)
		api.POST("/session/:id/reviews", s.submitReview)
		api.GET("/session/:id/progress", s.progress)
		api.GET("/leaderboard", s.leaderboard)
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Run starts the listener and blocks until it stops.
func (s *Server) Run() error {
	if s.logger != nil {
		s.logger.Info("http server listening", "addr", s.http.Addr)
	}
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) startSession(c *gin.Context) {
	var input struct {
		ReviewerID string `json:"reviewer_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sess, err := s.service.Start(c.Request.Context(), input.ReviewerID)
	switch {
	case errors.Is(err, domain.ErrNoIdentifier):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reviewer identifier is required"})
	case errors.Is(err, domain.ErrIdentityRejected):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Reviewer is not on the allow list"})
	case err != nil:
		s.warn("session start failed", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Review store is unavailable"})
	default:
		c.JSON(http.StatusOK, gin.H{"session_id": sess.ReviewerID})
	}
}

func (s *Server) resolve(c *gin.Context) (*usecase.Session, bool) {
	sess, err := s.service.Resolve(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown session"})
		return nil, false
	}
	return sess, true
}

func (s *Server) nextArticle(c *gin.Context) {
	sess, ok := s.resolve(c)
	if !ok {
		return
	}
	s.serveAssignment(c, sess, s.service.NextArticle)
}

func (s *Server) skipArticle(c *gin.Context) {
	sess, ok := s.resolve(c)
	if !ok {
		return
	}
	s.serveAssignment(c, sess, s.service.Skip)
}

func (s *Server) serveAssignment(c *gin.Context, sess *usecase.Session, draw func(context.Context, *usecase.Session) (domain.Article, error)) {
	article, err := draw(c.Request.Context(), sess)
	switch {
	case errors.Is(err, domain.ErrQueueExhausted):
		c.JSON(http.StatusOK, gin.H{"done": true})
	case err != nil:
		s.warn("assignment failed", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Review store is unavailable"})
	default:
		c.JSON(http.StatusOK, articleView(article))
	}
}

func articleView(article domain.Article) gin.H {
	headline := article.Headline
	if headline == "" {
		headline = headlineFallback
	}
	content := article.Content
	if content == "" {
		content = contentFallback
	}
	return gin.H{
		"id":           article.ID,
		"headline":     headline,
		"content":      content,
		"url":          article.URL,
		"publisher":    article.Publisher,
		"author":       article.Author,
		"published_at": article.PublishedAt,
	}
}

func (s *Server) submitReview(c *gin.Context) {
	sess, ok := s.resolve(c)
	if !ok {
		return
	}

	var input struct {
		ArticleID   string `json:"article_id"`
		Political   int    `json:"political"`
		Intensity   int    `json:"intensity"`
		Sensational int    `json:"sensational"`
		Threat      int    `json:"threat"`
		GroupFocus  int    `json:"group_conflict"`
		Emotions    string `json:"emotions"`
		Highlight   string `json:"highlight"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	err := s.service.Submit(c.Request.Context(), sess, usecase.SubmissionInput{
		ArticleID: input.ArticleID,
		Ratings: domain.Ratings{
			Political:     input.Political,
			Intensity:     input.Intensity,
			Sensational:   input.Sensational,
			Threat:        input.Threat,
			GroupConflict: input.GroupFocus,
		},
		Emotions:  input.Emotions,
		Highlight: input.Highlight,
	})
	switch {
	case errors.Is(err, domain.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrAmbiguousSubmission):
		c.JSON(http.StatusConflict, gin.H{"error": "Submission outcome unknown, do not retry blindly"})
	case err != nil:
		s.warn("review submit failed", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Review store is unavailable"})
	default:
		c.JSON(http.StatusCreated, gin.H{"status": "accepted"})
	}
}

func (s *Server) progress(c *gin.Context) {
	sess, ok := s.resolve(c)
	if !ok {
		return
	}

	progress, err := s.service.Progress(c.Request.Context(), sess)
	if err != nil {
		s.warn("progress failed", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Review store is unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviewed":  progress.Reviewed,
		"remaining": progress.Remaining,
		"total":     progress.Total,
	})
}

func (s *Server) leaderboard(c *gin.Context) {
	n := 0
	if raw := c.Query("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "n must be a non-negative integer"})
			return
		}
		n = parsed
	}

	entries, err := s.service.Leaderboard(c.Request.Context(), n)
	if err != nil {
		s.warn("leaderboard failed", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Review store is unavailable"})
		return
	}

	view := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		view = append(view, gin.H{
			"reviewer_id": entry.ReviewerID,
			"count":       entry.Count,
			"streak":      entry.Streak,
		})
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": view})
}

func (s *Server) warn(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, "error", err)
	}
}
