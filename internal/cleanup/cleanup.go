package cleanup

import (
	"regexp"
	"strings"
)

// Cleaner normalizes extracted article text for one publisher style.
type Cleaner interface {
	Name() string
	Clean(text string) string
}

// Registry maps publisher names to their cleaning strategy, falling back
// to the generic cleaner for unknown publishers.
type Registry struct {
	cleaners map[string]Cleaner
	fallback Cleaner
}

// NewRegistry builds a registry with the generic cleaner as fallback.
func NewRegistry() *Registry {
	return &Registry{
		cleaners: map[string]Cleaner{},
		fallback: Generic{},
	}
}

// Register binds a publisher name to a cleaner, replacing any previous
// binding.
func (r *Registry) Register(publisher string, cleaner Cleaner) {
	if r.cleaners == nil {
		r.cleaners = map[string]Cleaner{}
	}
	r.cleaners[publisher] = cleaner
}

// Resolve returns the cleaner for a publisher, or the generic fallback.
func (r *Registry) Resolve(publisher string) Cleaner {
	if cleaner, ok := r.cleaners[publisher]; ok {
		return cleaner
	}
	return r.fallback
}

// Clean applies the publisher's strategy to the text.
func (r *Registry) Clean(publisher, text string) string {
	return r.Resolve(publisher).Clean(text)
}

// Defaults returns a registry preloaded with the known publisher styles.
func Defaults() *Registry {
	r := NewRegistry()
	r.Register("News18", LiveBlog{})
	r.Register("ABP India", HindiShortForm{})
	return r
}

var whitespaceExpr = regexp.MustCompile(`\s+`)

// Generic collapses runs of whitespace into single spaces.
type Generic struct{}

// Name identifies the strategy inside the registry.
func (Generic) Name() string { return "generic" }

// Clean flattens all whitespace.
func (Generic) Clean(text string) string {
	return strings.TrimSpace(whitespaceExpr.ReplaceAllString(text, " "))
}

// LiveBlog strips the update markers and stray fragments that live-blog
// pages leave in extracted text.
type LiveBlog struct{}

// Name identifies the strategy inside the registry.
func (LiveBlog) Name() string { return "live-blog" }

// Clean drops update/LIVE marker lines and fragments under three words,
// then joins the remainder into one paragraph.
func (LiveBlog) Clean(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, "Updated:") || strings.Contains(line, "LIVE") {
			continue
		}
		if len(strings.Fields(line)) < 3 {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, " ")
}

// HindiShortForm removes the advertisement lines Hindi short-form pages
// embed between paragraphs.
type HindiShortForm struct{}

// Name identifies the strategy inside the registry.
func (HindiShortForm) Name() string { return "hindi-short-form" }

// Clean drops ad lines and joins the remainder into one paragraph.
func (HindiShortForm) Clean(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, "विज्ञापन") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, " ")
}
