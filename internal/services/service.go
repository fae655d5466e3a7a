// Package services holds the thread engine: comment creation with its
// ancestor paths and duplicate guards, the social graph, notification
// counters and the paged listings.
package services

import (
	"strings"
	"time"

	"thicket/internal/models"
	"thicket/internal/storage"
	"thicket/internal/utils"
)

const (
	DefaultMaxContent = models.MaxContent
	DefaultPageSize   = 16
	DefaultSample     = 100
	DefaultCacheTTL   = time.Minute
)

// Policy is the immutable content configuration, built once at start.
type Policy struct {
	MaxContent int
	prohibited map[string]struct{}
}

// NewPolicy builds a policy. Prohibited words match whole tokens, ignoring case.
// maxContent is capped at the column width.
func NewPolicy(maxContent int, prohibited []string) Policy {
	if maxContent <= 0 || maxContent > models.MaxContent {
		maxContent = DefaultMaxContent
	}
	p := Policy{MaxContent: maxContent, prohibited: make(map[string]struct{}, len(prohibited))}
	for _, w := range prohibited {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			p.prohibited[w] = struct{}{}
		}
	}
	return p
}

func (p Policy) isProhibited(word string) bool {
	_, ok := p.prohibited[strings.ToLower(word)]
	return ok
}

// Options tune listings and caching.
type Options struct {
	PageSize       int
	TrendingSample int
	TrendingTTL    time.Duration
}

// Scheduler receives thread roots whose ranking is stale.
type Scheduler interface {
	ScheduleUpdate(rootID uint)
}

type Service struct {
	store   storage.Store
	policy  Policy
	opts    Options
	cache   utils.Cache
	ranking Scheduler
	now     func() time.Time
}

// New creates the engine. cache and ranking may be nil.
func New(store storage.Store, policy Policy, opts Options, cache utils.Cache, ranking Scheduler) *Service {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.TrendingSample <= 0 {
		opts.TrendingSample = DefaultSample
	}
	if opts.TrendingTTL <= 0 {
		opts.TrendingTTL = DefaultCacheTTL
	}
	return &Service{
		store:   store,
		policy:  policy,
		opts:    opts,
		cache:   cache,
		ranking: ranking,
		now:     time.Now,
	}
}

// WithClock replaces the clock used for watermarks.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// PageSize is the listing window size.
func (s *Service) PageSize() int {
	return s.opts.PageSize
}
