// Package memory is an in-process Store: an arena of rows keyed by integer id.
// It backs the engine tests and single-node development runs.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"thicket/internal/models"
	"thicket/internal/storage"
)

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	lastUser    uint
	lastComment uint
	lastBond    uint
	lastSave    uint

	users    map[uint]*models.User
	comments map[uint]*models.Comment
	bonds    map[uint]*models.Bond
	saves    map[uint]*models.Save
}

var _ storage.Store = (*Store)(nil)

// New returns an empty store. now stamps created rows; nil means time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:      now,
		users:    make(map[uint]*models.User),
		comments: make(map[uint]*models.Comment),
		bonds:    make(map[uint]*models.Bond),
		saves:    make(map[uint]*models.Save),
	}
}

func (s *Store) Close() error { return nil }

// --- users ---

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
			return storage.ErrConflict
		}
	}

	now := s.now()
	s.lastUser++
	u.ID = s.lastUser
	u.CreatedAt, u.UpdatedAt = now, now
	row := *u
	s.users[u.ID] = &row

	s.lastBond++
	s.bonds[s.lastBond] = &models.Bond{ID: s.lastBond, CreatedByID: u.ID, ToUserID: u.ID, CreatedAt: now}
	return nil
}

func (s *Store) UserByID(_ context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *Store) UserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			out := *u
			return &out, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) UpdateUser(_ context.Context, id uint, upd models.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	if upd.DisplayName != nil {
		u.DisplayName = *upd.DisplayName
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	u.UpdatedAt = s.now()
	return nil
}

func (s *Store) DeleteInactiveUsers(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make(map[uint]bool)
	for _, c := range s.comments {
		active[c.CreatedByID] = true
	}
	for _, sv := range s.saves {
		active[sv.CreatedByID] = true
	}

	var n int64
	for id, u := range s.users {
		if active[id] || !u.CreatedAt.Before(cutoff) {
			continue
		}
		delete(s.users, id)
		for bid, b := range s.bonds {
			if b.CreatedByID == id || b.ToUserID == id {
				delete(s.bonds, bid)
			}
		}
		for _, c := range s.comments {
			if c.MentionID != nil && *c.MentionID == id {
				c.MentionID = nil
			}
		}
		n++
	}
	return n, nil
}

// --- comments ---

func (s *Store) CreateComment(_ context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[c.CreatedByID]; !ok {
		return storage.ErrNotFound
	}
	if c.ParentID != nil {
		for _, existing := range s.comments {
			if existing.ParentID != nil && *existing.ParentID == *c.ParentID && existing.CreatedByID == c.CreatedByID {
				return storage.ErrConflict
			}
		}
	}

	now := s.now()
	s.lastComment++
	c.ID = s.lastComment
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Ancestors == nil {
		c.Ancestors = []uint{}
	}

	row := *c
	row.Ancestors = slices.Clone(c.Ancestors)
	row.ParentID = clonePtr(c.ParentID)
	row.MentionID = clonePtr(c.MentionID)
	row.CreatedBy = models.User{}
	row.Mention = nil
	s.comments[row.ID] = &row
	return nil
}

func (s *Store) CommentByID(_ context.Context, id uint) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.view(c), nil
}

func (s *Store) ReplyByAuthor(_ context.Context, parentID, authorID uint) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.comments {
		if c.ParentID != nil && *c.ParentID == parentID && c.CreatedByID == authorID {
			return s.view(c), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) UpdateComment(_ context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.comments[c.ID]
	if !ok {
		return storage.ErrNotFound
	}
	row.Content = c.Content
	row.MentionID = clonePtr(c.MentionID)
	row.Link = c.Link
	row.Hashtag = c.Hashtag
	row.UpdatedAt = s.now()
	c.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *Store) DeleteComment(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.comments, id)
	for sid, sv := range s.saves {
		if sv.PostID == id {
			delete(s.saves, sid)
		}
	}
	return nil
}

func (s *Store) CountChildren(_ context.Context, id uint) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, c := range s.comments {
		if c.ParentID != nil && *c.ParentID == id {
			n++
		}
	}
	return n, nil
}

func (s *Store) FindDuplicate(_ context.Context, q storage.DuplicateQuery) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := strings.ToLower(q.Content)
	var found *models.Comment
	for _, c := range s.comments {
		if c.ID == q.ExcludeID || strings.ToLower(c.Content) != want {
			continue
		}
		if q.AuthorID != nil && c.CreatedByID != *q.AuthorID {
			continue
		}
		if q.RootsOnly && c.ParentID != nil {
			continue
		}
		if q.ThreadRootID != nil && c.ID != *q.ThreadRootID && !slices.Contains(c.Ancestors, *q.ThreadRootID) {
			continue
		}
		if found == nil || c.ID < found.ID {
			found = c
		}
	}
	if found == nil {
		return nil, storage.ErrNotFound
	}
	return s.view(found), nil
}

func (s *Store) ThreadActivity(_ context.Context, rootID uint) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var replies, saves int64
	for _, c := range s.comments {
		if slices.Contains(c.Ancestors, rootID) {
			replies++
		}
	}
	for _, sv := range s.saves {
		if sv.PostID == rootID {
			saves++
		}
	}
	return replies, saves, nil
}

func (s *Store) UpdateScore(_ context.Context, id uint, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return storage.ErrNotFound
	}
	c.Score = score
	return nil
}

// --- bonds & saves ---

func (s *Store) CreateBond(_ context.Context, from, to uint) (*models.Bond, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.users[from] == nil || s.users[to] == nil {
		return nil, false, storage.ErrNotFound
	}
	for _, b := range s.bonds {
		if b.CreatedByID == from && b.ToUserID == to {
			out := *b
			return &out, false, nil
		}
	}
	s.lastBond++
	b := &models.Bond{ID: s.lastBond, CreatedByID: from, ToUserID: to, CreatedAt: s.now()}
	s.bonds[b.ID] = b
	out := *b
	return &out, true, nil
}

func (s *Store) DeleteBond(_ context.Context, from, to uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, b := range s.bonds {
		if b.CreatedByID == from && b.ToUserID == to {
			delete(s.bonds, id)
		}
	}
	return nil
}

func (s *Store) CreateSave(_ context.Context, userID, postID uint) (*models.Save, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.users[userID] == nil || s.comments[postID] == nil {
		return nil, storage.ErrNotFound
	}
	for _, sv := range s.saves {
		if sv.CreatedByID == userID && sv.PostID == postID {
			out := *sv
			return &out, nil
		}
	}
	s.lastSave++
	sv := &models.Save{ID: s.lastSave, CreatedByID: userID, PostID: postID, CreatedAt: s.now()}
	s.saves[sv.ID] = sv
	out := *sv
	return &out, nil
}

func (s *Store) DeleteSave(_ context.Context, userID, postID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sv := range s.saves {
		if sv.CreatedByID == userID && sv.PostID == postID {
			delete(s.saves, id)
		}
	}
	return nil
}

// --- counters ---

func (s *Store) unseenFollower(b *models.Bond, userID uint) bool {
	return b.ToUserID == userID && !b.IsSelf() && b.SeenAt == 0
}

func (s *Store) unseenMention(c *models.Comment, userID uint) bool {
	return c.MentionID != nil && *c.MentionID == userID && c.MentionSeenAt == 0
}

func (s *Store) unseenReply(c *models.Comment, userID uint) bool {
	return c.ReplySeenAt == 0 && s.repliesTo(c, userID)
}

func (s *Store) repliesTo(c *models.Comment, userID uint) bool {
	if c.ParentID == nil {
		return false
	}
	p, ok := s.comments[*c.ParentID]
	return ok && p.CreatedByID == userID
}

func (s *Store) Counters(_ context.Context, userID uint) (storage.Counters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out storage.Counters
	for _, b := range s.bonds {
		if s.unseenFollower(b, userID) {
			out.Followers++
		}
	}
	for _, c := range s.comments {
		if s.unseenMention(c, userID) {
			out.Mentions++
		}
		if s.unseenReply(c, userID) {
			out.Replies++
		}
	}
	return out, nil
}

func (s *Store) MarkFollowersSeen(_ context.Context, userID uint, at float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, b := range s.bonds {
		if s.unseenFollower(b, userID) && models.Watermark(b.CreatedAt) <= at {
			b.SeenAt = at
			n++
		}
	}
	return n, nil
}

func (s *Store) MarkMentionsSeen(_ context.Context, userID uint, at float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, c := range s.comments {
		if s.unseenMention(c, userID) && models.Watermark(c.CreatedAt) <= at {
			c.MentionSeenAt = at
			n++
		}
	}
	return n, nil
}

func (s *Store) MarkRepliesSeen(_ context.Context, userID uint, at float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, c := range s.comments {
		if s.unseenReply(c, userID) && models.Watermark(c.CreatedAt) <= at {
			c.ReplySeenAt = at
			n++
		}
	}
	return n, nil
}

// --- listings ---

func (s *Store) ListFolloweeThreads(_ context.Context, userID uint, offset, limit int) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	followees := make(map[uint]bool)
	for _, b := range s.bonds {
		if b.CreatedByID == userID {
			followees[b.ToUserID] = true
		}
	}
	return s.commentsWhere(offset, limit, func(c *models.Comment) bool {
		return c.ParentID == nil && followees[c.CreatedByID]
	}), nil
}

func (s *Store) ListReplies(_ context.Context, userID uint, offset, limit int) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.commentsWhere(offset, limit, func(c *models.Comment) bool {
		return s.repliesTo(c, userID)
	}), nil
}

func (s *Store) ListMentions(_ context.Context, userID uint, offset, limit int) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.commentsWhere(offset, limit, func(c *models.Comment) bool {
		return c.MentionID != nil && *c.MentionID == userID
	}), nil
}

func (s *Store) ListFollowers(_ context.Context, userID uint, offset, limit int) ([]models.Bond, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.bondsWhere(offset, limit, func(b *models.Bond) bool {
		return b.ToUserID == userID && !b.IsSelf()
	}), nil
}

func (s *Store) ListFollowing(_ context.Context, userID uint, offset, limit int) ([]models.Bond, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.bondsWhere(offset, limit, func(b *models.Bond) bool {
		return b.CreatedByID == userID && !b.IsSelf()
	}), nil
}

func (s *Store) ListSaved(_ context.Context, userID uint, offset, limit int) ([]models.Save, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []*models.Save
	for _, sv := range s.saves {
		if sv.CreatedByID == userID {
			rows = append(rows, sv)
		}
	}
	slices.SortFunc(rows, func(a, b *models.Save) int { return compareDesc(a.ID, b.ID) })

	var out []models.Save
	for _, sv := range window(rows, offset, limit) {
		row := *sv
		if p, ok := s.comments[sv.PostID]; ok {
			row.Post = *s.view(p)
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Store) ListTrending(_ context.Context, sample, offset, limit int) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var roots []*models.Comment
	for _, c := range s.comments {
		if c.ParentID == nil {
			roots = append(roots, c)
		}
	}
	slices.SortFunc(roots, func(a, b *models.Comment) int { return compareDesc(a.ID, b.ID) })
	if len(roots) > sample {
		roots = roots[:sample]
	}
	slices.SortFunc(roots, func(a, b *models.Comment) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return compareDesc(a.ID, b.ID)
	})

	var out []models.Comment
	for _, c := range window(roots, offset, limit) {
		out = append(out, *s.view(c))
	}
	return out, nil
}

// --- helpers ---

// view copies c and attaches its author and mentioned user. Callers hold mu.
func (s *Store) view(c *models.Comment) *models.Comment {
	out := *c
	out.Ancestors = slices.Clone(c.Ancestors)
	out.ParentID = clonePtr(c.ParentID)
	out.MentionID = clonePtr(c.MentionID)
	if u, ok := s.users[c.CreatedByID]; ok {
		out.CreatedBy = *u
	}
	if c.MentionID != nil {
		if u, ok := s.users[*c.MentionID]; ok {
			m := *u
			out.Mention = &m
		}
	}
	return &out
}

func (s *Store) commentsWhere(offset, limit int, keep func(*models.Comment) bool) []models.Comment {
	var rows []*models.Comment
	for _, c := range s.comments {
		if keep(c) {
			rows = append(rows, c)
		}
	}
	slices.SortFunc(rows, func(a, b *models.Comment) int { return compareDesc(a.ID, b.ID) })

	var out []models.Comment
	for _, c := range window(rows, offset, limit) {
		out = append(out, *s.view(c))
	}
	return out
}

func (s *Store) bondsWhere(offset, limit int, keep func(*models.Bond) bool) []models.Bond {
	var rows []*models.Bond
	for _, b := range s.bonds {
		if keep(b) {
			rows = append(rows, b)
		}
	}
	slices.SortFunc(rows, func(a, b *models.Bond) int { return compareDesc(a.ID, b.ID) })

	var out []models.Bond
	for _, b := range window(rows, offset, limit) {
		row := *b
		if u, ok := s.users[b.CreatedByID]; ok {
			row.CreatedBy = *u
		}
		if u, ok := s.users[b.ToUserID]; ok {
			row.ToUser = *u
		}
		out = append(out, row)
	}
	return out
}

func window[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func compareDesc(a, b uint) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}

func clonePtr(p *uint) *uint {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
