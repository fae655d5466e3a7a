// Package storage declares the entity store the thread engine runs on.
package storage

import (
	"context"
	"errors"
	"time"

	"thicket/internal/models"
)

var (
	// ErrNotFound: the entity is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a unique index rejected the write.
	ErrConflict = errors.New("conflict")
)

// DuplicateQuery selects comments whose content equals Content case-insensitively.
// The optional scopes narrow the match and combine with AND.
type DuplicateQuery struct {
	Content string
	// AuthorID limits the match to one author.
	AuthorID *uint
	// RootsOnly limits the match to thread roots.
	RootsOnly bool
	// ThreadRootID limits the match to the root itself and every comment whose
	// ancestor path contains it.
	ThreadRootID *uint
	// ExcludeID skips one comment, used when re-checking an edit.
	ExcludeID uint
}

// Counters are the live unseen counts of one user.
type Counters struct {
	Followers int64 `json:"followers"`
	Mentions  int64 `json:"mentions"`
	Replies   int64 `json:"replies"`
	Messages  int64 `json:"messages"`
}

// Store describes every read and write the engine performs. Implementations
// must enforce the unique indexes atomically:
//   - users: username (case-insensitive) and email;
//   - comments: (parent_id, created_by_id) for replies;
//   - bonds: (created_by_id, to_user_id);
//   - saves: (created_by_id, post_id).
//
// List methods return rows newest first unless stated otherwise and take an
// offset/limit window; they never fail on an empty window.
type Store interface {
	// CreateUser inserts the user and its self-edge in one step.
	// A taken username or email yields ErrConflict.
	CreateUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, id uint) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	// UpdateUser applies the whitelisted profile fields that are set.
	UpdateUser(ctx context.Context, id uint, upd models.ProfileUpdate) error
	// DeleteInactiveUsers removes users created before cutoff that own no
	// comments and no saves. It returns the number of users removed.
	DeleteInactiveUsers(ctx context.Context, cutoff time.Time) (int64, error)

	// CreateComment persists c with its ancestor path already set and fills ID
	// and timestamps. A second reply by the same author to the same parent
	// yields ErrConflict.
	CreateComment(ctx context.Context, c *models.Comment) error
	CommentByID(ctx context.Context, id uint) (*models.Comment, error)
	// ReplyByAuthor returns the reply authorID made to parentID.
	ReplyByAuthor(ctx context.Context, parentID, authorID uint) (*models.Comment, error)
	// UpdateComment rewrites content and the derived tag fields only.
	UpdateComment(ctx context.Context, c *models.Comment) error
	DeleteComment(ctx context.Context, id uint) error
	CountChildren(ctx context.Context, id uint) (int64, error)
	// FindDuplicate returns the oldest comment matching q, or ErrNotFound.
	FindDuplicate(ctx context.Context, q DuplicateQuery) (*models.Comment, error)
	// ThreadActivity reports the number of comments below rootID and the
	// number of saves of rootID.
	ThreadActivity(ctx context.Context, rootID uint) (replies, saves int64, err error)
	UpdateScore(ctx context.Context, id uint, score int) error

	// CreateBond is get-or-create; created is false when the edge existed.
	CreateBond(ctx context.Context, from, to uint) (b *models.Bond, created bool, err error)
	// DeleteBond removes the edge; a missing edge is not an error.
	DeleteBond(ctx context.Context, from, to uint) error

	// CreateSave is get-or-create; a missing post yields ErrNotFound.
	CreateSave(ctx context.Context, userID, postID uint) (*models.Save, error)
	// DeleteSave removes the save; a missing save is not an error.
	DeleteSave(ctx context.Context, userID, postID uint) error

	// Counters computes the unseen counts of userID.
	Counters(ctx context.Context, userID uint) (Counters, error)
	// MarkFollowersSeen, MarkMentionsSeen and MarkRepliesSeen set the watermark
	// of every unseen row created at or before at (unix seconds) to at.
	MarkFollowersSeen(ctx context.Context, userID uint, at float64) (int64, error)
	MarkMentionsSeen(ctx context.Context, userID uint, at float64) (int64, error)
	MarkRepliesSeen(ctx context.Context, userID uint, at float64) (int64, error)

	// ListFolloweeThreads lists roots authored by anyone userID has a bond to,
	// the self-edge included.
	ListFolloweeThreads(ctx context.Context, userID uint, offset, limit int) ([]models.Comment, error)
	// ListReplies lists comments whose parent userID authored.
	ListReplies(ctx context.Context, userID uint, offset, limit int) ([]models.Comment, error)
	ListMentions(ctx context.Context, userID uint, offset, limit int) ([]models.Comment, error)
	// ListFollowers and ListFollowing exclude the self-edge.
	ListFollowers(ctx context.Context, userID uint, offset, limit int) ([]models.Bond, error)
	ListFollowing(ctx context.Context, userID uint, offset, limit int) ([]models.Bond, error)
	ListSaved(ctx context.Context, userID uint, offset, limit int) ([]models.Save, error)
	// ListTrending ranks the sample most recent roots by score DESC, id DESC.
	ListTrending(ctx context.Context, sample, offset, limit int) ([]models.Comment, error)

	Close() error
}
