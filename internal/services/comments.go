package services

import (
	"context"
	"errors"
	"log/slog"

	"thicket/internal/logger"
	"thicket/internal/metrics"
	"thicket/internal/models"
	"thicket/internal/storage"
	"thicket/internal/utils"
)

// draft is validated content with its resolved references.
type draft struct {
	content string
	tags    Tags
	mention *models.User
}

// prepare validates content, extracts its tags and resolves the mention.
func (s *Service) prepare(ctx context.Context, authorID uint, content string) (*draft, error) {
	content, err := s.policy.validateContent(content)
	if err != nil {
		return nil, err
	}
	tags := ExtractTags(content)
	if err := tags.check(); err != nil {
		return nil, err
	}

	d := &draft{content: content, tags: tags}
	if name := first(tags.Mentions); name != "" {
		u, err := s.store.UserByUsername(ctx, name)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, invalid("mention", "user does not exist")
		}
		if err != nil {
			return nil, err
		}
		if u.ID == authorID {
			return nil, invalid("mention", "can't mention yourself")
		}
		d.mention = u
	}
	return d, nil
}

func (d *draft) apply(c *models.Comment) {
	c.Content = d.content
	c.Link = first(d.tags.Links)
	c.Hashtag = first(d.tags.Hashtags)
	c.MentionID, c.Mention = nil, nil
	if d.mention != nil {
		id := d.mention.ID
		c.MentionID = &id
		c.Mention = d.mention
	}
}

// rootAuthor returns the author of the thread c belongs to. ok is false when
// the root is gone.
func (s *Service) rootAuthor(ctx context.Context, c *models.Comment) (uint, bool, error) {
	rootID := c.RootID()
	if rootID == c.ID {
		return c.CreatedByID, true, nil
	}
	root, err := s.store.CommentByID(ctx, rootID)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return root.CreatedByID, true, nil
}

// checkMentionRule rejects a reply that mentions the author of its thread.
// inThread is any comment of the thread.
func (s *Service) checkMentionRule(ctx context.Context, d *draft, inThread *models.Comment) error {
	if d.mention == nil {
		return nil
	}
	author, ok, err := s.rootAuthor(ctx, inThread)
	if err != nil {
		return err
	}
	if ok && author == d.mention.ID {
		return invalid("mention", "Can't mention the author")
	}
	return nil
}

// CreateThread posts a new thread root.
func (s *Service) CreateThread(ctx context.Context, authorID uint, content string) (*models.Comment, error) {
	const op = "services.CreateThread"
	lg := logger.From(ctx).With(slog.String("op", op), slog.Uint64("author_id", uint64(authorID)))

	if _, err := s.store.UserByID(ctx, authorID); err != nil {
		return nil, storeErr(lg, op, err)
	}
	d, err := s.prepare(ctx, authorID, content)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	if err := s.checkDuplicates(ctx, d.content, position{authorID: authorID}); err != nil {
		return nil, fail(lg, op, err)
	}

	c := &models.Comment{CreatedByID: authorID, Ancestors: AncestorPath(nil)}
	d.apply(c)
	if err := s.store.CreateComment(ctx, c); err != nil {
		return nil, storeErr(lg, op, err)
	}
	metrics.CommentsCreated.WithLabelValues("thread").Inc()
	lg.Info("thread created", slog.Uint64("comment_id", uint64(c.ID)))

	if s.cache != nil {
		s.cache.Delete(ctx, trendingKey(1))
	}
	return s.load(ctx, lg, op, c.ID)
}

// CreateReply answers parentID.
func (s *Service) CreateReply(ctx context.Context, parentID, authorID uint, content string) (*models.Comment, error) {
	const op = "services.CreateReply"
	lg := logger.From(ctx).With(
		slog.String("op", op),
		slog.Uint64("author_id", uint64(authorID)),
		slog.Uint64("parent_id", uint64(parentID)),
	)

	if _, err := s.store.UserByID(ctx, authorID); err != nil {
		return nil, storeErr(lg, op, err)
	}
	parent, err := s.store.CommentByID(ctx, parentID)
	if err != nil {
		return nil, storeErr(lg, op, err)
	}
	if parent.CreatedByID == authorID {
		return nil, reject(lg, op, invalid("parent", "can't reply to your own comment"))
	}
	if prev, err := s.store.ReplyByAuthor(ctx, parentID, authorID); err == nil {
		return nil, reject(lg, op, &DuplicateError{Scope: ScopeParent, ExistingID: prev.ID})
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, storeErr(lg, op, err)
	}

	d, err := s.prepare(ctx, authorID, content)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	if err := s.checkMentionRule(ctx, d, parent); err != nil {
		return nil, fail(lg, op, err)
	}
	rootID := parent.RootID()
	if err := s.checkDuplicates(ctx, d.content, position{authorID: authorID, threadRoot: &rootID}); err != nil {
		return nil, fail(lg, op, err)
	}

	pid := parent.ID
	c := &models.Comment{ParentID: &pid, CreatedByID: authorID, Ancestors: AncestorPath(parent)}
	d.apply(c)
	if err := s.store.CreateComment(ctx, c); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// lost a race with a concurrent reply by the same author
			if prev, perr := s.store.ReplyByAuthor(ctx, parentID, authorID); perr == nil {
				return nil, reject(lg, op, &DuplicateError{Scope: ScopeParent, ExistingID: prev.ID})
			}
		}
		return nil, storeErr(lg, op, err)
	}
	metrics.CommentsCreated.WithLabelValues("reply").Inc()
	lg.Info("reply created", slog.Uint64("comment_id", uint64(c.ID)))

	s.scheduleRanking(rootID)
	return s.load(ctx, lg, op, c.ID)
}

// EditComment rewrites the content of a comment that has no replies yet.
// The guards run again at the comment's existing position.
func (s *Service) EditComment(ctx context.Context, commentID, requesterID uint, content string) (*models.Comment, error) {
	const op = "services.EditComment"
	lg := logger.From(ctx).With(slog.String("op", op), slog.Uint64("comment_id", uint64(commentID)))

	c, err := s.store.CommentByID(ctx, commentID)
	if err != nil {
		return nil, storeErr(lg, op, err)
	}
	if c.CreatedByID != requesterID {
		return nil, reject(lg, op, ErrForbidden)
	}
	children, err := s.store.CountChildren(ctx, commentID)
	if err != nil {
		return nil, storeErr(lg, op, err)
	}
	if children > 0 {
		return nil, reject(lg, op, ErrForbidden)
	}

	d, err := s.prepare(ctx, c.CreatedByID, content)
	if err != nil {
		return nil, fail(lg, op, err)
	}
	pos := position{authorID: c.CreatedByID, excludeID: c.ID}
	if !c.IsThread() {
		if err := s.checkMentionRule(ctx, d, c); err != nil {
			return nil, fail(lg, op, err)
		}
		rootID := c.RootID()
		pos.threadRoot = &rootID
	}
	if err := s.checkDuplicates(ctx, d.content, pos); err != nil {
		return nil, fail(lg, op, err)
	}

	d.apply(c)
	if err := s.store.UpdateComment(ctx, c); err != nil {
		return nil, storeErr(lg, op, err)
	}
	lg.Info("comment edited")
	return s.load(ctx, lg, op, c.ID)
}

// DeleteComment removes one comment. The author and the thread's author may
// delete; descendants keep their ancestor paths.
func (s *Service) DeleteComment(ctx context.Context, commentID, requesterID uint) error {
	const op = "services.DeleteComment"
	lg := logger.From(ctx).With(slog.String("op", op), slog.Uint64("comment_id", uint64(commentID)))

	c, err := s.store.CommentByID(ctx, commentID)
	if err != nil {
		return storeErr(lg, op, err)
	}
	allowed := c.CreatedByID == requesterID
	if !allowed {
		author, ok, err := s.rootAuthor(ctx, c)
		if err != nil {
			return storeErr(lg, op, err)
		}
		allowed = ok && author == requesterID
	}
	if !allowed {
		return reject(lg, op, ErrForbidden)
	}

	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return storeErr(lg, op, err)
	}
	lg.Info("comment deleted", slog.Uint64("requester_id", uint64(requesterID)))

	if !c.IsThread() {
		s.scheduleRanking(c.RootID())
	}
	return nil
}

// Comment returns one comment with its rendered content.
func (s *Service) Comment(ctx context.Context, id uint) (*models.Comment, error) {
	const op = "services.Comment"
	return s.load(ctx, logger.From(ctx).With(slog.String("op", op)), op, id)
}

// CommentByHandle resolves the base-36 handle of a comment.
func (s *Service) CommentByHandle(ctx context.Context, handle string) (*models.Comment, error) {
	const op = "services.CommentByHandle"
	id, ok := utils.ParseHandle(handle)
	if !ok {
		return nil, reject(logger.From(ctx).With(slog.String("op", op)), op, ErrNotFound)
	}
	return s.Comment(ctx, id)
}

func (s *Service) load(ctx context.Context, lg *slog.Logger, op string, id uint) (*models.Comment, error) {
	c, err := s.store.CommentByID(ctx, id)
	if err != nil {
		return nil, storeErr(lg, op, err)
	}
	render(c)
	return c, nil
}

func render(c *models.Comment) {
	c.ContentHTML = utils.RenderContent(c.Content)
}

func (s *Service) scheduleRanking(rootID uint) {
	if s.ranking != nil {
		s.ranking.ScheduleUpdate(rootID)
	}
}
