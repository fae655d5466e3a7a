package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"thicket/internal/metrics"
	"thicket/internal/storage"
)

// position places content in the tree for the duplicate guards.
// threadRoot is nil for a thread root.
type position struct {
	authorID   uint
	threadRoot *uint
	excludeID  uint
}

type guard struct {
	scope DuplicateScope
	q     storage.DuplicateQuery
}

// checkDuplicates runs the author guard, then the thread or reply guard.
func (s *Service) checkDuplicates(ctx context.Context, content string, pos position) error {
	author := pos.authorID
	queries := []guard{
		{ScopeAuthor, storage.DuplicateQuery{Content: content, AuthorID: &author, ExcludeID: pos.excludeID}},
	}
	if pos.threadRoot == nil {
		queries = append(queries, guard{ScopeThread, storage.DuplicateQuery{Content: content, RootsOnly: true, ExcludeID: pos.excludeID}})
	} else {
		queries = append(queries, guard{ScopeReply, storage.DuplicateQuery{Content: content, ThreadRootID: pos.threadRoot, ExcludeID: pos.excludeID}})
	}

	for _, g := range queries {
		existing, err := s.store.FindDuplicate(ctx, g.q)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			continue
		case err != nil:
			return err
		}
		metrics.DuplicatesRejected.WithLabelValues(string(g.scope)).Inc()
		return &DuplicateError{Scope: g.scope, ExistingID: existing.ID}
	}
	return nil
}

// storeErr maps a storage error onto the service taxonomy.
func storeErr(lg *slog.Logger, op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, storage.ErrConflict):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	default:
		lg.Error("storage failure", slog.Any("err", err))
		return fmt.Errorf("%s: %w: %v", op, ErrInternal, err)
	}
}

// reject logs and wraps a caller-visible rejection.
func reject(lg *slog.Logger, op string, err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		metrics.ValidationFailures.WithLabelValues(verr.Field).Inc()
	}
	lg.Warn("rejected", slog.String("reason", err.Error()))
	return fmt.Errorf("%s: %w", op, err)
}

// fail routes err to reject or storeErr depending on whether the caller caused it.
func fail(lg *slog.Logger, op string, err error) error {
	var (
		verr *ValidationError
		derr *DuplicateError
	)
	if errors.As(err, &verr) || errors.As(err, &derr) || errors.Is(err, ErrForbidden) {
		return reject(lg, op, err)
	}
	return storeErr(lg, op, err)
}
