package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"thicket/internal/logger"
	"thicket/internal/models"
	"thicket/internal/storage"
	"thicket/internal/utils"
)

const (
	minPassword    = 6
	maxDisplayName = 50
	maxBio         = 160
)

// Register creates an account and its self-edge.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	const op = "services.Register"
	lg := logger.From(ctx).With(slog.String("op", op), slog.String("username", username))

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	switch {
	case !utils.ValidUsername(username):
		return nil, reject(lg, op, invalid("username", "must be 1-15 letters, digits or underscores"))
	case !strings.Contains(email, "@"):
		return nil, reject(lg, op, invalid("email", "is not an email address"))
	case len(password) < minPassword:
		return nil, reject(lg, op, invalid("password", "must be at least 6 characters"))
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		lg.Error("hash password", slog.Any("err", err))
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}
	u := &models.User{Username: username, Email: strings.ToLower(email), Password: hash}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, storeErr(lg, op, err)
	}
	lg.Info("user registered", slog.Uint64("user_id", uint64(u.ID)))
	return u, nil
}

// Authenticate checks a username/password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	const op = "services.Authenticate"
	lg := logger.From(ctx).With(slog.String("op", op), slog.String("username", username))

	u, err := s.store.UserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, reject(lg, op, ErrBadCredentials)
	}
	if err != nil {
		return nil, storeErr(lg, op, err)
	}
	if !utils.CheckPassword(u.Password, password) {
		return nil, reject(lg, op, ErrBadCredentials)
	}
	return u, nil
}

// User returns one account.
func (s *Service) User(ctx context.Context, id uint) (*models.User, error) {
	const op = "services.User"
	u, err := s.store.UserByID(ctx, id)
	if err != nil {
		return nil, storeErr(logger.From(ctx).With(slog.String("op", op)), op, err)
	}
	return u, nil
}

// UpdateProfile changes the display name and bio.
func (s *Service) UpdateProfile(ctx context.Context, userID uint, upd models.ProfileUpdate) (*models.User, error) {
	const op = "services.UpdateProfile"
	lg := logger.From(ctx).With(slog.String("op", op), slog.Uint64("user_id", uint64(userID)))

	if upd.DisplayName != nil {
		name := strings.TrimSpace(*upd.DisplayName)
		if utf8.RuneCountInString(name) > maxDisplayName {
			return nil, reject(lg, op, invalid("display_name", "is too long"))
		}
		upd.DisplayName = &name
	}
	if upd.Bio != nil {
		bio := strings.TrimSpace(*upd.Bio)
		if utf8.RuneCountInString(bio) > maxBio {
			return nil, reject(lg, op, invalid("bio", "is too long"))
		}
		upd.Bio = &bio
	}

	if err := s.store.UpdateUser(ctx, userID, upd); err != nil {
		return nil, storeErr(lg, op, err)
	}
	return s.User(ctx, userID)
}

// Follow adds the edge userID -> targetID. Following twice is a no-op.
func (s *Service) Follow(ctx context.Context, userID, targetID uint) (*models.Bond, error) {
	const op = "services.Follow"
	lg := logger.From(ctx).With(
		slog.String("op", op),
		slog.Uint64("user_id", uint64(userID)),
		slog.Uint64("target_id", uint64(targetID)),
	)

	if userID == targetID {
		return nil, reject(lg, op, ErrForbidden)
	}
	if _, err := s.store.UserByID(ctx, targetID); err != nil {
		return nil, storeErr(lg, op, err)
	}
	b, created, err := s.store.CreateBond(ctx, userID, targetID)
	if err != nil {
		return nil, storeErr(lg, op, err)
	}
	if created {
		lg.Info("followed")
	}
	return b, nil
}

// Unfollow removes the edge userID -> targetID if present.
func (s *Service) Unfollow(ctx context.Context, userID, targetID uint) error {
	const op = "services.Unfollow"
	lg := logger.From(ctx).With(
		slog.String("op", op),
		slog.Uint64("user_id", uint64(userID)),
		slog.Uint64("target_id", uint64(targetID)),
	)

	if userID == targetID {
		return reject(lg, op, ErrForbidden)
	}
	if err := s.store.DeleteBond(ctx, userID, targetID); err != nil {
		return storeErr(lg, op, err)
	}
	return nil
}

// Save bookmarks postID for userID. Saving twice returns the first save.
func (s *Service) Save(ctx context.Context, userID, postID uint) (*models.Save, error) {
	const op = "services.Save"
	lg := logger.From(ctx).With(slog.String("op", op), slog.Uint64("post_id", uint64(postID)))

	post, err := s.store.CommentByID(ctx, postID)
	if err != nil {
		return nil, storeErr(lg, op, err)
	}
	sv, err := s.store.CreateSave(ctx, userID, postID)
	if err != nil {
		return nil, storeErr(lg, op, err)
	}
	if post.IsThread() {
		s.scheduleRanking(post.ID)
	}
	return sv, nil
}

// Unsave removes the bookmark if present.
func (s *Service) Unsave(ctx context.Context, userID, postID uint) error {
	const op = "services.Unsave"
	lg := logger.From(ctx).With(slog.String("op", op), slog.Uint64("post_id", uint64(postID)))

	if err := s.store.DeleteSave(ctx, userID, postID); err != nil {
		return storeErr(lg, op, err)
	}
	if post, err := s.store.CommentByID(ctx, postID); err == nil && post.IsThread() {
		s.scheduleRanking(post.ID)
	}
	return nil
}
