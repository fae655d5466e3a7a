// Package postgres is the gorm-backed Store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"thicket/internal/models"
	"thicket/internal/storage"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

var _ storage.Store = (*Store)(nil)

// New wraps an opened, migrated connection. The connection should be opened
// with TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps driver errors onto storage sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return storage.ErrConflict
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return storage.ErrNotFound
	}
	return err
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		self := models.Bond{CreatedByID: u.ID, ToUserID: u.ID}
		return tx.Create(&self).Error
	}))
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("lower(username) = lower(?)", username).First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, id uint, upd models.ProfileUpdate) error {
	fields := map[string]interface{}{}
	if upd.DisplayName != nil {
		fields["display_name"] = *upd.DisplayName
	}
	if upd.Bio != nil {
		fields["bio"] = *upd.Bio
	}
	if len(fields) == 0 {
		_, err := s.UserByID(ctx, id)
		return err
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteInactiveUsers(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM comments WHERE comments.created_by_id = users.id)").
		Where("NOT EXISTS (SELECT 1 FROM saves WHERE saves.created_by_id = users.id)").
		Delete(&models.User{})
	return res.RowsAffected, translate(res.Error)
}

// --- comments ---

func (s *Store) CreateComment(ctx context.Context, c *models.Comment) error {
	if c.Ancestors == nil {
		c.Ancestors = []uint{}
	}
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error)
}

func (s *Store) comments(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Comment{}).Preload("CreatedBy").Preload("Mention")
}

func (s *Store) CommentByID(ctx context.Context, id uint) (*models.Comment, error) {
	var c models.Comment
	if err := s.comments(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) ReplyByAuthor(ctx context.Context, parentID, authorID uint) (*models.Comment, error) {
	var c models.Comment
	err := s.comments(ctx).Where("parent_id = ? AND created_by_id = ?", parentID, authorID).First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) UpdateComment(ctx context.Context, c *models.Comment) error {
	res := s.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"content":    c.Content,
		"mention_id": c.MentionID,
		"link":       c.Link,
		"hashtag":    c.Hashtag,
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteComment(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CountChildren(ctx context.Context, id uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("parent_id = ?", id).Count(&n).Error
	return n, translate(err)
}

// containsID is the jsonb containment literal for one ancestor id.
func containsID(id uint) string {
	return fmt.Sprintf("[%d]", id)
}

func (s *Store) FindDuplicate(ctx context.Context, q storage.DuplicateQuery) (*models.Comment, error) {
	tx := s.comments(ctx).Where("lower(content) = lower(?)", q.Content)
	if q.AuthorID != nil {
		tx = tx.Where("created_by_id = ?", *q.AuthorID)
	}
	if q.RootsOnly {
		tx = tx.Where("parent_id IS NULL")
	}
	if q.ThreadRootID != nil {
		tx = tx.Where("(id = ? OR ancestors @> CAST(? AS jsonb))", *q.ThreadRootID, containsID(*q.ThreadRootID))
	}
	if q.ExcludeID != 0 {
		tx = tx.Where("id <> ?", q.ExcludeID)
	}

	var c models.Comment
	if err := tx.Order("id ASC").First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) ThreadActivity(ctx context.Context, rootID uint) (int64, int64, error) {
	var replies, saves int64
	err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("ancestors @> CAST(? AS jsonb)", containsID(rootID)).
		Count(&replies).Error
	if err != nil {
		return 0, 0, translate(err)
	}
	err = s.db.WithContext(ctx).Model(&models.Save{}).Where("post_id = ?", rootID).Count(&saves).Error
	return replies, saves, translate(err)
}

func (s *Store) UpdateScore(ctx context.Context, id uint, score int) error {
	res := s.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).UpdateColumn("score", score)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- bonds & saves ---

func (s *Store) CreateBond(ctx context.Context, from, to uint) (*models.Bond, bool, error) {
	b := models.Bond{CreatedByID: from, ToUserID: to}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(&b)
	if res.Error != nil {
		return nil, false, translate(res.Error)
	}
	if res.RowsAffected == 1 {
		return &b, true, nil
	}

	var existing models.Bond
	err := s.db.WithContext(ctx).Where("created_by_id = ? AND to_user_id = ?", from, to).First(&existing).Error
	if err != nil {
		return nil, false, translate(err)
	}
	return &existing, false, nil
}

func (s *Store) DeleteBond(ctx context.Context, from, to uint) error {
	return translate(s.db.WithContext(ctx).
		Where("created_by_id = ? AND to_user_id = ?", from, to).
		Delete(&models.Bond{}).Error)
}

func (s *Store) CreateSave(ctx context.Context, userID, postID uint) (*models.Save, error) {
	sv := models.Save{CreatedByID: userID, PostID: postID}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(&sv)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 1 {
		return &sv, nil
	}

	var existing models.Save
	err := s.db.WithContext(ctx).Where("created_by_id = ? AND post_id = ?", userID, postID).First(&existing).Error
	if err != nil {
		return nil, translate(err)
	}
	return &existing, nil
}

func (s *Store) DeleteSave(ctx context.Context, userID, postID uint) error {
	return translate(s.db.WithContext(ctx).
		Where("created_by_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Save{}).Error)
}

// --- counters ---

const (
	unseenFollowers = "to_user_id = ? AND created_by_id <> to_user_id AND seen_at = 0"
	unseenMentions  = "mention_id = ? AND mention_seen_at = 0"
	unseenReplies   = "reply_seen_at = 0 AND parent_id IN (SELECT id FROM comments WHERE created_by_id = ?)"
)

func (s *Store) Counters(ctx context.Context, userID uint) (storage.Counters, error) {
	var out storage.Counters
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.Bond{}).Where(unseenFollowers, userID).Count(&out.Followers).Error; err != nil {
		return out, translate(err)
	}
	if err := db.Model(&models.Comment{}).Where(unseenMentions, userID).Count(&out.Mentions).Error; err != nil {
		return out, translate(err)
	}
	if err := db.Model(&models.Comment{}).Where(unseenReplies, userID).Count(&out.Replies).Error; err != nil {
		return out, translate(err)
	}
	return out, nil
}

// seenCutoff is the created_at bound matching a watermark.
func seenCutoff(at float64) time.Time {
	return time.Unix(0, int64(at*1e9))
}

func (s *Store) MarkFollowersSeen(ctx context.Context, userID uint, at float64) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Bond{}).
		Where(unseenFollowers, userID).
		Where("created_at <= ?", seenCutoff(at)).
		UpdateColumn("seen_at", at)
	return res.RowsAffected, translate(res.Error)
}

func (s *Store) MarkMentionsSeen(ctx context.Context, userID uint, at float64) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where(unseenMentions, userID).
		Where("created_at <= ?", seenCutoff(at)).
		UpdateColumn("mention_seen_at", at)
	return res.RowsAffected, translate(res.Error)
}

func (s *Store) MarkRepliesSeen(ctx context.Context, userID uint, at float64) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where(unseenReplies, userID).
		Where("created_at <= ?", seenCutoff(at)).
		UpdateColumn("reply_seen_at", at)
	return res.RowsAffected, translate(res.Error)
}

// --- listings ---

func (s *Store) listComments(tx *gorm.DB, offset, limit int) ([]models.Comment, error) {
	var out []models.Comment
	err := tx.Order("id DESC").Offset(offset).Limit(limit).Find(&out).Error
	return out, translate(err)
}

func (s *Store) ListFolloweeThreads(ctx context.Context, userID uint, offset, limit int) ([]models.Comment, error) {
	followees := s.db.Model(&models.Bond{}).Select("to_user_id").Where("created_by_id = ?", userID)
	return s.listComments(s.comments(ctx).Where("parent_id IS NULL AND created_by_id IN (?)", followees), offset, limit)
}

func (s *Store) ListReplies(ctx context.Context, userID uint, offset, limit int) ([]models.Comment, error) {
	return s.listComments(s.comments(ctx).
		Where("parent_id IN (SELECT id FROM comments WHERE created_by_id = ?)", userID), offset, limit)
}

func (s *Store) ListMentions(ctx context.Context, userID uint, offset, limit int) ([]models.Comment, error) {
	return s.listComments(s.comments(ctx).Where("mention_id = ?", userID), offset, limit)
}

func (s *Store) listBonds(tx *gorm.DB, offset, limit int) ([]models.Bond, error) {
	var out []models.Bond
	err := tx.Preload("CreatedBy").Preload("ToUser").
		Where("created_by_id <> to_user_id").
		Order("id DESC").Offset(offset).Limit(limit).
		Find(&out).Error
	return out, translate(err)
}

func (s *Store) ListFollowers(ctx context.Context, userID uint, offset, limit int) ([]models.Bond, error) {
	return s.listBonds(s.db.WithContext(ctx).Where("to_user_id = ?", userID), offset, limit)
}

func (s *Store) ListFollowing(ctx context.Context, userID uint, offset, limit int) ([]models.Bond, error) {
	return s.listBonds(s.db.WithContext(ctx).Where("created_by_id = ?", userID), offset, limit)
}

func (s *Store) ListSaved(ctx context.Context, userID uint, offset, limit int) ([]models.Save, error) {
	var out []models.Save
	err := s.db.WithContext(ctx).
		Preload("Post").Preload("Post.CreatedBy").Preload("Post.Mention").
		Where("created_by_id = ?", userID).
		Order("id DESC").Offset(offset).Limit(limit).
		Find(&out).Error
	return out, translate(err)
}

func (s *Store) ListTrending(ctx context.Context, sample, offset, limit int) ([]models.Comment, error) {
	recent := s.db.Model(&models.Comment{}).Select("id").Where("parent_id IS NULL").Order("id DESC").Limit(sample)

	var out []models.Comment
	err := s.comments(ctx).
		Where("id IN (?)", recent).
		Order("score DESC, id DESC").Offset(offset).Limit(limit).
		Find(&out).Error
	return out, translate(err)
}
