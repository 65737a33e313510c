package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"campusconnect/internal/model"
)

// PostRepository defines feed persistence operations: posts, reposts, likes and comments.
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error)
	Feed(ctx context.Context, cursor *Cursor, limit int) ([]model.Post, error)
	ListByUser(ctx context.Context, userID uuid.UUID, cursor *Cursor, limit int) ([]model.Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindRepost(ctx context.Context, userID, originalID uuid.UUID) (*model.Post, error)

	LikedPostIDs(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	CreateLike(ctx context.Context, like *model.Like) error
	DeleteLike(ctx context.Context, userID, postID uuid.UUID) error

	CreateComment(ctx context.Context, comment *model.Comment) error
	FindCommentByID(ctx context.Context, id uuid.UUID) (*model.Comment, error)
	ListComments(ctx context.Context, postID uuid.UUID, cursor *Cursor, limit int) ([]model.Comment, error)
	DeleteComment(ctx context.Context, id uuid.UUID) error
}

const postSelect = `posts.*,
	(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS like_count,
	(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comment_count,
	(SELECT COUNT(*) FROM posts AS reposts WHERE reposts.original_post_id = posts.id AND reposts.is_repost = TRUE) AS repost_count`

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func summary(tx *gorm.DB) *gorm.DB {
	return tx.Select(model.SummaryColumns)
}

func (r *postRepository) posts(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.Post{}).
		Select(postSelect).
		Preload("Author", summary).
		Preload("OriginalPost").
		Preload("OriginalPost.Author", summary)
}

// Create creates a post or repost.
func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Omit("Author", "OriginalPost").Create(post).Error
}

// FindByID finds a post with author, original post and counts.
func (r *postRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	var post model.Post
	if err := r.posts(ctx).Where("posts.id = ?", id).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// Feed returns up to limit posts older than cursor, newest first.
func (r *postRepository) Feed(ctx context.Context, cursor *Cursor, limit int) ([]model.Post, error) {
	var posts []model.Post
	err := cursor.after(r.posts(ctx), "posts").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// ListByUser is Feed restricted to one author.
func (r *postRepository) ListByUser(ctx context.Context, userID uuid.UUID, cursor *Cursor, limit int) ([]model.Post, error) {
	var posts []model.Post
	err := cursor.after(r.posts(ctx), "posts").
		Where("posts.user_id = ?", userID).
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Delete removes a post; likes, comments and reposts cascade.
func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Post{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindRepost finds the user's repost of originalID.
func (r *postRepository) FindRepost(ctx context.Context, userID, originalID uuid.UUID) (*model.Post, error) {
	var post model.Post
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND original_post_id = ? AND is_repost = ?", userID, originalID, true).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// LikedPostIDs reports which of postIDs the user has liked.
func (r *postRepository) LikedPostIDs(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	liked := make(map[uuid.UUID]bool, len(postIDs))
	if len(postIDs) == 0 {
		return liked, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

// CreateLike stores a like. A second like by the same user returns gorm.ErrDuplicatedKey.
func (r *postRepository) CreateLike(ctx context.Context, like *model.Like) error {
	return r.db.WithContext(ctx).Omit("User", "Post").Create(like).Error
}

// DeleteLike removes a like, returning gorm.ErrRecordNotFound when there was none.
func (r *postRepository) DeleteLike(ctx context.Context, userID, postID uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&model.Like{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateComment stores a comment and loads its author.
func (r *postRepository) CreateComment(ctx context.Context, comment *model.Comment) error {
	if err := r.db.WithContext(ctx).Omit("Author", "Post").Create(comment).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Select(model.SummaryColumns).Where("id = ?", comment.UserID).First(&comment.Author).Error
}

// FindCommentByID finds a comment with its author.
func (r *postRepository) FindCommentByID(ctx context.Context, id uuid.UUID) (*model.Comment, error) {
	var comment model.Comment
	if err := r.db.WithContext(ctx).Preload("Author", summary).Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListComments returns up to limit comments on a post older than cursor, newest first.
func (r *postRepository) ListComments(ctx context.Context, postID uuid.UUID, cursor *Cursor, limit int) ([]model.Comment, error) {
	var comments []model.Comment
	err := cursor.after(r.db.WithContext(ctx).Model(&model.Comment{}), "comments").
		Preload("Author", summary).
		Where("comments.post_id = ?", postID).
		Order("comments.created_at DESC").
		Order("comments.id DESC").
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// DeleteComment removes a comment.
func (r *postRepository) DeleteComment(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Comment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
