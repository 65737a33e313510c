package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "campusconnect/internal/errors"
	"campusconnect/internal/model"
	"campusconnect/internal/repository"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 50
)

// CreatePostInput carries the fields of a new post.
type CreatePostInput struct {
	Content string
	Images  []string
}

// PostPage is one page of posts ordered newest first.
type PostPage struct {
	Posts      []model.PostView `json:"posts"`
	NextCursor *string          `json:"nextCursor"`
	HasMore    bool             `json:"hasMore"`
}

// CommentPage is one page of comments ordered newest first.
type CommentPage struct {
	Comments   []model.CommentView `json:"comments"`
	NextCursor *string             `json:"nextCursor"`
	HasMore    bool                `json:"hasMore"`
}

// PostService handles the social feed: posts, likes, comments and reposts.
// viewerID is the authenticated user and drives isLikedByUser.
type PostService interface {
	Create(ctx context.Context, userID uuid.UUID, in CreatePostInput) (model.PostView, error)
	Feed(ctx context.Context, viewerID uuid.UUID, cursor string, limit int) (*PostPage, error)
	Get(ctx context.Context, viewerID, id uuid.UUID) (model.PostView, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Like(ctx context.Context, userID, postID uuid.UUID) error
	Unlike(ctx context.Context, userID, postID uuid.UUID) error
	Comment(ctx context.Context, userID, postID uuid.UUID, content string) (model.CommentView, error)
	Comments(ctx context.Context, postID uuid.UUID, cursor string, limit int) (*CommentPage, error)
	DeleteComment(ctx context.Context, userID, commentID uuid.UUID) error
	Repost(ctx context.Context, userID, postID uuid.UUID, comment *string) (model.PostView, error)
	UndoRepost(ctx context.Context, userID, postID uuid.UUID) error
	UserPosts(ctx context.Context, viewerID, authorID uuid.UUID, cursor string, limit int) (*PostPage, error)
}

type postService struct {
	posts  repository.PostRepository
	logger *zap.Logger
}

// NewPostService creates a new post service.
func NewPostService(posts repository.PostRepository, logger *zap.Logger) PostService {
	return &postService{posts: posts, logger: logger}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}

func decodeCursor(raw string) (*repository.Cursor, error) {
	cursor, err := repository.DecodeCursor(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	return cursor, nil
}

// Create publishes a post.
func (s *postService) Create(ctx context.Context, userID uuid.UUID, in CreatePostInput) (model.PostView, error) {
	post := &model.Post{
		UserID:  userID,
		Content: strings.TrimSpace(in.Content),
		Images:  model.StringList(append([]string{}, in.Images...)),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		s.logger.Error("post.create.failed", zap.String("userId", userID.String()), zap.Error(err))
		return model.PostView{}, fmt.Errorf("create post: %w", err)
	}
	s.logger.Info("post.create.success", zap.String("postId", post.ID.String()))
	return s.Get(ctx, userID, post.ID)
}

// Feed returns the newest posts older than cursor.
func (s *postService) Feed(ctx context.Context, viewerID uuid.UUID, cursor string, limit int) (*PostPage, error) {
	after, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit)
	posts, err := s.posts.Feed(ctx, after, limit+1)
	if err != nil {
		return nil, fmt.Errorf("load feed: %w", err)
	}
	return s.page(ctx, viewerID, posts, limit)
}

// UserPosts is Feed restricted to one author.
func (s *postService) UserPosts(ctx context.Context, viewerID, authorID uuid.UUID, cursor string, limit int) (*PostPage, error) {
	after, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit)
	posts, err := s.posts.ListByUser(ctx, authorID, after, limit+1)
	if err != nil {
		return nil, fmt.Errorf("load user posts: %w", err)
	}
	return s.page(ctx, viewerID, posts, limit)
}

// page trims posts fetched with limit+1 rows and decorates them for viewerID.
func (s *postService) page(ctx context.Context, viewerID uuid.UUID, posts []model.Post, limit int) (*PostPage, error) {
	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}

	ids := make([]uuid.UUID, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	liked, err := s.posts.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, fmt.Errorf("load likes: %w", err)
	}

	out := &PostPage{Posts: make([]model.PostView, 0, len(posts)), HasMore: hasMore}
	for i := range posts {
		out.Posts = append(out.Posts, model.NewPostView(&posts[i], liked[posts[i].ID]))
	}
	if hasMore {
		last := posts[len(posts)-1]
		next := repository.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
		out.NextCursor = &next
	}
	return out, nil
}

func (s *postService) find(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	return post, nil
}

// Get returns one post as seen by viewerID.
func (s *postService) Get(ctx context.Context, viewerID, id uuid.UUID) (model.PostView, error) {
	post, err := s.find(ctx, id)
	if err != nil {
		return model.PostView{}, err
	}
	liked, err := s.posts.LikedPostIDs(ctx, viewerID, []uuid.UUID{id})
	if err != nil {
		return model.PostView{}, fmt.Errorf("load likes: %w", err)
	}
	return model.NewPostView(post, liked[id]), nil
}

// Delete removes a post owned by userID.
func (s *postService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	post, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		s.logger.Warn("post.delete.forbidden", zap.String("postId", id.String()), zap.String("userId", userID.String()))
		return apperrors.ErrForbidden
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("delete post: %w", err)
	}
	s.logger.Info("post.delete.success", zap.String("postId", id.String()))
	return nil
}

// Like records a like. Liking twice returns ErrConflict.
func (s *postService) Like(ctx context.Context, userID, postID uuid.UUID) error {
	if _, err := s.find(ctx, postID); err != nil {
		return err
	}
	if err := s.posts.CreateLike(ctx, &model.Like{UserID: userID, PostID: postID}); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: already liked this post", apperrors.ErrConflict)
		}
		return fmt.Errorf("like post: %w", err)
	}
	return nil
}

// Unlike removes a like. Unliking a post that was not liked returns ErrNotFound.
func (s *postService) Unlike(ctx context.Context, userID, postID uuid.UUID) error {
	if err := s.posts.DeleteLike(ctx, userID, postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("unlike post: %w", err)
	}
	return nil
}

// Comment adds a comment to a post.
func (s *postService) Comment(ctx context.Context, userID, postID uuid.UUID, content string) (model.CommentView, error) {
	if _, err := s.find(ctx, postID); err != nil {
		return model.CommentView{}, err
	}
	comment := &model.Comment{
		PostID:  postID,
		UserID:  userID,
		Content: strings.TrimSpace(content),
	}
	if err := s.posts.CreateComment(ctx, comment); err != nil {
		s.logger.Error("post.comment.create.failed", zap.String("postId", postID.String()), zap.Error(err))
		return model.CommentView{}, fmt.Errorf("create comment: %w", err)
	}
	return model.NewCommentView(comment), nil
}

// Comments returns the newest comments on a post older than cursor.
func (s *postService) Comments(ctx context.Context, postID uuid.UUID, cursor string, limit int) (*CommentPage, error) {
	after, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit)
	comments, err := s.posts.ListComments(ctx, postID, after, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	hasMore := len(comments) > limit
	if hasMore {
		comments = comments[:limit]
	}
	out := &CommentPage{Comments: make([]model.CommentView, 0, len(comments)), HasMore: hasMore}
	for i := range comments {
		out.Comments = append(out.Comments, model.NewCommentView(&comments[i]))
	}
	if hasMore {
		last := comments[len(comments)-1]
		next := repository.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
		out.NextCursor = &next
	}
	return out, nil
}

// DeleteComment removes a comment written by userID.
func (s *postService) DeleteComment(ctx context.Context, userID, commentID uuid.UUID) error {
	comment, err := s.posts.FindCommentByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("find comment: %w", err)
	}
	if comment.UserID != userID {
		return apperrors.ErrForbidden
	}
	if err := s.posts.DeleteComment(ctx, commentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// Repost shares a post, optionally quoting it. Reposting a repost shares its
// original. A user can repost a given post once.
func (s *postService) Repost(ctx context.Context, userID, postID uuid.UUID, comment *string) (model.PostView, error) {
	original, err := s.find(ctx, postID)
	if err != nil {
		return model.PostView{}, err
	}
	if original.IsRepost && original.OriginalPostID != nil {
		if original, err = s.find(ctx, *original.OriginalPostID); err != nil {
			return model.PostView{}, err
		}
	}

	if _, err := s.posts.FindRepost(ctx, userID, original.ID); err == nil {
		return model.PostView{}, fmt.Errorf("%w: already reposted", apperrors.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PostView{}, fmt.Errorf("find repost: %w", err)
	}

	if comment != nil {
		trimmed := strings.TrimSpace(*comment)
		comment = &trimmed
		if trimmed == "" {
			comment = nil
		}
	}

	originalID := original.ID
	repost := &model.Post{
		UserID:         userID,
		Content:        original.Content,
		Images:         model.StringList(append([]string{}, original.Images...)),
		IsRepost:       true,
		OriginalPostID: &originalID,
		RepostComment:  comment,
	}
	if err := s.posts.Create(ctx, repost); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return model.PostView{}, fmt.Errorf("%w: already reposted", apperrors.ErrConflict)
		}
		return model.PostView{}, fmt.Errorf("create repost: %w", err)
	}
	s.logger.Info("post.repost.success", zap.String("postId", repost.ID.String()), zap.String("originalPostId", originalID.String()))
	return s.Get(ctx, userID, repost.ID)
}

// UndoRepost removes userID's repost of postID. As with Repost, a repost id
// stands for its original.
func (s *postService) UndoRepost(ctx context.Context, userID, postID uuid.UUID) error {
	target, err := s.find(ctx, postID)
	if err != nil {
		return err
	}
	originalID := target.ID
	if target.IsRepost && target.OriginalPostID != nil {
		originalID = *target.OriginalPostID
	}

	repost, err := s.posts.FindRepost(ctx, userID, originalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("find repost: %w", err)
	}
	if err := s.posts.Delete(ctx, repost.ID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("delete repost: %w", err)
	}
	return nil
}
