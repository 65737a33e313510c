package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "campusconnect/internal/errors"
	"campusconnect/internal/model"
	"campusconnect/internal/repository"
)

func newPosts(repo *MockPostRepository) PostService {
	return NewPostService(repo, zap.NewNop())
}

func samplePosts(n int) []model.Post {
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	posts := make([]model.Post, n)
	for i := range posts {
		posts[i] = model.Post{
			ID:        uuid.New(),
			UserID:    uuid.New(),
			Content:   "post",
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return posts
}

func TestPostService_FeedPagination(t *testing.T) {
	viewer := uuid.New()
	posts := samplePosts(3)

	repo := &MockPostRepository{}
	repo.On("Feed", mock.Anything, (*repository.Cursor)(nil), 3).Return(posts, nil)
	repo.On("LikedPostIDs", mock.Anything, viewer, []uuid.UUID{posts[0].ID, posts[1].ID}).
		Return(map[uuid.UUID]bool{posts[0].ID: true}, nil)

	page, err := newPosts(repo).Feed(context.Background(), viewer, "", 2)

	require.NoError(t, err)
	require.Len(t, page.Posts, 2)
	assert.True(t, page.HasMore)
	assert.True(t, page.Posts[0].IsLikedByUser)
	assert.False(t, page.Posts[1].IsLikedByUser)

	require.NotNil(t, page.NextCursor)
	cursor, err := repository.DecodeCursor(*page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, posts[1].ID, cursor.ID)
	assert.True(t, posts[1].CreatedAt.Equal(cursor.CreatedAt))
}

func TestPostService_FeedLastPage(t *testing.T) {
	repo := &MockPostRepository{}
	posts := samplePosts(1)
	repo.On("Feed", mock.Anything, mock.Anything, defaultPageLimit+1).Return(posts, nil)
	repo.On("LikedPostIDs", mock.Anything, mock.Anything, mock.Anything).Return(map[uuid.UUID]bool{}, nil)

	page, err := newPosts(repo).Feed(context.Background(), uuid.New(), "", 0)

	require.NoError(t, err)
	assert.False(t, page.HasMore)
	assert.Nil(t, page.NextCursor)
}

func TestPostService_FeedClampsLimit(t *testing.T) {
	repo := &MockPostRepository{}
	repo.On("Feed", mock.Anything, mock.Anything, maxPageLimit+1).Return([]model.Post{}, nil)
	repo.On("LikedPostIDs", mock.Anything, mock.Anything, mock.Anything).Return(map[uuid.UUID]bool{}, nil)

	_, err := newPosts(repo).Feed(context.Background(), uuid.New(), "", 500)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestPostService_FeedRejectsBadCursor(t *testing.T) {
	repo := &MockPostRepository{}

	_, err := newPosts(repo).Feed(context.Background(), uuid.New(), "not a cursor!", 10)

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	repo.AssertNotCalled(t, "Feed", mock.Anything, mock.Anything, mock.Anything)
}

func TestPostService_Likes(t *testing.T) {
	userID, postID := uuid.New(), uuid.New()

	tests := []struct {
		name          string
		run           func(PostService) error
		setupMock     func(*MockPostRepository)
		expectedError error
	}{
		{
			name: "like",
			setupMock: func(repo *MockPostRepository) {
				repo.On("FindByID", mock.Anything, postID).Return(&model.Post{ID: postID}, nil)
				repo.On("CreateLike", mock.Anything, mock.MatchedBy(func(l *model.Like) bool {
					return l.UserID == userID && l.PostID == postID
				})).Return(nil)
			},
			run: func(s PostService) error { return s.Like(context.Background(), userID, postID) },
		},
		{
			name: "like twice",
			setupMock: func(repo *MockPostRepository) {
				repo.On("FindByID", mock.Anything, postID).Return(&model.Post{ID: postID}, nil)
				repo.On("CreateLike", mock.Anything, mock.Anything).Return(gorm.ErrDuplicatedKey)
			},
			run:           func(s PostService) error { return s.Like(context.Background(), userID, postID) },
			expectedError: apperrors.ErrConflict,
		},
		{
			name: "like missing post",
			setupMock: func(repo *MockPostRepository) {
				repo.On("FindByID", mock.Anything, postID).Return(nil, gorm.ErrRecordNotFound)
			},
			run:           func(s PostService) error { return s.Like(context.Background(), userID, postID) },
			expectedError: apperrors.ErrNotFound,
		},
		{
			name: "unlike without like",
			setupMock: func(repo *MockPostRepository) {
				repo.On("DeleteLike", mock.Anything, userID, postID).Return(gorm.ErrRecordNotFound)
			},
			run:           func(s PostService) error { return s.Unlike(context.Background(), userID, postID) },
			expectedError: apperrors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockPostRepository{}
			tt.setupMock(repo)

			err := tt.run(newPosts(repo))

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			assert.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestPostService_OwnerOnlyDeletes(t *testing.T) {
	owner, stranger := uuid.New(), uuid.New()
	postID, commentID := uuid.New(), uuid.New()

	repo := &MockPostRepository{}
	repo.On("FindByID", mock.Anything, postID).Return(&model.Post{ID: postID, UserID: owner}, nil)
	repo.On("FindCommentByID", mock.Anything, commentID).Return(&model.Comment{ID: commentID, UserID: owner}, nil)
	repo.On("Delete", mock.Anything, postID).Return(nil)
	repo.On("DeleteComment", mock.Anything, commentID).Return(nil)
	svc := newPosts(repo)

	assert.ErrorIs(t, svc.Delete(context.Background(), stranger, postID), apperrors.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteComment(context.Background(), stranger, commentID), apperrors.ErrForbidden)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "DeleteComment", mock.Anything, mock.Anything)

	assert.NoError(t, svc.Delete(context.Background(), owner, postID))
	assert.NoError(t, svc.DeleteComment(context.Background(), owner, commentID))
}

func TestPostService_Repost(t *testing.T) {
	userID := uuid.New()
	rootID := uuid.New()
	root := &model.Post{ID: rootID, UserID: uuid.New(), Content: "original thought"}

	t.Run("already reposted", func(t *testing.T) {
		repo := &MockPostRepository{}
		repo.On("FindByID", mock.Anything, rootID).Return(root, nil)
		repo.On("FindRepost", mock.Anything, userID, rootID).Return(&model.Post{ID: uuid.New()}, nil)

		_, err := newPosts(repo).Repost(context.Background(), userID, rootID, nil)

		assert.ErrorIs(t, err, apperrors.ErrConflict)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("repost of a repost shares the original", func(t *testing.T) {
		repo := &MockPostRepository{}
		middleID := uuid.New()
		repostID := uuid.New()
		repo.On("FindByID", mock.Anything, middleID).Return(&model.Post{ID: middleID, IsRepost: true, OriginalPostID: &rootID}, nil)
		repo.On("FindByID", mock.Anything, rootID).Return(root, nil)
		repo.On("FindRepost", mock.Anything, userID, rootID).Return(nil, gorm.ErrRecordNotFound)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(p *model.Post) bool {
			return p.IsRepost && *p.OriginalPostID == rootID && p.Content == "original thought" &&
				p.RepostComment != nil && *p.RepostComment == "so true"
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*model.Post).ID = repostID
		}).Return(nil)
		repo.On("FindByID", mock.Anything, repostID).Return(&model.Post{ID: repostID, IsRepost: true, OriginalPostID: &rootID, OriginalPost: root}, nil)
		repo.On("LikedPostIDs", mock.Anything, userID, []uuid.UUID{repostID}).Return(map[uuid.UUID]bool{}, nil)

		comment := "  so true "
		view, err := newPosts(repo).Repost(context.Background(), userID, middleID, &comment)

		require.NoError(t, err)
		assert.True(t, view.IsRepost)
		require.NotNil(t, view.OriginalPost)
		assert.Equal(t, rootID, view.OriginalPost.ID)
		repo.AssertExpectations(t)
	})

	t.Run("concurrent duplicate hits the unique index", func(t *testing.T) {
		repo := &MockPostRepository{}
		repo.On("FindByID", mock.Anything, rootID).Return(root, nil)
		repo.On("FindRepost", mock.Anything, userID, rootID).Return(nil, gorm.ErrRecordNotFound)
		repo.On("Create", mock.Anything, mock.Anything).Return(gorm.ErrDuplicatedKey)

		_, err := newPosts(repo).Repost(context.Background(), userID, rootID, nil)

		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}

func TestPostService_UndoRepost(t *testing.T) {
	userID := uuid.New()
	rootID := uuid.New()
	middleID := uuid.New()
	ownRepostID := uuid.New()
	root := &model.Post{ID: rootID, UserID: uuid.New(), Content: "original thought"}
	middle := &model.Post{ID: middleID, UserID: uuid.New(), IsRepost: true, OriginalPostID: &rootID}

	tests := []struct {
		name     string
		postID   uuid.UUID
		setup    func(repo *MockPostRepository)
		expected error
	}{
		{
			name:   "original post id",
			postID: rootID,
			setup: func(repo *MockPostRepository) {
				repo.On("FindByID", mock.Anything, rootID).Return(root, nil)
				repo.On("FindRepost", mock.Anything, userID, rootID).Return(&model.Post{ID: ownRepostID}, nil)
				repo.On("Delete", mock.Anything, ownRepostID).Return(nil)
			},
		},
		{
			name:   "id of the repost that was reposted",
			postID: middleID,
			setup: func(repo *MockPostRepository) {
				repo.On("FindByID", mock.Anything, middleID).Return(middle, nil)
				repo.On("FindRepost", mock.Anything, userID, rootID).Return(&model.Post{ID: ownRepostID}, nil)
				repo.On("Delete", mock.Anything, ownRepostID).Return(nil)
			},
		},
		{
			name:   "not reposted",
			postID: rootID,
			setup: func(repo *MockPostRepository) {
				repo.On("FindByID", mock.Anything, rootID).Return(root, nil)
				repo.On("FindRepost", mock.Anything, userID, rootID).Return(nil, gorm.ErrRecordNotFound)
			},
			expected: apperrors.ErrNotFound,
		},
		{
			name:   "unknown post",
			postID: middleID,
			setup: func(repo *MockPostRepository) {
				repo.On("FindByID", mock.Anything, middleID).Return(nil, gorm.ErrRecordNotFound)
			},
			expected: apperrors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockPostRepository{}
			tt.setup(repo)

			err := newPosts(repo).UndoRepost(context.Background(), userID, tt.postID)

			if tt.expected != nil {
				assert.ErrorIs(t, err, tt.expected)
				repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestPostService_CommentsPagination(t *testing.T) {
	postID := uuid.New()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	comments := []model.Comment{
		{ID: uuid.New(), PostID: postID, Content: "first", CreatedAt: base},
		{ID: uuid.New(), PostID: postID, Content: "second", CreatedAt: base.Add(-time.Second)},
	}
	repo := &MockPostRepository{}
	repo.On("ListComments", mock.Anything, postID, (*repository.Cursor)(nil), 2).Return(comments, nil)

	page, err := newPosts(repo).Comments(context.Background(), postID, "", 1)

	require.NoError(t, err)
	require.Len(t, page.Comments, 1)
	assert.True(t, page.HasMore)
	assert.NotNil(t, page.NextCursor)
}
