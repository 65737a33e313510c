package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "campusconnect/internal/errors"
	"campusconnect/internal/model"
	"campusconnect/internal/service"
)

func newPostServer(svc *MockPostService, user *model.PublicUser) *echo.Echo {
	h := NewPostHandler(svc)
	e := newServer(user)
	e.GET("/posts", h.Feed)
	e.POST("/posts", h.CreatePost)
	e.GET("/posts/user/:userId", h.UserPosts)
	e.DELETE("/posts/comments/:commentId", h.DeleteComment)
	e.GET("/posts/:id", h.GetPost)
	e.DELETE("/posts/:id", h.DeletePost)
	e.POST("/posts/:id/like", h.LikePost)
	e.DELETE("/posts/:id/like", h.UnlikePost)
	e.GET("/posts/:id/comments", h.Comments)
	e.POST("/posts/:id/comments", h.CreateComment)
	e.POST("/posts/:id/repost", h.Repost)
	e.DELETE("/posts/:id/repost", h.UndoRepost)
	return e
}

func TestFeedHandler(t *testing.T) {
	user := model.PublicUser{ID: uuid.New()}
	next := "abc"
	svc := new(MockPostService)
	svc.On("Feed", mock.Anything, user.ID, "", 0).Return(&service.PostPage{Posts: []model.PostView{{ID: uuid.New()}}, NextCursor: &next, HasMore: true}, nil)
	svc.On("Feed", mock.Anything, user.ID, "bogus", 5).Return(nil, apperrors.ErrInvalidInput)
	e := newPostServer(svc, &user)

	rec := do(e, http.MethodGet, "/posts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page service.PostPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.True(t, page.HasMore)
	assert.Equal(t, "abc", *page.NextCursor)
	assert.Len(t, page.Posts, 1)

	rec = do(e, http.MethodGet, "/posts?cursor=bogus&limit=5", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertExpectations(t)
}

func TestCreatePostHandler(t *testing.T) {
	user := model.PublicUser{ID: uuid.New()}

	tests := []struct {
		name           string
		body           string
		mockSetup      func(*MockPostService)
		expectedStatus int
	}{
		{
			name: "created",
			body: `{"content":"Anyone up for study group?"}`,
			mockSetup: func(m *MockPostService) {
				m.On("Create", mock.Anything, user.ID, service.CreatePostInput{Content: "Anyone up for study group?"}).
					Return(model.PostView{ID: uuid.New()}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "empty content",
			body:           `{"content":""}`,
			mockSetup:      func(m *MockPostService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "too many images",
			body:           `{"content":"pics","images":["https://a.io/1","https://a.io/2","https://a.io/3","https://a.io/4","https://a.io/5"]}`,
			mockSetup:      func(m *MockPostService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPostService)
			tt.mockSetup(svc)

			rec := do(newPostServer(svc, &user), http.MethodPost, "/posts", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestLikeHandlers(t *testing.T) {
	user := model.PublicUser{ID: uuid.New()}
	postID := uuid.New()
	svc := new(MockPostService)
	svc.On("Like", mock.Anything, user.ID, postID).Return(nil).Once()
	svc.On("Like", mock.Anything, user.ID, postID).Return(apperrors.ErrConflict).Once()
	svc.On("Unlike", mock.Anything, user.ID, postID).Return(apperrors.ErrNotFound)
	e := newPostServer(svc, &user)

	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/posts/"+postID.String()+"/like", "").Code)
	assert.Equal(t, http.StatusConflict, do(e, http.MethodPost, "/posts/"+postID.String()+"/like", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodDelete, "/posts/"+postID.String()+"/like", "").Code)
	svc.AssertExpectations(t)
}

func TestCommentHandlers(t *testing.T) {
	user := model.PublicUser{ID: uuid.New()}
	postID := uuid.New()
	commentID := uuid.New()
	svc := new(MockPostService)
	svc.On("Comment", mock.Anything, user.ID, postID, "nice").Return(model.CommentView{ID: commentID, PostID: postID}, nil)
	svc.On("Comments", mock.Anything, postID, "", 10).Return(&service.CommentPage{Comments: []model.CommentView{{ID: commentID}}}, nil)
	svc.On("DeleteComment", mock.Anything, user.ID, commentID).Return(apperrors.ErrForbidden)
	e := newPostServer(svc, &user)

	rec := do(e, http.MethodPost, "/posts/"+postID.String()+"/comments", `{"content":"nice"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(e, http.MethodGet, "/posts/"+postID.String()+"/comments?limit=10", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), commentID.String())

	rec = do(e, http.MethodDelete, "/posts/comments/"+commentID.String(), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	svc.AssertExpectations(t)
}

func TestRepostHandlers(t *testing.T) {
	user := model.PublicUser{ID: uuid.New()}
	postID := uuid.New()
	svc := new(MockPostService)
	svc.On("Repost", mock.Anything, user.ID, postID, (*string)(nil)).Return(model.PostView{IsRepost: true}, nil).Once()
	svc.On("Repost", mock.Anything, user.ID, postID, mock.MatchedBy(func(c *string) bool {
		return c != nil && *c == "so true"
	})).Return(model.PostView{}, apperrors.ErrConflict).Once()
	svc.On("UndoRepost", mock.Anything, user.ID, postID).Return(nil)
	e := newPostServer(svc, &user)

	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/posts/"+postID.String()+"/repost", "").Code)
	assert.Equal(t, http.StatusConflict, do(e, http.MethodPost, "/posts/"+postID.String()+"/repost", `{"comment":"so true"}`).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodDelete, "/posts/"+postID.String()+"/repost", "").Code)
	svc.AssertExpectations(t)
}

func TestUserPostsAndDeleteHandlers(t *testing.T) {
	user := model.PublicUser{ID: uuid.New()}
	authorID := uuid.New()
	postID := uuid.New()
	svc := new(MockPostService)
	svc.On("UserPosts", mock.Anything, user.ID, authorID, "", 0).Return(&service.PostPage{Posts: []model.PostView{}}, nil)
	svc.On("Get", mock.Anything, user.ID, postID).Return(model.PostView{ID: postID, IsLikedByUser: true}, nil)
	svc.On("Delete", mock.Anything, user.ID, postID).Return(nil)
	e := newPostServer(svc, &user)

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/posts/user/"+authorID.String(), "").Code)

	rec := do(e, http.MethodGet, "/posts/"+postID.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isLikedByUser":true`)

	assert.Equal(t, http.StatusOK, do(e, http.MethodDelete, "/posts/"+postID.String(), "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodDelete, "/posts/nope", "").Code)
	svc.AssertExpectations(t)
}
