package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"campusconnect/internal/service"
)

// PostHandler handles social feed endpoints. Every route requires authentication.
type PostHandler struct {
	postService service.PostService
}

// NewPostHandler creates a new post handler.
func NewPostHandler(postService service.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// CreatePostRequest represents a post creation request.
type CreatePostRequest struct {
	Content string   `json:"content" validate:"required,min=1,max=500"`
	Images  []string `json:"images" validate:"max=4,dive,url"`
}

// CommentRequest represents a comment creation request.
type CommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=300"`
}

// RepostRequest carries an optional quote for a repost.
type RepostRequest struct {
	Comment *string `json:"comment" validate:"omitempty,max=500"`
}

// CreatePost godoc
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreatePostRequest true "Post data"
// @Success 201 {object} model.PostView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /posts [post]
func (h *PostHandler) CreatePost(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req CreatePostRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	post, err := h.postService.Create(c.Request().Context(), user.ID, service.CreatePostInput{
		Content: req.Content,
		Images:  req.Images,
	})
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, post)
}

// Feed godoc
// @Summary Get the feed, newest first
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param cursor query string false "Cursor from a previous page"
// @Param limit query int false "Page size"
// @Success 200 {object} service.PostPage
// @Failure 400 {object} errors.ErrorResponse
// @Router /posts [get]
func (h *PostHandler) Feed(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.postService.Feed(c.Request().Context(), user.ID, c.QueryParam("cursor"), queryInt(c, "limit"))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, page)
}

// UserPosts godoc
// @Summary Get a user's posts, newest first
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param userId path string true "Author ID"
// @Param cursor query string false "Cursor from a previous page"
// @Param limit query int false "Page size"
// @Success 200 {object} service.PostPage
// @Failure 400 {object} errors.ErrorResponse
// @Router /posts/user/{userId} [get]
func (h *PostHandler) UserPosts(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	authorID, err := paramUUID(c, "userId")
	if err != nil {
		return err
	}
	page, err := h.postService.UserPosts(c.Request().Context(), user.ID, authorID, c.QueryParam("cursor"), queryInt(c, "limit"))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, page)
}

// GetPost godoc
// @Summary Get a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} model.PostView
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id} [get]
func (h *PostHandler) GetPost(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	post, err := h.postService.Get(c.Request().Context(), user.ID, id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, post)
}

// DeletePost godoc
// @Summary Delete a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id} [delete]
func (h *PostHandler) DeletePost(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.postService.Delete(c.Request().Context(), user.ID, id); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Post deleted successfully"})
}

// LikePost godoc
// @Summary Like a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 201 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /posts/{id}/like [post]
func (h *PostHandler) LikePost(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.postService.Like(c.Request().Context(), user.ID, id); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, MessageResponse{Message: "Post liked"})
}

// UnlikePost godoc
// @Summary Remove a like from a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id}/like [delete]
func (h *PostHandler) UnlikePost(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.postService.Unlike(c.Request().Context(), user.ID, id); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Post unliked"})
}

// CreateComment godoc
// @Summary Comment on a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body CommentRequest true "Comment"
// @Success 201 {object} model.CommentView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id}/comments [post]
func (h *PostHandler) CreateComment(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req CommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	comment, err := h.postService.Comment(c.Request().Context(), user.ID, id, req.Content)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, comment)
}

// Comments godoc
// @Summary List comments on a post, newest first
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param cursor query string false "Cursor from a previous page"
// @Param limit query int false "Page size"
// @Success 200 {object} service.CommentPage
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id}/comments [get]
func (h *PostHandler) Comments(c echo.Context) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	page, err := h.postService.Comments(c.Request().Context(), id, c.QueryParam("cursor"), queryInt(c, "limit"))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, page)
}

// DeleteComment godoc
// @Summary Delete a comment
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param commentId path string true "Comment ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/comments/{commentId} [delete]
func (h *PostHandler) DeleteComment(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "commentId")
	if err != nil {
		return err
	}
	if err := h.postService.DeleteComment(c.Request().Context(), user.ID, id); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Comment deleted successfully"})
}

// Repost godoc
// @Summary Repost a post, optionally with a quote
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body RepostRequest false "Quote"
// @Success 201 {object} model.PostView
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /posts/{id}/repost [post]
func (h *PostHandler) Repost(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req RepostRequest
	if c.Request().ContentLength != 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	post, err := h.postService.Repost(c.Request().Context(), user.ID, id, req.Comment)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, post)
}

// UndoRepost godoc
// @Summary Remove a repost
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id}/repost [delete]
func (h *PostHandler) UndoRepost(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.postService.UndoRepost(c.Request().Context(), user.ID, id); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Repost removed"})
}
