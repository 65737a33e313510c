package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a feed entry. Reposts reference their original through
// OriginalPostID, which is NULL for plain posts; the unique index on
// (user_id, original_post_id) therefore allows one repost per user and post.
type Post struct {
	ID             uuid.UUID  `gorm:"type:char(36);primaryKey"`
	UserID         uuid.UUID  `gorm:"type:char(36);not null;index;uniqueIndex:idx_post_user_repost"`
	Content        string     `gorm:"size:500;not null"`
	Images         StringList `gorm:"type:json"`
	IsRepost       bool       `gorm:"not null;default:false"`
	OriginalPostID *uuid.UUID `gorm:"type:char(36);index;uniqueIndex:idx_post_user_repost"`
	RepostComment  *string    `gorm:"size:500"`
	CreatedAt      time.Time  `gorm:"index"`
	UpdatedAt      time.Time

	Author       User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	OriginalPost *Post `gorm:"foreignKey:OriginalPostID;constraint:OnDelete:CASCADE"`

	LikeCount    int64 `gorm:"->;-:migration"`
	CommentCount int64 `gorm:"->;-:migration"`
	RepostCount  int64 `gorm:"->;-:migration"`
}

// BeforeCreate sets UUID before creating the record.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Like records that a user liked a post; one per user and post.
type Like struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	UserID    uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_like_user_post"`
	PostID    uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_like_user_post;index"`
	CreatedAt time.Time

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Post Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate sets UUID before creating the record.
func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Comment is a reply to a post.
type Comment struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	PostID    uuid.UUID `gorm:"type:char(36);not null;index"`
	UserID    uuid.UUID `gorm:"type:char(36);not null;index"`
	Content   string    `gorm:"size:300;not null"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	Author User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Post   Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate sets UUID before creating the record.
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// PostCounts are the aggregate counters shown with a post.
type PostCounts struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Reposts  int64 `json:"reposts"`
}

// PostView is the API shape of a post.
type PostView struct {
	ID             uuid.UUID   `json:"id"`
	Content        string      `json:"content"`
	Images         []string    `json:"images"`
	IsRepost       bool        `json:"isRepost"`
	OriginalPostID *uuid.UUID  `json:"originalPostId"`
	RepostComment  *string     `json:"repostComment"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	Author         UserSummary `json:"author"`
	OriginalPost   *PostView   `json:"originalPost,omitempty"`
	Counts         PostCounts  `json:"counts"`
	IsLikedByUser  bool        `json:"isLikedByUser"`
}

// NewPostView projects a Post with its preloaded author and original post.
func NewPostView(p *Post, liked bool) PostView {
	v := PostView{
		ID:             p.ID,
		Content:        p.Content,
		Images:         append([]string{}, p.Images...),
		IsRepost:       p.IsRepost,
		OriginalPostID: p.OriginalPostID,
		RepostComment:  p.RepostComment,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		Author:         NewUserSummary(&p.Author),
		Counts:         PostCounts{Likes: p.LikeCount, Comments: p.CommentCount, Reposts: p.RepostCount},
		IsLikedByUser:  liked,
	}
	if p.OriginalPost != nil {
		orig := NewPostView(p.OriginalPost, false)
		v.OriginalPost = &orig
	}
	return v
}

// CommentView is the API shape of a comment.
type CommentView struct {
	ID        uuid.UUID   `json:"id"`
	PostID    uuid.UUID   `json:"postId"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
	Author    UserSummary `json:"author"`
}

// NewCommentView projects a Comment with its preloaded author.
func NewCommentView(c *Comment) CommentView {
	return CommentView{
		ID:        c.ID,
		PostID:    c.PostID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		Author:    NewUserSummary(&c.Author),
	}
}
