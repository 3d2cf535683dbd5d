package models

import "time"

type Post struct {
	ID            int64     `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	Excerpt       string    `db:"excerpt" json:"excerpt"`
	Slug          string    `db:"slug" json:"slug"`
	PostType      string    `db:"post_type" json:"post_type"` // blog, vlog
	FeaturedImage string    `db:"featured_image_url" json:"featured_image"`
	VideoURL      string    `db:"video_url" json:"video_url"`
	Status        string    `db:"status" json:"status"` // draft, published
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

const (
	PostTypeBlog = "blog"
	PostTypeVlog = "vlog"

	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
)

// PublicURL is the canonical marketing-site URL for a post.
func (p *Post) PublicURL(siteURL string) string {
	return siteURL + "/" + p.PostType + "/" + p.Slug
}
