package models

import (
	"database/sql"
	"time"
)

// PostDistribution is the ledger row for one (post, platform) pair.
// Absence of a row means the pair was never attempted; each attempt
// overwrites the row, so there is never more than one per pair.
type PostDistribution struct {
	ID              int64        `db:"id" json:"id"`
	PostID          int64        `db:"post_id" json:"post_id"`
	Platform        string       `db:"platform" json:"platform"`
	Status          string       `db:"status" json:"status"`
	PlatformPostID  string       `db:"platform_post_id" json:"platform_post_id"`
	PlatformPostURL string       `db:"platform_post_url" json:"platform_post_url"`
	ErrorMessage    string       `db:"error_message" json:"error_message"`
	PublishedAt     sql.NullTime `db:"published_at" json:"published_at"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

const (
	DistributionStatusPublishing = "publishing"
	DistributionStatusPublished  = "published"
	DistributionStatusFailed     = "failed"
)
