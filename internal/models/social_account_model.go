package models

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

const (
	PlatformX         = "x"
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformTiktok    = "tiktok"
)

// SocialAccount holds the stored OAuth credentials for one platform.
// At most one active row exists per platform; access_token and
// refresh_token are AES-GCM encrypted at rest.
type SocialAccount struct {
	ID              int64          `db:"id" json:"id"`
	Platform        string         `db:"platform" json:"platform"`
	AccountID       string         `db:"account_id" json:"account_id"`
	AccountUsername string         `db:"account_username" json:"account_username"`
	AccessToken     string         `db:"access_token" json:"-"`
	RefreshToken    string         `db:"refresh_token" json:"-"`
	TokenExpiresAt  sql.NullTime   `db:"token_expires_at" json:"token_expires_at"`
	Scopes          pq.StringArray `db:"scopes" json:"scopes"`
	IsActive        bool           `db:"is_active" json:"is_active"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}
