package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/oakcrestrealty/socialcast/internal/models"
)

type SocialAccountRepository interface {
	Upsert(ctx context.Context, sa *models.SocialAccount) (int64, error)
	GetByPlatform(ctx context.Context, platform string) (*models.SocialAccount, error)
	List(ctx context.Context) ([]*models.SocialAccount, error)
	ListExpiring(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error)
	SetToken(ctx context.Context, platform, oldAccessToken string, sa *models.SocialAccount) error
	Deactivate(ctx context.Context, platform string) error
}

type socialAccountRepository struct {
	db *sql.DB
}

func NewSocialAccountRepository(db *sql.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

// Upsert writes the account keyed by platform, overwriting any prior token
// for that platform and re-activating the row. The platform uniqueness
// constraint keeps at most one row per platform.
func (r *socialAccountRepository) Upsert(ctx context.Context, sa *models.SocialAccount) (int64, error) {
	query := `
		INSERT INTO social_accounts(
			platform,
			account_id,
			account_username,
			access_token,
			refresh_token,
			token_expires_at,
			scopes,
			is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		ON CONFLICT (platform) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			account_username = EXCLUDED.account_username,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			scopes = EXCLUDED.scopes,
			is_active = TRUE,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		sa.Platform,
		sa.AccountID,
		sa.AccountUsername,
		sa.AccessToken,
		sa.RefreshToken,
		sa.TokenExpiresAt,
		pq.Array(sa.Scopes),
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *socialAccountRepository) GetByPlatform(ctx context.Context, platform string) (*models.SocialAccount, error) {
	query := `
		SELECT id, platform, account_id, account_username, access_token,
			refresh_token, token_expires_at, scopes, is_active, created_at, updated_at
		FROM social_accounts
		WHERE platform = $1 AND is_active = TRUE
	`
	row := r.db.QueryRowContext(ctx, query, platform)

	var sa models.SocialAccount
	err := row.Scan(&sa.ID, &sa.Platform, &sa.AccountID, &sa.AccountUsername,
		&sa.AccessToken, &sa.RefreshToken, &sa.TokenExpiresAt, &sa.Scopes,
		&sa.IsActive, &sa.CreatedAt, &sa.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &sa, nil
}

func (r *socialAccountRepository) List(ctx context.Context) ([]*models.SocialAccount, error) {
	query := `
		SELECT id, platform, account_id, account_username, access_token,
			refresh_token, token_expires_at, scopes, is_active, created_at, updated_at
		FROM social_accounts
		WHERE is_active = TRUE
		ORDER BY platform
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.SocialAccount
	for rows.Next() {
		var sa models.SocialAccount
		err := rows.Scan(&sa.ID, &sa.Platform, &sa.AccountID, &sa.AccountUsername,
			&sa.AccessToken, &sa.RefreshToken, &sa.TokenExpiresAt, &sa.Scopes,
			&sa.IsActive, &sa.CreatedAt, &sa.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &sa)
	}
	return accounts, rows.Err()
}

// ListExpiring returns active accounts whose token expiry falls inside the
// window, or already lies in the past. Accounts with no expiry never match.
func (r *socialAccountRepository) ListExpiring(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error) {
	query := `
		SELECT id, platform, account_id, account_username, access_token,
			refresh_token, token_expires_at, scopes, is_active, created_at, updated_at
		FROM social_accounts
		WHERE is_active = TRUE
		AND token_expires_at IS NOT NULL
		AND ((token_expires_at BETWEEN $1 AND $2) OR (token_expires_at < $1))
	`
	rows, err := r.db.QueryContext(ctx, query, initialTime, finalTime)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.SocialAccount
	for rows.Next() {
		var sa models.SocialAccount
		err := rows.Scan(&sa.ID, &sa.Platform, &sa.AccountID, &sa.AccountUsername,
			&sa.AccessToken, &sa.RefreshToken, &sa.TokenExpiresAt, &sa.Scopes,
			&sa.IsActive, &sa.CreatedAt, &sa.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &sa)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return accounts, nil
}

// SetToken persists refreshed credentials, conditional on the access token
// the refresh started from. A concurrent refresh that already replaced the
// token makes the update a no-op, which the caller sees as an error.
func (r *socialAccountRepository) SetToken(ctx context.Context, platform, oldAccessToken string, sa *models.SocialAccount) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	updateTokenQuery := `
		UPDATE social_accounts
		SET
			access_token = COALESCE(NULLIF($3, ''), access_token),
			refresh_token = COALESCE(NULLIF($4, ''), refresh_token),
			token_expires_at = COALESCE($5, token_expires_at),
			updated_at = CURRENT_TIMESTAMP
		WHERE platform = $1 AND access_token = $2
	`
	result, err := tx.ExecContext(ctx, updateTokenQuery, platform, oldAccessToken, sa.AccessToken, sa.RefreshToken, sa.TokenExpiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		slog.Info("no rows affected; token was replaced concurrently")
		return errors.New("no rows affected; token was replaced concurrently")
	}

	if err = tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) Deactivate(ctx context.Context, platform string) error {
	query := `UPDATE social_accounts SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE platform = $1`
	_, err := r.db.ExecContext(ctx, query, platform)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
