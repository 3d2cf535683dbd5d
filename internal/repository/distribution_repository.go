package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/oakcrestrealty/socialcast/internal/models"
)

type DistributionRepository interface {
	UpsertPublishing(ctx context.Context, postID int64, platform string) (*models.PostDistribution, error)
	MarkPublished(ctx context.Context, postID int64, platform, platformPostID, platformPostURL string) error
	MarkFailed(ctx context.Context, postID int64, platform, errorMessage string) error
	GetByPostAndPlatform(ctx context.Context, postID int64, platform string) (*models.PostDistribution, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostDistribution, error)
}

type distributionRepository struct {
	db *sql.DB
}

func NewDistributionRepository(db *sql.DB) DistributionRepository {
	return &distributionRepository{db: db}
}

const distributionColumns = `id, post_id, platform, status, platform_post_id,
	platform_post_url, error_message, published_at, created_at, updated_at`

// UpsertPublishing opens a fresh attempt for the (post, platform) pair. The
// unique constraint on the pair makes this overwrite rather than duplicate:
// any prior outcome and error message are cleared.
func (r *distributionRepository) UpsertPublishing(ctx context.Context, postID int64, platform string) (*models.PostDistribution, error) {
	query := `
		INSERT INTO post_distributions (post_id, platform, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (post_id, platform) DO UPDATE SET
			status = EXCLUDED.status,
			platform_post_id = '',
			platform_post_url = '',
			error_message = '',
			published_at = NULL,
			updated_at = CURRENT_TIMESTAMP
		RETURNING ` + distributionColumns

	row := r.db.QueryRowContext(ctx, query, postID, platform, models.DistributionStatusPublishing)

	var pd models.PostDistribution
	err := scanDistribution(row, &pd)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &pd, nil
}

func (r *distributionRepository) MarkPublished(ctx context.Context, postID int64, platform, platformPostID, platformPostURL string) error {
	query := `
		UPDATE post_distributions
		SET status = $3,
			platform_post_id = $4,
			platform_post_url = $5,
			error_message = '',
			published_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE post_id = $1 AND platform = $2
	`
	_, err := r.db.ExecContext(ctx, query, postID, platform, models.DistributionStatusPublished, platformPostID, platformPostURL)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *distributionRepository) MarkFailed(ctx context.Context, postID int64, platform, errorMessage string) error {
	query := `
		UPDATE post_distributions
		SET status = $3,
			error_message = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE post_id = $1 AND platform = $2
	`
	_, err := r.db.ExecContext(ctx, query, postID, platform, models.DistributionStatusFailed, errorMessage)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *distributionRepository) GetByPostAndPlatform(ctx context.Context, postID int64, platform string) (*models.PostDistribution, error) {
	query := `SELECT ` + distributionColumns + ` FROM post_distributions WHERE post_id = $1 AND platform = $2`
	row := r.db.QueryRowContext(ctx, query, postID, platform)

	var pd models.PostDistribution
	err := scanDistribution(row, &pd)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &pd, nil
}

func (r *distributionRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostDistribution, error) {
	query := `SELECT ` + distributionColumns + ` FROM post_distributions WHERE post_id = $1 ORDER BY platform`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var distributions []*models.PostDistribution
	for rows.Next() {
		var pd models.PostDistribution
		if err := scanDistribution(rows, &pd); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		distributions = append(distributions, &pd)
	}
	return distributions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDistribution(row rowScanner, pd *models.PostDistribution) error {
	return row.Scan(&pd.ID, &pd.PostID, &pd.Platform, &pd.Status, &pd.PlatformPostID,
		&pd.PlatformPostURL, &pd.ErrorMessage, &pd.PublishedAt, &pd.CreatedAt, &pd.UpdatedAt)
}
