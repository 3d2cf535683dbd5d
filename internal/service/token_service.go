package service

import (
	"context"
	"log/slog"
	"time"

	config "github.com/oakcrestrealty/socialcast/configs"
	"github.com/oakcrestrealty/socialcast/internal/models"
	"github.com/oakcrestrealty/socialcast/internal/repository"
	"github.com/oakcrestrealty/socialcast/internal/service/platform"
	"github.com/oakcrestrealty/socialcast/pkg/errutil"
	"github.com/oakcrestrealty/socialcast/pkg/utils"
)

// refreshSkew is how close to expiry a token may get before a publish
// refreshes it first.
const refreshSkew = 60 * time.Second

type TokenService interface {
	// EnsureValid returns a usable plaintext access token for the account,
	// refreshing it first when expiry is near or past. Tokens without an
	// expiry are treated as non-expiring and returned unchanged.
	EnsureValid(ctx context.Context, acc *models.SocialAccount) (string, error)
	Refresh(ctx context.Context, acc *models.SocialAccount) (string, error)
}

type tokenService struct {
	cfg      config.Config
	registry *platform.Registry
	sa       repository.SocialAccountRepository
}

func NewTokenService(cfg config.Config, registry *platform.Registry, sa repository.SocialAccountRepository) TokenService {
	return &tokenService{
		cfg:      cfg,
		registry: registry,
		sa:       sa,
	}
}

func (s *tokenService) EnsureValid(ctx context.Context, acc *models.SocialAccount) (string, error) {
	accessToken, err := utils.Decrypt(acc.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return "", err
	}

	if !acc.TokenExpiresAt.Valid {
		return accessToken, nil
	}
	if time.Until(acc.TokenExpiresAt.Time) > refreshSkew {
		return accessToken, nil
	}

	return s.Refresh(ctx, acc)
}

// Refresh renews the account's credentials through its platform adapter and
// persists them. The write is conditional on the token the refresh started
// from, so a concurrent refresh surfaces as an error instead of silently
// stacking writes.
func (s *tokenService) Refresh(ctx context.Context, acc *models.SocialAccount) (string, error) {
	if acc.RefreshToken == "" {
		return "", errutil.Newf(errutil.KindRefresh, "%s token expired and no refresh token is available", acc.Platform)
	}

	p, err := s.registry.Get(acc.Platform)
	if err != nil {
		return "", err
	}

	accessToken, err := utils.Decrypt(acc.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return "", err
	}
	refreshToken, err := utils.Decrypt(acc.RefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return "", err
	}

	token, err := p.Refresh(ctx, accessToken, refreshToken)
	if err != nil {
		return "", err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return "", err
	}

	var encryptedRefreshToken string
	if token.RefreshToken != "" {
		encryptedRefreshToken, err = utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return "", err
		}
	}

	updated := &models.SocialAccount{
		AccessToken:    encryptedAccessToken,
		RefreshToken:   encryptedRefreshToken,
		TokenExpiresAt: nullTimeFrom(token.ExpiresAt),
	}

	if err := s.sa.SetToken(ctx, acc.Platform, acc.AccessToken, updated); err != nil {
		slog.Info(err.Error())
		return "", errutil.Wrap(errutil.KindRefresh, "failed to persist refreshed token", err)
	}

	return token.AccessToken, nil
}
