package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	config "github.com/oakcrestrealty/socialcast/configs"
	"github.com/oakcrestrealty/socialcast/internal/models"
	"github.com/oakcrestrealty/socialcast/internal/repository"
	"github.com/oakcrestrealty/socialcast/internal/service/platform"
	"github.com/oakcrestrealty/socialcast/internal/transfer"
	"github.com/oakcrestrealty/socialcast/pkg/errutil"
	"github.com/oakcrestrealty/socialcast/pkg/utils"
)

// stateTTL bounds how long an issued authorization URL stays usable.
const stateTTL = 15 * time.Minute

type SocialService interface {
	// BeginConnect issues the platform's authorization URL together with the
	// PKCE verifier the caller must hold onto for the callback. Platforms
	// that do not use PKCE get an empty verifier.
	BeginConnect(ctx context.Context, platformName string) (*transfer.ConnectResponse, error)
	HandleCallback(ctx context.Context, req *transfer.CallbackRequest) (*models.SocialAccount, error)
	List(ctx context.Context) ([]*models.SocialAccount, error)
	Disconnect(ctx context.Context, platformName string) error
}

type socialService struct {
	cfg      config.Config
	registry *platform.Registry
	sa       repository.SocialAccountRepository
}

func NewSocialService(cfg config.Config, registry *platform.Registry, sa repository.SocialAccountRepository) SocialService {
	return &socialService{
		cfg:      cfg,
		registry: registry,
		sa:       sa,
	}
}

func (s *socialService) BeginConnect(_ context.Context, platformName string) (*transfer.ConnectResponse, error) {
	p, err := s.registry.Get(platformName)
	if err != nil {
		return nil, err
	}

	state, err := utils.GenerateStateToken(s.cfg.SecretKey, platformName, stateTTL)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	var verifier string
	if platformName == models.PlatformX {
		verifier = oauth2.GenerateVerifier()
	}

	return &transfer.ConnectResponse{
		Platform:     platformName,
		AuthURL:      p.AuthURL(state, verifier),
		State:        state,
		CodeVerifier: verifier,
	}, nil
}

func (s *socialService) HandleCallback(ctx context.Context, req *transfer.CallbackRequest) (*models.SocialAccount, error) {
	if req.State != "" {
		claims, err := utils.ValidateStateToken(s.cfg.SecretKey, req.State)
		if err != nil {
			return nil, errutil.Wrap(errutil.KindValidation, "invalid state token", err)
		}
		if claims.Platform != req.Platform {
			return nil, errutil.Validation("state token does not match platform")
		}
	}

	p, err := s.registry.Get(req.Platform)
	if err != nil {
		return nil, err
	}

	token, err := p.Exchange(ctx, req.Code, req.CodeVerifier, req.RedirectURI)
	if err != nil {
		return nil, err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return nil, err
	}

	var encryptedRefreshToken string
	if token.RefreshToken != "" {
		encryptedRefreshToken, err = utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return nil, err
		}
	}

	acc := &models.SocialAccount{
		Platform:        req.Platform,
		AccountID:       token.UserID,
		AccountUsername: token.Username,
		AccessToken:     encryptedAccessToken,
		RefreshToken:    encryptedRefreshToken,
		TokenExpiresAt:  nullTimeFrom(token.ExpiresAt),
		Scopes:          token.Scopes,
		IsActive:        true,
	}

	id, err := s.sa.Upsert(ctx, acc)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	acc.ID = id

	return acc, nil
}

func (s *socialService) List(ctx context.Context) ([]*models.SocialAccount, error) {
	return s.sa.List(ctx)
}

func (s *socialService) Disconnect(ctx context.Context, platformName string) error {
	if _, err := s.registry.Get(platformName); err != nil {
		return err
	}
	return s.sa.Deactivate(ctx, platformName)
}
