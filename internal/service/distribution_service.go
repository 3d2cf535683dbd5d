package service

import (
	"context"
	"log"
	"log/slog"

	"github.com/oakcrestrealty/socialcast/internal/models"
	"github.com/oakcrestrealty/socialcast/internal/repository"
	"github.com/oakcrestrealty/socialcast/internal/service/platform"
	"github.com/oakcrestrealty/socialcast/pkg/errutil"
)

type DistributionService interface {
	// Publish pushes the post to one platform and records the attempt in the
	// distribution ledger. The returned row reflects the final state.
	Publish(ctx context.Context, postID int64, platformName string) (*models.PostDistribution, error)
	Status(ctx context.Context, postID int64) ([]*models.PostDistribution, error)
}

type distributionService struct {
	registry      *platform.Registry
	posts         repository.PostRepository
	accounts      repository.SocialAccountRepository
	distributions repository.DistributionRepository
	tokens        TokenService
}

func NewDistributionService(
	registry *platform.Registry,
	posts repository.PostRepository,
	accounts repository.SocialAccountRepository,
	distributions repository.DistributionRepository,
	tokens TokenService,
) DistributionService {
	return &distributionService{
		registry:      registry,
		posts:         posts,
		accounts:      accounts,
		distributions: distributions,
		tokens:        tokens,
	}
}

func (s *distributionService) Publish(ctx context.Context, postID int64, platformName string) (*models.PostDistribution, error) {
	p, err := s.registry.Get(platformName)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if post == nil {
		return nil, errutil.NotFound("Post not found")
	}

	acc, err := s.accounts.GetByPlatform(ctx, platformName)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if acc == nil {
		return nil, errutil.Newf(errutil.KindNotConnected, "No active %s account connected", platformName)
	}

	// The ledger row goes to publishing before any network call, so a crash
	// mid-publish leaves a visible in-flight record rather than nothing.
	if _, err := s.distributions.UpsertPublishing(ctx, postID, platformName); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	accessToken, err := s.tokens.EnsureValid(ctx, acc)
	if err != nil {
		return nil, s.fail(ctx, postID, platformName, err)
	}

	result, err := p.Publish(ctx, accessToken, acc, post)
	if err != nil {
		return nil, s.fail(ctx, postID, platformName, err)
	}

	if err := s.distributions.MarkPublished(ctx, postID, platformName, result.PostID, result.PostURL); err != nil {
		log.Printf("publish to %s succeeded for post %d but ledger update failed: %v", platformName, postID, err)
	}

	return s.distributions.GetByPostAndPlatform(ctx, postID, platformName)
}

// fail records the failure on the ledger row best-effort and hands the
// original cause back to the caller.
func (s *distributionService) fail(ctx context.Context, postID int64, platformName string, cause error) error {
	if err := s.distributions.MarkFailed(ctx, postID, platformName, cause.Error()); err != nil {
		log.Printf("failed to record %s distribution failure for post %d: %v", platformName, postID, err)
	}
	return cause
}

func (s *distributionService) Status(ctx context.Context, postID int64) ([]*models.PostDistribution, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, errutil.NotFound("Post not found")
	}

	return s.distributions.ListByPostID(ctx, postID)
}
