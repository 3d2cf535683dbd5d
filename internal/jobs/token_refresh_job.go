package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oakcrestrealty/socialcast/internal/models"
	"github.com/oakcrestrealty/socialcast/internal/repository"
	"github.com/oakcrestrealty/socialcast/internal/service"
)

// TokenRefreshJob proactively renews credentials that expire within the next
// half hour, so a publish rarely has to refresh inline.
type TokenRefreshJob struct {
	sr repository.SocialAccountRepository
	ts service.TokenService
}

func NewTokenRefreshJob(sr repository.SocialAccountRepository, ts service.TokenService) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr: sr,
		ts: ts,
	}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	accounts, err := c.sr.ListExpiring(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		if acc.RefreshToken == "" {
			slog.Info("No refresh token available for " + acc.Platform)
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if _, err := c.ts.Refresh(ctx, acc); err != nil {
				slog.Info("Unable to refresh tokens for " + acc.Platform)
			}
		}(acc)
	}

	wg.Wait()
}
