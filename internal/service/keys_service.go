package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oakcrestrealty/socialcast/internal/models"
	"github.com/oakcrestrealty/socialcast/internal/repository"
	"github.com/oakcrestrealty/socialcast/pkg/utils"
)

type ApiKeyService interface {
	Create(ctx context.Context, name string) (*models.ApiKey, error)
	List(ctx context.Context) ([]*models.ApiKey, error)
	Validate(ctx context.Context, apiKey string) (bool, error)
	Remove(ctx context.Context, keyID int64) error
}

type apiKeyService struct {
	k repository.ApiKeyRepository
}

func NewApiKeyService(k repository.ApiKeyRepository) ApiKeyService {
	return &apiKeyService{
		k: k,
	}
}

// Create mints a new key. The plaintext key is only returned here; callers
// must copy it out of the response.
func (s *apiKeyService) Create(ctx context.Context, name string) (*models.ApiKey, error) {
	keys, err := s.k.List(ctx)
	if err != nil {
		return nil, err
	}

	if len(keys) > 4 {
		err = errors.New("Only 5 API Keys can be created.")
		slog.Info(err.Error())
		return nil, err
	}

	key, err := utils.GenerateRandomKey(16)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("Error generating API key")
	}

	apiKey := &models.ApiKey{
		Name:   name,
		ApiKey: key,
	}

	id, err := s.k.Create(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("Error saving API key")
	}
	apiKey.ID = id

	return apiKey, nil
}

func (s *apiKeyService) List(ctx context.Context) ([]*models.ApiKey, error) {
	apiKeys, err := s.k.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("Error getting API keys")
	}
	return apiKeys, nil
}

func (s *apiKeyService) Validate(ctx context.Context, apiKey string) (bool, error) {
	if apiKey == "" {
		return false, nil
	}
	return s.k.Exists(ctx, apiKey)
}

func (s *apiKeyService) Remove(ctx context.Context, keyID int64) error {
	var err error

	if keyID == 0 {
		err = errors.New("KeyID is not valid")
		slog.Info(err.Error())
		return err
	}

	err = s.k.Remove(ctx, keyID)
	if err != nil {
		return err
	}
	return nil
}
