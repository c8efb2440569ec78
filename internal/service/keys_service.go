package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/repository"
	"github.com/maheshrc27/postsphere/pkg/utils"
)

const maxApiKeys = 5

var ErrUnknownKey = errors.New("api key doesn't exist")

type ApiKeyService interface {
	// Create returns the new key. It is shown only once; List masks it.
	Create(ctx context.Context, userID int64) (string, error)
	List(ctx context.Context, userID int64) ([]*models.ApiKey, error)
	GetUserID(ctx context.Context, apiKey string) (int64, error)
	RemoveAPIKey(ctx context.Context, userID, keyID int64) error
}

type apiKeyService struct {
	k repository.ApiKeyRepository
}

func NewApiKeyService(k repository.ApiKeyRepository) ApiKeyService {
	return &apiKeyService{k: k}
}

func (s *apiKeyService) Create(ctx context.Context, userID int64) (string, error) {
	count, err := s.k.CountByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if count >= maxApiKeys {
		return "", invalidf("only %d API keys can be created", maxApiKeys)
	}

	key, err := utils.GenerateRandomKey(24)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("generate api key: %w", err)
	}

	if _, err := s.k.Create(ctx, &models.ApiKey{UserID: userID, ApiKey: key}); err != nil {
		return "", fmt.Errorf("save api key: %w", err)
	}
	return key, nil
}

func (s *apiKeyService) GetUserID(ctx context.Context, apiKey string) (int64, error) {
	if apiKey == "" {
		return 0, ErrUnknownKey
	}
	userID, exists, err := s.k.GetUserID(ctx, apiKey)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrUnknownKey
	}
	return userID, nil
}

func (s *apiKeyService) List(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	keys, err := s.k.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		k.ApiKey = utils.MaskKey(k.ApiKey)
	}
	return keys, nil
}

func (s *apiKeyService) RemoveAPIKey(ctx context.Context, userID, keyID int64) error {
	if keyID <= 0 {
		return invalidf("key id is not valid")
	}

	owned, err := s.k.CheckByUserID(ctx, keyID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return notFound("api key", keyID)
	}
	return s.k.Remove(ctx, keyID)
}
