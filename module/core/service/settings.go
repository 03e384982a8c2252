package service

import (
	"context"

	"github.com/nandanugg/autotimer/module/core/domain"
	"github.com/nandanugg/autotimer/module/core/internal/repository/database"
)

type SettingsService struct {
	repo database.SettingsRepository
}

func NewSettingsService(repo database.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	return s.repo.Get(ctx)
}

func (s *SettingsService) Update(ctx context.Context, settings domain.Settings) error {
	return s.repo.Put(ctx, settings)
}
