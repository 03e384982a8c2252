package service

import (
	"context"

	"github.com/nandanugg/autotimer/module/core/domain"
	"github.com/nandanugg/autotimer/module/core/internal/repository/database"
)

type SampleService struct {
	repo database.SampleRepository
}

func NewSampleService(repo database.SampleRepository) *SampleService {
	return &SampleService{repo: repo}
}

func (s *SampleService) SaveSample(ctx context.Context, rec *domain.SampleRecord) error {
	return s.repo.Insert(ctx, rec)
}

func (s *SampleService) GetLatest(ctx context.Context, deviceID string) (*domain.SampleRecord, error) {
	return s.repo.GetLatest(ctx, deviceID)
}

func (s *SampleService) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.SampleRecord, error) {
	return s.repo.GetHistory(ctx, query)
}

func (s *SampleService) GetDevices(ctx context.Context) ([]domain.Device, error) {
	return s.repo.GetDevices(ctx)
}
