package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"cloudcoder/internal/common"
	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/domain/repository"
)

const settingsCachePrefix = "cloudcoder:setting:"

// SettingsService reads configuration settings, caching them in Redis when
// a client is configured.
type SettingsService struct {
	settingRepo repository.SettingRepository
	rdb         *redis.Client
	ttl         time.Duration
	log         *zap.Logger
}

func NewSettingsService(settingRepo repository.SettingRepository, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *SettingsService {
	return &SettingsService{settingRepo: settingRepo, rdb: rdb, ttl: ttl, log: log}
}

func (s *SettingsService) Get(ctx context.Context, name string) (*model.ConfigurationSetting, error) {
	if s.rdb != nil {
		value, err := s.rdb.Get(ctx, settingsCachePrefix+name).Result()
		switch {
		case err == nil:
			return &model.ConfigurationSetting{Name: name, Value: value}, nil
		case !errors.Is(err, redis.Nil):
			s.log.Warn("settings cache read failed", zap.String("name", name), zap.Error(err))
		}
	}

	setting, err := s.settingRepo.GetConfigurationSetting(ctx, name)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return nil, fmt.Errorf("setting %s: %w", name, common.ErrNotFound)
	}

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, settingsCachePrefix+name, setting.Value, s.ttl).Err(); err != nil {
			s.log.Warn("settings cache write failed", zap.String("name", name), zap.Error(err))
		}
	}
	return setting, nil
}
