package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/platform/database"
)

type SettingRepository interface {
	GetConfigurationSetting(ctx context.Context, name string) (*model.ConfigurationSetting, error)
}

type pgSettingRepository struct {
	runner *database.Runner
}

func NewPgSettingRepository(runner *database.Runner) SettingRepository {
	return &pgSettingRepository{runner: runner}
}

func (r *pgSettingRepository) GetConfigurationSetting(ctx context.Context, name string) (*model.ConfigurationSetting, error) {
	return database.Run(ctx, r.runner, database.NewWork("getting configuration setting", func(ctx context.Context, tx *database.Tx) (*model.ConfigurationSetting, error) {
		query := "SELECT " + settingTable.Select("") + " FROM " + configurationTable + " WHERE name = $1"
		setting, err := settingTable.Load(tx.QueryRow(ctx, query, name))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("pgSettingRepository.GetConfigurationSetting: %w", err)
		}
		return setting, nil
	}))
}
