package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"cloudcoder/internal/common"
	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/domain/repository"
)

func TestSettingsAreCached(t *testing.T) {
	e := newEnv(t)
	e.db.SetSetting(model.SettingInstitutionName, "York College")

	s, err := e.settings.Get(e.ctx, model.SettingInstitutionName)
	require.NoError(t, err)
	assert.Equal(t, "York College", s.Value)

	cached, err := e.mr.Get(settingsCachePrefix + model.SettingInstitutionName)
	require.NoError(t, err)
	assert.Equal(t, "York College", cached)
	assert.Equal(t, time.Minute, e.mr.TTL(settingsCachePrefix+model.SettingInstitutionName))

	_, err = e.db.SQL.Exec("UPDATE cc_configuration_settings SET value = $1 WHERE name = $2", "Elsewhere", model.SettingInstitutionName)
	require.NoError(t, err)
	s, err = e.settings.Get(e.ctx, model.SettingInstitutionName)
	require.NoError(t, err)
	assert.Equal(t, "York College", s.Value, "served from cache")

	e.mr.FastForward(2 * time.Minute)
	s, err = e.settings.Get(e.ctx, model.SettingInstitutionName)
	require.NoError(t, err)
	assert.Equal(t, "Elsewhere", s.Value)
}

func TestMissingSetting(t *testing.T) {
	e := newEnv(t)

	_, err := e.settings.Get(e.ctx, "no.such.setting")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.False(t, e.mr.Exists(settingsCachePrefix+"no.such.setting"))
}

func TestSettingsWithoutRedis(t *testing.T) {
	e := newEnv(t)
	e.db.SetSetting("k", "v")
	svc := NewSettingsService(repository.NewPgSettingRepository(e.db.Runner), nil, time.Minute, zaptest.NewLogger(t))

	s, err := svc.Get(e.ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", s.Value)
}

func TestSettingsFallBackWhenRedisIsDown(t *testing.T) {
	e := newEnv(t)
	e.db.SetSetting("k", "v")
	e.mr.Close()

	s, err := e.settings.Get(e.ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", s.Value)
}
