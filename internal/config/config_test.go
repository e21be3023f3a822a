package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
	}{
		{
			name:    "默认配置合法",
			mutate:  func(cfg *Config) {},
			wantErr: false,
		},
		{
			name: "热冷比例之和不为100",
			mutate: func(cfg *Config) {
				cfg.Vault.TargetHotRatio = 30
			},
			wantErr: true,
		},
		{
			name: "热钱包比例越界",
			mutate: func(cfg *Config) {
				cfg.Vault.TargetHotRatio = 0
				cfg.Vault.TargetColdRatio = 100
			},
			wantErr: true,
		},
		{
			name: "阈值梯度不单调-ACCEPTABLE不大于OPTIMAL",
			mutate: func(cfg *Config) {
				cfg.Vault.AcceptableDeviation = 2
			},
			wantErr: true,
		},
		{
			name: "阈值梯度不单调-WARNING不大于ACCEPTABLE",
			mutate: func(cfg *Config) {
				cfg.Vault.WarningDeviation = 5
			},
			wantErr: true,
		},
		{
			name: "再平衡阈值为零",
			mutate: func(cfg *Config) {
				cfg.Vault.RebalanceThreshold = 0
			},
			wantErr: true,
		},
		{
			name: "监控间隔为零",
			mutate: func(cfg *Config) {
				cfg.Vault.MonitorIntervalSecs = 0
			},
			wantErr: true,
		},
		{
			name: "所有行情源都被禁用",
			mutate: func(cfg *Config) {
				cfg.Oracle.Binance.Enabled = false
				cfg.Oracle.Upbit.Enabled = false
			},
			wantErr: true,
		},
		{
			name: "Redis主机为空",
			mutate: func(cfg *Config) {
				cfg.Redis.Host = ""
			},
			wantErr: true,
		},
		{
			name: "HTTP端口越界",
			mutate: func(cfg *Config) {
				cfg.Server.Port = 70000
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	// 默认策略：目标20/80，梯度2/5/10，触发阈值5
	require.NoError(t, validateConfig(cfg))
	assert.Equal(t, float64(20), cfg.Vault.TargetHotRatio)
	assert.Equal(t, float64(80), cfg.Vault.TargetColdRatio)
	assert.Equal(t, float64(2), cfg.Vault.OptimalDeviation)
	assert.Equal(t, float64(5), cfg.Vault.AcceptableDeviation)
	assert.Equal(t, float64(10), cfg.Vault.WarningDeviation)
	assert.Equal(t, float64(5), cfg.Vault.RebalanceThreshold)
	assert.NotEmpty(t, cfg.Vault.AllowedSymbols)
}
