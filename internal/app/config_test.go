package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoad() (*Config, error) {
	return loadConfig(aconfig.Config{SkipFlags: true, SkipFiles: true})
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SHOP_DATABASE_URL", "postgres://localhost/shop")
	t.Setenv("SHOP_NOTIFY_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := testLoad()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Equal(t, NotifyRedis, cfg.Notify.Driver)
	assert.Equal(t, "order_channel", cfg.Notify.Channel)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 3*time.Second, cfg.Graceful.ReadinessDelay)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("REDIS_URL", "redis://platform:6379")
	t.Setenv("PORT", "9000")

	cfg, err := testLoad()
	require.NoError(t, err)

	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "redis://platform:6379", cfg.Notify.RedisURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing database",
			env:  map[string]string{"SHOP_NOTIFY_DRIVER": "none"},
			want: "database URL is required",
		},
		{
			name: "redis without url",
			env:  map[string]string{"SHOP_DATABASE_URL": "postgres://x"},
			want: "redis URL is required",
		},
		{
			name: "kafka without brokers",
			env:  map[string]string{"SHOP_DATABASE_URL": "postgres://x", "SHOP_NOTIFY_DRIVER": "kafka"},
			want: "kafka brokers are required",
		},
		{
			name: "unknown driver",
			env:  map[string]string{"SHOP_DATABASE_URL": "postgres://x", "SHOP_NOTIFY_DRIVER": "smtp"},
			want: `unknown notify driver "smtp"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			t.Setenv("REDIS_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := testLoad()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
