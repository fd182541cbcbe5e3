package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FINOPS_POLL_INTERVAL", "")
	t.Setenv("ACTIVITY_POLL_INTERVAL", "")
	t.Setenv("CRM_API_TIMEOUT", "")
	t.Setenv("IMPORT_STALE_AFTER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.FinOpsPollInterval)
	assert.Equal(t, 30*time.Second, cfg.ActivityPollInterval)
	assert.Equal(t, 30*time.Second, cfg.CRMAPITimeout)
	assert.Equal(t, 30*time.Minute, cfg.ImportStaleAfter)
}

func TestLoad_RejectsNonPositiveIntervals(t *testing.T) {
	for _, tc := range []struct {
		key   string
		value string
	}{
		{"FINOPS_POLL_INTERVAL", "0s"},
		{"ACTIVITY_POLL_INTERVAL", "-5s"},
		{"IMPORT_STALE_AFTER", "0"},
	} {
		t.Run(tc.key, func(t *testing.T) {
			t.Setenv("FINOPS_POLL_INTERVAL", "")
			t.Setenv("ACTIVITY_POLL_INTERVAL", "")
			t.Setenv("IMPORT_STALE_AFTER", "")
			t.Setenv(tc.key, tc.value)

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tc.key+" must be positive")
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("UPLOAD_MAX_SIZE", "2048")
	t.Setenv("FINOPS_POLL_INTERVAL", "5s")
	t.Setenv("CRM_API_URL", "https://crm.internal/api")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_DATABASE", "crm_test")
	t.Setenv("DB_USERNAME", "svc")
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.AppPort)
	assert.Equal(t, 2048, cfg.UploadMaxSize)
	assert.Equal(t, 5*time.Second, cfg.FinOpsPollInterval)
	assert.Equal(t, "https://crm.internal/api", cfg.CRMAPIURL)
	assert.Equal(t, "svc:secret@tcp(db:3307)/crm_test?parseTime=true&loc=Local", cfg.GetDSN())
}

func TestGetEnvAsInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	assert.Equal(t, 7, getEnvAsInt("SOME_INT", 7))

	t.Setenv("SOME_DURATION", "forever")
	assert.Equal(t, time.Minute, getEnvAsDuration("SOME_DURATION", time.Minute))
}
