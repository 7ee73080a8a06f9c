package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDefaults(t *testing.T) *Settings {
	t.Helper()
	s, err := Defaults()
	require.NoError(t, err)
	return s
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"defaults", func(*Settings) {}, ""},
		{"bad base url", func(s *Settings) { s.ContractStore.BaseURL = "ftp://hr" }, "contractstore.base_url"},
		{"empty base url", func(s *Settings) { s.ContractStore.BaseURL = "" }, "contractstore.base_url is required"},
		{"relative path", func(s *Settings) { s.ContractStore.ContractsPath = "api/contratos" }, "contracts_path"},
		{"zero timeout", func(s *Settings) { s.ContractStore.Timeout = 0 }, "contractstore.timeout"},
		{"zero window", func(s *Settings) { s.Expiry.WindowDays = 0 }, "expiry.window_days"},
		{"bad schedule", func(s *Settings) { s.Expiry.Schedule = "every morning" }, "expiry.schedule"},
		{"bad timezone", func(s *Settings) { s.Expiry.Timezone = "Mars/Olympus" }, "expiry.timezone"},
		{"push without urls", func(s *Settings) { s.Notifications.Push.Enabled = true }, "notifications.push.urls"},
		{"mqtt without topic", func(s *Settings) {
			s.Notifications.MQTT.Enabled = true
			s.Notifications.MQTT.Topic = ""
		}, "notifications.mqtt.topic"},
		{"unknown driver", func(s *Settings) { s.State.Driver = "redis" }, "state.driver"},
		{"mysql without dsn", func(s *Settings) { s.State.Driver = StateDriverMySQL }, "state.dsn"},
		{"unknown backend", func(s *Settings) { s.Logging.Backend = "logrus" }, "logging.backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := mustDefaults(t)
			tt.mutate(s)

			err := ValidateSettings(s)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidationErrorListsEveryProblem(t *testing.T) {
	t.Parallel()

	s := mustDefaults(t)
	s.Expiry.WindowDays = -1
	s.Notifications.MaxItems = 0
	s.State.Driver = "redis"

	err := ValidateSettings(s)
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3)
}

func TestValidateEnvHelpers(t *testing.T) {
	t.Parallel()

	require.NoError(t, validateEnvURL("https://hr.example.com"))
	require.Error(t, validateEnvURL("hr.example.com"))
	require.NoError(t, validateEnvDuration("15s"))
	require.Error(t, validateEnvDuration("-1s"))
	require.NoError(t, validateEnvLogLevel("WARN"))
	require.Error(t, validateEnvLogLevel("loud"))
	require.NoError(t, validateEnvStateDriver(StateDriverMemory))
	require.Error(t, validateEnvBool("maybe"))
}
