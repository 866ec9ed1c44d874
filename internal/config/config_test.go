package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Server: ServerConfig{Host: "127.0.0.1", Port: "8090"},
		Upstream: UpstreamConfig{
			BaseURL:          "http://localhost:8080",
			MaxDownloadBytes: 1 << 20,
		},
		Editor: EditorConfig{
			FrameRate:          60,
			DragThreshold:      0.1,
			EnvelopeResolution: 4000,
		},
		Storage: StorageConfig{DataDir: "/some/path"},
	}
}

// loadArgs runs load with a fresh flag set and no .env file.
func loadArgs(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	args = append([]string{"-env-file", filepath.Join(t.TempDir(), "missing.env")}, args...)
	return load(fs, args)
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true}, // case insensitive
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port not a number", func(c *Config) { c.Server.Port = "http" }, "invalid port"},
		{"port out of range", func(c *Config) { c.Server.Port = "70000" }, "invalid port"},
		{"negative rate limit", func(c *Config) { c.Server.RequestsPerSecond = -1 }, "rate limit"},
		{"missing upstream", func(c *Config) { c.Upstream.BaseURL = "" }, "AUDIO_API_URL is required"},
		{"relative upstream", func(c *Config) { c.Upstream.BaseURL = "/api" }, "invalid audio service URL"},
		{"ftp upstream", func(c *Config) { c.Upstream.BaseURL = "ftp://host" }, "invalid audio service URL"},
		{"zero download cap", func(c *Config) { c.Upstream.MaxDownloadBytes = 0 }, "max download bytes"},
		{"frame rate", func(c *Config) { c.Editor.FrameRate = 0 }, "invalid frame rate"},
		{"drag threshold", func(c *Config) { c.Editor.DragThreshold = -0.5 }, "drag threshold"},
		{"resolution", func(c *Config) { c.Editor.EnvelopeResolution = 8 }, "envelope resolution"},
		{"data dir", func(c *Config) { c.Storage.DataDir = "" }, "data directory cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadArgs(t, "-data-dir", "/var/lib/wavecut", "-audio-api-url", "http://audio.local")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8090", cfg.Server.Addr())
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Zero(t, cfg.Server.WriteTimeout, "event streams need an unbounded write timeout")
	assert.Equal(t, 5*time.Minute, cfg.Upstream.Timeout)
	assert.Equal(t, int64(512<<20), cfg.Upstream.MaxDownloadBytes)
	assert.Equal(t, 50*time.Millisecond, cfg.Editor.SeekGrace)
	assert.Equal(t, 100*time.Millisecond, cfg.Editor.SwapSettle)
	assert.Equal(t, 500*time.Millisecond, cfg.Editor.BatchSpacing)
	assert.Equal(t, 60, cfg.Editor.FrameRate)
	assert.InDelta(t, 0.1, cfg.Editor.DragThreshold, 1e-12)
	assert.Equal(t, "/var/lib/wavecut/projects.json", cfg.Storage.ProjectsCacheFile)
	assert.Equal(t, "/var/lib/wavecut/envelopes", cfg.Storage.EnvelopeCacheDir)
	assert.Equal(t, "/var/lib/wavecut/history.db", cfg.Storage.JournalPath)
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("SWAP_SETTLE", "250ms")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := loadArgs(t, "-port", "9100", "-data-dir", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Editor.SwapSettle)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := loadArgs(t, "-stall-timeout", "forever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid stall timeout")
}

func TestLoad_InvalidDragThreshold(t *testing.T) {
	_, err := loadArgs(t, "-drag-threshold", "wide")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid drag threshold")
}

func TestExpandStoragePaths_TildeExpansion(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{DataDir: "~/edits"}}

	require.NoError(t, cfg.expandStoragePaths())

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	assert.Equal(t, filepath.Join(homeDir, "edits"), cfg.Storage.DataDir)
	assert.Equal(t, filepath.Join(homeDir, "edits", "projects.json"), cfg.Storage.ProjectsCacheFile)
}

func TestExpandStoragePaths_EmptyUsesDefault(t *testing.T) {
	cfg := &Config{}

	require.NoError(t, cfg.expandStoragePaths())

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	assert.Equal(t, filepath.Join(homeDir, ".wavecut"), cfg.Storage.DataDir)
}

func TestExpandStoragePaths_ExplicitFileKept(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{DataDir: "/data", ProjectsCacheFile: "relative/projects.json"}}

	require.NoError(t, cfg.expandStoragePaths())

	assert.True(t, filepath.IsAbs(cfg.Storage.ProjectsCacheFile))
	assert.Contains(t, cfg.Storage.ProjectsCacheFile, "relative/projects.json")
}

func TestGetConfigValue_Precedence(t *testing.T) {
	assert.Equal(t, "flag-value", getConfigValue("flag-value", "ENV_KEY", "default-value"))

	t.Setenv("TEST_ENV_KEY", "env-value")
	assert.Equal(t, "env-value", getConfigValue("", "TEST_ENV_KEY", "default-value"))

	assert.Equal(t, "default-value", getConfigValue("", "NONEXISTENT_KEY", "default-value"))
}

func TestGetIntConfigValue_MalformedUsesDefault(t *testing.T) {
	t.Setenv("TEST_INT_KEY", "sixty")
	assert.Equal(t, 60, getIntConfigValue("", "TEST_INT_KEY", 60))
	assert.Equal(t, 30, getIntConfigValue("30", "TEST_INT_KEY", 60))
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,, b ,"))
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `# Test env file
ENV=staging
LOG_LEVEL=debug
# Comment line
QUOTED_VALUE="some value"
SINGLE_QUOTED='another value'
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	// t.Setenv registers restoration; the empty value lets the file win.
	for _, key := range []string{"ENV", "LOG_LEVEL", "QUOTED_VALUE", "SINGLE_QUOTED"} {
		t.Setenv(key, "")
	}

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "staging", os.Getenv("ENV"))
	assert.Equal(t, "debug", os.Getenv("LOG_LEVEL"))
	assert.Equal(t, "some value", os.Getenv("QUOTED_VALUE"))
	assert.Equal(t, "another value", os.Getenv("SINGLE_QUOTED"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := `VALID_KEY=valid_value
INVALID LINE WITHOUT EQUALS
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))
	t.Setenv("VALID_KEY", "")

	err := loadEnvFile(envFile)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadEnvFile_NonExistentFile(t *testing.T) {
	assert.Error(t, loadEnvFile("/nonexistent/file/.env"))
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	t.Setenv("TEST_VAR", "original-value")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`TEST_VAR=new-value`), 0o644))

	require.NoError(t, loadEnvFile(envFile))
	assert.Equal(t, "original-value", os.Getenv("TEST_VAR"))
}

func TestLoadEnvFile_Whitespace(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`  KEY_WITH_SPACES  =  value with spaces  `), 0o644))
	t.Setenv("KEY_WITH_SPACES", "")

	require.NoError(t, loadEnvFile(envFile))
	assert.Equal(t, "value with spaces", os.Getenv("KEY_WITH_SPACES"))
}
