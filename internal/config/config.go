// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Upstream UpstreamConfig
	Editor   EditorConfig
	Storage  StorageConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds the control API configuration.
type ServerConfig struct {
	Host         string        // Bind address (default: 127.0.0.1)
	Port         string        // Server port (default: 8090)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout; 0 keeps event streams open (default: 0)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string
	// RequestsPerSecond limits requests per client IP; 0 disables limiting.
	RequestsPerSecond float64
	RateLimitBurst    int
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// UpstreamConfig holds the audio service connection.
type UpstreamConfig struct {
	BaseURL string
	// Token is sent as a bearer token. Optional.
	Token            string
	Timeout          time.Duration
	MaxDownloadBytes int64
}

// EditorConfig tunes edit sessions.
type EditorConfig struct {
	SeekGrace          time.Duration
	SwapSettle         time.Duration
	StallTimeout       time.Duration
	FrameRate          int
	DragThreshold      float64 // seconds
	EnvelopeResolution int     // peaks per envelope
	BatchSpacing       time.Duration
}

// StorageConfig holds on-disk locations.
type StorageConfig struct {
	DataDir string
	// ProjectsCacheFile is shared with other editor processes.
	ProjectsCacheFile string
	EnvelopeCacheDir  string
	JournalPath       string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	return load(flag.CommandLine, os.Args[1:])
}

func load(fs *flag.FlagSet, args []string) (*Config, error) {
	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")

	// Server flags
	host := fs.String("host", "", "Bind address (default: 127.0.0.1)")
	port := fs.String("port", "", "Server port (default: 8090)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 0, none)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed CORS origins")
	rateLimit := fs.String("rate-limit", "", "Requests per second per client IP (default: 0, off)")

	// Upstream flags
	upstreamURL := fs.String("audio-api-url", "", "Audio service base URL")
	upstreamToken := fs.String("audio-api-token", "", "Audio service bearer token")
	upstreamTimeout := fs.String("audio-api-timeout", "", "Audio service call timeout (default: 5m)")
	maxDownload := fs.String("max-download-bytes", "", "Largest audio body downloaded (default: 512MiB)")

	// Editor flags
	seekGrace := fs.String("seek-grace", "", "Pause after a seek before resuming (default: 50ms)")
	swapSettle := fs.String("swap-settle", "", "Pause between detaching and loading a swapped resource (default: 100ms)")
	stallTimeout := fs.String("stall-timeout", "", "Stall length that breaks playback (default: 10s)")
	frameRate := fs.String("frame-rate", "", "Playback clock samples per second (default: 60)")
	dragThreshold := fs.String("drag-threshold", "", "Seconds a pointer must travel to start a drag (default: 0.1)")
	resolution := fs.String("envelope-resolution", "", "Peaks per waveform envelope (default: 4000)")
	batchSpacing := fs.String("batch-spacing", "", "Spacing between batch modification requests (default: 500ms)")

	// Storage flags
	dataDir := fs.String("data-dir", "", "Directory for caches and history (default: ~/.wavecut)")
	projectsCache := fs.String("projects-cache", "", "Shared projects cache file (default: {data-dir}/projects.json)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Host:        getConfigValue(*host, "SERVER_HOST", "127.0.0.1"),
			Port:        getConfigValue(*port, "SERVER_PORT", "8090"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "")),
		},
		Upstream: UpstreamConfig{
			BaseURL: getConfigValue(*upstreamURL, "AUDIO_API_URL", "http://127.0.0.1:8080"),
			Token:   getConfigValue(*upstreamToken, "AUDIO_API_TOKEN", ""),
		},
		Editor: EditorConfig{
			FrameRate:          getIntConfigValue(*frameRate, "FRAME_RATE", 60),
			EnvelopeResolution: getIntConfigValue(*resolution, "ENVELOPE_RESOLUTION", 4000),
		},
		Storage: StorageConfig{
			DataDir:           getConfigValue(*dataDir, "DATA_DIR", ""),
			ProjectsCacheFile: getConfigValue(*projectsCache, "PROJECTS_CACHE_FILE", ""),
		},
	}

	durations := []struct {
		dst      *time.Duration
		flag     string
		envKey   string
		fallback string
		name     string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s", "read timeout"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "0s", "write timeout"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", "idle timeout"},
		{&cfg.Upstream.Timeout, *upstreamTimeout, "AUDIO_API_TIMEOUT", "5m", "audio service timeout"},
		{&cfg.Editor.SeekGrace, *seekGrace, "SEEK_GRACE", "50ms", "seek grace"},
		{&cfg.Editor.SwapSettle, *swapSettle, "SWAP_SETTLE", "100ms", "swap settle"},
		{&cfg.Editor.StallTimeout, *stallTimeout, "STALL_TIMEOUT", "10s", "stall timeout"},
		{&cfg.Editor.BatchSpacing, *batchSpacing, "BATCH_SPACING", "500ms", "batch spacing"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.envKey, d.fallback)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.name, raw, err)
		}
		*d.dst = parsed
	}

	var err error
	if cfg.Server.RequestsPerSecond, err = getFloatConfigValue(*rateLimit, "RATE_LIMIT_RPS", 0); err != nil {
		return nil, fmt.Errorf("invalid rate limit: %w", err)
	}
	cfg.Server.RateLimitBurst = getIntConfigValue("", "RATE_LIMIT_BURST", 0)

	if cfg.Editor.DragThreshold, err = getFloatConfigValue(*dragThreshold, "DRAG_THRESHOLD", 0.1); err != nil {
		return nil, fmt.Errorf("invalid drag threshold: %w", err)
	}

	maxBytes := getConfigValue(*maxDownload, "MAX_DOWNLOAD_BYTES", strconv.Itoa(512<<20))
	if cfg.Upstream.MaxDownloadBytes, err = strconv.ParseInt(maxBytes, 10, 64); err != nil {
		return nil, fmt.Errorf("invalid max download bytes %q: %w", maxBytes, err)
	}

	if err := cfg.expandStoragePaths(); err != nil {
		return nil, fmt.Errorf("invalid storage path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if p, err := strconv.Atoi(c.Server.Port); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid port: %q (must be 1-65535)", c.Server.Port)
	}
	if c.Server.RequestsPerSecond < 0 {
		return errors.New("rate limit cannot be negative")
	}

	if c.Upstream.BaseURL == "" {
		return errors.New("AUDIO_API_URL is required")
	}
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid audio service URL: %q (must be an absolute http or https URL)", c.Upstream.BaseURL)
	}
	if c.Upstream.MaxDownloadBytes <= 0 {
		return errors.New("max download bytes must be positive")
	}

	if c.Editor.FrameRate < 1 || c.Editor.FrameRate > 240 {
		return fmt.Errorf("invalid frame rate: %d (must be 1-240)", c.Editor.FrameRate)
	}
	if c.Editor.DragThreshold < 0 {
		return errors.New("drag threshold cannot be negative")
	}
	if c.Editor.EnvelopeResolution < 16 {
		return fmt.Errorf("invalid envelope resolution: %d (must be at least 16)", c.Editor.EnvelopeResolution)
	}

	if c.Storage.DataDir == "" {
		return errors.New("data directory cannot be empty after expansion")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandStoragePaths resolves the data directory and the files under it.
// Unset files default to {data}/projects.json, {data}/envelopes and
// {data}/history.db.
func (c *Config) expandStoragePaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if c.Storage.DataDir, err = expandPath(c.Storage.DataDir, filepath.Join(homeDir, ".wavecut")); err != nil {
		return err
	}
	if c.Storage.ProjectsCacheFile, err = expandPath(c.Storage.ProjectsCacheFile, filepath.Join(c.Storage.DataDir, "projects.json")); err != nil {
		return err
	}
	if c.Storage.EnvelopeCacheDir, err = expandPath(c.Storage.EnvelopeCacheDir, filepath.Join(c.Storage.DataDir, "envelopes")); err != nil {
		return err
	}
	if c.Storage.JournalPath, err = expandPath(c.Storage.JournalPath, filepath.Join(c.Storage.DataDir, "history.db")); err != nil {
		return err
	}
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
// Unlike ints, a malformed float is an error: these values are thresholds.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) (float64, error) {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue, nil
	}
	return strconv.ParseFloat(strValue, 64)
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
