package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"

	dataDirName  = ".nlm"
	authFileName = "auth.json"

	dirMode  = 0o700
	fileMode = 0o600
)

// RPC method identifiers for the batch transport.
const (
	RPCListNotebooks  = "wXbhsf"
	RPCGetNotebook    = "rLM1Ne"
	RPCGetSource      = "hizoJc"
	RPCAddSource      = "izAoDd"
	RPCGetSourceGuide = "tr032e"
)

const (
	defaultBaseURL = "https://notebooklm.google.com"
	batchPath      = "/_/LabsTailwindUi/data/batchexecute"
	queryPath      = "/_/LabsTailwindUi/data/" +
		"google.internal.labs.tailwind.orchestration.v1." +
		"LabsTailwindOrchestrationService/GenerateFreeFormStreamed"

	// Rotated periodically by the service; calls fail without a current one,
	// so it must stay overridable via config file or NLM_BUILD_LABEL.
	defaultBuildLabel = "boq_labs-tailwind-frontend_20260108.06_p0"

	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"
)

// RetryableStatuses are the transport statuses worth a backoff-and-retry.
var RetryableStatuses = map[int]struct{}{
	429: {}, 500: {}, 502: {}, 503: {}, 504: {},
}

// Config carries every externally tunable knob. Defaults mirror the live
// service; the config file and NLM_* env vars override them.
type Config struct {
	DataDir    string
	BaseURL    string
	BuildLabel string
	UserAgent  string

	CallTimeout      time.Duration
	AddSourceTimeout time.Duration
	QueryTimeout     time.Duration

	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// Load reads config.toml from the data directory, filling every missing knob
// with its default. A missing config file is fine; a malformed one is not.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	dataDir, err := resolveDataDir()
	if err != nil {
		return Config{}, err
	}

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(dataDir)
	v.SetEnvPrefix("NLM")
	v.AutomaticEnv()

	v.SetDefault("base_url", defaultBaseURL)
	v.SetDefault("build_label", defaultBuildLabel)
	v.SetDefault("user_agent", defaultUserAgent)
	v.SetDefault("call_timeout_seconds", 30)
	v.SetDefault("add_source_timeout_seconds", 120)
	v.SetDefault("query_timeout_seconds", 120)
	v.SetDefault("max_retries", 3)
	v.SetDefault("retry_base_delay_seconds", 1)
	v.SetDefault("retry_max_delay_seconds", 16)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		DataDir:          dataDir,
		BaseURL:          v.GetString("base_url"),
		BuildLabel:       v.GetString("build_label"),
		UserAgent:        v.GetString("user_agent"),
		CallTimeout:      time.Duration(v.GetInt("call_timeout_seconds")) * time.Second,
		AddSourceTimeout: time.Duration(v.GetInt("add_source_timeout_seconds")) * time.Second,
		QueryTimeout:     time.Duration(v.GetInt("query_timeout_seconds")) * time.Second,
		MaxRetries:       v.GetInt("max_retries"),
		RetryBaseDelay:   time.Duration(v.GetInt("retry_base_delay_seconds")) * time.Second,
		RetryMaxDelay:    time.Duration(v.GetInt("retry_max_delay_seconds")) * time.Second,
	}

	if cfg.BaseURL == "" {
		return Config{}, errors.New("base url is empty")
	}

	return cfg, nil
}

// AuthFilePath is where the credential bundle lives.
func (c Config) AuthFilePath() string {
	return filepath.Join(c.DataDir, authFileName)
}

// BatchEndpoint is the batch transport URL without query parameters.
func (c Config) BatchEndpoint() string {
	return c.BaseURL + batchPath
}

// QueryEndpoint is the streaming query URL without query parameters.
func (c Config) QueryEndpoint() string {
	return c.BaseURL + queryPath
}

type fileSchema struct {
	BaseURL                 string `toml:"base_url"`
	BuildLabel              string `toml:"build_label"`
	CallTimeoutSeconds      int    `toml:"call_timeout_seconds"`
	AddSourceTimeoutSeconds int    `toml:"add_source_timeout_seconds"`
	QueryTimeoutSeconds     int    `toml:"query_timeout_seconds"`
	MaxRetries              int    `toml:"max_retries"`
}

// WriteDefaultFile creates config.toml with the current effective values so
// users have something to edit when the service rotates its build label. It
// refuses to overwrite an existing file.
func (c Config) WriteDefaultFile() (string, error) {
	path := filepath.Join(c.DataDir, configName+"."+configType)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.MkdirAll(c.DataDir, dirMode); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}

	data, err := toml.Marshal(fileSchema{
		BaseURL:                 c.BaseURL,
		BuildLabel:              c.BuildLabel,
		CallTimeoutSeconds:      int(c.CallTimeout / time.Second),
		AddSourceTimeoutSeconds: int(c.AddSourceTimeout / time.Second),
		QueryTimeoutSeconds:     int(c.QueryTimeout / time.Second),
		MaxRetries:              c.MaxRetries,
	})
	if err != nil {
		return "", fmt.Errorf("encode config file: %w", err)
	}

	if err := os.WriteFile(path, data, fileMode); err != nil {
		return "", fmt.Errorf("write config file: %w", err)
	}

	return path, nil
}

func resolveDataDir() (string, error) {
	if dir := os.Getenv("NLM_DATA_DIR"); dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "", fmt.Errorf("resolve data directory: %w", err)
		}
		return filepath.Clean(abs), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(homeDir, dataDirName), nil
}

// DirMode and FileMode are the permission bits every credential-bearing path
// must carry.
const (
	DirMode  = dirMode
	FileMode = fileMode
)
