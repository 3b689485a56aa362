package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	if Version != "" {
		return Version
	}
	return "unknown"
}

type rawCfg struct {
	EnvFile string `long:"env-file" env:"ENV_FILE" default:".env" description:"Optional dotenv file loaded before parsing"`

	// Database configuration
	DBDriver   string `long:"db-driver" env:"DB_DRIVER" default:"sqlite" choice:"sqlite" choice:"mysql" description:"Database driver"`
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./data/curator.db" description:"SQLite database file"`
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"MySQL host"`
	DBPort     int    `long:"db-port" env:"DB_PORT" default:"3306" description:"MySQL port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"curator" description:"MySQL user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" description:"MySQL password"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"curator" description:"MySQL database name"`

	// Sources
	FeedsFile string `long:"feeds-file" env:"FEEDS_FILE" default:"./feeds.yml" description:"Feed sources file (.yml, .yaml, .opml or .xml)"`

	// Enrichment
	OpenAIAPIKey   string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"API key of the OpenAI-compatible enrichment service (required)"`
	OpenAIBaseURL  string `long:"openai-base-url" env:"OPENAI_BASE_URL" description:"Base URL of the enrichment service, empty for api.openai.com"`
	OpenAIModel    string `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini" description:"Chat model used for summaries and tags"`
	EnrichTimeout  int    `long:"enrich-timeout" env:"ENRICH_TIMEOUT" default:"60" description:"Enrichment timeout per item in seconds"`
	EnrichMaxChars int    `long:"enrich-max-chars" env:"ENRICH_MAX_CHARS" default:"1200" description:"Content characters sent for enrichment, 0 for no limit"`

	// Polling
	FetchTimeout int `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Default feed and page fetch timeout in seconds"`
	PollMinHours int `long:"poll-min-hours" env:"POLL_MIN_HOURS" default:"12" description:"Lower bound of the random sleep between cycles"`
	PollMaxHours int `long:"poll-max-hours" env:"POLL_MAX_HOURS" default:"24" description:"Upper bound of the random sleep between cycles"`
	WorkerCount  int `long:"worker-count" env:"WORKER_COUNT" default:"1" description:"Sources polled in parallel within a cycle"`

	// Status API
	Port         string `long:"port" env:"PORT" description:"Status API port, API disabled when empty"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for /api endpoints (optional)"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://curator.example.com)"`

	// Logging
	LogFile       string `long:"log-file" env:"LOG_FILE" description:"Also write logs to this rotating file"`
	LogMaxSize    int    `long:"log-max-size" env:"LOG_MAX_SIZE" default:"100" description:"Maximum log file size in megabytes"`
	LogMaxBackups int    `long:"log-max-backups" env:"LOG_MAX_BACKUPS" default:"5" description:"Rotated log files to keep"`
	LogMaxAge     int    `long:"log-max-age" env:"LOG_MAX_AGE" default:"30" description:"Days to keep rotated log files"`
	LogCompress   bool   `long:"log-compress" env:"LOG_COMPRESS" description:"Gzip rotated log files"`
	LogJSON       bool   `long:"log-json" env:"LOG_JSON" description:"Emit JSON log lines"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"RSS Curator/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Shanghai)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load reads the dotenv file, then flags and environment. It returns nil
// without error when help was requested.
func Load(args []string) (*Cfg, error) {
	if err := loadEnvFile(args); err != nil {
		return nil, err
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBDriver:       raw.DBDriver,
		DBPath:         raw.DBPath,
		DBHost:         raw.DBHost,
		DBPort:         raw.DBPort,
		DBUser:         raw.DBUser,
		DBPassword:     raw.DBPassword,
		DBName:         raw.DBName,
		FeedsFile:      raw.FeedsFile,
		OpenAIAPIKey:   raw.OpenAIAPIKey,
		OpenAIBaseURL:  raw.OpenAIBaseURL,
		OpenAIModel:    raw.OpenAIModel,
		EnrichTimeout:  time.Duration(raw.EnrichTimeout) * time.Second,
		EnrichMaxChars: raw.EnrichMaxChars,
		FetchTimeout:   time.Duration(raw.FetchTimeout) * time.Second,
		PollMin:        time.Duration(raw.PollMinHours) * time.Hour,
		PollMax:        time.Duration(raw.PollMaxHours) * time.Hour,
		WorkerCount:    raw.WorkerCount,
		Port:           raw.Port,
		APIAccessKey:   raw.APIAccessKey,
		BaseUrl:        raw.BaseUrl,
		LogFile:        raw.LogFile,
		LogMaxSize:     raw.LogMaxSize,
		LogMaxBackups:  raw.LogMaxBackups,
		LogMaxAge:      raw.LogMaxAge,
		LogCompress:    raw.LogCompress,
		LogJSON:        raw.LogJSON,
		UserAgent:      raw.UserAgent,
		Timezone:       raw.Timezone,
		Debug:          raw.Debug,
		Version:        GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// loadEnvFile fills unset environment variables from the dotenv file named by
// --env-file, ENV_FILE or the .env default. A missing file is not an error.
func loadEnvFile(args []string) error {
	var pre struct {
		EnvFile string `long:"env-file" env:"ENV_FILE" default:".env"`
	}

	parser := flags.NewParser(&pre, flags.IgnoreUnknown)
	if _, err := parser.ParseArgs(args); err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := godotenv.Load(pre.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file %s: %w", pre.EnvFile, err)
	}

	return nil
}

func validate(cfg *Cfg) error {
	if cfg.OpenAIAPIKey == "" {
		return fmt.Errorf("openai api key is required (--openai-api-key or OPENAI_API_KEY)")
	}
	if cfg.FeedsFile == "" {
		return fmt.Errorf("feeds file is required")
	}
	if cfg.DBDriver == "mysql" && (cfg.DBHost == "" || cfg.DBName == "") {
		return fmt.Errorf("db host and db name are required for mysql")
	}
	if cfg.DBDriver == "sqlite" && cfg.DBPath == "" {
		return fmt.Errorf("db path is required for sqlite")
	}
	if cfg.PollMin <= 0 {
		return fmt.Errorf("poll min hours must be positive")
	}
	if cfg.PollMax < cfg.PollMin {
		return fmt.Errorf("poll max hours must not be less than poll min hours")
	}
	if cfg.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if cfg.FetchTimeout <= 0 || cfg.EnrichTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if cfg.EnrichMaxChars < 0 {
		return fmt.Errorf("enrich max chars must not be negative")
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone == "" {
		return nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}
	time.Local = loc
	return nil
}
