package cfg

import "time"

type Cfg struct {
	// Database configuration
	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Sources
	FeedsFile string

	// Enrichment
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	EnrichTimeout  time.Duration
	EnrichMaxChars int

	// Polling
	FetchTimeout time.Duration
	PollMin      time.Duration
	PollMax      time.Duration
	WorkerCount  int

	// Status API, disabled when Port is empty
	Port         string
	APIAccessKey string
	BaseUrl      string

	// Logging
	LogFile       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
	LogCompress   bool
	LogJSON       bool

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
