// ABOUTME: Centralized configuration for the chat digest pipeline
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// maxCollectorAccounts caps the TELEGRAM_COLLECTOR<N>_* scan
const maxCollectorAccounts = 8

// Account holds one set of platform credentials. Owned exclusively by its
// session for the life of the process.
type Account struct {
	ID          string
	APIID       int
	APIHash     string
	Phone       string
	BotToken    string
	SessionName string
	Sources     []string // per-account source list; empty falls back to Collector.Sources
}

// Collector holds the collection and deduplication settings
type Collector struct {
	Sources        []string // global fallback source list
	SourcesFile    string   // optional YAML file overriding source lists
	MaxPerSource   int
	DedupByContent bool
	DedupByLinks   bool
	FetchTimeout   time.Duration
}

// Push holds the broadcast destination settings
type Push struct {
	ChannelUsername string
	ChannelID       int64
	UserID          int64
}

// AI holds the generation backend settings
type AI struct {
	Provider    string // "deepseek", "openai" or "gemini"
	APIKey      string
	BaseURL     string
	ChatModel   string
	GeminiKey   string
	GeminiModel string
	Temperature float32
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
	TokenBudget int
}

// Config holds all configuration for the digest system
type Config struct {
	// Accounts
	MainAccount Account
	Collectors  []Account

	Collector Collector
	Push      Push
	AI        AI

	// Storage and delivery
	DBPath    string
	VaultPath string

	// Dashboard
	DashboardAddr string

	// Charm settings
	CharmHost   string
	CharmDBName string
	AutoSync    bool

	// Fetched-link scraping
	ReaderBaseURL string
	MaxLinks      int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		MainAccount: loadAccount("main", "TELEGRAM_MAIN"),
		Collector: Collector{
			Sources:        splitList(os.Getenv("MONITORED_CHATS")),
			SourcesFile:    os.Getenv("SOURCES_FILE"),
			MaxPerSource:   getEnvInt("MAX_MESSAGES_PER_CHAT", 100),
			DedupByContent: getEnvBool("DEDUP_BY_CONTENT", true),
			DedupByLinks:   getEnvBool("DEDUP_BY_URL", true),
			FetchTimeout:   getEnvDuration("FETCH_TIMEOUT", 2*time.Minute),
		},
		Push: Push{
			ChannelUsername: os.Getenv("TELEGRAM_CHANNEL_USERNAME"),
			ChannelID:       getEnvInt64("TELEGRAM_CHANNEL_ID", 0),
			UserID:          getEnvInt64("TELEGRAM_USER_ID", 0),
		},
		AI: AI{
			Provider:    getEnv("AI_PROVIDER", "deepseek"),
			APIKey:      os.Getenv("DEEPSEEK_API_KEY"),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.deepseek.com"),
			ChatModel:   getEnv("AI_CHAT_MODEL", "deepseek-chat"),
			GeminiKey:   os.Getenv("GEMINI_API_KEY"),
			GeminiModel: getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Temperature: float32(getEnvFloat("AI_TEMPERATURE", 0.3)),
			Timeout:     getEnvDuration("AI_TIMEOUT", 60*time.Second),
			MaxRetries:  getEnvInt("AI_MAX_RETRIES", 3),
			RetryDelay:  getEnvDuration("AI_RETRY_DELAY", 2*time.Second),
			TokenBudget: getEnvInt("TOKEN_BUDGET", 100000),
		},
		DBPath:        getEnv("DIGEST_DB_PATH", "data/digest.db"),
		VaultPath:     os.Getenv("OBSIDIAN_VAULT_PATH"),
		DashboardAddr: getEnv("DASHBOARD_ADDR", ":8787"),
		CharmHost:     getEnv("CHARM_HOST", "cloud.charm.sh"),
		CharmDBName:   getEnv("CHARM_DB", "digest"),
		AutoSync:      getEnvBool("CHARM_AUTO_SYNC", false),
		ReaderBaseURL: getEnv("JINA_READER_BASE_URL", "https://r.jina.ai/"),
		MaxLinks:      getEnvInt("MAX_LINKS_PER_MESSAGE", 3),
	}

	for i := 1; i <= maxCollectorAccounts; i++ {
		prefix := fmt.Sprintf("TELEGRAM_COLLECTOR%d", i)
		if os.Getenv(prefix+"_API_ID") == "" && os.Getenv(prefix+"_BOT_TOKEN") == "" {
			continue
		}
		cfg.Collectors = append(cfg.Collectors, loadAccount(fmt.Sprintf("collector%d", i), prefix))
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration invariants that are fatal at call entry
func (c *Config) Validate() error {
	if c.AI.TokenBudget <= 0 {
		return fmt.Errorf("TOKEN_BUDGET must be positive, got %d", c.AI.TokenBudget)
	}
	if c.AI.MaxRetries < 0 || c.AI.MaxRetries > 10 {
		return fmt.Errorf("AI_MAX_RETRIES must be 0-10, got %d", c.AI.MaxRetries)
	}
	switch c.AI.Provider {
	case "deepseek", "openai", "gemini":
	default:
		return fmt.Errorf("AI_PROVIDER must be deepseek, openai or gemini, got %q", c.AI.Provider)
	}
	if c.Collector.MaxPerSource <= 0 {
		return fmt.Errorf("MAX_MESSAGES_PER_CHAT must be positive, got %d", c.Collector.MaxPerSource)
	}
	return nil
}

// PushDestination returns the configured broadcast destination identifier,
// or "" when none is configured
func (c *Config) PushDestination() string {
	if c.Push.ChannelUsername != "" {
		return c.Push.ChannelUsername
	}
	if c.Push.ChannelID != 0 {
		return strconv.FormatInt(c.Push.ChannelID, 10)
	}
	if c.Push.UserID != 0 {
		return strconv.FormatInt(c.Push.UserID, 10)
	}
	return ""
}

func loadAccount(id, prefix string) Account {
	return Account{
		ID:          id,
		APIID:       getEnvInt(prefix+"_API_ID", 0),
		APIHash:     os.Getenv(prefix + "_API_HASH"),
		Phone:       os.Getenv(prefix + "_PHONE"),
		BotToken:    os.Getenv(prefix + "_BOT_TOKEN"),
		SessionName: getEnv(prefix+"_SESSION", id+"_session"),
		Sources:     splitList(os.Getenv(prefix + "_CHATS")),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
