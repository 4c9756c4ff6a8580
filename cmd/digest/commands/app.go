// ABOUTME: Shared wiring for CLI commands
// ABOUTME: Builds config, sessions, orchestrator, storage and pipeline
package commands

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/harper/chatdigest/internal/collector"
	"github.com/harper/chatdigest/internal/config"
	"github.com/harper/chatdigest/internal/dedup"
	"github.com/harper/chatdigest/internal/digest"
	"github.com/harper/chatdigest/internal/llm"
	"github.com/harper/chatdigest/internal/platform/botapi"
	"github.com/harper/chatdigest/internal/session"
	"github.com/harper/chatdigest/internal/storage/sqlite"
)

// requestTimeout bounds individual platform API calls
const requestTimeout = 30 * time.Second

// loadConfig reads .env, the environment, and the optional sources file
func loadConfig() (*config.Config, error) {
	// Load .env file if it exists (for tokens and API keys)
	if err := godotenv.Load(); err != nil && verbose {
		log.Printf("No .env file found (this is okay for production): %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	if cfg.Collector.SourcesFile != "" {
		sources, err := config.LoadSources(cfg.Collector.SourcesFile)
		if err != nil {
			return nil, fmt.Errorf("loading sources file: %w", err)
		}
		cfg.ApplySources(sources)
	}

	return cfg, nil
}

// buildOrchestrator creates a session per collector account plus the
// primary broadcast session. Accounts without a bot token are skipped.
func buildOrchestrator(cfg *config.Config) (*collector.Orchestrator, error) {
	auth := session.NewTerminalAuthenticator()

	var sessions []*session.Session
	for _, acct := range cfg.Collectors {
		if acct.BotToken == "" {
			log.Printf("[cli] Account %s has no bot token, skipping", acct.ID)
			continue
		}
		client := botapi.NewClient(acct.BotToken, requestTimeout)
		sessions = append(sessions, session.New(acct, client, auth))
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no collector accounts configured")
	}

	var primary *session.Session
	if cfg.MainAccount.BotToken != "" {
		client := botapi.NewClient(cfg.MainAccount.BotToken, requestTimeout)
		primary = session.New(cfg.MainAccount, client, auth)
	}

	policy := dedup.Policy{
		ByContent: cfg.Collector.DedupByContent,
		ByLinks:   cfg.Collector.DedupByLinks,
	}
	return collector.New(sessions, primary, cfg.Collector.Sources, policy), nil
}

// openStorage opens the configured SQLite database
func openStorage(cfg *config.Config) (*sqlite.Storage, error) {
	store, err := sqlite.NewStorageWithPath(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

// buildPipeline creates the generation backend and digest pipeline
func buildPipeline(cfg *config.Config) (*digest.Pipeline, error) {
	backend, err := llm.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing generation backend: %w", err)
	}
	if verbose {
		log.Printf("[cli] Using %s backend", backend.Name())
	}
	return digest.NewPipeline(backend, cfg.AI.Temperature, cfg.AI.TokenBudget), nil
}
