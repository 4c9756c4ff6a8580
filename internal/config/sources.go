// ABOUTME: YAML sources file with global and per-account source lists
// ABOUTME: Supports hot reload via fsnotify with a polling fallback
package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

const sourcesPollInterval = 30 * time.Second

// Sources is the parsed sources file. When present it overrides the
// env-derived source lists: Accounts[id] overrides that account's list and
// Global overrides the shared fallback.
type Sources struct {
	Global   []string            `yaml:"global"`
	Accounts map[string][]string `yaml:"accounts"`
}

// LoadSources parses a sources YAML file
func LoadSources(path string) (*Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var s Sources
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, err)
	}
	return &s, nil
}

// ApplySources merges a sources file into the config, replacing the global
// list and any per-account lists it names
func (c *Config) ApplySources(s *Sources) {
	if s == nil {
		return
	}
	if len(s.Global) > 0 {
		c.Collector.Sources = append([]string(nil), s.Global...)
	}
	for i := range c.Collectors {
		if list, ok := s.Accounts[c.Collectors[i].ID]; ok {
			c.Collectors[i].Sources = append([]string(nil), list...)
		}
	}
}

// WatchSources reloads the sources file on change and invokes onReload with
// the fresh parse. Blocks until ctx is done. Falls back to polling when an
// fsnotify watcher cannot be established.
func WatchSources(ctx context.Context, path string, onReload func(*Sources)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("[config] fsnotify unavailable, polling %s: %v", path, err)
		return pollSources(ctx, path, onReload)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(path); err != nil {
		log.Printf("[config] cannot watch %s, polling: %v", path, err)
		return pollSources(ctx, path, onReload)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s, err := LoadSources(path)
			if err != nil {
				log.Printf("[config] reload of %s failed, keeping previous lists: %v", path, err)
				continue
			}
			log.Printf("[config] sources reloaded from %s", path)
			onReload(s)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[config] watch error on %s: %v", path, err)
		}
	}
}

func pollSources(ctx context.Context, path string, onReload func(*Sources)) error {
	var lastMod time.Time
	if fi, err := os.Stat(path); err == nil {
		lastMod = fi.ModTime()
	}

	ticker := time.NewTicker(sourcesPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fi, err := os.Stat(path)
			if err != nil || !fi.ModTime().After(lastMod) {
				continue
			}
			lastMod = fi.ModTime()
			s, err := LoadSources(path)
			if err != nil {
				log.Printf("[config] reload of %s failed, keeping previous lists: %v", path, err)
				continue
			}
			onReload(s)
		}
	}
}
