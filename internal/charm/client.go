// ABOUTME: Charm KV client wrapper for cloud-synced report storage
// ABOUTME: Mirrors generated reports to the cloud with automatic SSH key auth
package charm

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"

	"github.com/harper/chatdigest/internal/models"
)

// ReportPrefix namespaces report entries in the shared KV database
const ReportPrefix = "report:"

// Config holds charm client configuration
type Config struct {
	Host     string
	DBName   string
	AutoSync bool
}

// DefaultConfig returns default configuration for charm client
func DefaultConfig() *Config {
	host := os.Getenv("CHARM_HOST")
	if host == "" {
		host = "cloud.charm.sh"
	}
	return &Config{
		Host:     host,
		DBName:   "digest",
		AutoSync: true,
	}
}

// Client wraps charm KV for report mirroring
type Client struct {
	kv     *kv.KV
	config *Config
	mu     sync.Mutex
}

// NewClient creates a new charm client with the given config
func NewClient(cfg *Config) (*Client, error) {
	// Set CHARM_HOST before opening KV
	os.Setenv("CHARM_HOST", cfg.Host)

	db, err := kv.OpenWithDefaults(cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	c := &Client{
		kv:     db,
		config: cfg,
	}

	// Pull remote data on startup
	if cfg.AutoSync {
		_ = db.Sync()
	}

	return c, nil
}

// Close closes the KV database
func (c *Client) Close() error {
	if c.kv != nil {
		err := c.kv.Close()
		c.kv = nil
		return err
	}
	return nil
}

// syncIfEnabled syncs to cloud after writes
func (c *Client) syncIfEnabled() {
	if c.config.AutoSync {
		_ = c.kv.Sync()
	}
}

// ID returns the charm user ID
func (c *Client) ID() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.ID()
}

// SaveReport mirrors a report to the cloud KV
func (c *Client) SaveReport(report models.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := c.kv.Set([]byte(ReportKey(report.ID)), data); err != nil {
		return fmt.Errorf("failed to set key %s: %w", ReportKey(report.ID), err)
	}
	c.syncIfEnabled()
	return nil
}

// GetReport retrieves a mirrored report, or nil when absent
func (c *Client) GetReport(id string) (*models.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.kv.Get([]byte(ReportKey(id)))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report %s: %w", id, err)
	}
	return &report, nil
}

// DeleteReport removes a mirrored report
func (c *Client) DeleteReport(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.kv.Delete([]byte(ReportKey(id))); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", ReportKey(id), err)
	}
	c.syncIfEnabled()
	return nil
}

// ListReportIDs returns the ids of all mirrored reports
func (c *Client) ListReportIDs() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.kv.Keys()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	var ids []string
	for _, key := range keys {
		keyStr := string(key)
		if strings.HasPrefix(keyStr, ReportPrefix) {
			ids = append(ids, strings.TrimPrefix(keyStr, ReportPrefix))
		}
	}
	return ids, nil
}

// Sync manually triggers a sync with the cloud
func (c *Client) Sync() error {
	return c.kv.Sync()
}

// Reset wipes all local data (nuclear option)
func (c *Client) Reset() error {
	return c.kv.Reset()
}

// GetAuthorizedKeys returns the list of linked devices/keys
func (c *Client) GetAuthorizedKeys() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.AuthorizedKeys()
}

// UnlinkKey removes an authorized key from the account
func (c *Client) UnlinkKey(key string) error {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.UnlinkAuthorizedKey(key)
}

// ReportKey generates the KV key for a report
func ReportKey(id string) string {
	return ReportPrefix + id
}
