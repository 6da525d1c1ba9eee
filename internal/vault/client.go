package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/api"

	"momentum-screener/config"
)

// ProviderCredentials represents data-provider credentials stored in Vault
type ProviderCredentials struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
	BaseURL  string `json:"base_url,omitempty"`
}

// Client wraps the HashiCorp Vault client. When Vault is disabled it
// degrades to an in-memory store so local development works without a
// running Vault.
type Client struct {
	client *api.Client
	config config.VaultConfig
	mu     sync.RWMutex
	cache  map[string]*ProviderCredentials // provider -> credentials
}

// NewClient creates a new Vault client
func NewClient(cfg config.VaultConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{
			config: cfg,
			cache:  make(map[string]*ProviderCredentials),
		}, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSEnabled && cfg.CACert != "" {
		tlsConfig := &api.TLSConfig{
			CACert: cfg.CACert,
		}
		if err := vaultConfig.ConfigureTLS(tlsConfig); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(cfg.Token)

	return &Client{
		client: client,
		config: cfg,
		cache:  make(map[string]*ProviderCredentials),
	}, nil
}

// StoreCredentials stores data-provider credentials in Vault
func (c *Client) StoreCredentials(ctx context.Context, creds ProviderCredentials) error {
	if !c.config.Enabled {
		c.mu.Lock()
		c.cache[creds.Provider] = &creds
		c.mu.Unlock()
		return nil
	}

	path := c.secretPath(creds.Provider)
	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"provider": creds.Provider,
			"api_key":  creds.APIKey,
			"base_url": creds.BaseURL,
		},
	}

	if _, err := c.client.Logical().WriteWithContext(ctx, path, secretData); err != nil {
		return fmt.Errorf("failed to store credentials in vault: %w", err)
	}

	c.mu.Lock()
	c.cache[creds.Provider] = &creds
	c.mu.Unlock()
	return nil
}

// GetCredentials retrieves data-provider credentials from Vault,
// falling back to the local cache on a hit.
func (c *Client) GetCredentials(ctx context.Context, provider string) (*ProviderCredentials, error) {
	c.mu.RLock()
	if cached, ok := c.cache[provider]; ok {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	if !c.config.Enabled {
		return nil, fmt.Errorf("credentials for %s not found and vault is disabled", provider)
	}

	secret, err := c.client.Logical().ReadWithContext(ctx, c.secretPath(provider))
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("credentials for %s not found", provider)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format")
	}

	creds := &ProviderCredentials{
		Provider: getString(data, "provider"),
		APIKey:   getString(data, "api_key"),
		BaseURL:  getString(data, "base_url"),
	}

	c.mu.Lock()
	c.cache[provider] = creds
	c.mu.Unlock()
	return creds, nil
}

// DeleteCredentials removes stored credentials for a provider
func (c *Client) DeleteCredentials(ctx context.Context, provider string) error {
	c.mu.Lock()
	delete(c.cache, provider)
	c.mu.Unlock()

	if !c.config.Enabled {
		return nil
	}

	if _, err := c.client.Logical().DeleteWithContext(ctx, c.secretPath(provider)); err != nil {
		return fmt.Errorf("failed to delete credentials from vault: %w", err)
	}
	return nil
}

func (c *Client) secretPath(provider string) string {
	mount := c.config.MountPath
	if mount == "" {
		mount = "secret"
	}
	base := c.config.SecretPath
	if base == "" {
		base = "momentum-screener/providers"
	}
	return fmt.Sprintf("%s/data/%s/%s", mount, base, provider)
}

func getString(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
