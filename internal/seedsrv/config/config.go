package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

type ConfigParam struct {
	ServerPort     string   `toml:"server_port" validate:"required"`
	HandleCORS     bool     `toml:"handle_cors"`
	DataDir        string   `toml:"data_dir" validate:"required"`
	CatalogFile    string   `toml:"catalog_file"`
	DefaultStock   int      `toml:"default_stock" validate:"gte=0"`
	Sandbox        bool     `toml:"sandbox"`
	PlatformURL    string   `toml:"platform_url" validate:"omitempty,url"`
	MarketplaceURL string   `toml:"marketplace_url" validate:"omitempty,url"`
	ClientID       string   `toml:"client_id"`
	Username       string   `toml:"username"`
	Password       string   `toml:"password"`
	EndpointName   string   `toml:"endpoint_name"`
	RequiredRoles  []string `toml:"required_roles"`
	HTTPTimeout    int      `toml:"http_timeout" validate:"gt=0"`
	KeySetCacheTTL int      `toml:"keyset_cache_ttl" validate:"gte=0"`
}

var cfg *ConfigParam

func Config() *ConfigParam {
	return cfg
}

func LoadConfig(filename string) error {
	cp := defaults()
	if filename != "" {
		// Read the config file
		content, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("error reading config file: %v", err)
		}
		// Parse the config file
		if _, err := toml.Decode(string(content), cp); err != nil {
			return fmt.Errorf("error parsing config file: %v", err)
		}
	}
	if err := validator.New().Struct(cp); err != nil {
		return fmt.Errorf("invalid config: %v", err)
	}
	// assign config to global cfg
	cfg = cp
	return nil
}

func defaults() *ConfigParam {
	return &ConfigParam{
		ServerPort:     "8196",
		HandleCORS:     true,
		DataDir:        ".data",
		DefaultStock:   20,
		Sandbox:        true,
		EndpointName:   "kaya-seed",
		HTTPTimeout:    10,
		KeySetCacheTTL: 300,
	}
}

// PlatformBaseURL returns the identity platform base URI, honoring the
// sandbox flag when no explicit URL is configured.
func (c *ConfigParam) PlatformBaseURL() string {
	if c.PlatformURL != "" {
		return c.PlatformURL
	}
	if c.Sandbox {
		return "https://kaya-platform.sandbox.nerd4ever.com.br"
	}
	return "https://kaya-platform.nerd4ever.com.br"
}

// MarketplaceBaseURL returns the marketplace base URI, honoring the
// sandbox flag when no explicit URL is configured.
func (c *ConfigParam) MarketplaceBaseURL() string {
	if c.MarketplaceURL != "" {
		return c.MarketplaceURL
	}
	if c.Sandbox {
		return "https://marketplace.sandbox.nerd4ever.com.br"
	}
	return "https://marketplace.nerd4ever.com.br"
}

// Timeout returns the outbound HTTP timeout as a duration.
func (c *ConfigParam) Timeout() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

// KeySetTTL returns the per-issuer key set cache TTL as a duration.
func (c *ConfigParam) KeySetTTL() time.Duration {
	return time.Duration(c.KeySetCacheTTL) * time.Second
}

func init() {
	err := LoadConfig("")
	if err != nil {
		panic(err)
	}
}
