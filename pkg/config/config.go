package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so routing lists can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// Contains reports whether id is listed, ignoring surrounding whitespace.
func (f FlexibleStringSlice) Contains(id string) bool {
	id = strings.TrimSpace(id)
	for _, v := range f {
		if strings.TrimSpace(v) == id {
			return true
		}
	}
	return false
}

type Config struct {
	Log       LogConfig      `json:"log"`
	OneBot    OneBotConfig   `json:"onebot"`
	ExtraBots []OneBotConfig `json:"extra_bots"`
	Avatar    AvatarConfig   `json:"avatar"`
	mu        sync.RWMutex
}

type LogConfig struct {
	Level string `json:"level" env:"EXTRAUTILS_LOG_LEVEL"`
}

// OneBotConfig describes one websocket connection to a OneBot v11
// implementation. Users and Groups route calls to this bot when several
// bots are combined.
type OneBotConfig struct {
	Enabled           bool                `json:"enabled" env:"EXTRAUTILS_ONEBOT_ENABLED"`
	Name              string              `json:"name" env:"EXTRAUTILS_ONEBOT_NAME"`
	WSUrl             string              `json:"ws_url" env:"EXTRAUTILS_ONEBOT_WS_URL"`
	AccessToken       string              `json:"access_token" env:"EXTRAUTILS_ONEBOT_ACCESS_TOKEN"`
	ReconnectInterval int                 `json:"reconnect_interval" env:"EXTRAUTILS_ONEBOT_RECONNECT_INTERVAL"`
	APITimeoutSeconds int                 `json:"api_timeout_seconds" env:"EXTRAUTILS_ONEBOT_API_TIMEOUT_SECONDS"`
	Users             FlexibleStringSlice `json:"users" env:"EXTRAUTILS_ONEBOT_USERS"`
	Groups            FlexibleStringSlice `json:"groups" env:"EXTRAUTILS_ONEBOT_GROUPS"`
}

type AvatarConfig struct {
	Host      string `json:"host" env:"EXTRAUTILS_AVATAR_HOST"`
	OutputDir string `json:"output_dir" env:"EXTRAUTILS_AVATAR_OUTPUT_DIR"`
}

func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		OneBot: OneBotConfig{
			Enabled:           true,
			Name:              "default",
			WSUrl:             "ws://127.0.0.1:3001",
			AccessToken:       "",
			ReconnectInterval: 5,
			APITimeoutSeconds: 8,
			Users:             FlexibleStringSlice{},
			Groups:            FlexibleStringSlice{},
		},
		ExtraBots: []OneBotConfig{},
		Avatar: AvatarConfig{
			Host:      "q1.qlogo.cn",
			OutputDir: ".",
		},
	}
}

// LoadConfig reads path over the defaults and then applies environment
// overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Bots returns the primary bot followed by the extra bots, skipping
// disabled entries and entries without a ws_url.
func (c *Config) Bots() []OneBotConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all := append([]OneBotConfig{c.OneBot}, c.ExtraBots...)
	bots := make([]OneBotConfig, 0, len(all))
	for _, b := range all {
		if !b.Enabled || strings.TrimSpace(b.WSUrl) == "" {
			continue
		}
		bots = append(bots, b)
	}
	return bots
}

func (c *Config) AvatarOutputDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Avatar.OutputDir)
}

// DefaultPath is ~/.extrautils/config.json.
func DefaultPath() string {
	return expandHome(filepath.Join("~", ".extrautils", "config.json"))
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
