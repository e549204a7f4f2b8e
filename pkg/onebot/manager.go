package onebot

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/zhufengning/extrautils/pkg/config"
	"github.com/zhufengning/extrautils/pkg/event"
	"github.com/zhufengning/extrautils/pkg/logger"
)

// Manager owns one Client per enabled bot in the config.
type Manager struct {
	clients []*Client
	configs []config.OneBotConfig
	mu      sync.RWMutex
}

func NewManager(cfg *config.Config) (*Manager, error) {
	bots := cfg.Bots()
	if len(bots) == 0 {
		return nil, fmt.Errorf("no OneBot connection enabled")
	}

	m := &Manager{configs: bots}
	for _, b := range bots {
		m.clients = append(m.clients, NewClient(b))
		logger.DebugCF("onebot", "Client configured", map[string]interface{}{
			"name":   b.Name,
			"ws_url": b.WSUrl,
		})
	}
	return m, nil
}

// OnEvent registers handler on every client.
func (m *Manager) OnEvent(handler func(event.Event)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.clients {
		c.OnEvent(handler)
	}
}

func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	started := 0
	var lastErr error
	for _, c := range m.clients {
		if err := c.Start(ctx); err != nil {
			logger.ErrorCF("onebot", "Failed to start client", map[string]interface{}{
				"name":  c.Name(),
				"error": err.Error(),
			})
			lastErr = err
			continue
		}
		started++
	}
	if started == 0 {
		return fmt.Errorf("no OneBot client started: %w", lastErr)
	}
	logger.InfoCF("onebot", "Clients started", map[string]interface{}{
		"started": started,
		"total":   len(m.clients),
	})
	return nil
}

func (m *Manager) StopAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.clients {
		c.Stop(ctx)
	}
}

// WaitConnected blocks until at least one client is connected and
// returns the first such client.
func (m *Manager) WaitConnected(ctx context.Context) (*Client, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		for _, c := range m.Clients() {
			if c.Connected() {
				return c, nil
			}
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for OneBot connection: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (m *Manager) Clients() []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Client(nil), m.clients...)
}

// Combination routes calls across the managed clients using the users and
// groups lists of each bot config.
func (m *Manager) Combination() (*Combination, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bots := make([]Bot, len(m.clients))
	for i, c := range m.clients {
		bots[i] = c
	}
	return NewCombination(RouteByConfig(m.configs), bots...)
}

// RouteByConfig returns a Finder that matches the group id against each
// bot's groups list first, then the user id against its users list, and
// falls back to the first bot. configs[i] describes bots[i].
func RouteByConfig(configs []config.OneBotConfig) Finder {
	return func(bots []Bot, userID, groupID int64) (Bot, error) {
		if groupID != 0 {
			gid := strconv.FormatInt(groupID, 10)
			for i, cfg := range configs {
				if i < len(bots) && cfg.Groups.Contains(gid) {
					return bots[i], nil
				}
			}
		}
		if userID != 0 {
			uid := strconv.FormatInt(userID, 10)
			for i, cfg := range configs {
				if i < len(bots) && cfg.Users.Contains(uid) {
					return bots[i], nil
				}
			}
		}
		return bots[0], nil
	}
}
