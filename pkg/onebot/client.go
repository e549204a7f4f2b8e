package onebot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhufengning/extrautils/pkg/config"
	"github.com/zhufengning/extrautils/pkg/event"
	"github.com/zhufengning/extrautils/pkg/logger"
	"github.com/zhufengning/extrautils/pkg/message"
	"github.com/zhufengning/extrautils/pkg/utils"
)

const defaultAPITimeout = 8 * time.Second

// ErrDisconnected is returned by calls whose connection closed before the
// response arrived.
var ErrDisconnected = errors.New("OneBot WebSocket disconnected")

// Client is a OneBot v11 connection over a forward websocket. It issues
// API calls correlated by echo and hands incoming events to the handler
// registered with OnEvent.
type Client struct {
	config     config.OneBotConfig
	conn       *websocket.Conn
	dropped    chan struct{} // closed when conn goes away
	ctx        context.Context
	cancel     context.CancelFunc
	running    atomic.Bool
	selfID     atomic.Int64
	handler    func(event.Event)
	apiTimeout time.Duration
	mu         sync.Mutex
	writeMu    sync.Mutex
	apiWaitMu  sync.Mutex
	apiWaiters map[string]chan apiResponse
}

func NewClient(cfg config.OneBotConfig) *Client {
	timeout := time.Duration(cfg.APITimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultAPITimeout
	}
	return &Client{
		config:     cfg,
		apiTimeout: timeout,
		apiWaiters: make(map[string]chan apiResponse),
	}
}

func (c *Client) Name() string {
	if c.config.Name != "" {
		return c.config.Name
	}
	return c.config.WSUrl
}

// OnEvent registers the event handler. It must be called before Start.
func (c *Client) OnEvent(handler func(event.Event)) {
	c.handler = handler
}

// SelfID is the bot account id, learned from incoming events or from
// GetLoginInfo. It is 0 until one of those has happened.
func (c *Client) SelfID() int64 {
	return c.selfID.Load()
}

func (c *Client) IsRunning() bool {
	return c.running.Load()
}

// Connected reports whether the websocket is currently up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) Start(ctx context.Context) error {
	if c.config.WSUrl == "" {
		return fmt.Errorf("OneBot ws_url not configured")
	}

	logger.InfoCF("onebot", "Starting OneBot client", map[string]interface{}{
		"name":   c.Name(),
		"ws_url": c.config.WSUrl,
	})

	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.connect(); err != nil {
		if c.config.ReconnectInterval <= 0 {
			c.cancel()
			return fmt.Errorf("connect to OneBot: %w", err)
		}
		logger.WarnCF("onebot", "Initial connection failed, will retry in background", map[string]interface{}{
			"name":  c.Name(),
			"error": err.Error(),
		})
	} else {
		go c.listen()
	}

	if c.config.ReconnectInterval > 0 {
		go c.reconnectLoop()
	}

	c.running.Store(true)
	return nil
}

func (c *Client) connect() error {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	header := make(map[string][]string)
	if c.config.AccessToken != "" {
		header["Authorization"] = []string{"Bearer " + c.config.AccessToken}
	}

	conn, _, err := dialer.DialContext(c.ctx, c.config.WSUrl, header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.dropped = make(chan struct{})
	c.mu.Unlock()

	logger.InfoCF("onebot", "WebSocket connected", map[string]interface{}{
		"name": c.Name(),
	})
	return nil
}

func (c *Client) reconnectLoop() {
	interval := time.Duration(c.config.ReconnectInterval) * time.Second
	if interval < time.Second {
		interval = time.Second
	}

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-time.After(interval):
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()

			if conn == nil {
				logger.InfoCF("onebot", "Attempting to reconnect", map[string]interface{}{
					"name": c.Name(),
				})
				if err := c.connect(); err != nil {
					logger.ErrorCF("onebot", "Reconnect failed", map[string]interface{}{
						"name":  c.Name(),
						"error": err.Error(),
					})
				} else {
					go c.listen()
				}
			}
		}
	}
}

func (c *Client) Stop(ctx context.Context) error {
	logger.InfoCF("onebot", "Stopping OneBot client", map[string]interface{}{
		"name": c.Name(),
	})
	c.running.Store(false)

	if c.cancel != nil {
		c.cancel()
	}

	c.mu.Lock()
	c.dropConnLocked(c.conn)
	c.mu.Unlock()

	return nil
}

// Call issues one API action and decodes the response data into out when
// out is non-nil. If ctx has no deadline the configured API timeout
// applies.
func (c *Client) Call(ctx context.Context, action string, params interface{}, out interface{}) error {
	c.mu.Lock()
	conn, dropped := c.conn, c.dropped
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("OneBot WebSocket not connected")
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.apiTimeout)
		defer cancel()
	}

	echo := action + "_" + uuid.NewString()
	waiter := make(chan apiResponse, 1)

	c.apiWaitMu.Lock()
	c.apiWaiters[echo] = waiter
	c.apiWaitMu.Unlock()

	defer func() {
		c.apiWaitMu.Lock()
		delete(c.apiWaiters, echo)
		c.apiWaitMu.Unlock()
	}()

	payload, err := json.Marshal(apiRequest{
		Action: action,
		Params: params,
		Echo:   echo,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal OneBot API request: %w", err)
	}

	logger.DebugCF("onebot", "Calling API", map[string]interface{}{
		"action":  action,
		"echo":    echo,
		"payload": utils.Truncate(string(payload), 200),
	})

	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to write OneBot API request: %w", err)
	}

	var done <-chan struct{}
	if c.ctx != nil {
		done = c.ctx.Done()
	}

	select {
	case resp := <-waiter:
		return decodeResponse(action, resp, out)
	case <-dropped:
		select {
		case resp := <-waiter:
			return decodeResponse(action, resp, out)
		default:
		}
		return fmt.Errorf("OneBot API %s: %w", action, ErrDisconnected)
	case <-ctx.Done():
		return fmt.Errorf("OneBot API %s: %w", action, ctx.Err())
	case <-done:
		return fmt.Errorf("OneBot client stopped")
	}
}

func decodeResponse(action string, resp apiResponse, out interface{}) error {
	status := strings.ToLower(strings.TrimSpace(resp.Status))
	retcode, _ := event.ParseID(resp.RetCode)
	if status != "ok" && status != "async" {
		return &APIError{
			Action:  action,
			Status:  resp.Status,
			RetCode: retcode,
			Message: resp.Message,
			Wording: resp.Wording,
		}
	}
	if out == nil || len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", action, err)
	}
	return nil
}

func (c *Client) listen() {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()

			if conn == nil {
				logger.WarnC("onebot", "WebSocket connection is nil, listener exiting")
				return
			}

			_, payload, err := conn.ReadMessage()
			if err != nil {
				if c.ctx.Err() == nil {
					logger.ErrorCF("onebot", "WebSocket read error", map[string]interface{}{
						"name":  c.Name(),
						"error": err.Error(),
					})
				}
				c.mu.Lock()
				c.dropConnLocked(conn)
				c.mu.Unlock()
				return
			}

			c.handleFrame(payload)
		}
	}
}

// dropConnLocked closes conn if it is still the current connection and
// wakes every call waiting on it. c.mu must be held.
func (c *Client) dropConnLocked(conn *websocket.Conn) {
	if conn == nil || c.conn != conn {
		return
	}
	c.conn.Close()
	c.conn = nil
	if c.dropped != nil {
		close(c.dropped)
		c.dropped = nil
	}
}

func (c *Client) handleFrame(payload []byte) {
	var f frame
	if err := json.Unmarshal(payload, &f); err != nil {
		logger.WarnCF("onebot", "Failed to unmarshal frame", map[string]interface{}{
			"error":   err.Error(),
			"payload": utils.Truncate(string(payload), 200),
		})
		return
	}

	if echo := echoString(f.Echo); echo != "" && f.PostType == "" {
		c.dispatchAPIResponse(echo, f, payload)
		return
	}

	ev, err := event.Parse(payload)
	if err != nil {
		logger.DebugCF("onebot", "Dropping unparseable event", map[string]interface{}{
			"post_type": f.PostType,
			"error":     err.Error(),
		})
		return
	}
	c.selfID.Store(ev.Meta().SelfID)

	if c.handler != nil {
		go c.handler(ev)
	}
}

func (c *Client) dispatchAPIResponse(echo string, f frame, payload []byte) {
	var resp apiResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		resp = apiResponse{}
	}
	resp.Echo = echo
	if resp.Status == "" {
		resp.Status = f.Status.Text
	}

	c.apiWaitMu.Lock()
	waiter := c.apiWaiters[echo]
	c.apiWaitMu.Unlock()
	if waiter == nil {
		logger.DebugCF("onebot", "Response without waiter", map[string]interface{}{
			"echo": echo,
		})
		return
	}

	select {
	case waiter <- resp:
	default:
	}
}

func (c *Client) GetStrangerInfo(ctx context.Context, userID int64, noCache bool) (*StrangerInfo, error) {
	var info StrangerInfo
	err := c.Call(ctx, "get_stranger_info", map[string]interface{}{
		"user_id":  userID,
		"no_cache": noCache,
	}, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) GetGroupMemberInfo(ctx context.Context, groupID, userID int64, noCache bool) (*GroupMemberInfo, error) {
	var info GroupMemberInfo
	err := c.Call(ctx, "get_group_member_info", map[string]interface{}{
		"group_id": groupID,
		"user_id":  userID,
		"no_cache": noCache,
	}, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) SendPrivateForwardMsg(ctx context.Context, userID int64, nodes message.Message) (*ForwardResult, error) {
	var res ForwardResult
	err := c.Call(ctx, "send_private_forward_msg", map[string]interface{}{
		"user_id":  userID,
		"messages": nodes,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) SendGroupForwardMsg(ctx context.Context, groupID int64, nodes message.Message) (*ForwardResult, error) {
	var res ForwardResult
	err := c.Call(ctx, "send_group_forward_msg", map[string]interface{}{
		"group_id": groupID,
		"messages": nodes,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// GetLoginInfo also records the bot's own id.
func (c *Client) GetLoginInfo(ctx context.Context) (*LoginInfo, error) {
	var info LoginInfo
	if err := c.Call(ctx, "get_login_info", map[string]interface{}{}, &info); err != nil {
		return nil, err
	}
	if info.UserID != 0 {
		c.selfID.Store(info.UserID)
	}
	return &info, nil
}

// SelfIDString is SelfID in decimal, or the client name when the id is
// not known yet.
func (c *Client) SelfIDString() string {
	if id := c.SelfID(); id != 0 {
		return strconv.FormatInt(id, 10)
	}
	return c.Name()
}
