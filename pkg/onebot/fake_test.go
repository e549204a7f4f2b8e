package onebot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

type recordedCall struct {
	Action string
	Params map[string]interface{}
}

// fakeOneBot is a minimal OneBot v11 implementation answering API calls
// over a websocket.
type fakeOneBot struct {
	server   *httptest.Server
	upgrader websocket.Upgrader
	reply    func(action string, params map[string]interface{}) (string, interface{})

	mu         sync.Mutex
	calls      []recordedCall
	authHeader string
	conn       *websocket.Conn
	writeMu    sync.Mutex
	connected  chan struct{}
}

func newFakeOneBot(t *testing.T, reply func(action string, params map[string]interface{}) (string, interface{})) *fakeOneBot {
	t.Helper()
	f := &fakeOneBot{reply: reply, connected: make(chan struct{}, 1)}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeOneBot) wsURL() string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http")
}

func (f *fakeOneBot) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	f.mu.Lock()
	f.authHeader = r.Header.Get("Authorization")
	f.conn = conn
	f.mu.Unlock()
	select {
	case f.connected <- struct{}{}:
	default:
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req struct {
			Action string                 `json:"action"`
			Params map[string]interface{} `json:"params"`
			Echo   string                 `json:"echo"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			continue
		}

		f.mu.Lock()
		f.calls = append(f.calls, recordedCall{Action: req.Action, Params: req.Params})
		f.mu.Unlock()

		if f.reply == nil {
			continue
		}
		status, data := f.reply(req.Action, req.Params)
		if status == "" {
			continue
		}
		resp := map[string]interface{}{
			"status":  status,
			"retcode": 0,
			"data":    data,
			"echo":    req.Echo,
		}
		if status != "ok" {
			resp["retcode"] = 100
			resp["wording"] = "member not found"
		}
		f.push(resp)
	}
}

func (f *fakeOneBot) push(v interface{}) {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		return
	}
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	conn.WriteJSON(v)
}

func (f *fakeOneBot) recorded() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

// drop closes the server side of the current connection.
func (f *fakeOneBot) drop() {
	f.mu.Lock()
	conn := f.conn
	f.conn = nil
	f.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}
