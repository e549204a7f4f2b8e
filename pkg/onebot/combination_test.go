package onebot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zhufengning/extrautils/pkg/config"
	"github.com/zhufengning/extrautils/pkg/message"
	"github.com/zhufengning/extrautils/pkg/utils"
)

type stubBot struct {
	id    string
	calls []string
}

func (s *stubBot) SelfIDString() string { return s.id }

func (s *stubBot) GetStrangerInfo(ctx context.Context, userID int64, noCache bool) (*StrangerInfo, error) {
	s.calls = append(s.calls, "get_stranger_info")
	return &StrangerInfo{UserID: userID, Nickname: s.id}, nil
}

func (s *stubBot) GetGroupMemberInfo(ctx context.Context, groupID, userID int64, noCache bool) (*GroupMemberInfo, error) {
	s.calls = append(s.calls, "get_group_member_info")
	return &GroupMemberInfo{GroupID: groupID, UserID: userID, Nickname: s.id}, nil
}

func (s *stubBot) SendPrivateForwardMsg(ctx context.Context, userID int64, nodes message.Message) (*ForwardResult, error) {
	s.calls = append(s.calls, "send_private_forward_msg")
	return &ForwardResult{}, nil
}

func (s *stubBot) SendGroupForwardMsg(ctx context.Context, groupID int64, nodes message.Message) (*ForwardResult, error) {
	s.calls = append(s.calls, "send_group_forward_msg")
	return &ForwardResult{}, nil
}

type knownBot struct {
	*stubBot
	self int64
}

func (k *knownBot) SelfID() int64 { return k.self }

type loginBot struct {
	*stubBot
	self int64
}

func (l *loginBot) GetLoginInfo(ctx context.Context) (*LoginInfo, error) {
	l.calls = append(l.calls, "get_login_info")
	return &LoginInfo{UserID: l.self}, nil
}

func TestNewCombination_Validates(t *testing.T) {
	if _, err := NewCombination(FirstBot); !errors.Is(err, utils.ErrInvalidArgument) {
		t.Fatalf("error = %v, want ErrInvalidArgument", err)
	}
	if _, err := NewCombination(nil, &stubBot{}); !errors.Is(err, utils.ErrInvalidArgument) {
		t.Fatalf("error = %v, want ErrInvalidArgument", err)
	}
	if _, err := NewCombination(FirstBot, Bot(nil)); !errors.Is(err, utils.ErrInvalidArgument) {
		t.Fatalf("error = %v, want ErrInvalidArgument", err)
	}
}

func TestCombination_SelfID(t *testing.T) {
	comb, err := NewCombination(FirstBot, &stubBot{id: "10001"}, &stubBot{id: "10002"})
	if err != nil {
		t.Fatalf("NewCombination() error = %v", err)
	}
	if got := comb.SelfID(); got != "botcombination__10001~10002" {
		t.Fatalf("SelfID() = %q, want %q", got, "botcombination__10001~10002")
	}
}

func TestCombination_RoutesByConfig(t *testing.T) {
	a := &stubBot{id: "a"}
	b := &stubBot{id: "b"}
	configs := []config.OneBotConfig{
		{Name: "a"},
		{Name: "b", Users: config.FlexibleStringSlice{"222"}, Groups: config.FlexibleStringSlice{"111"}},
	}
	comb, err := NewCombination(RouteByConfig(configs), a, b)
	if err != nil {
		t.Fatalf("NewCombination() error = %v", err)
	}
	ctx := context.Background()

	info, err := comb.GetStrangerInfo(ctx, 222, false)
	if err != nil || info.Nickname != "b" {
		t.Fatalf("stranger info routed to %+v (err %v), want bot b", info, err)
	}
	if _, err := comb.SendGroupForwardMsg(ctx, 111, nil); err != nil {
		t.Fatalf("SendGroupForwardMsg() error = %v", err)
	}
	if _, err := comb.SendPrivateForwardMsg(ctx, 333, nil); err != nil {
		t.Fatalf("SendPrivateForwardMsg() error = %v", err)
	}
	member, err := comb.GetGroupMemberInfo(ctx, 999, 222, false)
	if err != nil || member.Nickname != "b" {
		t.Fatalf("member info routed to %+v (err %v), want bot b via user list", member, err)
	}

	if len(a.calls) != 1 || a.calls[0] != "send_private_forward_msg" {
		t.Fatalf("bot a calls = %v, want only the unrouted private send", a.calls)
	}
	if len(b.calls) != 3 {
		t.Fatalf("bot b calls = %v, want 3", b.calls)
	}
}

func TestCombination_FinderError(t *testing.T) {
	wantErr := errors.New("no route")
	comb, err := NewCombination(func([]Bot, int64, int64) (Bot, error) { return nil, wantErr }, &stubBot{})
	if err != nil {
		t.Fatalf("NewCombination() error = %v", err)
	}
	if _, err := comb.GetStrangerInfo(context.Background(), 1, false); !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}
}

func TestManager_BuildsCombination(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ExtraBots = []config.OneBotConfig{{Enabled: true, Name: "second", WSUrl: "ws://127.0.0.1:3002"}}

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if len(m.Clients()) != 2 {
		t.Fatalf("client count = %d, want 2", len(m.Clients()))
	}
	comb, err := m.Combination()
	if err != nil {
		t.Fatalf("Combination() error = %v", err)
	}
	if got := comb.SelfID(); got != "botcombination__default~second" {
		t.Fatalf("SelfID() = %q", got)
	}
}

func TestManager_NoBots(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OneBot.Enabled = false
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected error when no bot is enabled")
	}
}

func TestManager_StartAllAndWaitConnected(t *testing.T) {
	f := newFakeOneBot(t, func(action string, params map[string]interface{}) (string, interface{}) {
		return "ok", map[string]interface{}{"user_id": 10001, "nickname": "bot"}
	})
	cfg := config.DefaultConfig()
	cfg.OneBot.WSUrl = f.wsURL()
	cfg.OneBot.ReconnectInterval = 0

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if err := m.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	defer m.StopAll(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := m.WaitConnected(ctx)
	if err != nil {
		t.Fatalf("WaitConnected() error = %v", err)
	}
	info, err := c.GetLoginInfo(ctx)
	if err != nil {
		t.Fatalf("GetLoginInfo() error = %v", err)
	}
	if info.UserID != 10001 || c.SelfID() != 10001 {
		t.Fatalf("login = %+v, SelfID() = %d", info, c.SelfID())
	}
}

func TestManager_WaitConnectedTimesOut(t *testing.T) {
	cfg := config.DefaultConfig()
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	if _, err := m.WaitConnected(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WaitConnected() error = %v, want deadline exceeded", err)
	}
}

func TestCombination_SelfIDForRoutedBot(t *testing.T) {
	a := &knownBot{stubBot: &stubBot{id: "a"}, self: 10001}
	b := &loginBot{stubBot: &stubBot{id: "b"}, self: 20002}
	configs := []config.OneBotConfig{
		{Name: "a"},
		{Name: "b", Groups: config.FlexibleStringSlice{"111"}},
	}
	comb, err := NewCombination(RouteByConfig(configs), a, b)
	if err != nil {
		t.Fatalf("NewCombination() error = %v", err)
	}
	ctx := context.Background()

	if id, err := comb.SelfIDFor(ctx, 0, 111); err != nil || id != 20002 {
		t.Fatalf("SelfIDFor(group 111) = %d, %v; want 20002", id, err)
	}
	if id, err := comb.SelfIDFor(ctx, 222, 0); err != nil || id != 10001 {
		t.Fatalf("SelfIDFor(user 222) = %d, %v; want 10001", id, err)
	}

	unknown, err := NewCombination(FirstBot, &stubBot{id: "c"})
	if err != nil {
		t.Fatalf("NewCombination() error = %v", err)
	}
	if _, err := unknown.SelfIDFor(ctx, 0, 0); !errors.Is(err, utils.ErrMissingAttribute) {
		t.Fatalf("SelfIDFor() error = %v, want ErrMissingAttribute", err)
	}
}
