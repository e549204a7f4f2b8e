package onebot

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zhufengning/extrautils/pkg/event"
)

type StrangerInfo struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Sex      string `json:"sex"`
	Age      int    `json:"age"`
}

type GroupMemberInfo struct {
	GroupID  int64  `json:"group_id"`
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Card     string `json:"card"`
	Role     string `json:"role"`
	Title    string `json:"title"`
}

// DisplayName is the card when set, else the nickname.
func (m *GroupMemberInfo) DisplayName() string {
	if m.Card != "" {
		return m.Card
	}
	return m.Nickname
}

type LoginInfo struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
}

// ForwardResult is returned by the forward-message endpoints.
type ForwardResult struct {
	MessageID int64  `json:"message_id"`
	ForwardID string `json:"forward_id"`
}

func (r *ForwardResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		MessageID json.RawMessage `json:"message_id"`
		ForwardID json.RawMessage `json:"forward_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := event.ParseID(raw.MessageID)
	if err != nil {
		return err
	}
	*r = ForwardResult{MessageID: id, ForwardID: echoString(raw.ForwardID)}
	return nil
}

// APIError is a non-ok response from the OneBot implementation.
type APIError struct {
	Action  string
	Status  string
	RetCode int64
	Message string
	Wording string
}

func (e *APIError) Error() string {
	detail := e.Wording
	if detail == "" {
		detail = e.Message
	}
	if detail == "" {
		return fmt.Sprintf("onebot %s failed: status=%s retcode=%d", e.Action, e.Status, e.RetCode)
	}
	return fmt.Sprintf("onebot %s failed: status=%s retcode=%d: %s", e.Action, e.Status, e.RetCode, detail)
}

type apiRequest struct {
	Action string      `json:"action"`
	Params interface{} `json:"params"`
	Echo   string      `json:"echo,omitempty"`
}

type apiResponse struct {
	Status  string          `json:"status"`
	RetCode json.RawMessage `json:"retcode"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Wording string          `json:"wording"`
	Echo    string          `json:"echo"`
}

// frame is enough of an incoming websocket frame to tell API responses
// from events.
type frame struct {
	Echo     json.RawMessage `json:"echo"`
	PostType string          `json:"post_type"`
	Status   frameStatus     `json:"status"`
}

// frameStatus is a string on API responses and an object on heartbeat
// events.
type frameStatus struct {
	Online bool `json:"online"`
	Good   bool `json:"good"`
	Text   string
}

func (s *frameStatus) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*s = frameStatus{}
		return nil
	}

	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*s = frameStatus{Text: strings.TrimSpace(text)}
		return nil
	}

	var obj struct {
		Online bool `json:"online"`
		Good   bool `json:"good"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*s = frameStatus{Online: obj.Online, Good: obj.Good}
	return nil
}

// echoString normalizes an echo that implementations may send back as a
// string or a number.
func echoString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
