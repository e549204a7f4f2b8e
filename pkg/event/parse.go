package event

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/zhufengning/extrautils/pkg/message"
	"github.com/zhufengning/extrautils/pkg/utils"
)

type rawEvent struct {
	PostType      string          `json:"post_type"`
	MessageType   string          `json:"message_type"`
	NoticeType    string          `json:"notice_type"`
	RequestType   string          `json:"request_type"`
	MetaEventType string          `json:"meta_event_type"`
	SubType       string          `json:"sub_type"`
	MessageID     json.RawMessage `json:"message_id"`
	UserID        json.RawMessage `json:"user_id"`
	GroupID       json.RawMessage `json:"group_id"`
	SelfID        json.RawMessage `json:"self_id"`
	Time          json.RawMessage `json:"time"`
	RawMessage    string          `json:"raw_message"`
	Message       json.RawMessage `json:"message"`
	Sender        json.RawMessage `json:"sender"`
}

type rawSender struct {
	UserID   json.RawMessage `json:"user_id"`
	Nickname string          `json:"nickname"`
	Card     string          `json:"card"`
	Role     string          `json:"role"`
}

// Parse decodes one OneBot v11 event frame into its variant. It is the
// boundary where attribute presence is checked; past this point the type
// says which ids exist.
func Parse(payload []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if raw.PostType == "" {
		return nil, fmt.Errorf("%w: post_type", utils.ErrMissingAttribute)
	}

	selfID, err := ParseID(raw.SelfID)
	if err != nil {
		return nil, fmt.Errorf("parse self_id: %w (raw: %s)", err, string(raw.SelfID))
	}
	if selfID == 0 {
		return nil, fmt.Errorf("%w: self_id", utils.ErrMissingAttribute)
	}

	ts, _ := ParseID(raw.Time)
	header := Header{
		PostType:   raw.PostType,
		DetailType: detailType(&raw),
		SubType:    raw.SubType,
		Time:       ts,
		SelfID:     selfID,
	}

	userID, err := ParseID(raw.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user_id: %w (raw: %s)", err, string(raw.UserID))
	}
	groupID, err := ParseID(raw.GroupID)
	if err != nil {
		return nil, fmt.Errorf("parse group_id: %w (raw: %s)", err, string(raw.GroupID))
	}

	var info *MessageInfo
	if raw.PostType == "message" || raw.PostType == "message_sent" {
		if userID == 0 {
			return nil, fmt.Errorf("%w: user_id on message event", utils.ErrMissingAttribute)
		}
		info, err = parseMessageInfo(&raw)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case userID != 0 && groupID != 0:
		return GroupEvent{Header: header, UserID: userID, GroupID: groupID, Message: info}, nil
	case userID != 0:
		return UserEvent{Header: header, UserID: userID, Message: info}, nil
	default:
		return BareEvent{Header: header}, nil
	}
}

func detailType(raw *rawEvent) string {
	switch raw.PostType {
	case "message", "message_sent":
		return raw.MessageType
	case "notice":
		return raw.NoticeType
	case "request":
		return raw.RequestType
	case "meta_event":
		return raw.MetaEventType
	}
	return ""
}

func parseMessageInfo(raw *rawEvent) (*MessageInfo, error) {
	msg, err := message.Decode(raw.Message)
	if err != nil {
		return nil, err
	}
	if len(msg) == 0 && strings.TrimSpace(raw.RawMessage) != "" {
		msg = message.ParseCQ(raw.RawMessage)
	}

	info := &MessageInfo{
		MessageID:  parseJSONString(raw.MessageID),
		Message:    msg,
		RawMessage: raw.RawMessage,
	}

	if len(raw.Sender) > 0 && string(raw.Sender) != "null" {
		var sender rawSender
		if err := json.Unmarshal(raw.Sender, &sender); err != nil {
			return nil, fmt.Errorf("decode sender: %w", err)
		}
		senderID, _ := ParseID(sender.UserID)
		info.Sender = Sender{
			UserID:   senderID,
			Nickname: sender.Nickname,
			Card:     sender.Card,
			Role:     sender.Role,
		}
	}
	return info, nil
}

// ParseID reads an id that may be encoded as a JSON number or a decimal
// string. Absent or null ids are 0.
func ParseID(raw json.RawMessage) (int64, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return 0, nil
	}

	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseInt(s, 10, 64)
	}
	return 0, fmt.Errorf("cannot parse as int64: %s", trimmed)
}

func parseJSONString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
