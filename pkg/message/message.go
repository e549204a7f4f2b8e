package message

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Segment is one OneBot v11 message segment, e.g.
// {"type":"text","data":{"text":"hi"}}.
type Segment struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Message is an ordered list of segments. It marshals as the OneBot
// array format.
type Message []Segment

func Text(text string) Segment {
	return Segment{Type: "text", Data: map[string]any{"text": text}}
}

func At(qq int64) Segment {
	return Segment{Type: "at", Data: map[string]any{"qq": strconv.FormatInt(qq, 10)}}
}

func AtAll() Segment {
	return Segment{Type: "at", Data: map[string]any{"qq": "all"}}
}

func Image(file string) Segment {
	return Segment{Type: "image", Data: map[string]any{"file": file}}
}

func Reply(messageID string) Segment {
	return Segment{Type: "reply", Data: map[string]any{"id": messageID}}
}

// DataString returns the named data field as a string. Numbers are
// rendered without a fractional part when they are integral.
func (s Segment) DataString(key string) string {
	if s.Data == nil {
		return ""
	}
	switch v := s.Data[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// PlainText concatenates the text segments.
func (m Message) PlainText() string {
	var b strings.Builder
	for _, seg := range m {
		if seg.Type == "text" {
			if t, ok := seg.Data["text"].(string); ok {
				b.WriteString(t)
			}
		}
	}
	return b.String()
}

// CQString renders the message in the legacy CQ-code string form.
// Data keys are written in sorted order.
func (m Message) CQString() string {
	var b strings.Builder
	for _, seg := range m {
		if seg.Type == "text" {
			t, _ := seg.Data["text"].(string)
			b.WriteString(EscapeCQ(t, false))
			continue
		}
		b.WriteString("[CQ:")
		b.WriteString(seg.Type)
		keys := make([]string, 0, len(seg.Data))
		for k := range seg.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte(',')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(EscapeCQ(seg.DataString(k), true))
		}
		b.WriteByte(']')
	}
	return b.String()
}

var cqPattern = regexp.MustCompile(`\[CQ:([a-zA-Z0-9_.-]+)((?:,[^\]]*)?)\]`)

// ParseCQ splits a CQ-code string into segments. Text between codes
// becomes text segments; escapes are decoded.
func ParseCQ(content string) Message {
	matches := cqPattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		if content == "" {
			return Message{}
		}
		return Message{Text(UnescapeCQ(content))}
	}

	msg := make(Message, 0, len(matches)+1)
	cursor := 0
	for _, m := range matches {
		if m[0] > cursor {
			msg = append(msg, Text(UnescapeCQ(content[cursor:m[0]])))
		}

		segType := content[m[2]:m[3]]
		data := map[string]any{}
		if m[4] >= 0 && m[5] > m[4] {
			for _, item := range strings.Split(content[m[4]+1:m[5]], ",") {
				parts := strings.SplitN(item, "=", 2)
				if len(parts) != 2 {
					continue
				}
				key := strings.TrimSpace(parts[0])
				if key == "" {
					continue
				}
				data[key] = UnescapeCQ(parts[1])
			}
		}
		msg = append(msg, Segment{Type: segType, Data: data})
		cursor = m[1]
	}
	if cursor < len(content) {
		msg = append(msg, Text(UnescapeCQ(content[cursor:])))
	}
	return msg
}

// Decode accepts the two wire forms of a message: a CQ-code string or a
// segment array.
func Decode(raw json.RawMessage) (Message, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return Message{}, nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return ParseCQ(s), nil
	}

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return msg, nil
}

var (
	cqEscaper      = strings.NewReplacer("&", "&amp;", "[", "&#91;", "]", "&#93;")
	cqParamEscaper = strings.NewReplacer("&", "&amp;", "[", "&#91;", "]", "&#93;", ",", "&#44;")
	cqUnescaper    = strings.NewReplacer("&#44;", ",", "&#91;", "[", "&#93;", "]", "&amp;", "&")
)

// EscapeCQ escapes s for use in a CQ string; inParam also escapes commas.
func EscapeCQ(s string, inParam bool) string {
	if inParam {
		return cqParamEscaper.Replace(s)
	}
	return cqEscaper.Replace(s)
}

func UnescapeCQ(s string) string {
	return cqUnescaper.Replace(s)
}
