package event

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/zhufengning/extrautils/pkg/utils"
)

func TestParse_GroupMessage(t *testing.T) {
	payload := []byte(`{
		"post_type":"message","message_type":"group","sub_type":"normal",
		"message_id":9001,"self_id":10000,"user_id":"222","group_id":111,"time":1700000000,
		"message":[{"type":"text","data":{"text":"hello"}}],"raw_message":"hello",
		"sender":{"user_id":222,"nickname":"B","card":"A","role":"member"}
	}`)

	ev, err := Parse(payload)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	g, ok := ev.(GroupEvent)
	if !ok {
		t.Fatalf("event type = %T, want GroupEvent", ev)
	}
	if g.SelfID != 10000 || g.UserID != 222 || g.GroupID != 111 {
		t.Fatalf("ids = %d/%d/%d, want 10000/222/111", g.SelfID, g.UserID, g.GroupID)
	}
	if g.DetailType != "group" || g.Time != 1700000000 {
		t.Fatalf("header = %+v", g.Header)
	}
	if g.Message == nil {
		t.Fatal("expected embedded message info")
	}
	if g.Message.MessageID != "9001" {
		t.Fatalf("message_id = %q, want %q", g.Message.MessageID, "9001")
	}
	if g.Message.Sender.Card != "A" || g.Message.Sender.Nickname != "B" {
		t.Fatalf("sender = %+v", g.Message.Sender)
	}
	if g.Message.Message.PlainText() != "hello" {
		t.Fatalf("text = %q, want %q", g.Message.Message.PlainText(), "hello")
	}
}

func TestParse_PrivateMessageWithCQString(t *testing.T) {
	payload := []byte(`{
		"post_type":"message","message_type":"private","self_id":"10000","user_id":222,
		"message":"hi[CQ:face,id=1]","sender":{"nickname":"B"}
	}`)

	ev, err := Parse(payload)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	u, ok := ev.(UserEvent)
	if !ok {
		t.Fatalf("event type = %T, want UserEvent", ev)
	}
	if u.Message == nil || len(u.Message.Message) != 2 {
		t.Fatalf("message = %+v, want 2 segments", u.Message)
	}
	if _, ok := GroupIDOf(ev); ok {
		t.Fatal("private event must not carry a group id")
	}
}

func TestParse_NoticeVariants(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name:    "group increase",
			payload: `{"post_type":"notice","notice_type":"group_increase","self_id":10000,"user_id":222,"group_id":111}`,
			want:    "group",
		},
		{
			name:    "friend add",
			payload: `{"post_type":"notice","notice_type":"friend_add","self_id":10000,"user_id":222}`,
			want:    "user",
		},
		{
			name:    "heartbeat",
			payload: `{"post_type":"meta_event","meta_event_type":"heartbeat","self_id":10000,"status":{"online":true}}`,
			want:    "bare",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Parse([]byte(tt.payload))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			var got string
			switch e := ev.(type) {
			case GroupEvent:
				got = "group"
				if e.Message != nil {
					t.Fatal("notice must not carry message info")
				}
			case UserEvent:
				got = "user"
			case BareEvent:
				got = "bare"
			}
			if got != tt.want {
				t.Fatalf("variant = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParse_MissingAttributes(t *testing.T) {
	_, err := Parse([]byte(`{"post_type":"message","message_type":"private","self_id":10000}`))
	if !errors.Is(err, utils.ErrMissingAttribute) {
		t.Fatalf("error = %v, want ErrMissingAttribute", err)
	}

	_, err = Parse([]byte(`{"post_type":"notice","user_id":222}`))
	if !errors.Is(err, utils.ErrMissingAttribute) {
		t.Fatalf("error = %v, want ErrMissingAttribute", err)
	}

	if _, err := Parse([]byte(`{`)); err == nil {
		t.Fatal("expected decode error, got nil")
	}
}

func TestParseID(t *testing.T) {
	tests := map[string]int64{
		`123`:     123,
		`"456"`:   456,
		`null`:    0,
		``:        0,
		`" 789 "`: 789,
	}
	for in, want := range tests {
		got, err := ParseID(json.RawMessage(in))
		if err != nil {
			t.Fatalf("ParseID(%s) error = %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseID(%s) = %d, want %d", in, got, want)
		}
	}
	if _, err := ParseID(json.RawMessage(`"abc"`)); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
}

func TestDerefAndAccessors(t *testing.T) {
	ev := &GroupEvent{Header: Header{SelfID: 1}, UserID: 2, GroupID: 3}

	if _, ok := Deref(ev).(GroupEvent); !ok {
		t.Fatalf("Deref() type = %T, want GroupEvent", Deref(ev))
	}
	if uid, ok := UserIDOf(ev); !ok || uid != 2 {
		t.Fatalf("UserIDOf() = %d, %v", uid, ok)
	}
	if gid, ok := GroupIDOf(ev); !ok || gid != 3 {
		t.Fatalf("GroupIDOf() = %d, %v", gid, ok)
	}
	if _, ok := UserIDOf(BareEvent{}); ok {
		t.Fatal("BareEvent must not carry a user id")
	}
	if MessageOf(ev) != nil {
		t.Fatal("expected nil message info")
	}
}
