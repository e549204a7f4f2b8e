// Package event models OneBot v11 events as a closed set of variants.
//
// Which ids an event carries is encoded in its type: BareEvent only knows
// the bot's own id, UserEvent adds the user, GroupEvent adds the group.
// Message-style events additionally carry a MessageInfo with the sender
// data embedded by the protocol implementation.
package event

import (
	"github.com/zhufengning/extrautils/pkg/message"
)

// Event is implemented by BareEvent, UserEvent and GroupEvent only.
type Event interface {
	Meta() Header
	isEvent()
}

// Header holds the fields every event has.
type Header struct {
	PostType   string // message, notice, request, meta_event
	DetailType string // message_type, notice_type, request_type or meta_event_type
	SubType    string
	Time       int64
	SelfID     int64
}

func (h Header) Meta() Header { return h }

// Sender is the sender record embedded in message events. Card is the
// group-scoped name and is empty outside groups.
type Sender struct {
	UserID   int64
	Nickname string
	Card     string
	Role     string
}

// MessageInfo is present only on message-style events.
type MessageInfo struct {
	MessageID  string
	Sender     Sender
	Message    message.Message
	RawMessage string
}

type BareEvent struct {
	Header
}

type UserEvent struct {
	Header
	UserID  int64
	Message *MessageInfo
}

type GroupEvent struct {
	Header
	UserID  int64
	GroupID int64
	Message *MessageInfo
}

func (BareEvent) isEvent()  {}
func (UserEvent) isEvent()  {}
func (GroupEvent) isEvent() {}

// Deref turns pointer variants into values so callers can switch on the
// value types only. A nil pointer yields nil.
func Deref(ev Event) Event {
	switch e := ev.(type) {
	case *BareEvent:
		if e != nil {
			return *e
		}
		return nil
	case *UserEvent:
		if e != nil {
			return *e
		}
		return nil
	case *GroupEvent:
		if e != nil {
			return *e
		}
		return nil
	}
	return ev
}

// UserIDOf returns the user id carried by ev, if any.
func UserIDOf(ev Event) (int64, bool) {
	switch e := Deref(ev).(type) {
	case UserEvent:
		return e.UserID, true
	case GroupEvent:
		return e.UserID, true
	}
	return 0, false
}

// GroupIDOf returns the group id carried by ev, if any.
func GroupIDOf(ev Event) (int64, bool) {
	if e, ok := Deref(ev).(GroupEvent); ok {
		return e.GroupID, true
	}
	return 0, false
}

// MessageOf returns the embedded message data of a message-style event,
// or nil.
func MessageOf(ev Event) *MessageInfo {
	switch e := Deref(ev).(type) {
	case UserEvent:
		return e.Message
	case GroupEvent:
		return e.Message
	}
	return nil
}
