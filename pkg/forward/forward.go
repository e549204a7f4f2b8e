// Package forward builds forward-message nodes and sends them as a single
// merged forward message.
package forward

import (
	"context"
	"fmt"

	"github.com/zhufengning/extrautils/pkg/event"
	"github.com/zhufengning/extrautils/pkg/message"
	"github.com/zhufengning/extrautils/pkg/names"
	"github.com/zhufengning/extrautils/pkg/onebot"
	"github.com/zhufengning/extrautils/pkg/utils"
)

// Kind is the destination of a forward message.
type Kind string

const (
	KindPrivate Kind = "private"
	KindGroup   Kind = "group"
)

// Sender is the part of the bot surface that delivers forward messages.
type Sender interface {
	SendPrivateForwardMsg(ctx context.Context, userID int64, nodes message.Message) (*onebot.ForwardResult, error)
	SendGroupForwardMsg(ctx context.Context, groupID int64, nodes message.Message) (*onebot.ForwardResult, error)
}

// API is everything SendFromSelf needs.
type API interface {
	names.API
	Sender
}

// Node makes a single forward node shown as sent by uid under name.
// content may be a message.Message, raw segment maps or a CQ string and is
// passed through untouched.
func Node(uid int64, name string, content any) message.Segment {
	return message.Segment{
		Type: "node",
		Data: map[string]any{
			"uin":     uid,
			"name":    name,
			"content": content,
		},
	}
}

// NodesFromCustom wraps each content in a node attributed to uid/name.
func NodesFromCustom(uid int64, name string, contents ...any) message.Message {
	nodes := make(message.Message, 0, len(contents))
	for _, c := range contents {
		nodes = append(nodes, Node(uid, name, c))
	}
	return nodes
}

// NodesFromSelf wraps each content in a node attributed to the bot, using
// the bot's name in the event's context.
func NodesFromSelf(ctx context.Context, api names.API, ev event.Event, contents ...any) (message.Message, error) {
	name, err := names.SelfName(ctx, api, ev, false)
	if err != nil {
		return nil, err
	}
	return NodesFromCustom(ev.Meta().SelfID, name, contents...), nil
}

// Send delivers nodes to the conversation ev came from: the group for
// group events, the user for everything else that has a user.
func Send(ctx context.Context, api Sender, ev event.Event, nodes message.Message) (*onebot.ForwardResult, error) {
	switch e := event.Deref(ev).(type) {
	case event.GroupEvent:
		return SendTo(ctx, api, KindGroup, e.GroupID, nodes)
	case event.UserEvent:
		return SendTo(ctx, api, KindPrivate, e.UserID, nodes)
	}
	return nil, fmt.Errorf("%w: event has no user_id", utils.ErrMissingAttribute)
}

// SendFromSelf is NodesFromSelf followed by Send.
func SendFromSelf(ctx context.Context, api API, ev event.Event, contents ...any) (*onebot.ForwardResult, error) {
	nodes, err := NodesFromSelf(ctx, api, ev, contents...)
	if err != nil {
		return nil, err
	}
	return Send(ctx, api, ev, nodes)
}

// SendTo delivers nodes to an explicit destination with exactly one call.
func SendTo(ctx context.Context, api Sender, kind Kind, destID int64, nodes message.Message) (*onebot.ForwardResult, error) {
	var (
		res *onebot.ForwardResult
		err error
	)
	switch kind {
	case KindPrivate:
		res, err = api.SendPrivateForwardMsg(ctx, destID, nodes)
	case KindGroup:
		res, err = api.SendGroupForwardMsg(ctx, destID, nodes)
	default:
		return nil, fmt.Errorf("%w: unknown forward destination %q", utils.ErrInvalidArgument, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("send %s forward to %d: %w", kind, destID, err)
	}
	return res, nil
}
