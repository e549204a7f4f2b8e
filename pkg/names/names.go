// Package names resolves display names for users and for the bot itself.
//
// A non-empty group card wins over the nickname. Message events already
// carry the sender record, so resolving the sender of a message needs no
// API call; everything else goes through the bot's API.
package names

import (
	"context"
	"fmt"

	"github.com/zhufengning/extrautils/pkg/event"
	"github.com/zhufengning/extrautils/pkg/onebot"
	"github.com/zhufengning/extrautils/pkg/utils"
)

// API is the part of the bot surface name resolution needs.
type API interface {
	GetStrangerInfo(ctx context.Context, userID int64, noCache bool) (*onebot.StrangerInfo, error)
	GetGroupMemberInfo(ctx context.Context, groupID, userID int64, noCache bool) (*onebot.GroupMemberInfo, error)
}

// FetchBareName looks up the account nickname of uid.
func FetchBareName(ctx context.Context, api API, uid int64, noCache bool) (string, error) {
	info, err := api.GetStrangerInfo(ctx, uid, noCache)
	if err != nil {
		return "", fmt.Errorf("get stranger info %d: %w", uid, err)
	}
	if info == nil {
		return "", nil
	}
	return info.Nickname, nil
}

// FetchGroupName looks up uid's name inside group gid.
func FetchGroupName(ctx context.Context, api API, gid, uid int64, noCache bool) (string, error) {
	info, err := api.GetGroupMemberInfo(ctx, gid, uid, noCache)
	if err != nil {
		return "", fmt.Errorf("get group member info %d/%d: %w", gid, uid, err)
	}
	if info == nil {
		return "", nil
	}
	return info.DisplayName(), nil
}

// UserNameBare is the nickname of the event's user, ignoring any group card.
func UserNameBare(ctx context.Context, api API, ev event.Event, noCache bool) (string, error) {
	uid, ok := event.UserIDOf(ev)
	if !ok {
		return "", fmt.Errorf("%w: event has no user_id", utils.ErrMissingAttribute)
	}
	if msg := event.MessageOf(ev); msg != nil {
		return msg.Sender.Nickname, nil
	}
	return FetchBareName(ctx, api, uid, noCache)
}

// UserNameGroup is the group-scoped name of the event's user.
func UserNameGroup(ctx context.Context, api API, ev event.Event, noCache bool) (string, error) {
	e, ok := event.Deref(ev).(event.GroupEvent)
	if !ok {
		return "", fmt.Errorf("%w: event has no group_id", utils.ErrMissingAttribute)
	}
	if e.Message != nil {
		return utils.FirstNonEmpty(e.Message.Sender.Card, e.Message.Sender.Nickname), nil
	}
	return FetchGroupName(ctx, api, e.GroupID, e.UserID, noCache)
}

// UserName resolves the event's user the way a reader of that conversation
// would see it: the group name inside a group, the nickname elsewhere.
func UserName(ctx context.Context, api API, ev event.Event, noCache bool) (string, error) {
	switch event.Deref(ev).(type) {
	case event.GroupEvent:
		return UserNameGroup(ctx, api, ev, noCache)
	case event.UserEvent:
		return UserNameBare(ctx, api, ev, noCache)
	}
	return "", fmt.Errorf("%w: event has no user_id", utils.ErrMissingAttribute)
}

// SelfName resolves the bot's own name in the event's context. It always
// asks the API; embedded sender data describes the sender, not the bot.
func SelfName(ctx context.Context, api API, ev event.Event, noCache bool) (string, error) {
	ev = event.Deref(ev)
	if ev == nil {
		return "", fmt.Errorf("%w: nil event", utils.ErrInvalidArgument)
	}
	selfID := ev.Meta().SelfID
	if gid, ok := event.GroupIDOf(ev); ok {
		return FetchGroupName(ctx, api, gid, selfID, noCache)
	}
	return FetchBareName(ctx, api, selfID, noCache)
}
