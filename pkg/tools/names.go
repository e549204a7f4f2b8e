package tools

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/zhufengning/extrautils/pkg/event"
	"github.com/zhufengning/extrautils/pkg/names"
	"github.com/zhufengning/extrautils/pkg/utils"
)

// NameTool resolves a user's display name, in a group when one is given.
type NameTool struct {
	api    names.API
	selfID atomic.Int64
}

func NewNameTool(api names.API) *NameTool {
	return &NameTool{api: api}
}

func (t *NameTool) Name() string  { return "name" }
func (t *NameTool) Usage() string { return "name <user_id> [group_id] [--no-cache]" }

func (t *NameTool) Description() string {
	return "Resolve a display name (group card wins over nickname)"
}

func (t *NameTool) SetSelfID(id int64) { t.selfID.Store(id) }

func (t *NameTool) Execute(ctx context.Context, args []string) (string, error) {
	args, noCache := takeFlag(args, "--no-cache", "-n")
	if len(args) < 1 || len(args) > 2 {
		return "", fmt.Errorf("%w: expected <user_id> [group_id]", utils.ErrInvalidArgument)
	}
	uid, err := parseID("user_id", args[0])
	if err != nil {
		return "", err
	}

	var ev event.Event = event.UserEvent{Header: header(t.selfID.Load()), UserID: uid}
	if len(args) == 2 {
		gid, err := parseID("group_id", args[1])
		if err != nil {
			return "", err
		}
		ev = event.GroupEvent{Header: header(t.selfID.Load()), UserID: uid, GroupID: gid}
	}
	return names.UserName(ctx, t.api, ev, noCache)
}

// SelfNameTool resolves the bot account's own name.
type SelfNameTool struct {
	api    names.API
	selfID atomic.Int64
}

func NewSelfNameTool(api names.API) *SelfNameTool {
	return &SelfNameTool{api: api}
}

func (t *SelfNameTool) Name() string        { return "selfname" }
func (t *SelfNameTool) Usage() string       { return "selfname [group_id] [--no-cache]" }
func (t *SelfNameTool) Description() string { return "Resolve the bot's own name" }

func (t *SelfNameTool) SetSelfID(id int64) { t.selfID.Store(id) }

func (t *SelfNameTool) Execute(ctx context.Context, args []string) (string, error) {
	args, noCache := takeFlag(args, "--no-cache", "-n")
	if len(args) > 1 {
		return "", fmt.Errorf("%w: expected [group_id]", utils.ErrInvalidArgument)
	}
	var groupID int64
	if len(args) == 1 {
		gid, err := parseID("group_id", args[0])
		if err != nil {
			return "", err
		}
		groupID = gid
	}
	selfID, err := resolveSelf(ctx, t.api, t.selfID.Load(), 0, groupID)
	if err != nil {
		return "", err
	}

	var ev event.Event = event.BareEvent{Header: header(selfID)}
	if groupID != 0 {
		ev = event.GroupEvent{Header: header(selfID), UserID: selfID, GroupID: groupID}
	}
	return names.SelfName(ctx, t.api, ev, noCache)
}

// header describes commands typed by the operator, which stand in for an
// incoming event.
func header(selfID int64) event.Header {
	return event.Header{PostType: "message_sent", SelfID: selfID}
}
