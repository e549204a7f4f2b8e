package tools

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/zhufengning/extrautils/pkg/event"
	"github.com/zhufengning/extrautils/pkg/forward"
	"github.com/zhufengning/extrautils/pkg/message"
	"github.com/zhufengning/extrautils/pkg/utils"
)

// ForwardTool sends text as a merged forward message from the bot.
// Nodes are separated by a lone "|".
type ForwardTool struct {
	api    forward.API
	selfID atomic.Int64
}

func NewForwardTool(api forward.API) *ForwardTool {
	return &ForwardTool{api: api}
}

func (t *ForwardTool) Name() string  { return "forward" }
func (t *ForwardTool) Usage() string { return "forward <user_id|group:gid> <text> [| <text>...]" }

func (t *ForwardTool) Description() string {
	return "Send a forward message, one node per |-separated text"
}

func (t *ForwardTool) SetSelfID(id int64) { t.selfID.Store(id) }

func (t *ForwardTool) Execute(ctx context.Context, args []string) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("%w: expected <user_id|group:gid> <text>", utils.ErrInvalidArgument)
	}
	userID, groupID, err := parseDestination(args[0])
	if err != nil {
		return "", err
	}
	selfID, err := resolveSelf(ctx, t.api, t.selfID.Load(), userID, groupID)
	if err != nil {
		return "", err
	}
	var ev event.Event = event.UserEvent{Header: header(selfID), UserID: userID}
	if groupID != 0 {
		ev = event.GroupEvent{Header: header(selfID), UserID: selfID, GroupID: groupID}
	}

	contents := splitNodes(args[1:])
	if len(contents) == 0 {
		return "", fmt.Errorf("%w: nothing to send", utils.ErrInvalidArgument)
	}

	res, err := forward.SendFromSelf(ctx, t.api, ev, contents...)
	if err != nil {
		return "", err
	}
	if res == nil {
		return fmt.Sprintf("Sent %d node(s)", len(contents)), nil
	}
	return fmt.Sprintf("Sent %d node(s), message_id=%d", len(contents), res.MessageID), nil
}

// parseDestination reads "group:<gid>", "private:<uid>" or a bare user id.
func parseDestination(dest string) (userID, groupID int64, err error) {
	if gid, ok := strings.CutPrefix(dest, "group:"); ok {
		groupID, err = parseID("group_id", gid)
		return 0, groupID, err
	}
	userID, err = parseID("user_id", strings.TrimPrefix(dest, "private:"))
	return userID, 0, err
}

func splitNodes(words []string) []any {
	var contents []any
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			contents = append(contents, message.Message{message.Text(strings.Join(cur, " "))})
			cur = nil
		}
	}
	for _, w := range words {
		if w == "|" {
			flush()
			continue
		}
		cur = append(cur, w)
	}
	flush()
	return contents
}
