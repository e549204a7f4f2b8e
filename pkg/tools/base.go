package tools

import (
	"context"
	"fmt"

	"github.com/zhufengning/extrautils/pkg/utils"
)

// Tool is a named helper command. args are the words after the command
// name, already split.
type Tool interface {
	Name() string
	Usage() string
	Description() string
	Execute(ctx context.Context, args []string) (string, error)
}

// EventTool is an optional interface for tools that act on behalf of the
// bot account and need its id.
type EventTool interface {
	Tool
	SetSelfID(id int64)
}

// SelfLocator is implemented by bot handles that route across accounts and
// can tell which account serves a destination.
type SelfLocator interface {
	SelfIDFor(ctx context.Context, userID, groupID int64) (int64, error)
}

// resolveSelf picks the account id acting for userID/groupID: the one api
// routes to when it can say, else fallback.
func resolveSelf(ctx context.Context, api any, fallback, userID, groupID int64) (int64, error) {
	if l, ok := api.(SelfLocator); ok {
		id, err := l.SelfIDFor(ctx, userID, groupID)
		if err != nil {
			return 0, err
		}
		if id != 0 {
			return id, nil
		}
	}
	if fallback == 0 {
		return 0, fmt.Errorf("%w: bot account id is unknown", utils.ErrMissingAttribute)
	}
	return fallback, nil
}
