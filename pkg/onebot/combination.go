package onebot

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhufengning/extrautils/pkg/message"
	"github.com/zhufengning/extrautils/pkg/utils"
)

// Bot is the API surface the name and forward helpers call. *Client and
// *Combination both implement it.
type Bot interface {
	GetStrangerInfo(ctx context.Context, userID int64, noCache bool) (*StrangerInfo, error)
	GetGroupMemberInfo(ctx context.Context, groupID, userID int64, noCache bool) (*GroupMemberInfo, error)
	SendPrivateForwardMsg(ctx context.Context, userID int64, nodes message.Message) (*ForwardResult, error)
	SendGroupForwardMsg(ctx context.Context, groupID int64, nodes message.Message) (*ForwardResult, error)
}

// Finder picks the bot that should serve a call. userID or groupID is 0
// when the call does not carry it.
type Finder func(bots []Bot, userID, groupID int64) (Bot, error)

// Combination presents several bot accounts as one Bot, routing every
// call through a Finder.
type Combination struct {
	bots []Bot
	find Finder
}

func NewCombination(find Finder, bots ...Bot) (*Combination, error) {
	if find == nil {
		return nil, fmt.Errorf("%w: nil finder", utils.ErrInvalidArgument)
	}
	if len(bots) == 0 {
		return nil, fmt.Errorf("%w: combination needs at least one bot", utils.ErrInvalidArgument)
	}
	for i, b := range bots {
		if b == nil {
			return nil, fmt.Errorf("%w: bot %d is nil", utils.ErrInvalidArgument, i)
		}
	}
	return &Combination{bots: bots, find: find}, nil
}

// FirstBot is a Finder that always picks the first bot.
func FirstBot(bots []Bot, _, _ int64) (Bot, error) {
	return bots[0], nil
}

func (c *Combination) Bots() []Bot {
	return append([]Bot(nil), c.bots...)
}

// SelfID identifies the combination by its members' ids.
func (c *Combination) SelfID() string {
	ids := make([]string, 0, len(c.bots))
	for i, b := range c.bots {
		if s, ok := b.(interface{ SelfIDString() string }); ok {
			ids = append(ids, s.SelfIDString())
		} else {
			ids = append(ids, fmt.Sprintf("bot%d", i))
		}
	}
	return "botcombination__" + strings.Join(ids, "~")
}

// SelfIDFor returns the account id of the bot that serves userID/groupID,
// asking that bot for its login info when the id is not known yet.
func (c *Combination) SelfIDFor(ctx context.Context, userID, groupID int64) (int64, error) {
	b, err := c.pick(userID, groupID)
	if err != nil {
		return 0, err
	}
	if s, ok := b.(interface{ SelfID() int64 }); ok {
		if id := s.SelfID(); id != 0 {
			return id, nil
		}
	}
	if l, ok := b.(interface {
		GetLoginInfo(ctx context.Context) (*LoginInfo, error)
	}); ok {
		info, err := l.GetLoginInfo(ctx)
		if err != nil {
			return 0, err
		}
		if info.UserID != 0 {
			return info.UserID, nil
		}
	}
	return 0, fmt.Errorf("%w: bot account id is unknown", utils.ErrMissingAttribute)
}

func (c *Combination) pick(userID, groupID int64) (Bot, error) {
	b, err := c.find(c.bots, userID, groupID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("no bot for user %d group %d", userID, groupID)
	}
	return b, nil
}

func (c *Combination) GetStrangerInfo(ctx context.Context, userID int64, noCache bool) (*StrangerInfo, error) {
	b, err := c.pick(userID, 0)
	if err != nil {
		return nil, err
	}
	return b.GetStrangerInfo(ctx, userID, noCache)
}

func (c *Combination) GetGroupMemberInfo(ctx context.Context, groupID, userID int64, noCache bool) (*GroupMemberInfo, error) {
	b, err := c.pick(userID, groupID)
	if err != nil {
		return nil, err
	}
	return b.GetGroupMemberInfo(ctx, groupID, userID, noCache)
}

func (c *Combination) SendPrivateForwardMsg(ctx context.Context, userID int64, nodes message.Message) (*ForwardResult, error) {
	b, err := c.pick(userID, 0)
	if err != nil {
		return nil, err
	}
	return b.SendPrivateForwardMsg(ctx, userID, nodes)
}

func (c *Combination) SendGroupForwardMsg(ctx context.Context, groupID int64, nodes message.Message) (*ForwardResult, error) {
	b, err := c.pick(0, groupID)
	if err != nil {
		return nil, err
	}
	return b.SendGroupForwardMsg(ctx, groupID, nodes)
}
