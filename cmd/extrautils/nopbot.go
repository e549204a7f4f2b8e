package main

import (
	"context"
	"errors"

	"github.com/zhufengning/extrautils/pkg/message"
	"github.com/zhufengning/extrautils/pkg/onebot"
)

var errOffline = errors.New("this command needs a OneBot connection")

// nopBot stands in for a bot handle when running offline commands.
type nopBot struct{}

func (nopBot) GetStrangerInfo(context.Context, int64, bool) (*onebot.StrangerInfo, error) {
	return nil, errOffline
}

func (nopBot) GetGroupMemberInfo(context.Context, int64, int64, bool) (*onebot.GroupMemberInfo, error) {
	return nil, errOffline
}

func (nopBot) SendPrivateForwardMsg(context.Context, int64, message.Message) (*onebot.ForwardResult, error) {
	return nil, errOffline
}

func (nopBot) SendGroupForwardMsg(context.Context, int64, message.Message) (*onebot.ForwardResult, error) {
	return nil, errOffline
}
