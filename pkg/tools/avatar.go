package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/zhufengning/extrautils/pkg/avatar"
	"github.com/zhufengning/extrautils/pkg/utils"
)

// AvatarTool downloads an avatar to disk.
type AvatarTool struct {
	fetcher   *avatar.Fetcher
	outputDir string
}

func NewAvatarTool(fetcher *avatar.Fetcher, outputDir string) *AvatarTool {
	if fetcher == nil {
		fetcher = &avatar.Fetcher{}
	}
	return &AvatarTool{fetcher: fetcher, outputDir: outputDir}
}

func (t *AvatarTool) Name() string  { return "avatar" }
func (t *AvatarTool) Usage() string { return "avatar <uid> [size] [-o file]" }

func (t *AvatarTool) Description() string {
	return "Download a QQ avatar (size 40, 100 or 640; default 640)"
}

func (t *AvatarTool) Execute(ctx context.Context, args []string) (string, error) {
	args, out, err := takeOption(args, "-o", "--output")
	if err != nil {
		return "", err
	}
	uid, size, err := uidAndSize(args)
	if err != nil {
		return "", err
	}

	data, err := avatar.FetchWith(ctx, t.fetcher, uid, size)
	if err != nil {
		return "", err
	}

	if out == "" {
		out = filepath.Join(t.outputDir, fmt.Sprintf("%s_%d.jpg", uid, size))
	}
	if dir := filepath.Dir(out); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return "", fmt.Errorf("write avatar: %w", err)
	}
	return fmt.Sprintf("Saved %s to %s", humanize.Bytes(uint64(len(data))), out), nil
}

// URLTool prints an avatar URL without downloading it.
type URLTool struct {
	fetcher *avatar.Fetcher
}

func NewURLTool(fetcher *avatar.Fetcher) *URLTool {
	if fetcher == nil {
		fetcher = &avatar.Fetcher{}
	}
	return &URLTool{fetcher: fetcher}
}

func (t *URLTool) Name() string        { return "url" }
func (t *URLTool) Usage() string       { return "url <uid> [size]" }
func (t *URLTool) Description() string { return "Print the avatar URL" }

func (t *URLTool) Execute(ctx context.Context, args []string) (string, error) {
	uid, size, err := uidAndSize(args)
	if err != nil {
		return "", err
	}
	return avatar.URLWith(t.fetcher, uid, size)
}

func uidAndSize(args []string) (string, avatar.Size, error) {
	if len(args) < 1 || len(args) > 2 {
		return "", 0, fmt.Errorf("%w: expected <uid> [size]", utils.ErrInvalidArgument)
	}
	size := avatar.SizeLarge
	if len(args) == 2 {
		var err error
		if size, err = avatar.ParseSize(args[1]); err != nil {
			return "", 0, err
		}
	}
	return args[0], size, nil
}
