// Package avatar builds and downloads QQ avatar images.
package avatar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/zhufengning/extrautils/pkg/utils"
)

type Size int

const (
	SizeSmall  Size = 40
	SizeMedium Size = 100
	SizeLarge  Size = 640
)

const (
	DefaultHost = "q1.qlogo.cn"

	// MinUID is the smallest account number accepted; lower numbers are
	// reserved.
	MinUID = 10000
)

// ID is a user id in numeric or decimal string form.
type ID interface {
	~int | ~int64 | ~string
}

func (s Size) Valid() bool {
	return s == SizeSmall || s == SizeMedium || s == SizeLarge
}

// ParseSize accepts "small", "medium", "large" or the pixel value.
func ParseSize(s string) (Size, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "large", "big":
		return SizeLarge, nil
	case "medium":
		return SizeMedium, nil
	case "small":
		return SizeSmall, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || !Size(n).Valid() {
		return 0, sizeError(s)
	}
	return Size(n), nil
}

func sizeError(v any) error {
	return fmt.Errorf("%w: unsupported avatar size %v (use %d, %d or %d)",
		utils.ErrInvalidArgument, v, SizeSmall, SizeMedium, SizeLarge)
}

// normalizeUID coerces uid to an integer and checks it against MinUID.
func normalizeUID[T ID](uid T) (int64, error) {
	var n int64
	switch v := any(uid).(type) {
	case int:
		n = int64(v)
	case int64:
		n = v
	default:
		s := fmt.Sprint(uid)
		if s == "" || strings.TrimLeft(s, "0123456789") != "" {
			return 0, fmt.Errorf("%w: invalid uid %q", utils.ErrInvalidArgument, s)
		}
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid uid %q", utils.ErrInvalidArgument, s)
		}
		n = parsed
	}
	if n < MinUID {
		return 0, fmt.Errorf("%w: invalid uid %d", utils.ErrInvalidArgument, n)
	}
	return n, nil
}

// Fetcher downloads avatars from Host. The zero value uses DefaultHost and
// a fresh HTTP client per call.
type Fetcher struct {
	Host string
	// Scheme defaults to https.
	Scheme string
	// HTTPClient, when set, is wrapped by the per-call client.
	HTTPClient *http.Client
}

var defaultFetcher = &Fetcher{}

// URL returns the avatar URL for uid at size. It performs no I/O.
func URL[T ID](uid T, size Size) (string, error) {
	return buildURL(defaultFetcher, uid, size)
}

// Fetch downloads the avatar image for uid at size.
func Fetch[T ID](ctx context.Context, uid T, size Size) ([]byte, error) {
	return FetchWith(ctx, defaultFetcher, uid, size)
}

// SaveTemp downloads the avatar into a temporary file. The caller closes
// the returned file; with keep set the file outlives Close.
func SaveTemp[T ID](ctx context.Context, uid T, size Size, keep bool) (*utils.TmpFile, error) {
	return SaveTempWith(ctx, defaultFetcher, uid, size, keep)
}

// URLWith is URL against a specific Fetcher's host.
func URLWith[T ID](f *Fetcher, uid T, size Size) (string, error) {
	return buildURL(f, uid, size)
}

func buildURL[T ID](f *Fetcher, uid T, size Size) (string, error) {
	if !size.Valid() {
		return "", sizeError(int(size))
	}
	n, err := normalizeUID(uid)
	if err != nil {
		return "", err
	}

	host := f.Host
	if host == "" {
		host = DefaultHost
	}
	scheme := f.Scheme
	if scheme == "" {
		scheme = "https"
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     "/g",
		RawQuery: fmt.Sprintf("b=qq&nk=%d&s=%d", n, int(size)),
	}
	return u.String(), nil
}

// FetchWith is Fetch against a specific Fetcher.
func FetchWith[T ID](ctx context.Context, f *Fetcher, uid T, size Size) ([]byte, error) {
	avatarURL, err := buildURL(f, uid, size)
	if err != nil {
		return nil, err
	}

	var client *resty.Client
	if f.HTTPClient != nil {
		hc := *f.HTTPClient
		client = resty.NewWithClient(&hc)
	} else {
		client = resty.New()
		// Per-call transport; release its idle connections on return.
		defer client.GetClient().CloseIdleConnections()
	}
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	resp, err := client.R().SetContext(ctx).Get(avatarURL)
	if err != nil {
		return nil, fmt.Errorf("fetch avatar: %w", err)
	}
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &StatusError{URL: avatarURL, StatusCode: resp.StatusCode()}
	}
	return resp.Body(), nil
}

func SaveTempWith[T ID](ctx context.Context, f *Fetcher, uid T, size Size, keep bool) (*utils.TmpFile, error) {
	data, err := FetchWith(ctx, f, uid, size)
	if err != nil {
		return nil, err
	}
	tmp, err := utils.NewTmpFile(fmt.Sprintf("avatar-%v-", uid), ".jpg", keep)
	if err != nil {
		return nil, err
	}
	if err := tmp.WriteBytes(data); err != nil {
		tmp.Keep = false
		tmp.Close()
		return nil, err
	}
	return tmp, nil
}

// StatusError reports a non-2xx avatar response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch avatar %s: unexpected status %d", e.URL, e.StatusCode)
}
