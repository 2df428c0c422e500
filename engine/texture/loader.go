package texture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	// Decoders registered with image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ImageLoader resolves a card image reference into a decoded image.
type ImageLoader interface {
	// Load fetches and decodes the image at src.
	//
	// Parameters:
	//   - ctx: cancels the fetch
	//   - src: an http(s) URL, a file:// URL or a filesystem path
	//
	// Returns:
	//   - image.Image: the decoded image
	//   - error: any fetch or decode failure
	Load(ctx context.Context, src string) (image.Image, error)
}

// DefaultMaxImageBytes caps how much of an image body URLLoader reads.
const DefaultMaxImageBytes = 32 << 20

// ErrImageTooLarge is returned when an image body exceeds the loader's byte limit.
var ErrImageTooLarge = errors.New("texture: image exceeds size limit")

// URLLoader loads images over HTTP(S) or from the local filesystem.
type URLLoader struct {
	Client *http.Client
	// MaxBytes limits the encoded image size, <= 0 means DefaultMaxImageBytes.
	MaxBytes int64
}

var _ ImageLoader = &URLLoader{}

// NewURLLoader creates a URLLoader whose HTTP requests give up after timeout.
//
// Parameters:
//   - timeout: per-request timeout (<= 0 defaults to 10s)
//
// Returns:
//   - *URLLoader: the loader
func NewURLLoader(timeout time.Duration) *URLLoader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &URLLoader{Client: &http.Client{Timeout: timeout}}
}

func (l *URLLoader) Load(ctx context.Context, src string) (image.Image, error) {
	if src == "" {
		return nil, fmt.Errorf("empty image source")
	}
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return l.fetch(ctx, src)
	}

	f, err := os.Open(strings.TrimPrefix(src, "file://"))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return l.decode(src, f)
}

// decode reads at most the byte limit from r and decodes it.
func (l *URLLoader) decode(src string, r io.Reader) (image.Image, error) {
	limit := l.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxImageBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s: %w (%d bytes)", src, ErrImageTooLarge, limit)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", src, err)
	}
	return img, nil
}

func (l *URLLoader) fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}
	return l.decode(url, resp.Body)
}
