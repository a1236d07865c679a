package assets

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	pkgerrors "github.com/brandinbox/brandinbox-backend/pkg/errors"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
)

const (
	maxAssetBytes      int64 = 100 << 20
	rehostConcurrency        = 4
	defaultContentType       = "application/octet-stream"
)

// ObjectUploader is the slice of the storage bucket the rehoster needs.
type ObjectUploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// Rehoster copies externally hosted asset URLs into owned storage so
// persisted listings never reference ephemeral third-party hosts.
type Rehoster struct {
	httpClient *http.Client
	uploader   ObjectUploader
	keyPrefix  string
	logg       *logger.Logger
}

// Option configures optional rehoster behavior.
type Option func(*Rehoster)

// WithHTTPClient overrides the download client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Rehoster) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// NewRehoster builds a rehoster writing under keyPrefix in the bucket.
func NewRehoster(uploader ObjectUploader, keyPrefix string, logg *logger.Logger, opts ...Option) (*Rehoster, error) {
	if uploader == nil {
		return nil, fmt.Errorf("object uploader required")
	}
	rehoster := &Rehoster{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		uploader:   uploader,
		keyPrefix:  strings.Trim(strings.TrimSpace(keyPrefix), "/"),
		logg:       logg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(rehoster)
		}
	}
	return rehoster, nil
}

// Rehost downloads the asset and re-uploads it to owned storage, returning
// the durable URL.
func (r *Rehoster) Rehost(ctx context.Context, rawURL string) (string, error) {
	if r == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "rehoster not configured")
	}
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "asset url is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trimmed, nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build asset download request")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "download asset")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d fetching %s", resp.StatusCode, trimmed), "download asset")
	}

	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = defaultContentType
	}

	key := r.objectKey(trimmed, contentType)
	durable, err := r.uploader.Upload(ctx, key, contentType, io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload asset")
	}
	return durable, nil
}

// RehostMany copies each URL concurrently, best-effort: the returned slice
// holds the durable URLs that succeeded in their original order, and the
// error aggregates the failures. A partial result with a non-nil error is
// the expected outcome when some assets are gone.
func (r *Rehoster) RehostMany(ctx context.Context, urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	durable := make([]string, len(urls))
	failures := make([]error, len(urls))

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(rehostConcurrency)

	for i, rawURL := range urls {
		i, rawURL := i, rawURL
		group.Go(func() error {
			hosted, err := r.Rehost(groupCtx, rawURL)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[i] = fmt.Errorf("rehost %s: %w", rawURL, err)
				// Failures are collected, never returned: one dead asset must
				// not cancel the group and sink the rest.
				return nil
			}
			durable[i] = hosted
			return nil
		})
	}
	_ = group.Wait()

	var combined error
	kept := make([]string, 0, len(urls))
	for i := range urls {
		if failures[i] != nil {
			combined = multierr.Append(combined, failures[i])
			continue
		}
		kept = append(kept, durable[i])
	}

	if combined != nil && r.logg != nil {
		r.logg.Warn(r.logg.WithField(ctx, "failed", len(multierr.Errors(combined))), "some assets could not be rehosted")
	}
	return kept, combined
}

// objectKey derives a collision-free key, keeping a recognizable extension.
func (r *Rehoster) objectKey(rawURL, contentType string) string {
	ext := ""
	if parsed, err := url.Parse(rawURL); err == nil {
		ext = path.Ext(parsed.Path)
	}
	if ext == "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}

	key := uuid.NewString() + ext
	if r.keyPrefix != "" {
		return r.keyPrefix + "/" + key
	}
	return key
}
