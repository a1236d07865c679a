package assets

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"go.uber.org/multierr"

	"github.com/brandinbox/brandinbox-backend/pkg/logger"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type fakeUploader struct {
	mu      sync.Mutex
	uploads map[string]string // key -> content type
	failKey string
}

func (f *fakeUploader) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failKey != "" && strings.Contains(key, f.failKey) {
		return "", io.ErrUnexpectedEOF
	}
	if f.uploads == nil {
		f.uploads = make(map[string]string)
	}
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	f.uploads[key] = contentType
	return "https://storage.googleapis.com/bucket/" + key, nil
}

func newTestRehoster(t *testing.T, uploader *fakeUploader, rt roundTripFunc) *Rehoster {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	rehoster, err := NewRehoster(uploader, "generated", logg, WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("building rehoster: %v", err)
	}
	return rehoster
}

func serveAssets(t *testing.T) roundTripFunc {
	t.Helper()
	return func(req *http.Request) (*http.Response, error) {
		if strings.Contains(req.URL.Path, "missing") {
			return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader("gone"))}, nil
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"image/png"}},
			Body:       io.NopCloser(strings.NewReader("png-bytes")),
		}, nil
	}
}

func TestRehostSuccess(t *testing.T) {
	uploader := &fakeUploader{}
	rehoster := newTestRehoster(t, uploader, serveAssets(t))

	durable, err := rehoster.Rehost(context.Background(), "https://tmp.example/outputs/hero.png")
	if err != nil {
		t.Fatalf("rehost: %v", err)
	}
	if !strings.HasPrefix(durable, "https://storage.googleapis.com/bucket/generated/") {
		t.Fatalf("unexpected durable url %q", durable)
	}
	if !strings.HasSuffix(durable, ".png") {
		t.Fatalf("extension must survive, got %q", durable)
	}
	if len(uploader.uploads) != 1 {
		t.Fatalf("expected one upload, got %d", len(uploader.uploads))
	}
	for _, contentType := range uploader.uploads {
		if contentType != "image/png" {
			t.Fatalf("content type not forwarded, got %q", contentType)
		}
	}
}

func TestRehostDownloadFailure(t *testing.T) {
	uploader := &fakeUploader{}
	rehoster := newTestRehoster(t, uploader, serveAssets(t))

	_, err := rehoster.Rehost(context.Background(), "https://tmp.example/outputs/missing.png")
	if err == nil {
		t.Fatal("expected error for 404 asset")
	}
	if len(uploader.uploads) != 0 {
		t.Fatal("nothing should be uploaded on download failure")
	}
}

func TestRehostEmptyURL(t *testing.T) {
	rehoster := newTestRehoster(t, &fakeUploader{}, serveAssets(t))
	if _, err := rehoster.Rehost(context.Background(), "   "); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRehostManyPartialFailure(t *testing.T) {
	uploader := &fakeUploader{}
	rehoster := newTestRehoster(t, uploader, serveAssets(t))

	hosted, err := rehoster.RehostMany(context.Background(), []string{
		"https://tmp.example/outputs/1.png",
		"https://tmp.example/outputs/missing.png",
		"https://tmp.example/outputs/3.png",
	})
	if err == nil {
		t.Fatal("expected aggregated error for the missing asset")
	}
	if len(multierr.Errors(err)) != 1 {
		t.Fatalf("expected 1 failure, got %v", multierr.Errors(err))
	}
	if len(hosted) != 2 {
		t.Fatalf("expected the surviving subset, got %v", hosted)
	}
	for _, url := range hosted {
		if !strings.HasPrefix(url, "https://storage.googleapis.com/bucket/generated/") {
			t.Fatalf("unexpected durable url %q", url)
		}
	}
}

func TestRehostManyEmptyInput(t *testing.T) {
	rehoster := newTestRehoster(t, &fakeUploader{}, serveAssets(t))
	hosted, err := rehoster.RehostMany(context.Background(), nil)
	if err != nil || hosted != nil {
		t.Fatalf("expected no-op, got %v %v", hosted, err)
	}
}
