package webhooks

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brandinbox/brandinbox-backend/pkg/db/models"
	"github.com/brandinbox/brandinbox-backend/pkg/enums"
	pkgerrors "github.com/brandinbox/brandinbox-backend/pkg/errors"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
)

const testSecret = "webhook-secret"

type stubGenerationService struct {
	calls int
	body  []byte
	err   error
}

func (s *stubGenerationService) HandleCallback(ctx context.Context, body []byte) (*models.Listing, error) {
	s.calls++
	s.body = body
	if s.err != nil {
		return nil, s.err
	}
	return &models.Listing{ID: "listingaaaaa", Status: enums.ListingStatusMediaReady}, nil
}

type stubGuard struct {
	duplicate bool
	marked    []string
	deleted   []string
}

func (g *stubGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	g.marked = append(g.marked, eventID)
	return g.duplicate, nil
}

func (g *stubGuard) Delete(ctx context.Context, eventID string) error {
	g.deleted = append(g.deleted, eventID)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func postCallback(t *testing.T, handler http.HandlerFunc, secret, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/generation", strings.NewReader(body))
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestGenerationWebhookProcessesCallback(t *testing.T) {
	svc := &stubGenerationService{}
	guard := &stubGuard{}
	handler := GenerationWebhook(svc, testSecret, guard, testLogger())

	body := `{"listing_id":"listingaaaaa","status":"success","image_urls":["https://tmp.example/a.png"]}`
	resp := postCallback(t, handler, testSecret, body)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.calls != 1 {
		t.Fatalf("expected one service call, got %d", svc.calls)
	}
	if string(svc.body) != body {
		t.Fatalf("body not forwarded verbatim")
	}
	if len(guard.marked) != 1 || !strings.HasPrefix(guard.marked[0], "listingaaaaa:") {
		t.Fatalf("delivery id not keyed by listing: %v", guard.marked)
	}
	if len(guard.deleted) != 0 {
		t.Fatalf("successful handling must keep the idempotency mark")
	}
}

func TestGenerationWebhookRejectsMissingSecret(t *testing.T) {
	svc := &stubGenerationService{}
	handler := GenerationWebhook(svc, testSecret, &stubGuard{}, testLogger())

	resp := postCallback(t, handler, "", `{"listing_id":"listingaaaaa"}`)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatal("unauthenticated deliveries must not reach the service")
	}
}

func TestGenerationWebhookRejectsWrongSecret(t *testing.T) {
	svc := &stubGenerationService{}
	handler := GenerationWebhook(svc, testSecret, &stubGuard{}, testLogger())

	resp := postCallback(t, handler, "guess", `{"listing_id":"listingaaaaa"}`)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatal("unauthenticated deliveries must not reach the service")
	}
}

func TestGenerationWebhookShortCircuitsDuplicates(t *testing.T) {
	svc := &stubGenerationService{}
	handler := GenerationWebhook(svc, testSecret, &stubGuard{duplicate: true}, testLogger())

	resp := postCallback(t, handler, testSecret, `{"listing_id":"listingaaaaa","status":"success"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatal("duplicate deliveries must not reach the service")
	}
}

func TestGenerationWebhookUnmarksOnFailure(t *testing.T) {
	svc := &stubGenerationService{err: pkgerrors.New(pkgerrors.CodeDependency, "database unavailable")}
	guard := &stubGuard{}
	handler := GenerationWebhook(svc, testSecret, guard, testLogger())

	resp := postCallback(t, handler, testSecret, `{"listing_id":"listingaaaaa","status":"success"}`)
	if resp.Code == http.StatusOK {
		t.Fatalf("expected error status, got %d", resp.Code)
	}
	if len(guard.deleted) != 1 {
		t.Fatal("failed handling must release the idempotency mark for retry")
	}
}
