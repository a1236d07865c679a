package webhooks

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type stubIdempotencyStore struct {
	keys map[string]string
	ttls map[string]time.Duration
}

func newStubIdempotencyStore() *stubIdempotencyStore {
	return &stubIdempotencyStore{keys: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *stubIdempotencyStore) IdempotencyKey(scope, eventID string) string {
	return "bnb:idem:" + scope + ":" + eventID
}

func (s *stubIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	if v, ok := s.keys[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (s *stubIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	s.keys[key] = str
	s.ttls[key] = ttl
	return true, nil
}

func (s *stubIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.keys, key)
		delete(s.ttls, key)
	}
	return nil
}

func TestIdempotencyGuardMarksFirstDelivery(t *testing.T) {
	store := newStubIdempotencyStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, "generation")
	if err != nil {
		t.Fatalf("build guard: %v", err)
	}

	duplicate, err := guard.CheckAndMark(context.Background(), "evt-1")
	if err != nil {
		t.Fatalf("check and mark: %v", err)
	}
	if duplicate {
		t.Fatal("first delivery must not be a duplicate")
	}

	duplicate, err = guard.CheckAndMark(context.Background(), "evt-1")
	if err != nil {
		t.Fatalf("check and mark: %v", err)
	}
	if !duplicate {
		t.Fatal("second delivery must be reported as duplicate")
	}

	key := store.IdempotencyKey("generation", "evt-1")
	if store.ttls[key] != time.Hour {
		t.Fatalf("expected ttl forwarded, got %s", store.ttls[key])
	}
}

func TestIdempotencyGuardDeleteAllowsRetry(t *testing.T) {
	store := newStubIdempotencyStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, "marketplace")
	if err != nil {
		t.Fatalf("build guard: %v", err)
	}

	if _, err := guard.CheckAndMark(context.Background(), "evt-2"); err != nil {
		t.Fatalf("check and mark: %v", err)
	}
	if err := guard.Delete(context.Background(), "evt-2"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	duplicate, err := guard.CheckAndMark(context.Background(), "evt-2")
	if err != nil {
		t.Fatalf("check and mark: %v", err)
	}
	if duplicate {
		t.Fatal("deleted events must be reprocessable")
	}
}

func TestEventIDIsStablePerPayload(t *testing.T) {
	a := EventID("listingaaaaa", []byte(`{"status":"success"}`))
	b := EventID("listingaaaaa", []byte(`{"status":"success"}`))
	c := EventID("listingaaaaa", []byte(`{"status":"failure"}`))

	if a != b {
		t.Fatal("identical payloads must produce identical ids")
	}
	if a == c {
		t.Fatal("different payloads must produce different ids")
	}
}
