package shortid

import "testing"

func TestNew(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := New()
		if err != nil {
			t.Fatalf("New returned error: %v", err)
		}
		if !IsValid(id) {
			t.Fatalf("New returned invalid id %q", id)
		}
		if seen[id] {
			t.Fatalf("New returned duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestIsValid(t *testing.T) {
	cases := map[string]bool{
		"abcDEF123456":  true,
		"abcDEF12345":   false,
		"abcDEF1234567": false,
		"abcDEF12345!":  false,
		"":              false,
	}
	for id, want := range cases {
		if got := IsValid(id); got != want {
			t.Fatalf("IsValid(%q) = %v, want %v", id, got, want)
		}
	}
}
