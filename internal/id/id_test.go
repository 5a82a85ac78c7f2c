package id

import "testing"

func TestNewIsUniqueUUID(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		v := New()
		if !Valid(v) {
			t.Fatalf("id %q is not a uuid", v)
		}
		if _, dup := seen[v]; dup {
			t.Fatalf("duplicate id %q", v)
		}
		seen[v] = struct{}{}
	}
	if Valid("job-fallback-id") {
		t.Fatal("expected non-uuid to be invalid")
	}
}
