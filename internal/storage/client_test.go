package storage

import (
	"testing"
)

func TestJobsFromKeys(t *testing.T) {
	keys := []string{
		"low/12.png",
		"low/3",
		"low/3.jpg",
		"low/notes.txt",
		"low/nested/7.png",
		"other/9.png",
		"low/4294967296.png",
		"low/1.webp",
	}
	batch := JobsFromKeys("low/", keys)

	want := []uint32{1, 3, 12}
	if len(batch) != len(want) {
		t.Fatalf("got %d jobs (%v), want %d", len(batch), batch, len(want))
	}
	for i, id := range want {
		if batch[i].ID != id {
			t.Fatalf("job %d id = %d, want %d", i, batch[i].ID, id)
		}
		if batch[i].URL != "none" {
			t.Fatalf("job %d url = %q", i, batch[i].URL)
		}
	}
	if err := batch.Validate(); err != nil {
		t.Fatalf("listed batch invalid: %v", err)
	}
}

func TestNewClientRequiresBucket(t *testing.T) {
	if _, err := NewClient(Config{Endpoint: "localhost:9000"}); err == nil {
		t.Fatal("expected bucket error")
	}
	c, err := NewClient(Config{Endpoint: "localhost:9000", Bucket: "logos"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if c.Bucket() != "logos" {
		t.Fatalf("bucket = %q", c.Bucket())
	}
}
