package domain

import "testing"

func TestJobBatchValidate(t *testing.T) {
	valid := JobBatch{{ID: 1, URL: "https://example.com/1.png"}, {ID: 2}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid batch, got error: %v", err)
	}

	if err := (JobBatch{}).Validate(); err == nil {
		t.Fatal("expected validation error for empty batch")
	}

	duplicate := JobBatch{{ID: 7}, {ID: 8}, {ID: 7}}
	if err := duplicate.Validate(); err == nil {
		t.Fatal("expected validation error for duplicate ids")
	}
}

func TestCreateBatchRequestValidate(t *testing.T) {
	valid := CreateBatchRequest{
		Logos:      []LogoJob{{ID: 10}},
		WebhookURL: "https://hooks.example.com/logos",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got error: %v", err)
	}

	badHook := CreateBatchRequest{
		Logos:      []LogoJob{{ID: 10}},
		WebhookURL: "ftp://hooks.example.com",
	}
	if err := badHook.Validate(); err == nil {
		t.Fatal("expected validation error for non-http webhook")
	}
}

func TestLogoJobStem(t *testing.T) {
	if got := (LogoJob{ID: 4294967295}).Stem(); got != "4294967295" {
		t.Fatalf("expected stem 4294967295, got %s", got)
	}
}
