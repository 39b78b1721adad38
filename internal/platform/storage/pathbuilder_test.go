package storage

import (
	"testing"
	"time"
)

func TestTemplateObjectKey(t *testing.T) {
	uploaded := time.UnixMilli(1700000000123).UTC()
	key, err := TemplateObjectKey(TemplateObjectParams{
		TemplateID: "tpl_1",
		FileName:   "my card (final).png",
		UploadedAt: uploaded,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "tpl_1-1700000000123-my_card__final_.png"
	if key != expected {
		t.Fatalf("expected %s, got %s", expected, key)
	}
}

func TestSanitizeFileNameFlattensPaths(t *testing.T) {
	if got := SanitizeFileName("../etc/passwd"); got != ".._etc_passwd" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
}

func TestTemplateObjectKeyRejectsInvalidSegment(t *testing.T) {
	_, err := TemplateObjectKey(TemplateObjectParams{
		TemplateID: "../bad",
		FileName:   "file.png",
		UploadedAt: time.Now(),
	})
	if err == nil {
		t.Fatalf("expected error for invalid template id")
	}
}

func TestTemplateObjectKeyRequiresFileName(t *testing.T) {
	_, err := TemplateObjectKey(TemplateObjectParams{TemplateID: "tpl", UploadedAt: time.Now()})
	if err == nil {
		t.Fatalf("expected error for empty file name")
	}
}
