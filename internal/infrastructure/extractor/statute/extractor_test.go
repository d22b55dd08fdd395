package statute

import (
	"context"
	"strings"
	"testing"

	"github.com/civicaccess/streetlaw/internal/core/domain"
)

func TestExtractPlainText(t *testing.T) {
	e := NewExtractor()
	text, err := e.Extract(context.Background(), "tenancy-law.txt",
		strings.NewReader("  Section 1. Short title.\n"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "Section 1. Short title." {
		t.Fatalf("Extract() = %q", text)
	}
}

func TestExtractRejectsBinaryAsText(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract(context.Background(), "statute.txt",
		strings.NewReader("\xff\xfe\x00binary"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestExtractRejectsMalformedPDF(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract(context.Background(), "statute.pdf",
		strings.NewReader("not a pdf at all"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestExtractHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExtractor()
	if _, err := e.Extract(ctx, "statute.txt", strings.NewReader("text")); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
