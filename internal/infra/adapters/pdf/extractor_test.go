package pdf

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"clm-paralegal/internal/domain"
)

func TestExtractText_RejectsNonPDF(t *testing.T) {
	data := []byte("this is definitely not a pdf document")
	_, err := NewExtractor().ExtractText(context.Background(), bytes.NewReader(data), int64(len(data)))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestExtractText_Empty(t *testing.T) {
	_, err := NewExtractor().ExtractText(context.Background(), bytes.NewReader(nil), 0)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}
