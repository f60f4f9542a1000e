package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/ports/adapter"
)

var _ adapter.TextExtractor = (*Extractor)(nil)

// Extractor pulls plain text out of PDF uploads, one page at a time.
type Extractor struct{}

func NewExtractor() *Extractor { return &Extractor{} }

// ExtractText joins page texts with newlines and trims the result. Pages whose
// content stream is missing are skipped.
func (e *Extractor) ExtractText(ctx context.Context, r io.ReaderAt, size int64) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("pdf: malformed document: %v: %w", rec, domain.ErrInvalidInput)
		}
	}()

	rd, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("pdf: open: %w: %w", domain.ErrInvalidInput, err)
	}
	pages := make([]string, 0, rd.NumPage())
	for i := 1; i <= rd.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := rd.Page(i)
		if p.V.IsNull() {
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf: page %d: %w", i, err)
		}
		pages = append(pages, s)
	}
	text = strings.TrimSpace(strings.Join(pages, "\n"))
	if text == "" {
		return "", errors.Join(domain.ErrInvalidInput, errors.New("pdf: no extractable text"))
	}
	return text, nil
}
