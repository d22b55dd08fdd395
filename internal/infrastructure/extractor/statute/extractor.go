package statute

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/civicaccess/streetlaw/internal/core/domain"
)

// Extractor turns an uploaded statute file into plain text. Gazette
// scans arrive as PDF; everything else must already be UTF-8 text.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read uploaded file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extractPDF(raw, filename)
	default:
		if !utf8.Valid(raw) {
			return "", domain.WrapError(domain.ErrInvalidInput, "extract text",
				fmt.Errorf("%s is not UTF-8 text", filename))
		}
		return strings.TrimSpace(string(raw)), nil
	}
}

func extractPDF(raw []byte, filename string) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text",
			fmt.Errorf("open pdf %s: %w", filename, err))
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text from %s: %w", filename, err)
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text from %s: %w", filename, err)
	}

	out := strings.TrimSpace(string(text))
	if out == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text",
			errors.New("pdf contained no extractable text"))
	}
	return out, nil
}
