// Package document turns library files into corpus text.
package document

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ledongthuc/pdf"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"go.uber.org/zap"

	"notesrag/internal/logger"
)

const textSeparator = "\n\n"

// Loader reads text and PDF files into one corpus string.
type Loader struct {
	log *zap.Logger
}

// NewLoader creates a loader.
func NewLoader(log *zap.Logger) *Loader {
	return &Loader{log: logger.OrNop(log)}
}

var (
	licenseOnce sync.Once
	licensed    atomic.Bool
)

// SetPDFLicense installs a unidoc metered license key. Only the first call
// has any effect. Until a key is accepted, PDFs are read with the
// license-free ledongthuc/pdf extractor.
func SetPDFLicense(key string) (err error) {
	if key == "" {
		return nil
	}
	licenseOnce.Do(func() {
		err = license.SetMeteredKey(key)
		licensed.Store(err == nil)
	})
	return err
}

// Load concatenates the text of every readable file in order. Files ending
// in .txt are read as UTF-8 and followed by a blank line; anything else is
// parsed as PDF. A file that fails contributes nothing.
func (l *Loader) Load(ctx context.Context, paths []string) string {
	var corpus strings.Builder
	for _, p := range paths {
		if ctx.Err() != nil {
			break
		}
		text, err := l.LoadFile(p)
		if err != nil {
			l.log.Warn("skipping unreadable document", zap.String("path", p), zap.Error(err))
			continue
		}
		corpus.WriteString(text)
	}
	return corpus.String()
}

// LoadFile returns the corpus contribution of a single file.
func (l *Loader) LoadFile(path string) (string, error) {
	if strings.HasSuffix(strings.ToLower(path), ".txt") {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data) + textSeparator, nil
	}
	if licensed.Load() {
		return readPDFUnidoc(path)
	}
	return readPDF(path)
}

// readPDF extracts the plain text of every page in order.
func readPDF(path string) (text string, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parse pdf: %v", r)
		}
	}()
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w", i, err)
		}
		b.WriteString(pageText)
	}
	return b.String(), nil
}

func readPDFUnidoc(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader, err := model.NewPdfReader(f)
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("count pdf pages: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w", i, err)
		}
		ex, err := extractor.New(page)
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w", i, err)
		}
		text, err := ex.ExtractText()
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w", i, err)
		}
		b.WriteString(text)
	}
	return b.String(), nil
}
