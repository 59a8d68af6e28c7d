// Package textsource turns uploaded files into plain text for extraction.
//
// The file type is sniffed from the content with mimetype and only falls
// back to the file name for containers that sniff ambiguously (zip). Images
// go through an external tesseract binary; decoded text is cached by content
// hash because OCR is slow.
package textsource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	gocache "github.com/patrickmn/go-cache"
)

// DefaultMaxBytes caps the size of a single upload.
const DefaultMaxBytes = 20 << 20

var (
	// ErrUnsupported is returned for file types no decoder handles.
	ErrUnsupported = errors.New("unsupported file type")
	// ErrTooLarge is returned for uploads above the size cap.
	ErrTooLarge = errors.New("file too large")
	// ErrOCRUnavailable is returned when an image arrives but no OCR binary runs.
	ErrOCRUnavailable = errors.New("ocr unavailable")
	// ErrUndecodable is returned for a document whose content is corrupt.
	ErrUndecodable = errors.New("undecodable document")
)

// Kind is the decoded file family. It doubles as the history entry source.
type Kind string

const (
	KindText  Kind = "text"
	KindPDF   Kind = "pdf"
	KindDOCX  Kind = "docx"
	KindHTML  Kind = "html"
	KindImage Kind = "image"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Document is the result of decoding one file.
type Document struct {
	Name   string
	Kind   Kind
	MIME   string
	Text   string
	Cached bool
}

// Source decodes files into text.
type Source struct {
	runner    Runner
	tesseract string
	lang      string
	maxBytes  int64
	logger    *slog.Logger
	cache     *gocache.Cache
}

// Option configures a Source.
type Option func(*Source)

// WithOCR sets the tesseract binary and language ("eng", "eng+hin").
func WithOCR(binary, lang string) Option {
	return func(s *Source) {
		if binary != "" {
			s.tesseract = binary
		}
		if lang != "" {
			s.lang = lang
		}
	}
}

// WithRunner replaces the command runner, mainly for tests.
func WithRunner(r Runner) Option {
	return func(s *Source) { s.runner = r }
}

// WithMaxBytes sets the upload size cap. n <= 0 keeps the default.
func WithMaxBytes(n int64) Option {
	return func(s *Source) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) { s.logger = logger }
}

// WithCache keeps decoded text for ttl keyed by content hash. ttl <= 0 disables it.
func WithCache(ttl time.Duration) Option {
	return func(s *Source) {
		if ttl > 0 {
			s.cache = gocache.New(ttl, 2*ttl)
		} else {
			s.cache = nil
		}
	}
}

// New returns a Source with a 10 minute decode cache.
func New(opts ...Option) *Source {
	s := &Source{
		runner:    execRunner{},
		tesseract: "tesseract",
		lang:      "eng",
		maxBytes:  DefaultMaxBytes,
		cache:     gocache.New(10*time.Minute, 20*time.Minute),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Detect classifies data. name is only consulted for zip containers.
func Detect(name string, data []byte) (Kind, string, error) {
	mt := mimetype.Detect(data)
	mime := mt.String()

	switch {
	case mt.Is("application/pdf"):
		return KindPDF, mime, nil
	case mt.Is(docxMIME):
		return KindDOCX, mime, nil
	case mt.Is("application/zip") && strings.EqualFold(filepath.Ext(name), ".docx"):
		return KindDOCX, docxMIME, nil
	case mt.Is("text/html"):
		return KindHTML, mime, nil
	case strings.HasPrefix(mime, "image/"):
		return KindImage, mime, nil
	}
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return KindText, mime, nil
		}
	}
	return "", mime, fmt.Errorf("%w: %s", ErrUnsupported, mime)
}

// Decode extracts text from data. name is the original file name, used for
// type fallback and logging only.
func (s *Source) Decode(ctx context.Context, name string, data []byte) (Document, error) {
	if int64(len(data)) > s.maxBytes {
		return Document{}, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrTooLarge, name, len(data), s.maxBytes)
	}

	kind, mime, err := Detect(name, data)
	if err != nil {
		return Document{}, fmt.Errorf("decoding %s: %w", name, err)
	}
	doc := Document{Name: name, Kind: kind, MIME: mime}

	key := contentKey(data)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			doc.Text = v.(string)
			doc.Cached = true
			return doc, nil
		}
	}

	start := time.Now()
	var text string
	switch kind {
	case KindText:
		text = decodeText(data)
	case KindPDF:
		text, err = decodePDF(data)
	case KindDOCX:
		text, err = decodeDOCX(data)
	case KindHTML:
		text, err = decodeHTML(data)
	case KindImage:
		text, err = s.ocr(ctx, data)
	}
	if err != nil {
		if kind != KindImage {
			err = fmt.Errorf("%w: %w", ErrUndecodable, err)
		}
		return Document{}, fmt.Errorf("decoding %s (%s): %w", name, kind, err)
	}

	doc.Text = Normalize(text)
	if s.cache != nil {
		s.cache.SetDefault(key, doc.Text)
	}
	s.logger.Debug("textsource.decoded",
		"name", name,
		"kind", kind,
		"mime", mime,
		"chars", len(doc.Text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

// DecodeReader reads r up to the size cap and decodes it.
func (s *Source) DecodeReader(ctx context.Context, name string, r io.Reader) (Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", name, err)
	}
	return s.Decode(ctx, name, data)
}

// DecodeFile reads and decodes a file from disk.
func (s *Source) DecodeFile(ctx context.Context, path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return s.DecodeReader(ctx, filepath.Base(path), f)
}

func contentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
