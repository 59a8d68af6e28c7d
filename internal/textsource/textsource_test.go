package textsource

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type fakeRunner struct {
	out   string
	err   error
	calls int
	name  string
	args  []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.calls++
	f.name = name
	f.args = args
	return []byte(f.out), []byte("tesseract: boom"), f.err
}

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		file string
		data []byte
		want Kind
	}{
		{"plain text", "a.txt", []byte("Name: Arun Kumar\nPhone: 9876543210\n"), KindText},
		{"csv counts as text", "a.csv", []byte("name,phone\nArun,9876543210\n"), KindText},
		{"html", "a.html", []byte("<html><body><p>Hi</p></body></html>"), KindHTML},
		{"png", "scan.png", pngHeader, KindImage},
		{"pdf", "a.pdf", []byte("%PDF-1.4\n%garbage\n"), KindPDF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, _, err := Detect(tt.file, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestDetectDOCXByContainer(t *testing.T) {
	kind, _, err := Detect("form.docx", buildDOCX(t, `<w:p><w:r><w:t>x</w:t></w:r></w:p>`))
	require.NoError(t, err)
	assert.Equal(t, KindDOCX, kind)
}

func TestDetectUnsupported(t *testing.T) {
	_, _, err := Detect("a.gz", []byte{0x1f, 0x8b, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestDecodeText(t *testing.T) {
	s := New(WithCache(0))
	doc, err := s.Decode(context.Background(), "note.txt", []byte("\xef\xbb\xbfName:   Arun\r\nCity:\tChennai\r\n\r\n\r\n\r\nEnd"))
	require.NoError(t, err)
	assert.Equal(t, KindText, doc.Kind)
	assert.Equal(t, "Name: Arun\nCity: Chennai\n\nEnd", doc.Text)
	assert.False(t, doc.Cached)
}

func TestDecodeHTML(t *testing.T) {
	page := `<html><head><title>ignored</title><style>p{}</style></head><body>
<h1>Applicant</h1>
<p>Name: Priya Sharma</p><div>Email: <b>priya@example.com</b></div>
<script>var x = "not text";</script>
<ul><li>City: Pune</li></ul>
</body></html>`
	s := New(WithCache(0))
	doc, err := s.Decode(context.Background(), "form.html", []byte(page))
	require.NoError(t, err)
	assert.Equal(t, KindHTML, doc.Kind)
	assert.Contains(t, doc.Text, "Name: Priya Sharma\n")
	assert.Contains(t, doc.Text, "Email: priya@example.com")
	assert.Contains(t, doc.Text, "City: Pune")
	assert.NotContains(t, doc.Text, "not text")
	assert.NotContains(t, doc.Text, "ignored")
}

func TestDecodeDOCX(t *testing.T) {
	data := buildDOCX(t,
		`<w:p><w:r><w:t>Name: </w:t></w:r><w:r><w:t>Arun Kumar</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>Phone:</w:t><w:tab/><w:t>9876543210</w:t></w:r></w:p>`)
	s := New(WithCache(0))
	doc, err := s.Decode(context.Background(), "form.docx", data)
	require.NoError(t, err)
	assert.Equal(t, KindDOCX, doc.Kind)
	assert.Equal(t, "Name: Arun Kumar\nPhone: 9876543210", doc.Text)
}

func TestDecodeDOCXWithoutDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("other.xml")
	w.Write([]byte("<x/>"))
	require.NoError(t, zw.Close())

	_, err := New().Decode(context.Background(), "broken.docx", buf.Bytes())
	require.Error(t, err)
}

// buildPDF writes a one-page PDF whose content stream shows each line at
// its own baseline. No lines gives a page with no text layer.
func buildPDF(t *testing.T, lines ...string) []byte {
	t.Helper()
	var content strings.Builder
	if len(lines) == 0 {
		content.WriteString("q Q\n")
	} else {
		content.WriteString("BT\n/F1 12 Tf\n")
		for i, line := range lines {
			fmt.Fprintf(&content, "1 0 0 1 72 %d Tm\n(%s) Tj\n", 720-20*i, line)
		}
		content.WriteString("ET\n")
	}

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestDecodeBrokenPDF(t *testing.T) {
	_, err := New().Decode(context.Background(), "broken.pdf", []byte("%PDF-1.4\nthis is not a real pdf\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUndecodable)
}

func TestDecodePDFTextLayer(t *testing.T) {
	data := buildPDF(t, "Name: Arun Kumar", "Email: arun.kumar@example.com")

	doc, err := New().Decode(context.Background(), "card.pdf", data)
	require.NoError(t, err)
	assert.Equal(t, KindPDF, doc.Kind)
	assert.Equal(t, "Name: Arun Kumar\nEmail: arun.kumar@example.com", doc.Text)
}

func TestDecodePDFWithoutTextLayer(t *testing.T) {
	doc, err := New().Decode(context.Background(), "scan.pdf", buildPDF(t))
	require.NoError(t, err)
	assert.Equal(t, KindPDF, doc.Kind)
	assert.Empty(t, doc.Text)
}

func TestDecodeDOCXWithoutDocumentIsUndecodable(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/document.xml")
	w.Write([]byte("<w:document><w:body><w:p><w:t>unterminated"))
	require.NoError(t, zw.Close())

	_, err := New().Decode(context.Background(), "broken.docx", buf.Bytes())
	assert.ErrorIs(t, err, ErrUndecodable)
}

func TestDecodeImageRunsTesseract(t *testing.T) {
	r := &fakeRunner{out: "Name: Arun Kumar\n"}
	s := New(WithRunner(r), WithOCR("/opt/tesseract", "eng+hin"), WithCache(0))

	doc, err := s.Decode(context.Background(), "scan.png", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, KindImage, doc.Kind)
	assert.Equal(t, "Name: Arun Kumar", doc.Text)
	assert.Equal(t, "/opt/tesseract", r.name)
	require.Len(t, r.args, 4)
	assert.Equal(t, []string{"stdout", "-l", "eng+hin"}, r.args[1:])

	_, statErr := os.Stat(r.args[0])
	assert.True(t, os.IsNotExist(statErr), "temp image should be removed")
}

func TestDecodeImageWithoutTesseract(t *testing.T) {
	r := &fakeRunner{err: &exec.Error{Name: "tesseract", Err: exec.ErrNotFound}}
	_, err := New(WithRunner(r)).Decode(context.Background(), "scan.png", pngHeader)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOCRUnavailable)
}

func TestDecodeImageFailure(t *testing.T) {
	r := &fakeRunner{err: errors.New("exit status 1")}
	_, err := New(WithRunner(r)).Decode(context.Background(), "scan.png", pngHeader)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tesseract: boom")
}

func TestDecodeCachesByContent(t *testing.T) {
	r := &fakeRunner{out: "Phone 9876543210"}
	s := New(WithRunner(r))

	first, err := s.Decode(context.Background(), "a.png", pngHeader)
	require.NoError(t, err)
	second, err := s.Decode(context.Background(), "renamed.png", pngHeader)
	require.NoError(t, err)

	assert.Equal(t, 1, r.calls)
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, "renamed.png", second.Name)
}

func TestDecodeTooLarge(t *testing.T) {
	s := New(WithMaxBytes(8))
	_, err := s.Decode(context.Background(), "big.txt", []byte("0123456789"))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = s.DecodeReader(context.Background(), "big.txt", bytes.NewReader([]byte("0123456789")))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("Email: a@b.com"), 0o600))

	doc, err := New().DecodeFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "note.txt", doc.Name)
	assert.Equal(t, "Email: a@b.com", doc.Text)

	_, err = New().DecodeFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"a\r\nb\rc", "a\nb\nc"},
		{"  lots    of\tspace  ", "lots of space"},
		{"top\n-----\nbottom", "top\n\nbottom"},
		{"a\n\n\n\n\nb", "a\n\nb"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}
