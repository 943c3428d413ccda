package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

const docxBody = `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
	`<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p><w:p><w:r><w:t>jane@example.com</w:t></w:r></w:p></w:body></w:document>`

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractTextFromBytes_Docx(t *testing.T) {
	data := buildZip(t, map[string]string{"word/document.xml": docxBody})

	for _, mime := range []string{mimeDOCX, "application/zip", "application/octet-stream"} {
		text, err := ExtractTextFromBytes(context.Background(), data, mime, "resume.docx")
		if err != nil {
			t.Fatalf("mime %s: %v", mime, err)
		}
		if text != "Jane Doe\njane@example.com" {
			t.Fatalf("mime %s: unexpected text %q", mime, text)
		}
	}
}

func TestExtractTextFromBytes_RealZipRejected(t *testing.T) {
	data := buildZip(t, map[string]string{"notes.txt": "hello"})

	_, err := ExtractTextFromBytes(context.Background(), data, "application/zip", "notes.zip")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if !strings.Contains(err.Error(), "unsupported mime type: application/zip") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExtractTextFromBytes_CorruptPDF(t *testing.T) {
	_, err := ExtractTextFromBytes(context.Background(), []byte("not really a pdf"), mimePDF, "resume.pdf")
	if !errors.Is(err, ErrUnreadableFile) {
		t.Fatalf("expected ErrUnreadableFile, got %v", err)
	}
}

func TestExtractTextFromBytes_EmptyDocx(t *testing.T) {
	data := buildZip(t, map[string]string{"word/document.xml": `<w:document xmlns:w="x"><w:body/></w:document>`})
	_, err := ExtractTextFromBytes(context.Background(), data, mimeDOCX, "blank.docx")
	if !errors.Is(err, ErrUnreadableFile) {
		t.Fatalf("expected ErrUnreadableFile, got %v", err)
	}
}

func TestSupported(t *testing.T) {
	tests := []struct {
		mime, name string
		want       bool
	}{
		{mime: "application/pdf", name: "a.pdf", want: true},
		{mime: "application/pdf; charset=binary", name: "a.pdf", want: true},
		{mime: mimeDOCX, name: "a.docx", want: true},
		{mime: "", name: "a.pdf", want: true},
		{mime: "text/plain", name: "a.txt", want: false},
		{mime: "image/png", name: "a.png", want: false},
	}
	for _, tt := range tests {
		if got := Supported(tt.mime, tt.name, nil); got != tt.want {
			t.Fatalf("Supported(%q, %q) = %v, want %v", tt.mime, tt.name, got, tt.want)
		}
	}
}

type memStore struct {
	saved map[string]string
}

func (m *memStore) Save(context.Context, string, string, io.Reader) (string, int64, string, error) {
	return "", 0, "", errors.New("unused")
}

func (m *memStore) SaveWithKey(_ context.Context, key string, _ string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.saved[key] = string(data)
	return int64(len(data)), nil
}

func (m *memStore) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("unused")
}

func TestSaveExtracted(t *testing.T) {
	store := &memStore{saved: map[string]string{}}
	key, err := SaveExtracted(context.Background(), store, "abc/resume.pdf", "hello")
	if err != nil {
		t.Fatalf("SaveExtracted: %v", err)
	}
	if key != "abc/resume.pdf.extracted.txt" || store.saved[key] != "hello" {
		t.Fatalf("unexpected save %s -> %v", key, store.saved)
	}
}
