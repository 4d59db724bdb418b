package sizer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roboco-io/imgsize/internal/fetch"
	"github.com/roboco-io/imgsize/internal/markup"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func writePNG(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, pngBytes(t, w, h), 0644); err != nil {
		t.Fatalf("failed to write png: %v", err)
	}
}

func newTestService(logs *bytes.Buffer) *Service {
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(fetch.New(fetch.Config{Logger: logger}), logger)
}

// apply mimics the host: replace the edit span with the edit text.
func apply(text string, e *Edit) string {
	return text[:e.Span.Start] + e.Text + text[e.Span.End:]
}

func TestUpdateSize_SingleTag(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "img/a.png", 120, 80)
	docPath := filepath.Join(dir, "index.html")

	text := "<body>\n<img src=\"img/a.png\" alt=\"a\">\n</body>"
	offset := strings.Index(text, "alt")

	var logs bytes.Buffer
	edit, err := newTestService(&logs).UpdateSize(context.Background(), Request{Text: text, Offset: offset, DocumentPath: docPath})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "<body>\n<img src=\"img/a.png\" alt=\"a\" width=\"120\" height=\"80\">\n</body>"
	if got := apply(text, edit); got != want {
		t.Errorf("unexpected result:\n%s\nwant:\n%s", got, want)
	}
	if edit.Message() != "Updated image size: 120x80" {
		t.Errorf("unexpected message %q", edit.Message())
	}
	if !strings.Contains(logs.String(), "resolved image path") {
		t.Errorf("expected diagnostic log, got:\n%s", logs.String())
	}
}

func TestUpdateSize_ReplacesExistingDimensions(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "a.png", 64, 32)

	text := `<img src="a.png" width="10" height="20">`
	edit, err := New(nil, nil).UpdateSize(context.Background(), Request{Text: text, Offset: 3, DocumentPath: filepath.Join(dir, "doc.html")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if edit.Text != `<img src="a.png" width="64" height="32">` {
		t.Errorf("unexpected tag %q", edit.Text)
	}
}

func TestAddLazyLoading_SingleTag(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "a.png", 5, 6)
	docPath := filepath.Join(dir, "doc.html")
	svc := New(nil, nil)

	edit, err := svc.AddLazyLoading(context.Background(), Request{Text: `<img src="a.png">`, Offset: 1, DocumentPath: docPath})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if edit.Text != `<img src="a.png" width="5" height="6" loading="lazy">` {
		t.Errorf("unexpected tag %q", edit.Text)
	}
	if edit.Message() != `Updated: 5x6 + loading="lazy"` {
		t.Errorf("unexpected message %q", edit.Message())
	}

	edit, err = svc.AddLazyLoading(context.Background(), Request{Text: `<source srcset="a.png 1x">`, Offset: 1, DocumentPath: docPath})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(edit.Text, "loading") {
		t.Errorf("source must not get loading attribute: %q", edit.Text)
	}
	if edit.Lazy {
		t.Error("expected Lazy=false for source tag")
	}
}

func TestUpdateSize_Picture(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "a.png", 100, 50)
	writePNG(t, dir, "c.png", 40, 30)

	block := `<picture>
  <source srcset="a.png 1x, a@2x.png 2x" media="(min-width: 800px)">
  <source srcset="missing.png">
  <img src="c.png" alt="">
</picture>`
	text := "<div>" + block + "</div>"
	offset := strings.Index(text, "<picture") + 3

	var logs bytes.Buffer
	edit, err := newTestService(&logs).AddLazyLoading(context.Background(), Request{Text: text, Offset: offset, DocumentPath: filepath.Join(dir, "index.html")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `<picture>
  <source srcset="a.png 1x, a@2x.png 2x" media="(min-width: 800px)" width="100" height="50">
  <source srcset="missing.png">
  <img src="c.png" alt="" width="40" height="30" loading="lazy">
</picture>`
	if edit.Text != want {
		t.Errorf("unexpected block:\n%s\nwant:\n%s", edit.Text, want)
	}
	if edit.Updated != 2 {
		t.Errorf("expected 2 updated tags, got %d", edit.Updated)
	}
	if edit.Span.Start != 5 || edit.Span.End != 5+len(block) {
		t.Errorf("unexpected span %+v", edit.Span)
	}
	if edit.Message() != `Updated 2 image tag(s) in <picture> + loading="lazy"` {
		t.Errorf("unexpected message %q", edit.Message())
	}
	if !strings.Contains(logs.String(), "skipping tag") {
		t.Errorf("expected skipped tag to be logged, got:\n%s", logs.String())
	}
}

func TestAddLazyLoading_PictureOnlySourcesSized(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "a.png", 100, 50)

	text := `<picture><source srcset="a.png"><img src="missing.png"></picture>`

	var logs bytes.Buffer
	edit, err := newTestService(&logs).AddLazyLoading(context.Background(), Request{Text: text, Offset: 2, DocumentPath: filepath.Join(dir, "index.html")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(edit.Text, "loading=") {
		t.Errorf("no img was rewritten, got %q", edit.Text)
	}
	if edit.Lazy {
		t.Error("expected Lazy to be false when no img was rewritten")
	}
	if edit.Message() != "Updated 1 image tag(s) in <picture>" {
		t.Errorf("unexpected message %q", edit.Message())
	}
}

func TestUpdateSize_PictureFailures(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "index.html")
	svc := New(nil, nil)

	_, err := svc.UpdateSize(context.Background(), Request{Text: `<picture></picture>`, Offset: 2, DocumentPath: docPath})
	if !errors.Is(err, ErrNoTagsInPicture) {
		t.Errorf("expected ErrNoTagsInPicture, got %v", err)
	}

	_, err = svc.UpdateSize(context.Background(), Request{
		Text:         `<picture><source srcset="x.png"><img src="y.png"></picture>`,
		Offset:       2,
		DocumentPath: docPath,
	})
	if !errors.Is(err, ErrAllTagsFailedInPicture) {
		t.Errorf("expected ErrAllTagsFailedInPicture, got %v", err)
	}
}

func TestUpdateSize_Errors(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "index.html")
	if err := os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "logo.svg"), []byte("<svg/>"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		text    string
		offset  int
		wantErr error
		wantMsg string
	}{
		{"outside tag", `<p>hello</p>`, 3, ErrNoEnclosingTag, "Cursor is not inside"},
		{"no reference", `<img alt="x">`, 2, ErrNoImageReference, "No valid image source"},
		{"missing file", `<img src="nope.png">`, 2, ErrLocalFileMissing, "Image file not found"},
		{"unreadable file", `<img src="broken.png">`, 2, ErrUnreadableImageFormat, "may be corrupted"},
		{"vector file", `<img src="logo.svg">`, 2, ErrUnreadableImageFormat, "Vector images"},
		{"directory", `<img src=".">`, 2, ErrUnreadableImageFormat, "Could not read image dimensions"},
	}

	svc := New(nil, nil)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			edit, err := svc.UpdateSize(context.Background(), Request{Text: tc.text, Offset: tc.offset, DocumentPath: docPath})
			if edit != nil {
				t.Errorf("expected no edit, got %+v", edit)
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if msg := UserMessage(err); !strings.Contains(msg, tc.wantMsg) {
				t.Errorf("expected message containing %q, got %q", tc.wantMsg, msg)
			}
		})
	}
}

func TestUpdateSize_RemoteRedirect(t *testing.T) {
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/x.png" {
			http.NotFound(w, r)
			return
		}
		w.Write(pngBytes(t, 300, 150))
	}))
	defer cdn.Close()

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A tiny image at the original URL must never be measured.
		if r.URL.Path == "/x.png" {
			w.Header().Set("Location", cdn.URL+"/x.png")
			w.WriteHeader(http.StatusMovedPermanently)
			return
		}
		w.Write(pngBytes(t, 1, 1))
	}))
	defer origin.Close()

	text := `<img src="` + origin.URL + `/x.png">`
	var logs bytes.Buffer
	edit, err := newTestService(&logs).UpdateSize(context.Background(), Request{Text: text, Offset: 2, DocumentPath: "/tmp/doc.html"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if edit.Width != 300 || edit.Height != 150 {
		t.Errorf("expected 300x150, got %dx%d", edit.Width, edit.Height)
	}
}

func TestUpdateSize_RemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	var logs bytes.Buffer
	_, err := newTestService(&logs).UpdateSize(context.Background(), Request{Text: `<img src="` + srv.URL + `/a.png">`, Offset: 2})
	if !errors.Is(err, ErrRemoteFetchFailed) {
		t.Fatalf("expected ErrRemoteFetchFailed, got %v", err)
	}
	if msg := UserMessage(err); !strings.Contains(msg, "HTTP 403") {
		t.Errorf("expected status in message, got %q", msg)
	}
	if !strings.Contains(logs.String(), "status=403") {
		t.Errorf("expected status in log, got:\n%s", logs.String())
	}
}

func TestUpdateSize_RemoteWithoutFetcher(t *testing.T) {
	_, err := New(nil, nil).UpdateSize(context.Background(), Request{Text: `<img src="https://example.com/a.png">`, Offset: 2})
	if !errors.Is(err, ErrRemoteFetchFailed) {
		t.Fatalf("expected ErrRemoteFetchFailed, got %v", err)
	}
}

func TestEdit_Message(t *testing.T) {
	tests := []struct {
		edit     Edit
		expected string
	}{
		{Edit{Kind: markup.KindImg, Width: 1, Height: 2}, "Updated image size: 1x2"},
		{Edit{Kind: markup.KindImg, Width: 1, Height: 2, Lazy: true}, `Updated: 1x2 + loading="lazy"`},
		{Edit{Kind: markup.KindSource, Width: 3, Height: 4}, "Updated image size: 3x4"},
		{Edit{Kind: markup.KindPicture, Updated: 3}, "Updated 3 image tag(s) in <picture>"},
	}

	for _, tc := range tests {
		if got := tc.edit.Message(); got != tc.expected {
			t.Errorf("Message() = %q, want %q", got, tc.expected)
		}
	}
}

func TestUserMessage_Nil(t *testing.T) {
	if UserMessage(nil) != "" {
		t.Error("expected empty message for nil error")
	}
}
