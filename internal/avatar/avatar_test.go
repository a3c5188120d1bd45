package avatar

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// smallest valid PNG header is enough for content sniffing
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.png")
	if err := os.WriteFile(path, pngBytes, 0644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(nil)
	img, ok := l.Load(path)
	if !ok {
		t.Fatal("expected avatar to load")
	}
	if img.ContentType != "image/png" {
		t.Errorf("expected image/png, got %s", img.ContentType)
	}
	if !strings.HasPrefix(img.ETag, "\"") || !strings.HasSuffix(img.ETag, "\"") || len(img.ETag) != 18 {
		t.Errorf("unexpected etag %q", img.ETag)
	}

	// loaded images stay cached even when misses are dropped
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	l.ForgetMisses()
	if _, ok := l.Load(path); !ok {
		t.Error("expected cached avatar")
	}
}

func TestLoad_MissingIsNotAnError(t *testing.T) {
	l := NewLoader(nil)
	path := filepath.Join(t.TempDir(), "nope.png")
	if img, ok := l.Load(path); ok || img != nil {
		t.Errorf("expected no avatar, got %v", img)
	}

	// the miss is cached until misses are dropped
	if err := os.WriteFile(path, pngBytes, 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := l.Load(path); ok {
		t.Error("expected cached miss")
	}
	l.ForgetMisses()
	if _, ok := l.Load(path); !ok {
		t.Error("expected avatar after ForgetMisses")
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	if _, ok := NewLoader(nil).Load(""); ok {
		t.Error("empty path should never load")
	}
}
