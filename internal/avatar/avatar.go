package avatar

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
)

// Image is a loaded avatar file
type Image struct {
	Data        []byte
	ContentType string
	ETag        string
}

// Loader reads avatar files once and caches them by path. A missing file
// is cached too, so the disk is not probed on every page draw.
type Loader struct {
	cache  sync.Map // path -> *Image (nil when absent)
	logger *slog.Logger
}

// NewLoader creates a loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load returns the avatar at path, or false when there is none
func (l *Loader) Load(path string) (*Image, bool) {
	if path == "" {
		return nil, false
	}
	if val, ok := l.cache.Load(path); ok {
		img := val.(*Image)
		return img, img != nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.Warn("failed to read avatar, using default", "path", path, "error", err)
		}
		l.cache.Store(path, (*Image)(nil))
		return nil, false
	}

	img := &Image{
		Data:        data,
		ContentType: http.DetectContentType(data),
		ETag:        etag(data),
	}
	l.cache.Store(path, img)
	l.logger.Info("loaded avatar", "path", path, "bytes", len(data))
	return img, true
}

// ForgetMisses drops the cached misses so files added since are picked up
func (l *Loader) ForgetMisses() {
	l.cache.Range(func(key, val any) bool {
		if val.(*Image) == nil {
			l.cache.Delete(key)
		}
		return true
	})
}

func etag(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("\"%x\"", sum[:8])
}
