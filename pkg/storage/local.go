package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// UploadsPrefix is the relative path prefix stored on records for locally saved files.
// The server exposes the upload directory under the same prefix.
const UploadsPrefix = "uploads/"

var (
	ErrTooLarge = errors.New("file too large")
	ErrNotImage = errors.New("only image files are allowed")
)

// IsRejected reports whether err means the upload itself was refused rather than a disk failure.
func IsRejected(err error) bool {
	return errors.Is(err, ErrTooLarge) || errors.Is(err, ErrNotImage)
}

// imageExtensions maps sniffed MIME types to the extension used when the upload has none.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// ImageSaver stores an uploaded image and returns its relative path.
type ImageSaver interface {
	SaveImage(fh *multipart.FileHeader) (string, error)
}

// Local stores admin uploads on disk.
type Local struct {
	dir     string
	maxSize int64
}

// NewLocal returns a store rooted at dir, creating it if needed.
func NewLocal(dir string, maxSize int64) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir, maxSize: maxSize}, nil
}

// Dir returns the directory served under /uploads.
func (l *Local) Dir() string { return l.dir }

// IsLocalPath reports whether u is a path produced by SaveImage.
func IsLocalPath(u string) bool {
	return strings.HasPrefix(u, UploadsPrefix)
}

// SaveImage validates fh by size and sniffed content type, writes it under a random name
// and returns "uploads/<name>".
func (l *Local) SaveImage(fh *multipart.FileHeader) (string, error) {
	if fh.Size > l.maxSize {
		return "", fmt.Errorf("%w: limit is %d MB", ErrTooLarge, l.maxSize/(1024*1024))
	}
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	mimeType := http.DetectContentType(head[:n])
	if !strings.HasPrefix(mimeType, "image/") {
		return "", ErrNotImage
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext == "" {
		ext = imageExtensions[mimeType]
	}
	name := uuid.New().String() + ext

	dst, err := os.OpenFile(filepath.Join(l.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := dst.Write(head[:n]); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	if _, err := io.Copy(dst, io.LimitReader(src, l.maxSize)); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return UploadsPrefix + name, nil
}

// Open returns the file behind a relative upload path with its size and content type.
func (l *Local) Open(relPath string) (io.ReadCloser, int64, string, error) {
	full, err := l.resolve(relPath)
	if err != nil {
		return nil, 0, "", err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, 0, "", err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, "", err
	}
	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, 0, "", err
	}
	return f, info.Size(), http.DetectContentType(head[:n]), nil
}

// Remove deletes the file behind a relative upload path. Missing files are not an error.
func (l *Local) Remove(relPath string) error {
	full, err := l.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (l *Local) resolve(relPath string) (string, error) {
	if !IsLocalPath(relPath) {
		return "", fmt.Errorf("not an upload path: %q", relPath)
	}
	name := path.Base(strings.TrimPrefix(relPath, UploadsPrefix))
	if name == "." || name == "/" || name == ".." {
		return "", fmt.Errorf("not an upload path: %q", relPath)
	}
	return filepath.Join(l.dir, name), nil
}
