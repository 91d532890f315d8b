package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chat-relay/internal/models"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen matches mimetype's default read limit.
const sniffLen = 3072

const maxNameAttempts = 100

// BlobStore saves an uploaded file and describes where it can be fetched.
type BlobStore interface {
	Save(ctx context.Context, originalName, declaredType string, r io.Reader) (models.UploadResult, error)
}

// LocalBlobStore writes uploads into a directory served at /uploads.
type LocalBlobStore struct {
	dir       string
	maxBytes  int64
	publicURL func(path string) string
	now       func() time.Time
}

// NewLocalBlobStore creates dir if needed. publicURL maps "/uploads/<file>" to the URL handed
// back to clients; nil returns the path unchanged.
func NewLocalBlobStore(dir string, maxBytes int64, publicURL func(string) string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if publicURL == nil {
		publicURL = func(p string) string { return p }
	}
	return &LocalBlobStore{dir: dir, maxBytes: maxBytes, publicURL: publicURL, now: time.Now}, nil
}

func (s *LocalBlobStore) Dir() string { return s.dir }

// Save stores r as "<unix-millis>-<base name>". The declared MIME type is kept
// unless it is missing or generic, in which case the content is sniffed.
func (s *LocalBlobStore) Save(_ context.Context, originalName, declaredType string, r io.Reader) (models.UploadResult, error) {
	name := cleanName(originalName)
	if name == "" {
		return models.UploadResult{}, invalid("file", "file name is required")
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return models.UploadResult{}, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	fileType := declaredType
	if isGenericType(fileType) {
		fileType = mimetype.Detect(head).String()
	}

	dest, stored, err := s.create(s.now().UnixMilli(), name)
	if err != nil {
		return models.UploadResult{}, err
	}
	destPath := dest.Name()

	src := io.MultiReader(bytes.NewReader(head), r)
	if s.maxBytes > 0 {
		src = io.LimitReader(src, s.maxBytes+1)
	}
	size, err := io.Copy(dest, src)
	if closeErr := dest.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(destPath)
		return models.UploadResult{}, fmt.Errorf("save file: %w", err)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		_ = os.Remove(destPath)
		return models.UploadResult{}, invalid("file", fmt.Sprintf("exceeds %d bytes", s.maxBytes))
	}

	return models.UploadResult{
		FileURL:  s.publicURL("/uploads/" + url.PathEscape(stored)),
		FileName: name,
		FileType: fileType,
		FileSize: size,
	}, nil
}

// create opens a new file for name, never replacing an existing upload. Names
// taken within the same millisecond get a counter: "<millis>-<n>-<name>".
func (s *LocalBlobStore) create(millis int64, name string) (*os.File, string, error) {
	for n := 0; n < maxNameAttempts; n++ {
		stored := fmt.Sprintf("%d-%s", millis, name)
		if n > 0 {
			stored = fmt.Sprintf("%d-%d-%s", millis, n, name)
		}
		f, err := os.OpenFile(filepath.Join(s.dir, stored), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			return f, stored, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("create destination file: %w", err)
		}
	}
	return nil, "", fmt.Errorf("create destination file: no free name for %q", name)
}

func cleanName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

func isGenericType(t string) bool {
	t = strings.TrimSpace(strings.ToLower(t))
	return t == "" || t == "application/octet-stream"
}
