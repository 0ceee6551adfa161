package storage

import (
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrForeignURL is returned by Delete for URLs outside the store.
var ErrForeignURL = errors.New("url does not belong to this object store")

// Extension returns the lower-cased extension of name without the dot,
// or "" when there is none.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// ObjectKey builds a fresh key of the form <folder>/<uuid>.<ext>.
func ObjectKey(folder, originalName string) string {
	name := uuid.NewString()
	if ext := Extension(originalName); ext != "" {
		name += "." + ext
	}
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}

// ContentType maps an image extension to its MIME type.
func ContentType(ext string) string {
	switch ext {
	case "":
		return "application/octet-stream"
	case "svg":
		return "image/svg+xml"
	case "jpg":
		return "image/jpeg"
	default:
		return "image/" + ext
	}
}

// keyFromURL strips base from url, reporting whether url lives under it.
func keyFromURL(base, url string) (string, bool) {
	prefix := strings.TrimRight(base, "/") + "/"
	if base == "" || !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}

// Upload is a file received from a client
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Size        int64
}

// IsImage reports whether the client declared an image content type.
func (u Upload) IsImage() bool {
	return strings.HasPrefix(u.ContentType, "image/")
}

// Object converts the upload into an Object stored under folder.
func (u Upload) Object(folder string) Object {
	return Object{
		Folder:       folder,
		OriginalName: u.Filename,
		Body:         u.Body,
		Size:         u.Size,
	}
}
