package api

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/platinummonkey/grinplace/pkg/apperrors"
	"github.com/platinummonkey/grinplace/pkg/storage"
)

// defaultMaxUploadBytes applies when no upload limit is configured
const defaultMaxUploadBytes = 5 << 20

// formFile reads one file field from a multipart request. The returned
// closer must be called once the upload has been stored.
func formFile(r *http.Request, field string, maxBytes int64) (storage.Upload, func(), error) {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr), errors.Is(err, multipart.ErrMessageTooLarge):
			return storage.Upload{}, nil, apperrors.NewFieldValidation(field, "file is too large")
		default:
			return storage.Upload{}, nil, apperrors.NewFieldValidation(field, "a multipart file is required")
		}
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return storage.Upload{}, nil, apperrors.NewFieldValidation(field, "no file uploaded")
	}
	if header.Size > maxBytes {
		file.Close()
		return storage.Upload{}, nil, apperrors.NewFieldValidation(field, "file is too large")
	}

	release := func() {
		file.Close()
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}
	return storage.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
		Size:        header.Size,
	}, release, nil
}
