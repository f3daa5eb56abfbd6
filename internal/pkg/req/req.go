/*
Package req provides helper functions for HTTP request parsing and data binding.

It covers JSON and multipart form parsing with size limits, used by the
avatar upload and push key endpoints.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"stagechat/internal/pkg/errs"
)

const (
	// MaxFormMemory defines the maximum amount of memory ParseMultipartForm
	// will use for non-file fields before spilling to temporary files.
	MaxFormMemory int64 = 8 << 20 // 8 MB

	// MaxRequestFileSize defines the maximum allowed size for the entire
	// request body of an upload, enforced via http.MaxBytesReader.
	MaxRequestFileSize int64 = 4 << 20 // 4 MB
)

// BindJSON binds the JSON request body to the destination struct dst.
func BindJSON(r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// SetupMultipart caps the request body size and parses multipart form data.
func SetupMultipart(w http.ResponseWriter, r *http.Request) *errs.CustomError {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestFileSize)

	err := r.ParseMultipartForm(MaxFormMemory)

	if err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}

		return errs.NewError(errs.ErrFormParseFailed)
	}

	return nil
}
