package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/utafrali/videohub/internal/service"
	"github.com/utafrali/videohub/pkg/httputil"
	"github.com/utafrali/videohub/pkg/validator"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before spilling to temporary files.
const multipartMemory = 8 << 20

// decodeJSON decodes and validates a JSON body, writing a 400 or 413 envelope
// on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := validator.DecodeAndValidate(r, dst); err != nil {
		writeBodyError(w, err)
		return false
	}
	return true
}

// decodeOptionalJSON decodes a JSON body when one is present.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeBodyError(w, err)
		return false
	}
	return true
}

func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, httputil.ErrorResponse{
			StatusCode: http.StatusRequestEntityTooLarge,
			Message:    "request body too large",
			Errors:     []string{},
		})
		return
	}
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		httputil.WriteValidationError(w, err)
		return
	}
	httputil.WriteValidationError(w, errors.New("invalid request body"))
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// parseMultipart parses a multipart body, writing an error envelope on failure.
func parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeBodyError(w, err)
		return false
	}
	return true
}

// formFile returns the named upload, or nil when the field is absent.
// The caller closes the returned file.
func formFile(r *http.Request, field string) (*service.FileUpload, multipart.File, error) {
	f, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return &service.FileUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        f,
	}, f, nil
}

func closeFiles(files ...multipart.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}
