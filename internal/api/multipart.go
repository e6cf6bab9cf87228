package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/digkill/QuickAI/internal/apperr"
	"github.com/digkill/QuickAI/internal/service"
	"github.com/digkill/QuickAI/internal/upload"
)

const maxFieldBytes = 64 << 10

type multipartForm struct {
	fields      map[string]string
	path        string
	contentType string
}

func (f multipartForm) file() service.FileRequest {
	return service.FileRequest{Path: f.path, ContentType: f.contentType}
}

// readMultipart streams the request, spooling the fileField part to UploadTmpDir.
// Ownership of the spooled file passes to the caller; on error it is already removed.
// A missing file part is not an error here.
func (s *Server) readMultipart(w http.ResponseWriter, r *http.Request, fileField string) (multipartForm, error) {
	form := multipartForm{fields: map[string]string{}}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return form, apperr.Validation("Expected multipart form data")
	}

	r.Body = http.MaxBytesReader(w, r.Body, 4*s.opts.MaxUploadBytes+maxFieldBytes)
	reader, err := r.MultipartReader()
	if err != nil {
		return form, apperr.Validation("Expected multipart form data")
	}

	fail := func(err error) (multipartForm, error) {
		upload.Acquire(form.path, s.log).Release()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return multipartForm{}, apperr.Validation(upload.TooLargeMessage(uploadLabel(fileField), s.opts.MaxUploadBytes))
		}
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return multipartForm{}, err
		}
		return multipartForm{}, apperr.Validation("Malformed multipart body")
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(err)
		}

		name := part.FormName()
		switch {
		case part.FileName() == "":
			raw, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			if err != nil {
				return fail(err)
			}
			form.fields[name] = strings.TrimSpace(string(raw))
		case name == fileField && form.path == "":
			path, err := upload.Spool(s.opts.UploadTmpDir, part.FileName(), part, s.opts.MaxUploadBytes)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if !errors.As(err, &tooLarge) {
					err = apperr.Internal("store upload", err)
				}
				return fail(err)
			}
			form.path = path
			form.contentType = part.Header.Get("Content-Type")
		}
		_ = part.Close()
	}
	return form, nil
}

func uploadLabel(field string) string {
	if field == "resume" {
		return "Resume"
	}
	return "Image"
}
