package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/iheejigoro/apiserver/internal/storage"
)

const (
	formFieldImage     = "image"
	maxImageBytes      = 5 << 20
	maxMultipartMemory = 32 << 20
	maxRequestBytes    = 6*maxImageBytes + 1<<20
)

var errTooLarge = errors.New("uploaded file too large")

var allowedImageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// imageFieldError is reported under the "image" key like other field errors.
type imageFieldError struct {
	message string
}

func (e *imageFieldError) Error() string {
	return e.message
}

func (e *imageFieldError) fields() map[string]string {
	return map[string]string{formFieldImage: e.message}
}

func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return &imageFieldError{message: "request body too large"}
		}
		return errors.New("invalid multipart form")
	}
	return nil
}

// readImages loads every file under the "image" form field. The extension
// decides the content type; only jpg, jpeg, png and webp are accepted.
func readImages(form *multipart.Form) ([]storage.File, error) {
	if form == nil {
		return nil, nil
	}

	headers := form.File[formFieldImage]
	files := make([]storage.File, 0, len(headers))
	for _, header := range headers {
		file, err := readImage(header)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

func readImage(header *multipart.FileHeader) (storage.File, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok := allowedImageTypes[ext]
	if !ok {
		return storage.File{}, &imageFieldError{message: "only jpg/jpeg/png/webp allowed"}
	}
	if header.Size > maxImageBytes {
		return storage.File{}, &imageFieldError{message: fmt.Sprintf("%s is too large (max 5MB)", header.Filename)}
	}

	f, err := header.Open()
	if err != nil {
		return storage.File{}, fmt.Errorf("open upload: %w", err)
	}
	data, err := readFileLimited(f, maxImageBytes)
	_ = f.Close()
	if err != nil {
		if errors.Is(err, errTooLarge) {
			return storage.File{}, &imageFieldError{message: fmt.Sprintf("%s is too large (max 5MB)", header.Filename)}
		}
		return storage.File{}, err
	}
	if len(data) == 0 {
		return storage.File{}, &imageFieldError{message: fmt.Sprintf("%s is empty", header.Filename)}
	}

	return storage.File{
		Name:        filepath.Base(header.Filename),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func writeUploadError(w http.ResponseWriter, err error) {
	var imageErr *imageFieldError
	if errors.As(err, &imageErr) {
		writeFieldErrors(w, imageErr.fields())
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}
