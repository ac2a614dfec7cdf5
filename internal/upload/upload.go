// Package upload buffers multipart files to a scratch directory for the
// duration of one request.
package upload

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"geminigate/internal/filetype"
	"geminigate/internal/models"
)

const (
	handleContextKey = "upload_handle"

	// room for multipart framing and small text fields such as prompt
	formOverheadBytes = 1 << 20
	formMemoryBytes   = 1 << 20
)

// Uploader owns the scratch directory shared by all file routes.
type Uploader struct {
	dir      string
	maxBytes int64
	logger   *slog.Logger
}

// NewUploader creates dir if it does not exist.
func NewUploader(dir string, maxBytes int64, logger *slog.Logger) (*Uploader, error) {
	if dir == "" {
		return nil, errors.New("upload dir required")
	}
	if maxBytes <= 0 {
		return nil, errors.New("max upload size must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Uploader{dir: dir, maxBytes: maxBytes, logger: logger}, nil
}

// Dir returns the scratch directory.
func (u *Uploader) Dir() string {
	return u.dir
}

// Single accepts at most one file in field. The file is written to the
// scratch directory before the rest of the chain runs and removed after it
// returns, whatever the outcome. Requests without a file in field pass
// through with no handle.
func (u *Uploader) Single(field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, u.maxBytes+formOverheadBytes)
		err := c.Request.ParseMultipartForm(formMemoryBytes)
		defer u.removeForm(c.Request)
		switch {
		case err == nil:
		case errors.Is(err, http.ErrNotMultipart):
			c.Next()
			return
		case isTooLarge(err):
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		default:
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
			return
		}

		headers := c.Request.MultipartForm.File[field]
		switch {
		case len(headers) == 0:
			c.Next()
			return
		case len(headers) > 1:
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "only one file is allowed"})
			return
		}
		fh := headers[0]
		if fh.Size > u.maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}

		handle, err := u.save(c, fh)
		if handle != nil {
			defer u.release(handle)
		}
		if err != nil {
			u.logger.Error("save upload failed", "field", field, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "save file failed"})
			return
		}
		c.Set(handleContextKey, handle)
		c.Next()
	}
}

// HandleFromContext returns the file buffered by Single, if any.
func HandleFromContext(c *gin.Context) (*models.UploadHandle, bool) {
	val, ok := c.Get(handleContextKey)
	if !ok {
		return nil, false
	}
	handle, ok := val.(*models.UploadHandle)
	return handle, ok && handle != nil
}

func (u *Uploader) save(c *gin.Context, fh *multipart.FileHeader) (*models.UploadHandle, error) {
	dest := filepath.Join(u.dir, scratchName(fh.Filename))
	handle := &models.UploadHandle{
		Path:     dest,
		FileName: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Size:     fh.Size,
	}
	if err := c.SaveUploadedFile(fh, dest); err != nil {
		// a partial write may have left the file behind
		return handle, fmt.Errorf("save %s: %w", fh.Filename, err)
	}
	if handle.MimeType == "" || handle.MimeType == "application/octet-stream" {
		handle.MimeType = detectMIME(dest, handle.MimeType)
	}
	return handle, nil
}

// scratchName is a fresh uuid followed by the lowercase extension of the
// client's filename.
func scratchName(clientName string) string {
	return uuid.NewString() + filetype.Extension(clientName)
}

// isScratchName reports whether name could have come from scratchName.
func isScratchName(name string) bool {
	id, _, _ := strings.Cut(name, ".")
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func (u *Uploader) release(handle *models.UploadHandle) {
	if err := os.Remove(handle.Path); err != nil && !os.IsNotExist(err) {
		u.logger.Warn("remove scratch file failed", "path", handle.Path, "error", err)
		return
	}
	u.logger.Debug("scratch file removed", "path", handle.Path)
}

func (u *Uploader) removeForm(r *http.Request) {
	if r.MultipartForm == nil {
		return
	}
	if err := r.MultipartForm.RemoveAll(); err != nil {
		u.logger.Warn("remove multipart temp files failed", "error", err)
	}
}

func detectMIME(path, fallback string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		if fallback == "" {
			return "application/octet-stream"
		}
		return fallback
	}
	base, _, _ := strings.Cut(mt.String(), ";")
	return strings.TrimSpace(base)
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || errors.Is(err, multipart.ErrMessageTooLarge)
}
