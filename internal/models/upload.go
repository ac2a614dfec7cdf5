package models

// UploadHandle is a request-scoped file buffered to the scratch directory.
type UploadHandle struct {
	Path     string
	FileName string
	MimeType string
	Size     int64
}
