package models

// FileRef points at a file held by the provider's file store.
type FileRef struct {
	URI      string
	MimeType string
}

// GenerationRequest is one prompt, optionally grounded on an uploaded file.
type GenerationRequest struct {
	Prompt string
	File   *FileRef
}

// GenerationResult carries the generated text back to the handler.
type GenerationResult struct {
	Output string
}
