package models

// MintForm is the multipart form for a single certificate. The image file
// is read separately from the "image" field.
type MintForm struct {
	Account        string `form:"account" binding:"required"`
	Name           string `form:"name" binding:"required"`
	CompletionDate string `form:"date" binding:"required"`
}

// PreviewForm renders without pinning or registering.
type PreviewForm struct {
	Name           string `form:"name" binding:"required"`
	CompletionDate string `form:"date" binding:"required"`
	Layout         string `form:"layout"`
}

// BatchForm is the multipart form for a CSV batch. The CSV is read from the
// "file" field.
type BatchForm struct {
	Account string `form:"account" binding:"required"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
