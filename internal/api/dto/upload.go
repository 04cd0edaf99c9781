package dto

// UploadResponse represents a public upload result
type UploadResponse struct {
	Path string `json:"path"` // stable proxy path, e.g. /files/uploads/ab12cd34-name.png
	Key  string `json:"key"`
}

// PrivateUploadResponse represents a private upload result
type PrivateUploadResponse struct {
	Key string `json:"key"`
}

// SignedURLResponse carries a time-limited download URL
type SignedURLResponse struct {
	URL string `json:"url"`
}
