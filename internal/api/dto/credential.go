package dto

import "time"

// SetCredentialsRequest represents the storage credential update request
type SetCredentialsRequest struct {
	AccessKey   string  `json:"access_key" binding:"required"`
	SecretKey   string  `json:"secret_key" binding:"required"`
	Region      string  `json:"region"`
	Bucket      string  `json:"bucket" binding:"required"`
	Endpoint    string  `json:"endpoint"`
	Description *string `json:"description,omitempty"`
}

// CredentialResponse represents the active storage credential. The
// secret key is always masked.
type CredentialResponse struct {
	AccessKey   string    `json:"access_key"`
	SecretKey   string    `json:"secret_key"` // masked
	Region      string    `json:"region"`
	Bucket      string    `json:"bucket"`
	Endpoint    string    `json:"endpoint"`
	Description *string   `json:"description,omitempty"`
	Encrypted   bool      `json:"encrypted"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StorageTestResponse represents the connection test result
type StorageTestResponse struct {
	Status string `json:"status"`
}
