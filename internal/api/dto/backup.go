package dto

import "time"

// BackupResponse represents a backup run
type BackupResponse struct {
	ID           string     `json:"id"`
	FileName     string     `json:"file_name"`
	S3Key        string     `json:"s3_key,omitempty"`
	S3Bucket     string     `json:"s3_bucket,omitempty"`
	FileSize     *int64     `json:"file_size,omitempty"`
	Type         string     `json:"type"`
	ScheduleID   *int64     `json:"schedule_id,omitempty"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedBy    string     `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// BackupListResponse represents a list of backups
type BackupListResponse struct {
	Items      []BackupResponse `json:"items"`
	Pagination PaginationInfo   `json:"pagination"`
}
