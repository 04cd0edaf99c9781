package domain

import "time"

type KeyScheme string

const (
	KeySchemePlain  KeyScheme = "plain"
	KeySchemeAESCBC KeyScheme = "aes-cbc"
)

// StorageCredential holds the S3 credentials for the active storage
// target. SecretKey is stored in the form indicated by KeyScheme; the
// scheme is recorded explicitly and never inferred from the value.
type StorageCredential struct {
	ID          int64     `db:"id"`
	AccessKey   string    `db:"access_key"`
	SecretKey   string    `db:"secret_key"`
	KeyScheme   KeyScheme `db:"key_scheme"`
	Region      string    `db:"region"`
	Bucket      string    `db:"bucket"`
	Endpoint    string    `db:"endpoint"`
	Description *string   `db:"description"`
	Active      bool      `db:"active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func NewStorageCredential(accessKey, secretKey string, scheme KeyScheme, region, bucket, endpoint string) *StorageCredential {
	now := time.Now().UTC()
	return &StorageCredential{
		AccessKey: accessKey,
		SecretKey: secretKey,
		KeyScheme: scheme,
		Region:    region,
		Bucket:    bucket,
		Endpoint:  endpoint,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
