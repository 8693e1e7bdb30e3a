package models

import "time"

// EvidenceUpload is a presigned slot a client can PUT evidence bytes into.
// The service only ever hands out the opaque URI.
type EvidenceUpload struct {
	URI       string    `json:"uri"`
	UploadURL string    `json:"uploadUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}
