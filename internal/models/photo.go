package models

import "time"

// PhotoAsset is a reference to an image blob stored outside the dataset.
// The bytes live in the blob store under FileName, derived from ID.
type PhotoAsset struct {
	ID        string    `json:"id"`
	FileName  string    `json:"fileName"`
	CreatedAt time.Time `json:"createdAt"`
}
