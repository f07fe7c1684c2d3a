package models

import "time"

// JournalEntry is a dated record combining photos, a description, tags,
// associated children, and an uploader, scoped to one family. Entries are
// immutable once created.
type JournalEntry struct {
	ID              string    `json:"id"`
	FamilyID        string    `json:"familyId"`
	ChildIDs        []string  `json:"childIds"`
	PhotoIDs        []string  `json:"photoIds"`
	DescriptionText string    `json:"descriptionText"`
	UploaderUserID  string    `json:"uploaderUserId"`
	Tags            []string  `json:"tags"`
	CreatedAt       time.Time `json:"createdAt"`
}
