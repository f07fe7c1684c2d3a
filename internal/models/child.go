package models

import "time"

// ChildProfile represents a child in a family journal. The family link is
// immutable after creation.
type ChildProfile struct {
	ID            string     `json:"id"`
	FamilyID      string     `json:"familyId"`
	Name          string     `json:"name"`
	Birthdate     *time.Time `json:"birthdate,omitempty"`
	AvatarPhotoID string     `json:"avatarPhotoId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}
