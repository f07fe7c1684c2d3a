package models

import "time"

// Family represents a shared journaling space with one owner and a set
// of members. MemberIDs keeps insertion order, owner first by convention.
type Family struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	OwnerID    string    `json:"ownerId"`
	InviteCode string    `json:"inviteCode"`
	MemberIDs  []string  `json:"memberIds"`
	CreatedAt  time.Time `json:"createdAt"`
}

// HasMember reports whether userID is in the member list.
func (f *Family) HasMember(userID string) bool {
	for _, id := range f.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// RemoveMember deletes userID from the member list, preserving the order
// of the remaining members. It reports whether the member was present.
func (f *Family) RemoveMember(userID string) bool {
	for i, id := range f.MemberIDs {
		if id == userID {
			f.MemberIDs = append(f.MemberIDs[:i], f.MemberIDs[i+1:]...)
			return true
		}
	}
	return false
}
