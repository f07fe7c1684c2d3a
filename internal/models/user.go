package models

import "time"

// UserAccount represents a parent account in the system. Accounts are
// keyed by the (AuthSubjectID, Provider) pair and are never deleted.
type UserAccount struct {
	ID            string    `json:"id"`
	AuthSubjectID string    `json:"authUID"`
	Provider      string    `json:"provider"`
	DisplayName   string    `json:"displayName"`
	Email         string    `json:"email"`
	PhotoURL      string    `json:"photoURL,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// StoredSession is the locally remembered sign-in triple used to
// recognize a returning user without re-authenticating.
type StoredSession struct {
	UserID        string `json:"userId"`
	AuthSubjectID string `json:"authUID"`
	Provider      string `json:"provider"`
}
