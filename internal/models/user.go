// Package models contains data structures for the application's domain models.
package models

import "time"

// User represents a local account that may be linked to a Twitter account.
//
// The credential pair (AccessToken, AccessTokenSecret) and Linked are only
// ever written together via LinkCredentials so that Linked is true exactly
// when both halves of the pair are present.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Password string `gorm:"not null" json:"-"`
	FullName string `json:"full_name"`

	// Linked is true once the OAuth1 handshake has completed.
	Linked bool `gorm:"default:false" json:"linked"`

	// RequestsMade counts Twitter API calls made on this user's behalf.
	RequestsMade int `gorm:"default:0" json:"requests_made"`

	// TwitterID is the numeric identity of the linked Twitter account.
	TwitterID *int64 `json:"twitter_id,omitempty"`

	// PendingOAuthToken holds the short-lived request token while a
	// handshake is in flight. It is cleared on completion and discarded
	// when a new handshake starts.
	PendingOAuthToken *string `json:"-"`

	AccessToken       *string `json:"-"`
	AccessTokenSecret *string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Tweets    []Tweet   `gorm:"foreignKey:UserID" json:"tweets,omitempty"`
}

// LinkCredentials commits the durable credential pair obtained from the
// access-token exchange and moves the account into the linked state,
// clearing the pending request token.
func (u *User) LinkCredentials(token, secret string, twitterID int64) {
	u.AccessToken = &token
	u.AccessTokenSecret = &secret
	u.TwitterID = &twitterID
	u.PendingOAuthToken = nil
	u.Linked = true
}

// HasCredentials reports whether both halves of the credential pair are present.
func (u *User) HasCredentials() bool {
	return u.AccessToken != nil && u.AccessTokenSecret != nil
}
