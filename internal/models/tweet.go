package models

import "time"

// Tweet is a local mirror of a tweet created through this service.
// Rows are written once when a create action succeeds and never mutated;
// they are removed only when the owning user is deleted.
type Tweet struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// TweetID is Twitter's identifier for the status.
	TweetID int64  `gorm:"not null" json:"tweet_id"`
	Text    string `gorm:"type:text;not null" json:"text"`

	// PostedAt is Twitter's created_at for the status, falling back to
	// local time when the upstream timestamp cannot be parsed.
	PostedAt time.Time `gorm:"not null" json:"posted_at"`

	UserID    uint      `gorm:"not null;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// twitterTimeLayout is the created_at format used by the Twitter v1.1 API.
const twitterTimeLayout = "Mon Jan 02 15:04:05 -0700 2006"

// ParseTwitterTime parses Twitter's native created_at timestamp format,
// falling back to the current local time if the value is unparseable.
func ParseTwitterTime(value string) time.Time {
	t, err := time.Parse(twitterTimeLayout, value)
	if err != nil {
		return time.Now()
	}
	return t
}
