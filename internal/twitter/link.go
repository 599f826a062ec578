package twitter

import (
	"regexp"

	"github.com/C0l0red/twitter-client/internal/models"
)

var tweetLinkPattern = regexp.MustCompile(`^https://twitter\.com/(\w+)/status/(\d+)$`)

// TweetLink is the identifier/username pair extracted from a tweet URL.
type TweetLink struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ParseTweetLink extracts the tweet id and username from a public tweet
// link of the form https://twitter.com/<username>/status/<id>.
func ParseTweetLink(link string) (*TweetLink, error) {
	m := tweetLinkPattern.FindStringSubmatch(link)
	if m == nil {
		return nil, models.NewMalformedLinkError(link)
	}
	return &TweetLink{Username: m[1], ID: m[2]}, nil
}
