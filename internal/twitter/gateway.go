package twitter

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/C0l0red/twitter-client/internal/models"
	"github.com/C0l0red/twitter-client/internal/repository"
)

// maxTimelineCount is the upstream cap on home-timeline page size.
const maxTimelineCount = 200

// Gateway performs Twitter API actions on a linked user's behalf. Every
// action checks the linked precondition before touching the network, signs
// the call with the user's stored credential pair, and surfaces upstream
// failures with the raw payload attached.
type Gateway struct {
	client *Client
	users  repository.UserRepository
	tweets repository.TweetRepository
}

// NewGateway returns a Gateway over the given upstream client and stores.
func NewGateway(client *Client, users repository.UserRepository, tweets repository.TweetRepository) *Gateway {
	return &Gateway{client: client, users: users, tweets: tweets}
}

// ReplyInput identifies the tweet being replied to by link or by id.
type ReplyInput struct {
	Text     string
	Link     string
	StatusID int64
}

// PostTweet posts a new status and mirrors it locally.
func (g *Gateway) PostTweet(ctx context.Context, user *models.User, text string) (json.RawMessage, error) {
	if err := requireLinked(user); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, models.NewValidationError("Please enter a tweet")
	}

	params := url.Values{}
	params.Set("status", text)
	return g.createStatus(ctx, user, params)
}

// ReplyToTweet replies to an existing tweet identified by link or id.
func (g *Gateway) ReplyToTweet(ctx context.Context, user *models.User, in ReplyInput) (json.RawMessage, error) {
	if err := requireLinked(user); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, models.NewValidationError("Please enter a reply")
	}

	statusID := in.StatusID
	if in.Link != "" {
		link, err := ParseTweetLink(in.Link)
		if err != nil {
			return nil, err
		}
		statusID, err = strconv.ParseInt(link.ID, 10, 64)
		if err != nil {
			return nil, models.NewMalformedLinkError(in.Link)
		}
	}
	if statusID == 0 {
		return nil, models.NewValidationError("Please enter either a tweet ID or link to reply to")
	}

	params := url.Values{}
	params.Set("status", in.Text)
	params.Set("in_reply_to_status_id", strconv.FormatInt(statusID, 10))
	params.Set("auto_populate_reply_metadata", "true")
	return g.createStatus(ctx, user, params)
}

// QuoteTweet quotes an existing tweet by its link.
func (g *Gateway) QuoteTweet(ctx context.Context, user *models.User, text, link string) (json.RawMessage, error) {
	if err := requireLinked(user); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, models.NewValidationError("Please enter a quote")
	}
	if _, err := ParseTweetLink(link); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("status", text)
	params.Set("attachment_url", link)
	return g.createStatus(ctx, user, params)
}

// LookupTweets fetches tweets by id. A single result is unwrapped to a bare
// object; multiple results come back as a list.
func (g *Gateway) LookupTweets(ctx context.Context, user *models.User, ids []int64) (json.RawMessage, error) {
	if err := requireLinked(user); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, models.NewValidationError("Please enter at least one tweet ID")
	}

	params := url.Values{}
	params.Set("id", joinInt64(ids))
	params.Set("include_entities", "true")

	body, err := g.client.LookupStatuses(ctx, credentialOf(user), params)
	if err != nil {
		return nil, err
	}
	if err := g.countRequest(ctx, user); err != nil {
		return nil, err
	}
	return unwrapSingle(body)
}

// HomeTimeline fetches the user's home timeline. count caps the number of
// tweets returned and may not exceed the upstream limit of 200.
func (g *Gateway) HomeTimeline(ctx context.Context, user *models.User, count int) (json.RawMessage, error) {
	if err := requireLinked(user); err != nil {
		return nil, err
	}
	if count > maxTimelineCount {
		return nil, models.NewValidationError("count may not exceed 200")
	}

	params := url.Values{}
	if count > 0 {
		params.Set("count", strconv.Itoa(count))
	}
	params.Set("exclude_replies", "false")
	params.Set("include_entities", "true")

	body, err := g.client.HomeTimeline(ctx, credentialOf(user), params)
	if err != nil {
		return nil, err
	}
	if err := g.countRequest(ctx, user); err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// LookupUsers fetches Twitter users by id or screen name, with the same
// single-result unwrapping as LookupTweets.
func (g *Gateway) LookupUsers(ctx context.Context, user *models.User, ids []int64, usernames []string) (json.RawMessage, error) {
	if err := requireLinked(user); err != nil {
		return nil, err
	}
	if len(ids) == 0 && len(usernames) == 0 {
		return nil, models.NewValidationError("Please enter an id or username")
	}

	params := url.Values{}
	if len(usernames) > 0 {
		params.Set("screen_name", strings.Join(usernames, ","))
	}
	if len(ids) > 0 {
		params.Set("user_id", joinInt64(ids))
	}

	body, err := g.client.LookupUsers(ctx, credentialOf(user), params)
	if err != nil {
		return nil, err
	}
	if err := g.countRequest(ctx, user); err != nil {
		return nil, err
	}
	return unwrapSingle(body)
}

// createStatus runs a content-creating call, mirrors the resulting tweet
// locally and bumps the request counter before handing back the upstream
// response verbatim.
func (g *Gateway) createStatus(ctx context.Context, user *models.User, params url.Values) (json.RawMessage, error) {
	body, err := g.client.UpdateStatus(ctx, credentialOf(user), params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ID        int64  `json:"id"`
		Text      string `json:"text"`
		CreatedAt string `json:"created_at"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, models.NewInternalError(err)
	}

	mirror := &models.Tweet{
		TweetID:  payload.ID,
		Text:     payload.Text,
		PostedAt: models.ParseTwitterTime(payload.CreatedAt),
		UserID:   user.ID,
	}
	if err := g.tweets.Create(ctx, mirror); err != nil {
		return nil, err
	}
	if err := g.countRequest(ctx, user); err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func (g *Gateway) countRequest(ctx context.Context, user *models.User) error {
	user.RequestsMade++
	return g.users.Update(ctx, user)
}

func requireLinked(user *models.User) error {
	if !user.Linked || !user.HasCredentials() {
		return models.NewAccountNotLinkedError()
	}
	return nil
}

func credentialOf(user *models.User) Credential {
	return Credential{Token: *user.AccessToken, Secret: *user.AccessTokenSecret}
}

// unwrapSingle collapses a one-element JSON array to its element, leaving
// everything else untouched. Existing clients of this API rely on the
// bare-object shape for single-id lookups.
func unwrapSingle(body []byte) (json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return json.RawMessage(body), nil
}

func joinInt64(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
