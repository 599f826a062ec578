package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/C0l0red/twitter-client/internal/models"
	"github.com/C0l0red/twitter-client/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPIServer mocks the v1.1 REST endpoints behind an /1.1 prefix.
type fakeAPIServer struct {
	*httptest.Server

	handler func(w http.ResponseWriter, r *http.Request)
	calls   atomic.Int64

	lastPath  string
	lastQuery map[string][]string
	lastAuth  string
}

func newFakeAPIServer(t *testing.T) *fakeAPIServer {
	t.Helper()

	f := &fakeAPIServer{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.lastPath = r.URL.Path
		f.lastQuery = r.URL.Query()
		f.lastAuth = r.Header.Get("Authorization")
		if f.handler != nil {
			f.handler(w, r)
			return
		}
		w.Write([]byte(`{"id": 1325888640115937283, "text": "hello", "created_at": "Mon Nov 09 18:01:00 +0000 2020"}`))
	}))
	t.Cleanup(f.Server.Close)
	return f
}

type gatewayFixture struct {
	gateway  *Gateway
	upstream *fakeAPIServer
	users    repository.UserRepository
	tweets   repository.TweetRepository
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()

	upstream := newFakeAPIServer(t)
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	tweets := repository.NewTweetRepository(db)
	return &gatewayFixture{
		gateway:  NewGateway(newTestClient(upstream.URL), users, tweets),
		upstream: upstream,
		users:    users,
		tweets:   tweets,
	}
}

// linkedUser persists a user that already holds a credential pair.
func linkedUser(t *testing.T, users repository.UserRepository, username string) *models.User {
	t.Helper()

	user := createUser(t, users, username)
	user.LinkCredentials("AT", "ATS", 999)
	require.NoError(t, users.Update(context.Background(), user))
	return user
}

func TestGatewayRequiresLinkedAccount(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	ctx := context.Background()
	unlinked := createUser(t, f.users, "judy")

	calls := []struct {
		name string
		run  func() error
	}{
		{"post tweet", func() error {
			_, err := f.gateway.PostTweet(ctx, unlinked, "hi")
			return err
		}},
		{"reply", func() error {
			_, err := f.gateway.ReplyToTweet(ctx, unlinked, ReplyInput{Text: "hi", StatusID: 1})
			return err
		}},
		{"quote", func() error {
			_, err := f.gateway.QuoteTweet(ctx, unlinked, "hi", "https://twitter.com/a/status/1")
			return err
		}},
		{"lookup tweets", func() error {
			_, err := f.gateway.LookupTweets(ctx, unlinked, []int64{1})
			return err
		}},
		{"home timeline", func() error {
			_, err := f.gateway.HomeTimeline(ctx, unlinked, 10)
			return err
		}},
		{"lookup users", func() error {
			_, err := f.gateway.LookupUsers(ctx, unlinked, nil, []string{"jack"})
			return err
		}},
	}

	for _, call := range calls {
		t.Run(call.name, func(t *testing.T) {
			err := call.run()
			assert.Equal(t, models.CodeAccountNotLinked, models.CodeOf(err))
		})
	}
	// The precondition is checked before any network traffic.
	assert.Zero(t, f.upstream.calls.Load())
}

func TestPostTweet(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	ctx := context.Background()
	user := linkedUser(t, f.users, "kate")

	body, err := f.gateway.PostTweet(ctx, user, "hello")
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "hello", payload["text"])

	assert.Equal(t, "/1.1/statuses/update.json", f.upstream.lastPath)
	assert.Equal(t, "hello", f.upstream.lastQuery["status"][0])
	assert.Contains(t, f.upstream.lastAuth, `oauth_token="AT"`)

	// The tweet is mirrored locally and the counter moves.
	mirrored, err := f.tweets.ListByUser(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, mirrored, 1)
	assert.Equal(t, int64(1325888640115937283), mirrored[0].TweetID)
	assert.Equal(t, "hello", mirrored[0].Text)
	assert.Equal(t, 2020, mirrored[0].PostedAt.Year())

	assert.Equal(t, 1, reload(t, f.users, user.ID).RequestsMade)
}

func TestPostTweetValidation(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	user := linkedUser(t, f.users, "leo")

	_, err := f.gateway.PostTweet(context.Background(), user, "   ")
	assert.Equal(t, models.CodeValidation, models.CodeOf(err))
	assert.Zero(t, f.upstream.calls.Load())
}

func TestReplyToTweet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       ReplyInput
		wantID   string
		wantCode string
	}{
		{
			name:   "by id",
			in:     ReplyInput{Text: "nice", StatusID: 42},
			wantID: "42",
		},
		{
			name:   "by link",
			in:     ReplyInput{Text: "nice", Link: "https://twitter.com/redDevv/status/1325888640115937283"},
			wantID: "1325888640115937283",
		},
		{
			name:     "neither id nor link",
			in:       ReplyInput{Text: "nice"},
			wantCode: models.CodeValidation,
		},
		{
			name:     "malformed link",
			in:       ReplyInput{Text: "nice", Link: "https://example.com/status/1"},
			wantCode: models.CodeMalformedLink,
		},
		{
			name:     "empty text",
			in:       ReplyInput{StatusID: 42},
			wantCode: models.CodeValidation,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newGatewayFixture(t)
			user := linkedUser(t, f.users, "mallory")

			_, err := f.gateway.ReplyToTweet(context.Background(), user, tt.in)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, models.CodeOf(err))
				assert.Zero(t, f.upstream.calls.Load())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, f.upstream.lastQuery["in_reply_to_status_id"][0])
			assert.Equal(t, "true", f.upstream.lastQuery["auto_populate_reply_metadata"][0])
		})
	}
}

func TestQuoteTweet(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	ctx := context.Background()
	user := linkedUser(t, f.users, "nick")

	link := "https://twitter.com/redDevv/status/1325888640115937283"
	_, err := f.gateway.QuoteTweet(ctx, user, "look at this", link)
	require.NoError(t, err)
	assert.Equal(t, link, f.upstream.lastQuery["attachment_url"][0])

	_, err = f.gateway.QuoteTweet(ctx, user, "look", "not a link")
	assert.Equal(t, models.CodeMalformedLink, models.CodeOf(err))
}

func TestLookupTweetsUnwrapsSingle(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	ctx := context.Background()
	user := linkedUser(t, f.users, "olivia")
	f.upstream.handler = func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 1, "text": "only one"}]`))
	}

	body, err := f.gateway.LookupTweets(ctx, user, []int64{1})
	require.NoError(t, err)
	// A one-element list comes back as the bare object.
	assert.JSONEq(t, `{"id": 1, "text": "only one"}`, string(body))
	assert.Equal(t, "/1.1/statuses/lookup.json", f.upstream.lastPath)
	assert.Equal(t, "1", f.upstream.lastQuery["id"][0])

	f.upstream.handler = func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 1}, {"id": 2}]`))
	}
	body, err = f.gateway.LookupTweets(ctx, user, []int64{1, 2})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id": 1}, {"id": 2}]`, string(body))
	assert.Equal(t, "1,2", f.upstream.lastQuery["id"][0])
}

func TestLookupUsers(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	ctx := context.Background()
	user := linkedUser(t, f.users, "peggy")
	f.upstream.handler = func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 999, "screen_name": "jack"}]`))
	}

	body, err := f.gateway.LookupUsers(ctx, user, []int64{999}, []string{"jack"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 999, "screen_name": "jack"}`, string(body))
	assert.Equal(t, "/1.1/users/lookup.json", f.upstream.lastPath)
	assert.Equal(t, "jack", f.upstream.lastQuery["screen_name"][0])
	assert.Equal(t, "999", f.upstream.lastQuery["user_id"][0])

	_, err = f.gateway.LookupUsers(ctx, user, nil, nil)
	assert.Equal(t, models.CodeValidation, models.CodeOf(err))
}

func TestHomeTimeline(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	ctx := context.Background()
	user := linkedUser(t, f.users, "quentin")
	f.upstream.handler = func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 1}]`))
	}

	body, err := f.gateway.HomeTimeline(ctx, user, 50)
	require.NoError(t, err)
	// Timelines stay a list even with one element.
	assert.JSONEq(t, `[{"id": 1}]`, string(body))
	assert.Equal(t, "50", f.upstream.lastQuery["count"][0])
	assert.Equal(t, "false", f.upstream.lastQuery["exclude_replies"][0])

	_, err = f.gateway.HomeTimeline(ctx, user, 201)
	assert.Equal(t, models.CodeValidation, models.CodeOf(err))
}

func TestGatewayUpstreamFailure(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	ctx := context.Background()
	user := linkedUser(t, f.users, "rachel")
	f.upstream.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"errors":[{"code":131,"message":"Internal error"}]}`))
	}

	_, err := f.gateway.PostTweet(ctx, user, "hello")
	assert.Equal(t, models.CodeUpstreamRequestFailed, models.CodeOf(err))

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Upstream, "Internal error")

	// Nothing is mirrored and the counter stays put on failure.
	mirrored, err := f.tweets.ListByUser(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, mirrored)
	assert.Zero(t, reload(t, f.users, user.ID).RequestsMade)
}
