package twitter

import (
	"context"
	"errors"
	"strings"

	"github.com/C0l0red/twitter-client/internal/models"
	"github.com/C0l0red/twitter-client/internal/repository"
)

// Engine drives the two-step OAuth1 account-linking handshake:
// UNLINKED → REQUEST_ISSUED → LINKED. A failed step leaves the account in
// its prior state; errors are surfaced synchronously to the caller.
//
// Concurrent Begin calls for the same account are last-writer-wins: the
// later pending token overwrites the earlier one and only the later
// handshake can complete. There is no per-account lock.
type Engine struct {
	client *Client
	users  repository.UserRepository
}

// NewEngine returns a handshake Engine over the given upstream client and
// user store.
func NewEngine(client *Client, users repository.UserRepository) *Engine {
	return &Engine{client: client, users: users}
}

// BeginResult is returned from a successful handshake step 1.
type BeginResult struct {
	// AuthorizeURL is the consent URL the user must visit out of band to
	// obtain their verifier PIN.
	AuthorizeURL string `json:"url"`
}

// CompleteResult is returned from a successful handshake step 2.
type CompleteResult struct {
	// Renamed is true when adopting the Twitter screen name changed the
	// local username.
	Renamed bool   `json:"renamed"`
	OldName string `json:"old_name,omitempty"`
	NewName string `json:"new_name"`
}

// Begin performs handshake step 1: it obtains a short-lived request token
// signed with the application key pair, persists it on the account and
// returns the consent URL. Any previously pending token is discarded.
func (e *Engine) Begin(ctx context.Context, user *models.User) (*BeginResult, error) {
	grant, err := e.client.RequestToken(ctx)
	if err != nil {
		return nil, err
	}
	if grant.CallbackConfirmed != "true" {
		return nil, models.NewCallbackNotConfirmedError()
	}

	token := grant.Token
	user.PendingOAuthToken = &token
	if err := e.users.Update(ctx, user); err != nil {
		return nil, err
	}

	return &BeginResult{AuthorizeURL: e.client.AuthorizeURL(token)}, nil
}

// Complete performs handshake step 2: it exchanges the pending request
// token and the user's verifier PIN for the durable credential pair,
// commits it, and adopts the Twitter screen name as the local username.
//
// If the commit fails after a successful exchange the pending token is left
// in place (now stale) and the user must restart from step 1.
func (e *Engine) Complete(ctx context.Context, user *models.User, verifier string) (*CompleteResult, error) {
	if user.PendingOAuthToken == nil {
		return nil, models.NewHandshakeNotStartedError()
	}

	grant, err := e.client.AccessToken(ctx, *user.PendingOAuthToken, verifier)
	if err != nil {
		return nil, translateExchangeError(err, verifier)
	}

	oldName := user.Username
	user.LinkCredentials(grant.Token, grant.Secret, grant.UserID)
	user.Username = grant.ScreenName

	if err := e.users.Update(ctx, user); err != nil {
		return nil, models.NewCommitFailedError(err)
	}

	result := &CompleteResult{NewName: grant.ScreenName}
	if !strings.EqualFold(oldName, grant.ScreenName) {
		result.Renamed = true
		result.OldName = strings.ToLower(oldName)
	}
	return result, nil
}

// translateExchangeError maps an access-token exchange failure to the
// caller-facing verifier error. A verifier with a leading zero has been
// truncated or mistyped somewhere along the way and gets a pointed hint;
// anything else carries the upstream payload through.
func translateExchangeError(err error, verifier string) error {
	if models.CodeOf(err) != models.CodeUpstreamRejected {
		return err
	}
	if strings.HasPrefix(verifier, "0") {
		return models.NewVerifierRejectedError(
			"The verifier token seems to be bad, please repeat step 1", "")
	}
	var upstream string
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		upstream = appErr.Upstream
	}
	return models.NewVerifierRejectedError(
		"Something went wrong with Twitter, please try again", upstream)
}
