package twitter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/C0l0red/twitter-client/internal/config"
	"github.com/C0l0red/twitter-client/internal/models"

	"github.com/dghubble/oauth1"
)

const maxResponseBodyBytes = 1 << 20

// Credential is a user's durable access-token pair. Only the raw pair is
// ever stored; the signed form is rebuilt fresh on every call.
type Credential struct {
	Token  string
	Secret string
}

// RequestTokenGrant is the short-lived grant issued in handshake step 1.
type RequestTokenGrant struct {
	Token  string
	Secret string
	// CallbackConfirmed carries the oauth_callback_confirmed value
	// verbatim; the handshake engine requires the literal "true".
	CallbackConfirmed string
}

// AccessGrant is the durable credential obtained in handshake step 2.
type AccessGrant struct {
	Token      string
	Secret     string
	UserID     int64
	ScreenName string
}

// Client talks to the Twitter OAuth and v1.1 REST endpoints.
type Client struct {
	signer      *requestSigner
	oauthConfig *oauth1.Config
	authBase    string
	apiBase     string
	httpClient  *http.Client
}

// NewClient builds a Client from the application configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		signer:      newRequestSigner(cfg.TwitterAPIKey, cfg.TwitterAPISecret),
		oauthConfig: oauth1.NewConfig(cfg.TwitterAPIKey, cfg.TwitterAPISecret),
		authBase:    strings.TrimRight(cfg.TwitterAuthBaseURL, "/"),
		apiBase:     strings.TrimRight(cfg.TwitterAPIBaseURL, "/"),
		httpClient:  &http.Client{Timeout: cfg.TwitterTimeout()},
	}
}

// RequestToken asks Twitter for a short-lived request token, signing the
// call with the application key pair and the out-of-band callback marker.
func (c *Client) RequestToken(ctx context.Context) (*RequestTokenGrant, error) {
	requestURL := c.authBase + "/oauth/request_token"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, nil)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	req.Header.Set("Authorization", c.signer.authorizationHeader(http.MethodPost, requestURL))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewUpstreamUnreachableError(err)
	}
	defer resp.Body.Close()

	body := readBody(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.NewUpstreamRejectedError(resp.StatusCode, body)
	}

	values, err := ParseForm(body)
	if err != nil {
		appErr := models.NewUpstreamRejectedError(resp.StatusCode, body)
		appErr.Err = err
		return nil, appErr
	}

	grant := &RequestTokenGrant{}
	if grant.Token, err = formValue(values, "oauth_token"); err == nil {
		if grant.Secret, err = formValue(values, "oauth_token_secret"); err == nil {
			grant.CallbackConfirmed, err = formValue(values, "oauth_callback_confirmed")
		}
	}
	if err != nil {
		appErr := models.NewUpstreamRejectedError(resp.StatusCode, body)
		appErr.Err = err
		return nil, appErr
	}
	return grant, nil
}

// AuthorizeURL builds the user-facing consent URL for a request token.
func (c *Client) AuthorizeURL(token string) string {
	return c.authBase + "/oauth/authorize?oauth_token=" + url.QueryEscape(token)
}

// AccessToken exchanges a pending request token and the user's verifier for
// the durable access-token pair. The upstream endpoint accepts this call
// unsigned beyond the parameters themselves.
func (c *Client) AccessToken(ctx context.Context, requestToken, verifier string) (*AccessGrant, error) {
	params := url.Values{}
	params.Set("oauth_token", requestToken)
	params.Set("oauth_verifier", verifier)
	requestURL := c.authBase + "/oauth/access_token?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, nil)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewUpstreamUnreachableError(err)
	}
	defer resp.Body.Close()

	body := readBody(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.NewUpstreamRejectedError(resp.StatusCode, body)
	}

	values, err := ParseForm(body)
	if err != nil {
		appErr := models.NewUpstreamRejectedError(resp.StatusCode, body)
		appErr.Err = err
		return nil, appErr
	}

	grant := &AccessGrant{}
	var rawUserID string
	if grant.Token, err = formValue(values, "oauth_token"); err == nil {
		if grant.Secret, err = formValue(values, "oauth_token_secret"); err == nil {
			if rawUserID, err = formValue(values, "user_id"); err == nil {
				grant.ScreenName, err = formValue(values, "screen_name")
			}
		}
	}
	if err == nil {
		grant.UserID, err = strconv.ParseInt(rawUserID, 10, 64)
		if err != nil {
			err = fmt.Errorf("non-numeric user_id %q", rawUserID)
		}
	}
	if err != nil {
		appErr := models.NewUpstreamRejectedError(resp.StatusCode, body)
		appErr.Err = err
		return nil, appErr
	}
	return grant, nil
}

// UpdateStatus posts a new status (tweet, reply or quote depending on params).
func (c *Client) UpdateStatus(ctx context.Context, cred Credential, params url.Values) ([]byte, error) {
	return c.do(ctx, cred, http.MethodPost, "/statuses/update.json", params)
}

// LookupStatuses fetches one or more tweets by id.
func (c *Client) LookupStatuses(ctx context.Context, cred Credential, params url.Values) ([]byte, error) {
	return c.do(ctx, cred, http.MethodGet, "/statuses/lookup.json", params)
}

// HomeTimeline fetches the authenticated user's home timeline.
func (c *Client) HomeTimeline(ctx context.Context, cred Credential, params url.Values) ([]byte, error) {
	return c.do(ctx, cred, http.MethodGet, "/statuses/home_timeline.json", params)
}

// LookupUsers fetches one or more Twitter users by id or screen name.
func (c *Client) LookupUsers(ctx context.Context, cred Credential, params url.Values) ([]byte, error) {
	return c.do(ctx, cred, http.MethodGet, "/users/lookup.json", params)
}

// do performs a resource call signed with the user's credential pair. The
// signing client is built fresh per call; only the raw pair is durable.
func (c *Client) do(ctx context.Context, cred Credential, method, path string, params url.Values) ([]byte, error) {
	requestURL := c.apiBase + path
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, nil)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	signingCtx := context.WithValue(ctx, oauth1.HTTPClient, c.httpClient)
	httpClient := c.oauthConfig.Client(signingCtx, oauth1.NewToken(cred.Token, cred.Secret))

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, models.NewUpstreamUnreachableError(err)
	}
	defer resp.Body.Close()

	body := readBody(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.NewUpstreamRequestFailedError(resp.StatusCode, body)
	}
	return []byte(body), nil
}

func readBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxResponseBodyBytes))
	if err != nil {
		return ""
	}
	return string(data)
}
