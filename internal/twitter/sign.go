package twitter

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// oobCallback is the out-of-band callback marker: the user is shown a PIN
// instead of being redirected anywhere.
const oobCallback = "oob"

// requestSigner produces the OAuth1 Authorization header for the
// request-token call, which is signed with the application's consumer key
// pair only (no user token exists yet). Nonce and clock are injectable for
// tests.
type requestSigner struct {
	consumerKey    string
	consumerSecret string
	nonce          func() string
	now            func() time.Time
}

func newRequestSigner(consumerKey, consumerSecret string) *requestSigner {
	return &requestSigner{
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		nonce: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
		now: time.Now,
	}
}

// authorizationHeader builds the signed OAuth header for the given request.
func (s *requestSigner) authorizationHeader(method, requestURL string) string {
	params := map[string]string{
		"oauth_callback":         oobCallback,
		"oauth_consumer_key":     s.consumerKey,
		"oauth_nonce":            s.nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        fmt.Sprintf("%d", s.now().Unix()),
		"oauth_version":          "1.0",
	}
	params["oauth_signature"] = s.signature(method, requestURL, params)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%q", percentEncode(k), percentEncode(params[k])))
	}
	return "OAuth " + strings.Join(pairs, ", ")
}

// signature computes the HMAC-SHA1 signature over the RFC 5849 base string.
func (s *requestSigner) signature(method, requestURL string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	encoded := make([]string, 0, len(keys))
	for _, k := range keys {
		encoded = append(encoded, percentEncode(k)+"="+percentEncode(params[k]))
	}

	baseString := strings.ToUpper(method) + "&" +
		percentEncode(requestURL) + "&" +
		percentEncode(strings.Join(encoded, "&"))

	// No token secret yet: the signing key ends with a bare '&'.
	signingKey := percentEncode(s.consumerSecret) + "&"

	mac := hmac.New(sha1.New, []byte(signingKey))
	mac.Write([]byte(baseString))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// percentEncode applies the strict RFC 5849 percent-encoding: every byte
// outside the unreserved set is encoded, including '+' and '*'.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '.' || c == '_' || c == '~'
}
