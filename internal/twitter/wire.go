// Package twitter implements the OAuth1 account-linking state machine and
// the authenticated gateway for Twitter API calls made on a user's behalf.
package twitter

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseForm decodes a key=value&key=value response body of the kind the
// Twitter OAuth endpoints return, into a key→value map. Pairs without an
// '=', empty keys, and duplicate keys are all rejected rather than being
// silently dropped or overwritten.
func ParseForm(body string) (map[string]string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("empty response body")
	}

	values := make(map[string]string)
	for _, pair := range strings.Split(body, "&") {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("malformed pair %q in response body", pair)
		}
		decodedKey, err := url.QueryUnescape(key)
		if err != nil {
			return nil, fmt.Errorf("undecodable key %q: %w", key, err)
		}
		decodedValue, err := url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("undecodable value for key %q: %w", decodedKey, err)
		}
		if _, dup := values[decodedKey]; dup {
			return nil, fmt.Errorf("duplicate key %q in response body", decodedKey)
		}
		values[decodedKey] = decodedValue
	}
	return values, nil
}

// formValue extracts a required key from a parsed form body.
func formValue(values map[string]string, key string) (string, error) {
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing key %q in response body", key)
	}
	return v, nil
}
