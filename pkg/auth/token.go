package auth

import (
	"encoding/json"

	"github.com/titanous/json5"
)

// tokenKeys are the top-level keys searched, in order, for an access token.
var tokenKeys = []string{"access_token", "accessToken", "token", "jwt", "data"}

// nestedTokenKeys are searched inside a mapping found at one of tokenKeys.
var nestedTokenKeys = []string{"access_token", "token"}

// parseLoginBody decodes a sign-in response. Bodies that are not strict JSON
// get a second, permissive json5 pass; failure of both yields nil.
func parseLoginBody(body []byte) any {
	var out any
	if err := json.Unmarshal(body, &out); err == nil {
		return out
	}

	out = nil
	if err := json5.Unmarshal(body, &out); err == nil {
		return out
	}
	return nil
}

// ExtractToken locates an access token in a decoded sign-in response.
// Keys are tried in order; the first key whose value is a non-empty string,
// or a mapping holding a non-empty string access_token or token, wins.
func ExtractToken(doc any) (string, bool) {
	m, ok := doc.(map[string]any)
	if !ok {
		return "", false
	}

	for _, key := range tokenKeys {
		value, present := m[key]
		if !present || value == nil {
			continue
		}

		switch v := value.(type) {
		case string:
			if v != "" {
				return v, true
			}
		case map[string]any:
			for _, nested := range nestedTokenKeys {
				if s, ok := v[nested].(string); ok && s != "" {
					return s, true
				}
			}
		}
	}
	return "", false
}
