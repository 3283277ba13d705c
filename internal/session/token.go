// Package session derives storage namespaces from the auth token and gates
// what is persisted for reattaching to a call after a reconnect.
package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// TokenType classifies an auth token.
type TokenType string

const (
	TokenSAT     TokenType = "SAT"
	TokenUnknown TokenType = "unknown"
)

// maxTokenPartLen bounds the size of a single decoded token segment.
const maxTokenPartLen = 16 * 1024

var errMalformedToken = errors.New("malformed token")

// ClassifyToken returns the token's type: the JWT header "typ" when the
// header decodes, "SAT" for tokens carrying a literal SAT/PT prefix, and
// "unknown" otherwise.
func ClassifyToken(token string) TokenType {
	var header struct {
		Typ string `json:"typ"`
	}
	if err := decodeSegment(token, 0, &header); err == nil && header.Typ != "" {
		return TokenType(header.Typ)
	}
	if strings.HasPrefix(token, "SAT") || strings.HasPrefix(token, "PT") {
		return TokenSAT
	}
	return TokenUnknown
}

// tokenClaims holds the payload claims the session layer reads.
type tokenClaims struct {
	R string `json:"r"`
}

func decodeClaims(token string) (tokenClaims, error) {
	var c tokenClaims
	if err := decodeSegment(token, 1, &c); err != nil {
		return tokenClaims{}, err
	}
	return c, nil
}

// decodeSegment base64url-decodes the idx-th dot-separated segment of token
// and unmarshals it as a JSON object into v. The signature is never checked:
// the token is verified by the server, the client only reads it.
func decodeSegment(token string, idx int, v any) error {
	parts := strings.Split(token, ".")
	if len(parts) < 2 || idx >= len(parts) {
		return fmt.Errorf("%w: expected header.payload[.signature]", errMalformedToken)
	}
	raw := parts[idx]
	if raw == "" || len(raw) > maxTokenPartLen {
		return fmt.Errorf("%w: segment %d has invalid length", errMalformedToken, idx)
	}

	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
	if err != nil {
		return fmt.Errorf("%w: segment %d: %v", errMalformedToken, idx, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: segment %d: %v", errMalformedToken, idx, err)
	}
	return nil
}
