package session

import "github.com/1ureka/sigcore/internal/util"

// Storage key prefixes.
const (
	PrefixAuthState = "as"
	PrefixProtocol  = "pt"
	PrefixCallID    = "ci"
)

// KeySet holds the storage keys for one token/profile pair. An empty key is
// disabled: nothing is read from or written to it.
type KeySet struct {
	AuthStateKey string
	ProtocolKey  string
	CallIDKey    string
}

// Disabled reports whether every key is disabled.
func (k KeySet) Disabled() bool {
	return k.AuthStateKey == "" && k.ProtocolKey == "" && k.CallIDKey == ""
}

// DeriveKeys computes the storage keys for token. SAT tokens share the fixed
// "SAT" namespace; other tokens are namespaced by their "r" claim. Tokens
// that cannot be decoded or carry no "r" claim disable persistence.
func DeriveKeys(token, profileID string) KeySet {
	var suffix string
	if ClassifyToken(token) == TokenSAT {
		suffix = string(TokenSAT)
	} else {
		claims, err := decodeClaims(token)
		if err != nil {
			util.LogDev("session: token payload not decodable, persistence disabled: %v", err)
			return KeySet{}
		}
		if claims.R == "" {
			return KeySet{}
		}
		suffix = claims.R
	}
	if profileID != "" {
		suffix += ":" + profileID
	}

	return KeySet{
		AuthStateKey: PrefixAuthState + "-" + suffix,
		ProtocolKey:  PrefixProtocol + "-" + suffix,
		CallIDKey:    PrefixCallID + "-" + suffix,
	}
}
