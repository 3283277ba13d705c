package session

import (
	"encoding/base64"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeToken builds an unsigned JWT-shaped token from header and payload.
func makeToken(t *testing.T, header, payload map[string]any) string {
	t.Helper()
	h, err := json.Marshal(header)
	require.NoError(t, err)
	p, err := json.Marshal(payload)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(h) + "." +
		base64.RawURLEncoding.EncodeToString(p) + ".c2ln"
}

func TestClassifyToken(t *testing.T) {
	testCases := []struct {
		name  string
		token string
		want  TokenType
	}{
		{"header typ", makeToken(t, map[string]any{"typ": "VRT"}, map[string]any{}), TokenType("VRT")},
		{"header typ SAT", makeToken(t, map[string]any{"typ": "SAT"}, map[string]any{}), TokenSAT},
		{"SAT prefix", "SAT_not.a.jwt", TokenSAT},
		{"PT prefix", "PTabc", TokenSAT},
		{"garbage", "hello", TokenUnknown},
		{"header without typ", makeToken(t, map[string]any{"alg": "HS256"}, map[string]any{}), TokenUnknown},
		{"empty", "", TokenUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyToken(tc.token))
		})
	}
}

func TestDeriveKeysFromRClaim(t *testing.T) {
	token := makeToken(t, map[string]any{"typ": "VRT"}, map[string]any{"r": "abc"})

	assert.Equal(t, KeySet{
		AuthStateKey: "as-abc:p1",
		ProtocolKey:  "pt-abc:p1",
		CallIDKey:    "ci-abc:p1",
	}, DeriveKeys(token, "p1"))

	assert.Equal(t, "as-abc", DeriveKeys(token, "").AuthStateKey)
}

func TestDeriveKeysSAT(t *testing.T) {
	keys := DeriveKeys("SAT_opaque-token", "")
	assert.Equal(t, KeySet{AuthStateKey: "as-SAT", ProtocolKey: "pt-SAT", CallIDKey: "ci-SAT"}, keys)

	assert.Equal(t, "ci-SAT:p9", DeriveKeys("SAT_opaque-token", "p9").CallIDKey)
}

func TestDeriveKeysDisabled(t *testing.T) {
	testCases := []struct {
		name  string
		token string
	}{
		{"no r claim", makeToken(t, map[string]any{"typ": "VRT"}, map[string]any{"sub": "x"})},
		{"undecodable", "not-a-token"},
		{"bad payload", "eyJ0eXAiOiJWUlQifQ.%%%.sig"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			keys := DeriveKeys(tc.token, "p1")
			assert.True(t, keys.Disabled())
			assert.Equal(t, KeySet{}, keys)
		})
	}
}

func TestResumptionGate(t *testing.T) {
	vrt := makeToken(t, map[string]any{"typ": "VRT"}, map[string]any{"r": "abc"})

	assert.True(t, NewResumption(Options{Token: vrt}).CanReattach())
	assert.False(t, NewResumption(Options{Token: vrt, DisableReattach: true}).CanReattach())
	assert.False(t, NewResumption(Options{Token: "opaque"}).CanReattach())
	assert.True(t, NewResumption(Options{Token: "SAT_x"}).CanReattach())
}

func TestResumptionPersistsOnlyWhenAllowed(t *testing.T) {
	vrt := makeToken(t, map[string]any{"typ": "VRT"}, map[string]any{"r": "abc"})

	store := NewMemoryStorage()
	r := NewResumption(Options{Token: vrt, Storage: store})
	r.SetProtocol("proto-1")
	r.SetAuthState("state-1")
	r.SetPriorCallID("call-1")
	assert.Equal(t, "proto-1", r.Protocol())
	assert.Equal(t, "state-1", r.AuthState())
	assert.Equal(t, "call-1", r.PriorCallID())

	v, ok, err := store.GetItem("pt-abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "proto-1", v)

	disabled := NewResumption(Options{Token: vrt, Storage: NewMemoryStorage(), DisableReattach: true})
	disabled.SetProtocol("proto-2")
	assert.Empty(t, disabled.Protocol())
}

// TestForgetIgnoresGate verifies that stale keys are removed even when
// reattach is disabled.
func TestForgetIgnoresGate(t *testing.T) {
	vrt := makeToken(t, map[string]any{"typ": "VRT"}, map[string]any{"r": "abc"})
	store := NewMemoryStorage()
	require.NoError(t, store.SetItem("as-abc", "old"))
	require.NoError(t, store.SetItem("pt-abc", "old"))
	require.NoError(t, store.SetItem("ci-abc", "old"))
	require.NoError(t, store.SetItem("unrelated", "keep"))

	r := NewResumption(Options{Token: vrt, Storage: store, DisableReattach: true})
	r.Forget()

	for _, key := range []string{"as-abc", "pt-abc", "ci-abc"} {
		_, ok, _ := store.GetItem(key)
		assert.False(t, ok, key)
	}
	_, ok, _ := store.GetItem("unrelated")
	assert.True(t, ok)
}

func TestFileStorageSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")

	fs, err := OpenFileStorage(path)
	require.NoError(t, err)
	require.NoError(t, fs.SetItem("pt-abc:p1", "proto-1"))
	require.NoError(t, fs.SetItem("ci-abc:p1", "call-1"))
	require.NoError(t, fs.RemoveItem("ci-abc:p1"))

	reopened, err := OpenFileStorage(path)
	require.NoError(t, err)
	v, ok, err := reopened.GetItem("pt-abc:p1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "proto-1", v)
	_, ok, _ = reopened.GetItem("ci-abc:p1")
	assert.False(t, ok)

	require.NoError(t, reopened.Clear())
	again, err := OpenFileStorage(path)
	require.NoError(t, err)
	_, ok, _ = again.GetItem("pt-abc:p1")
	assert.False(t, ok)
}
