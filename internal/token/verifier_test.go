package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testKID = "test-key-1"

func newTestKeys(t *testing.T) (*rsa.PrivateKey, *httptest.Server) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &priv.PublicKey,
		KeyID:     testKID,
		Algorithm: "RS256",
		Use:       "sig",
	}}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(srv.Close)
	return priv, srv
}

func newTestVerifier(t *testing.T, srv *httptest.Server, issuer string) *Verifier {
	t.Helper()
	keys := NewRemoteKeySet(RemoteKeySetOptions{URL: srv.URL})
	return NewVerifier(keys, VerifierOptions{Issuer: issuer})
}

func signToken(t *testing.T, priv *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = testKID
	raw, err := tok.SignedString(priv)
	require.NoError(t, err)
	return raw
}

func baseClaims(issuer string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"sub":             "user-1",
		"iss":             issuer,
		"iat":             now.Unix(),
		"exp":             now.Add(30 * time.Minute).Unix(),
		"token_use":       "access",
		"custom:clinicId": "clinic-1",
	}
}

func TestVerifyValidToken(t *testing.T) {
	priv, srv := newTestKeys(t)
	v := newTestVerifier(t, srv, "https://issuer.example")

	raw := signToken(t, priv, baseClaims("https://issuer.example"))
	claims, err := v.Verify(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims["sub"])
	require.Equal(t, "clinic-1", claims["custom:clinicId"])
}

func TestVerifyExpired(t *testing.T) {
	priv, srv := newTestKeys(t)
	v := newTestVerifier(t, srv, "https://issuer.example")

	claims := baseClaims("https://issuer.example")
	claims["iat"] = time.Now().Add(-2 * time.Hour).Unix()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	_, err := v.Verify(context.Background(), signToken(t, priv, claims))
	require.Equal(t, KindExpired, KindOf(err))
}

func TestVerifyExceedsMaxAge(t *testing.T) {
	priv, srv := newTestKeys(t)
	v := newTestVerifier(t, srv, "https://issuer.example")

	// Fresh exp but an iat past the 1h age limit.
	claims := baseClaims("https://issuer.example")
	claims["iat"] = time.Now().Add(-2 * time.Hour).Unix()
	claims["exp"] = time.Now().Add(time.Hour).Unix()
	_, err := v.Verify(context.Background(), signToken(t, priv, claims))
	require.Equal(t, KindExpired, KindOf(err))
}

func TestVerifyRequiresIssuedAt(t *testing.T) {
	priv, srv := newTestKeys(t)
	v := newTestVerifier(t, srv, "https://issuer.example")

	// Omitting iat would dodge the age bound entirely, so it is mandatory.
	claims := baseClaims("https://issuer.example")
	delete(claims, "iat")
	_, err := v.Verify(context.Background(), signToken(t, priv, claims))
	require.Error(t, err)
	require.Equal(t, KindInvalidToken, KindOf(err))
}

func TestVerifyWrongIssuer(t *testing.T) {
	priv, srv := newTestKeys(t)
	v := newTestVerifier(t, srv, "https://issuer.example")

	_, err := v.Verify(context.Background(), signToken(t, priv, baseClaims("https://evil.example")))
	require.Equal(t, KindInvalidToken, KindOf(err))
}

func TestVerifyRejectsIDToken(t *testing.T) {
	priv, srv := newTestKeys(t)
	v := newTestVerifier(t, srv, "https://issuer.example")

	claims := baseClaims("https://issuer.example")
	claims["token_use"] = "id"
	_, err := v.Verify(context.Background(), signToken(t, priv, claims))
	require.Equal(t, KindInvalidToken, KindOf(err))
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	_, srv := newTestKeys(t)
	v := newTestVerifier(t, srv, "https://issuer.example")

	tok := jwt.NewWithClaims(jwt.SigningMethodNone, baseClaims("https://issuer.example"))
	tok.Header["kid"] = testKID
	raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), raw)
	require.Error(t, err)
	require.Equal(t, KindSignatureInvalid, KindOf(err))
}

func TestVerifyRejectsHMAC(t *testing.T) {
	_, srv := newTestKeys(t)
	v := newTestVerifier(t, srv, "https://issuer.example")

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, baseClaims("https://issuer.example"))
	tok.Header["kid"] = testKID
	raw, err := tok.SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), raw)
	require.Equal(t, KindSignatureInvalid, KindOf(err))
}

func TestVerifyRejectsWrongKeySignature(t *testing.T) {
	_, srv := newTestKeys(t)
	v := newTestVerifier(t, srv, "https://issuer.example")

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), signToken(t, other, baseClaims("https://issuer.example")))
	require.Equal(t, KindSignatureInvalid, KindOf(err))
}

func TestVerifyMalformed(t *testing.T) {
	_, srv := newTestKeys(t)
	v := newTestVerifier(t, srv, "https://issuer.example")

	for _, raw := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := v.Verify(context.Background(), raw)
		require.Equal(t, KindInvalidToken, KindOf(err), "token %q", raw)
	}
}

func TestVerifyUnknownKID(t *testing.T) {
	priv, srv := newTestKeys(t)
	v := newTestVerifier(t, srv, "https://issuer.example")

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, baseClaims("https://issuer.example"))
	tok.Header["kid"] = "some-other-key"
	raw, err := tok.SignedString(priv)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), raw)
	require.Equal(t, KindSignatureInvalid, KindOf(err))
}
