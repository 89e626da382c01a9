package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
)

const jwksURL = "https://idp.example/.well-known/jwks.json"

func mockJWKS(t *testing.T, kids ...string) (*http.Client, *int) {
	t.Helper()
	client := &http.Client{Timeout: time.Second}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)

	set := jose.JSONWebKeySet{}
	for _, kid := range kids {
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		set.Keys = append(set.Keys, jose.JSONWebKey{
			Key: &priv.PublicKey, KeyID: kid, Algorithm: "RS256", Use: "sig",
		})
	}

	fetches := 0
	httpmock.RegisterResponder(http.MethodGet, jwksURL,
		func(req *http.Request) (*http.Response, error) {
			fetches++
			return httpmock.NewJsonResponse(http.StatusOK, set)
		})
	return client, &fetches
}

func TestRemoteKeySetCachesHits(t *testing.T) {
	client, fetches := mockJWKS(t, "k1")
	s := NewRemoteKeySet(RemoteKeySetOptions{URL: jwksURL, HTTPClient: client})

	for i := 0; i < 5; i++ {
		_, err := s.Key(context.Background(), "k1")
		require.NoError(t, err)
	}
	require.Equal(t, 1, *fetches, "repeat lookups must come from cache")
}

func TestRemoteKeySetEvictsOldest(t *testing.T) {
	client, fetches := mockJWKS(t, "k1", "k2")
	s := NewRemoteKeySet(RemoteKeySetOptions{URL: jwksURL, HTTPClient: client, MaxEntries: 1})

	_, err := s.Key(context.Background(), "k1")
	require.NoError(t, err)
	_, err = s.Key(context.Background(), "k2")
	require.NoError(t, err)
	// k1 was evicted to make room for k2, so it refetches.
	_, err = s.Key(context.Background(), "k1")
	require.NoError(t, err)
	require.Equal(t, 3, *fetches)
}

func TestRemoteKeySetUnknownKID(t *testing.T) {
	client, _ := mockJWKS(t, "k1")
	s := NewRemoteKeySet(RemoteKeySetOptions{URL: jwksURL, HTTPClient: client})

	_, err := s.Key(context.Background(), "missing")
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRemoteKeySetThrottlesFetches(t *testing.T) {
	client, fetches := mockJWKS(t, "k1", "k2")
	s := NewRemoteKeySet(RemoteKeySetOptions{URL: jwksURL, HTTPClient: client, FetchPerMinute: 1})

	_, err := s.Key(context.Background(), "k1")
	require.NoError(t, err)
	_, err = s.Key(context.Background(), "k2")
	require.ErrorIs(t, err, ErrFetchThrottled)
	require.Equal(t, 1, *fetches)

	// The cached key stays served while fetches are throttled.
	_, err = s.Key(context.Background(), "k1")
	require.NoError(t, err)
}

func TestRemoteKeySetFetchError(t *testing.T) {
	client := &http.Client{Timeout: time.Second}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)
	httpmock.RegisterResponder(http.MethodGet, jwksURL,
		httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))

	s := NewRemoteKeySet(RemoteKeySetOptions{URL: jwksURL, HTTPClient: client})
	_, err := s.Key(context.Background(), "k1")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrKeyNotFound))
}
