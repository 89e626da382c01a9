package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// defaultAlgs is the asymmetric-only algorithm allow-list. "none" and HMAC
// family algorithms are rejected to prevent algorithm-confusion attacks.
var defaultAlgs = []string{"RS256"}

// VerifierOptions configure claim expectations.
type VerifierOptions struct {
	// Issuer the token's iss claim must equal exactly. Required.
	Issuer string
	// AllowedAlgs restricts accepted signing algorithms. Defaults to RS256.
	AllowedAlgs []string
	// MaxTokenAge bounds token age from iat, independent of exp.
	// Defaults to 1 hour.
	MaxTokenAge time.Duration
	// Leeway tolerates clock skew on exp/nbf/iat. Defaults to 30 seconds.
	Leeway time.Duration
}

// Verifier validates bearer access tokens against a KeySource.
type Verifier struct {
	keys KeySource
	opts VerifierOptions
}

func NewVerifier(keys KeySource, opts VerifierOptions) *Verifier {
	if len(opts.AllowedAlgs) == 0 {
		opts.AllowedAlgs = defaultAlgs
	}
	if opts.MaxTokenAge <= 0 {
		opts.MaxTokenAge = time.Hour
	}
	if opts.Leeway <= 0 {
		opts.Leeway = 30 * time.Second
	}
	return &Verifier{keys: keys, opts: opts}
}

// Verify checks structure, signature, issuer, expiry, age, and token use.
// The returned error is always an *AuthError.
func (v *Verifier) Verify(ctx context.Context, raw string) (jwt.MapClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, newAuthError(KindInvalidToken, errors.New("empty token"))
	}
	// Structural pre-check before any key fetch.
	if strings.Count(raw, ".") != 2 {
		return nil, newAuthError(KindInvalidToken, errors.New("not a compact JWS"))
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(v.opts.AllowedAlgs),
		jwt.WithIssuer(v.opts.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.opts.Leeway),
	)

	parsed, err := parser.Parse(raw, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, newAuthError(KindInvalidToken, errors.New("unexpected claims type"))
	}

	// Independent max-age check from iat, not just exp. A token without iat
	// cannot be age-bounded and is rejected outright.
	iat, ok := claims["iat"].(float64)
	if !ok {
		return nil, newAuthError(KindInvalidToken, errors.New("iat claim required"))
	}
	issued := time.Unix(int64(iat), 0)
	if time.Since(issued) > v.opts.MaxTokenAge+v.opts.Leeway {
		return nil, newAuthError(KindExpired, errors.New("token exceeds maximum age"))
	}

	if use, _ := claims["token_use"].(string); use != "access" {
		return nil, newAuthError(KindInvalidToken, fmt.Errorf("token_use %q is not an access token", use))
	}

	return claims, nil
}

func classifyParseError(err error) *AuthError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return newAuthError(KindExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, ErrKeyNotFound),
		errors.Is(err, ErrFetchThrottled):
		return newAuthError(KindSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newAuthError(KindInvalidToken, err)
	default:
		// Issuer mismatch, nbf, and anything unclassified read as an invalid
		// token rather than leaking which check failed.
		return newAuthError(KindInvalidToken, err)
	}
}
