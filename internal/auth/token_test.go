package auth

import (
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/user/entity"
)

var (
	testStart    = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	testIdentity = entity.SlimUser{ID: "u1", Email: "a@b.com", Name: "Ann"}
)

func newTestCodec(t *testing.T, mutate func(*Config)) (*TokenCodec, *clockwork.FakeClock) {
	t.Helper()
	cfg := testConfig()
	cfg.TokenLifetime = time.Hour
	if mutate != nil {
		mutate(&cfg)
	}
	clock := clockwork.NewFakeClockAt(testStart)
	return NewTokenCodec(cfg, clock), clock
}

func requireKind(t *testing.T, err error, want Kind) {
	t.Helper()
	require.Error(t, err)
	var authErr *Error
	require.True(t, errors.As(err, &authErr), "expected *auth.Error, got %T: %v", err, err)
	assert.Equal(t, want, authErr.Kind, "got %q", authErr.Error())
}

func signRaw(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims, key any) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func TestTokenCodec_IssueValidate(t *testing.T) {
	codec, _ := newTestCodec(t, nil)

	tok, err := codec.Issue(testIdentity)
	require.NoError(t, err)

	claims, err := codec.Validate(BearerPrefix + tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, testStart.Add(time.Hour).Unix(), claims.ExpiresAt)
	assert.True(t, testStart.Add(time.Hour).Equal(claims.Expiry()))
}

func TestTokenCodec_Expiry(t *testing.T) {
	tests := []struct {
		name    string
		advance time.Duration
		expired bool
	}{
		{"just before expiry", time.Hour - time.Second, false},
		{"exactly at expiry", time.Hour, true},
		{"after expiry", time.Hour + time.Minute, true},
		{"long after expiry", 30 * 24 * time.Hour, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec, clock := newTestCodec(t, nil)
			tok, err := codec.Issue(testIdentity)
			require.NoError(t, err)

			clock.Advance(tt.advance)
			_, err = codec.Validate(BearerPrefix + tok)
			if tt.expired {
				requireKind(t, err, KindTokenExpired)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTokenCodec_StrictPrefix(t *testing.T) {
	codec, _ := newTestCodec(t, nil)
	tok, err := codec.Issue(testIdentity)
	require.NoError(t, err)

	_, err = codec.Validate(tok)
	requireKind(t, err, KindInvalidAuthorizationHeaderFormat)

	_, err = codec.Validate("bearer " + tok)
	requireKind(t, err, KindInvalidAuthorizationHeaderFormat)

	_, err = codec.Validate("garbage")
	requireKind(t, err, KindInvalidAuthorizationHeaderFormat)

	_, err = codec.Validate("Bearer garbage")
	requireKind(t, err, KindInvalidToken)
}

func TestTokenCodec_LenientPrefix(t *testing.T) {
	codec, _ := newTestCodec(t, func(c *Config) { c.LenientBearer = true })
	tok, err := codec.Issue(testIdentity)
	require.NoError(t, err)

	claims, err := codec.Validate(BearerPrefix + tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)

	// without the prefix the whole value is taken as the token
	claims, err = codec.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)

	_, err = codec.Validate("garbage")
	requireKind(t, err, KindInvalidToken)
}

func TestTokenCodec_HeaderMustBeText(t *testing.T) {
	codec, _ := newTestCodec(t, nil)

	for name, v := range map[string]string{
		"non ascii":     "Bearer tök",
		"control char":  "Bearer a\x01b",
		"del":           "Bearer a\x7fb",
		"newline":       "Bearer a\nb",
		"invalid utf-8": "Bearer \xff",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Validate(v)
			requireKind(t, err, KindInvalidAuthorizationHeaderFormat)
		})
	}
}

func TestTokenCodec_InvalidTokens(t *testing.T) {
	codec, _ := newTestCodec(t, nil)
	key := []byte(testConfig().SigningKey)
	future := testStart.Add(time.Hour).Unix()

	valid, err := codec.Issue(testIdentity)
	require.NoError(t, err)

	noneHeader := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u1","email":"a@b.com","exp":9999999999}`))
	forged := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"admin","email":"a@b.com","exp":9999999999}`))
	segs := strings.Split(valid, ".")

	tests := map[string]string{
		"empty":            "",
		"one segment":      "abc",
		"bad header b64":   "!!!.e30.sig",
		"header not json":  base64.RawURLEncoding.EncodeToString([]byte("nope")) + ".e30.sig",
		"unknown alg":      base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"XX999"}`)) + ".e30.sig",
		"alg none":         noneHeader + "." + payload + ".",
		"other hmac alg":   signRaw(t, jwt.SigningMethodHS384, jwt.MapClaims{"sub": "u1", "email": "a@b.com", "exp": future}, key),
		"wrong key":        signRaw(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "email": "a@b.com", "exp": future}, []byte("other")),
		"tampered payload": segs[0] + "." + forged + "." + segs[2],
		"missing exp":      signRaw(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "email": "a@b.com"}, key),
		"exp wrong type":   signRaw(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "email": "a@b.com", "exp": "tomorrow"}, key),
		"four segments":    valid + ".x",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Validate(BearerPrefix + tok)
			requireKind(t, err, KindInvalidToken)
		})
	}
}

func TestTokenCodec_BadSignatureBeatsExpiry(t *testing.T) {
	codec, clock := newTestCodec(t, nil)
	tok := signRaw(t, jwt.SigningMethodHS256,
		jwt.MapClaims{"sub": "u1", "email": "a@b.com", "exp": testStart.Add(time.Minute).Unix()},
		[]byte("other"))

	clock.Advance(time.Hour)
	_, err := codec.Validate(BearerPrefix + tok)
	requireKind(t, err, KindInvalidToken)
}

func TestTokenCodec_ClaimsError(t *testing.T) {
	codec, _ := newTestCodec(t, nil)
	key := []byte(testConfig().SigningKey)
	future := testStart.Add(time.Hour).Unix()

	tests := map[string]jwt.MapClaims{
		"missing email":   {"sub": "u1", "exp": future},
		"missing sub":     {"email": "a@b.com", "exp": future},
		"sub not string":  {"sub": 42, "email": "a@b.com", "exp": future},
		"email not value": {"sub": "u1", "email": []string{"a"}, "exp": future},
		"fractional exp":  {"sub": "u1", "email": "a@b.com", "exp": float64(future) + 0.5},
	}
	for name, claims := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Validate(BearerPrefix + signRaw(t, jwt.SigningMethodHS256, claims, key))
			requireKind(t, err, KindClaimsError)
			assert.Contains(t, err.Error(), "Error while Deserializing JWT: ")
		})
	}
}

func TestTokenCodec_ConcurrentValidate(t *testing.T) {
	codec, _ := newTestCodec(t, nil)
	tok, err := codec.Issue(testIdentity)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := codec.Validate(BearerPrefix + tok); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestNewTokenCodec_Defaults(t *testing.T) {
	codec := NewTokenCodec(Config{SigningKey: "k"}, nil)
	assert.Equal(t, DefaultTokenLifetime, codec.Lifetime())

	tok, err := codec.Issue(testIdentity)
	require.NoError(t, err)
	_, err = codec.Validate(BearerPrefix + tok)
	assert.NoError(t, err)
}
