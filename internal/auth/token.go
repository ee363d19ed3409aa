package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/user/entity"
)

// BearerPrefix is the scheme prefix expected on the Authorization header.
const BearerPrefix = "Bearer "

// Claims is the payload carried by an access token.
type Claims struct {
	Subject   string `json:"sub"`
	Email     string `json:"email"`
	ExpiresAt int64  `json:"exp"`
}

// Expiry returns the expiry claim as a time.
func (c Claims) Expiry() time.Time { return time.Unix(c.ExpiresAt, 0) }

// TokenCodec issues and validates HS256-signed access tokens. The key, the
// algorithm and the lifetime are fixed at construction; time is read from the
// injected clock only.
type TokenCodec struct {
	key      []byte
	method   jwt.SigningMethod
	lifetime time.Duration
	lenient  bool
	clock    clockwork.Clock
	segments *jwt.Parser
}

// NewTokenCodec builds a codec from the resolved process config.
func NewTokenCodec(cfg Config, clock clockwork.Clock) *TokenCodec {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	lifetime := cfg.TokenLifetime
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	return &TokenCodec{
		key:      []byte(cfg.SigningKey),
		method:   jwt.SigningMethodHS256,
		lifetime: lifetime,
		lenient:  cfg.LenientBearer,
		clock:    clock,
		segments: jwt.NewParser(),
	}
}

// Lifetime is the validity window given to every issued token.
func (c *TokenCodec) Lifetime() time.Duration { return c.lifetime }

// Issue signs a token for u that expires one lifetime from now.
func (c *TokenCodec) Issue(u entity.SlimUser) (string, error) {
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"exp":   c.clock.Now().Add(c.lifetime).Unix(),
	}
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.key)
	if err != nil {
		return "", &Error{Kind: KindInvalidToken}
	}
	return signed, nil
}

// Validate authenticates the raw value of an Authorization header and returns
// its claims. Every failure is an *Error.
func (c *TokenCodec) Validate(headerValue string) (*Claims, error) {
	if !isHeaderText(headerValue) {
		return nil, &Error{Kind: KindInvalidAuthorizationHeaderFormat}
	}

	raw, ok := c.stripBearer(headerValue)
	if !ok {
		return nil, &Error{Kind: KindInvalidAuthorizationHeaderFormat}
	}

	alg, err := c.algorithm(raw)
	if err != nil {
		return nil, &Error{Kind: KindInvalidToken}
	}

	_, err = jwt.ParseWithClaims(raw, jwt.MapClaims{},
		func(*jwt.Token) (any, error) { return c.key, nil },
		jwt.WithValidMethods([]string{alg}),
		jwt.WithTimeFunc(c.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &Error{Kind: KindTokenExpired}
		}
		return nil, &Error{Kind: KindInvalidToken}
	}

	claims, err := c.decodeClaims(raw)
	if err != nil {
		return nil, ClaimsError(err.Error())
	}
	return claims, nil
}

func (c *TokenCodec) stripBearer(v string) (string, bool) {
	if c.lenient {
		return strings.TrimPrefix(v, BearerPrefix), true
	}
	return strings.CutPrefix(v, BearerPrefix)
}

// algorithm decodes the header segment and returns its alg, which must be the
// codec's own signing algorithm.
func (c *TokenCodec) algorithm(raw string) (string, error) {
	head, _, ok := strings.Cut(raw, ".")
	if !ok {
		return "", errors.New("token has no header segment")
	}
	b, err := c.segments.DecodeSegment(head)
	if err != nil {
		return "", fmt.Errorf("decode header: %w", err)
	}
	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(b, &header); err != nil {
		return "", fmt.Errorf("parse header: %w", err)
	}
	if jwt.GetSigningMethod(header.Alg) == nil {
		return "", fmt.Errorf("unknown algorithm %q", header.Alg)
	}
	if header.Alg != c.method.Alg() {
		return "", fmt.Errorf("algorithm %q not accepted", header.Alg)
	}
	return header.Alg, nil
}

func (c *TokenCodec) decodeClaims(raw string) (*Claims, error) {
	parts := strings.Split(raw, ".")
	b, err := c.segments.DecodeSegment(parts[1])
	if err != nil {
		return nil, err
	}
	var payload struct {
		Subject   *string `json:"sub"`
		Email     *string `json:"email"`
		ExpiresAt *int64  `json:"exp"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, err
	}
	switch {
	case payload.Subject == nil:
		return nil, errors.New(`missing field "sub"`)
	case payload.Email == nil:
		return nil, errors.New(`missing field "email"`)
	case payload.ExpiresAt == nil:
		return nil, errors.New(`missing field "exp"`)
	}
	return &Claims{Subject: *payload.Subject, Email: *payload.Email, ExpiresAt: *payload.ExpiresAt}, nil
}

// isHeaderText reports whether v only holds visible ASCII, spaces and tabs.
func isHeaderText(v string) bool {
	for i := 0; i < len(v); i++ {
		b := v[i]
		if b != '\t' && (b < 0x20 || b >= 0x7f) {
			return false
		}
	}
	return true
}
