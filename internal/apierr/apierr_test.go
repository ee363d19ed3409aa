package apierr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/database"
)

func TestError_StatusAndMessage(t *testing.T) {
	tests := []struct {
		err    *Error
		status int
		msg    string
	}{
		{Internal(), http.StatusInternalServerError, "Internal Server Error"},
		{BadRequest("email is taken"), http.StatusBadRequest, "Bad Request: email is taken"},
		{DatabaseConnection(), http.StatusInternalServerError, "Database Connection Error"},
		{NotFound("User"), http.StatusNotFound, "User Not Found"},
		{Auth(&auth.Error{Kind: auth.KindTokenExpired}), http.StatusUnauthorized, "Token Expired"},
		{Auth(auth.ClaimsError(`missing field "sub"`)), http.StatusUnauthorized, `Error while Deserializing JWT: missing field "sub"`},
	}
	for _, tt := range tests {
		t.Run(tt.err.Kind().String(), func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.StatusCode())
			assert.Equal(t, tt.msg, tt.err.Error())

			status, body := tt.err.Render()
			assert.Equal(t, tt.status, status)
			assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, tt.msg), string(body))
		})
	}
}

func TestError_AllAuthKindsAre401(t *testing.T) {
	for k := auth.KindClaimsError; k <= auth.KindInvalidPassword; k++ {
		assert.Equal(t, http.StatusUnauthorized, Auth(&auth.Error{Kind: k}).StatusCode(), k.String())
	}
}

func TestError_Write(t *testing.T) {
	rec := httptest.NewRecorder()
	BadRequest("invalid payload").Write(rec)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Bad Request: invalid payload"}`, rec.Body.String())
}

func TestError_AuthErrorIsCopied(t *testing.T) {
	src := &auth.Error{Kind: auth.KindInvalidToken}
	e := Auth(src)
	src.Kind = auth.KindUnauthorized

	got, ok := e.AuthError()
	require.True(t, ok)
	assert.Equal(t, auth.KindInvalidToken, got.Kind)
	assert.True(t, errors.Is(e, auth.ErrInvalidToken))

	_, ok = Internal().AuthError()
	assert.False(t, ok)
}

func TestFrom(t *testing.T) {
	dup := &pq.Error{Code: "23505", Message: `duplicate key value violates unique constraint "users_email_key"`}

	tests := []struct {
		name string
		err  error
		kind Kind
		msg  string
	}{
		{"auth error", &auth.Error{Kind: auth.KindInvalidPassword}, KindAuthError, "Invalid Password provided"},
		{"wrapped auth error", fmt.Errorf("login: %w", &auth.Error{Kind: auth.KindNoAuthorizationHeader}), KindAuthError, "No Authorization Header"},
		{"api error passes through", fmt.Errorf("x: %w", NotFound("User")), KindNotFound, "User Not Found"},
		{"hash failure", fmt.Errorf("signup: %w", auth.ErrHashFailed), KindInternalServerError, "Internal Server Error"},
		{"pool failure", &database.ConnError{Err: errors.New("dial tcp: refused")}, KindDatabaseConnectionError, "Database Connection Error"},
		{"unique violation", fmt.Errorf("create user: %w", dup), KindBadRequest, "Bad Request: " + dup.Message},
		{"other pg error", &pq.Error{Code: "42P01", Message: `relation "users" does not exist`}, KindInternalServerError, "Internal Server Error"},
		{"no rows", sql.ErrNoRows, KindInternalServerError, "Internal Server Error"},
		{"anything else", errors.New("secret detail"), KindInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := From(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.kind, got.Kind())
			assert.Equal(t, tt.msg, got.Error())
		})
	}

	assert.Nil(t, From(nil))
}

func TestFrom_TokenRejection(t *testing.T) {
	cfg := auth.Config{SigningKey: "k", TokenLifetime: auth.DefaultTokenLifetime}

	_, err := auth.NewTokenCodec(cfg, nil).Validate("garbage")
	status, body := From(err).Render()
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"error":"Authorization header is not in valid format"}`, string(body))

	cfg.LenientBearer = true
	_, err = auth.NewTokenCodec(cfg, nil).Validate("garbage")
	status, body = From(err).Render()
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"error":"Invalid JWT Token"}`, string(body))
}
