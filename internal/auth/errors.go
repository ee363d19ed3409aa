package auth

import "errors"

// Kind enumerates the authentication failures the service can report.
type Kind int

const (
	KindClaimsError Kind = iota + 1
	KindInvalidToken
	KindNoAuthorizationHeader
	KindInvalidAuthorizationHeaderFormat
	KindTokenExpired
	KindUnauthorized
	KindInvalidPassword
)

// String returns the variant name, used as a structured log field.
func (k Kind) String() string {
	switch k {
	case KindClaimsError:
		return "ClaimsError"
	case KindInvalidToken:
		return "InvalidToken"
	case KindNoAuthorizationHeader:
		return "NoAuthorizationHeader"
	case KindInvalidAuthorizationHeaderFormat:
		return "InvalidAuthorizationHeaderFormat"
	case KindTokenExpired:
		return "TokenExpired"
	case KindUnauthorized:
		return "Unauthorized"
	case KindInvalidPassword:
		return "InvalidPassword"
	default:
		return "Unknown"
	}
}

// Error is an authentication failure. Detail is only set for KindClaimsError.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidAuthorizationHeaderFormat:
		return "Authorization header is not in valid format"
	case KindInvalidPassword:
		return "Invalid Password provided"
	case KindNoAuthorizationHeader:
		return "No Authorization Header"
	case KindClaimsError:
		return "Error while Deserializing JWT: " + e.Detail
	case KindInvalidToken:
		return "Invalid JWT Token"
	case KindTokenExpired:
		return "Token Expired"
	case KindUnauthorized:
		return "Unauthorized"
	default:
		return "Unauthorized"
	}
}

// Is matches on kind so errors.Is(err, ErrClaims) holds for any detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// ClaimsError wraps a claims deserialization failure.
func ClaimsError(detail string) *Error {
	return &Error{Kind: KindClaimsError, Detail: detail}
}

// sentinel errors for each kind; match with errors.Is
var (
	ErrClaims                           = &Error{Kind: KindClaimsError}
	ErrInvalidToken                     = &Error{Kind: KindInvalidToken}
	ErrNoAuthorizationHeader            = &Error{Kind: KindNoAuthorizationHeader}
	ErrInvalidAuthorizationHeaderFormat = &Error{Kind: KindInvalidAuthorizationHeaderFormat}
	ErrTokenExpired                     = &Error{Kind: KindTokenExpired}
	ErrUnauthorized                     = &Error{Kind: KindUnauthorized}
	ErrInvalidPassword                  = &Error{Kind: KindInvalidPassword}
)

// ErrHashFailed is returned by Hasher.Hash when the hash cannot be computed.
// The cause is logged by the hasher and not carried here.
var ErrHashFailed = errors.New("password hashing failed")
