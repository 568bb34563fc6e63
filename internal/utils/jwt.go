package utils // package utils provides helper functions shared by handlers and background workers

import (
    "errors" // sentinel errors for invalid input
    "time"   // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.  Tokens are normally issued by the identity
// provider; this helper exists for local development and tests.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// ErrEmptySubject is returned when a token is requested without a subject.
var ErrEmptySubject = errors.New("token subject must not be empty")

// NewAccessToken builds and signs an HS256 JWT.  It takes the signing
// secret, the subject (the caller identity used as booking owner), the
// role, an optional email address and the token lifetime.  The JWT includes
// the standard claims sub, exp and iat plus role and, when set, email.
func NewAccessToken(secret, subject, role, email string, ttl time.Duration) (AccessToken, error) {
    if subject == "" {
        return AccessToken{}, ErrEmptySubject
    }
    now := time.Now().UTC()
    // Calculate the expiration time by adding the TTL to the current UTC time.
    exp := now.Add(ttl)
    claims := jwt.MapClaims{
        "sub":  subject,
        "role": role,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    if email != "" {
        claims["email"] = email
    }
    // Create a new token object specifying the signing method (HS256) and
    // include the claims.
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    // Sign the token with the provided secret and obtain the string form.
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}
