package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestNewAccessToken(t *testing.T) {
    tok, err := NewAccessToken("s3cret", "user-1", "CUSTOMER", "u1@example.com", time.Hour)
    require.NoError(t, err)
    assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, 5*time.Second)

    parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
    require.NoError(t, err)
    claims := parsed.Claims.(jwt.MapClaims)
    assert.Equal(t, "user-1", claims["sub"])
    assert.Equal(t, "CUSTOMER", claims["role"])
    assert.Equal(t, "u1@example.com", claims["email"])

    _, err = NewAccessToken("s3cret", "", "CUSTOMER", "", time.Hour)
    assert.ErrorIs(t, err, ErrEmptySubject)
}
