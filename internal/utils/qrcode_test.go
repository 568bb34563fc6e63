package utils

import (
    "bytes"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestQRCodePNG(t *testing.T) {
    png, err := QRCodePNG("Q7K4P2RXN8")
    require.NoError(t, err)
    assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")), "expected PNG signature")

    _, err = QRCodePNG("")
    assert.ErrorIs(t, err, ErrEmptyQRContent)
}
