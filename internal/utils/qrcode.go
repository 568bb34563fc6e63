package utils // package utils provides helper functions shared by handlers and background workers

import (
    "bytes"  // in-memory buffer for the encoded image
    "errors" // sentinel for empty input

    "github.com/yeqown/go-qrcode" // QR matrix generation and PNG rendering
)

// qrBlockWidth is the pixel width of a single QR module.  At 8px a typical
// 10-character booking code renders to roughly 200x200 pixels, which scans
// reliably from a phone screen.
const qrBlockWidth = 8

// ErrEmptyQRContent is returned when asked to encode an empty string.
var ErrEmptyQRContent = errors.New("qr content must not be empty")

// QRCodePNG renders text as a PNG QR code and returns the image bytes.  It
// is used for the /bookings/:id/qr endpoint and for the image embedded in
// confirmation emails, so both always encode exactly the booking code.
func QRCodePNG(text string) ([]byte, error) {
    if text == "" {
        return nil, ErrEmptyQRContent
    }
    qrc, err := qrcode.New(text,
        qrcode.WithBuiltinImageEncoder(qrcode.PNG_FORMAT),
        qrcode.WithQRWidth(qrBlockWidth),
    )
    if err != nil {
        return nil, err
    }
    var buf bytes.Buffer
    if err := qrc.SaveTo(&buf); err != nil {
        return nil, err
    }
    return buf.Bytes(), nil
}
