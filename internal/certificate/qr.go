package certificate

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

const QRCodeSize = 256

// QRCode encodes link as a base64 PNG QR code so a printed certificate can
// be checked against its pinned metadata.
func QRCode(link string) (string, error) {
	qrBytes, err := qrcode.Encode(link, qrcode.Medium, QRCodeSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR code: %w", err)
	}
	return base64.StdEncoding.EncodeToString(qrBytes), nil
}
