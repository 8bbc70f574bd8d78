package emvqr

import qrcode "github.com/skip2/go-qrcode"

// DefaultImageSize is the PNG edge length in pixels.
const DefaultImageSize = 256

// RenderPNG draws payload as a QR code image.
func RenderPNG(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultImageSize
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}

// WritePNG renders payload into the file at path.
func WritePNG(payload string, size int, path string) error {
	if size <= 0 {
		size = DefaultImageSize
	}
	return qrcode.WriteFile(payload, qrcode.Medium, size, path)
}
