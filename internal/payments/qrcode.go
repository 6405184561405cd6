package payments

import (
	"encoding/base64"
	"strings"

	"github.com/annetom/pizzaria-checkout/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// QRCodePNG returns a PNG for the session. A provider image sent as a base64
// data URL is used as is; otherwise the copia-e-cola payload is encoded.
func QRCodePNG(session *PixSession) ([]byte, error) {
	if !session.HasData() {
		return nil, errors.New(errors.CodeNotFound, "no pix code to render")
	}

	if img, ok := decodeDataURL(session.QRCode); ok {
		return img, nil
	}

	content := session.CopiaColar
	if content == "" {
		content = session.QRCode
	}
	png, err := qrcode.Encode(content, qrcode.Medium, qrSize)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "render pix qr code")
	}
	return png, nil
}

func decodeDataURL(value string) ([]byte, bool) {
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(value, prefix) {
		return nil, false
	}
	img, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, prefix))
	if err != nil || len(img) == 0 {
		return nil, false
	}
	return img, true
}
