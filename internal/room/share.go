package room

import (
	"fmt"
	"net/url"

	"github.com/skip2/go-qrcode"
)

// QueryParam carries the room code in share links.
const QueryParam = "room"

// ShareURL builds the link that pre-fills the join flow, e.g. https://host/?room=ABCD.
func ShareURL(base, code string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid share base url %q: %w", base, err)
	}
	q := u.Query()
	q.Set(QueryParam, code)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// CodeFromInput accepts either a bare room code or a share link and returns the code.
func CodeFromInput(input string) (string, bool) {
	if code := NormalizeCode(input); ValidCode(code) {
		return code, true
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", false
	}
	code := NormalizeCode(u.Query().Get(QueryParam))
	if !ValidCode(code) {
		return "", false
	}
	return code, true
}

// ShareQR renders link as a QR code made of terminal block characters.
func ShareQR(link string) (string, error) {
	qr, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to encode qr: %w", err)
	}
	return qr.ToSmallString(false), nil
}
