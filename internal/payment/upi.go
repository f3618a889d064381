// Package payment builds the instructions customers use to pay for UPI orders.
package payment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/noah-isme/backend-mithai/internal/pricing"
)

// ErrPayeeNotConfigured is returned when no merchant VPA is set.
var ErrPayeeNotConfigured = errors.New("upi payee not configured")

// Payee identifies the merchant account receiving UPI payments.
type Payee struct {
	VPA  string
	Name string
}

// Intent is one UPI collect request rendered as a deep link.
type Intent struct {
	Payee     Payee
	Amount    pricing.Money
	Currency  string
	Note      string
	Reference string
}

// Link renders the upi://pay deep link. The parameter order is fixed so the
// same intent always yields the same link and QR code.
func (i Intent) Link() (string, error) {
	vpa := strings.TrimSpace(i.Payee.VPA)
	if vpa == "" {
		return "", ErrPayeeNotConfigured
	}
	if i.Amount <= 0 {
		return "", fmt.Errorf("upi amount must be positive, got %d", i.Amount)
	}
	currency := i.Currency
	if currency == "" {
		currency = "INR"
	}
	params := []struct{ key, value string }{
		{"pa", vpa},
		{"pn", i.Payee.Name},
		{"am", pricing.Rupees(i.Amount)},
		{"cu", currency},
		{"tn", i.Note},
		{"tr", i.Reference},
	}
	var b strings.Builder
	b.WriteString("upi://pay?")
	first := true
	for _, p := range params {
		if p.value == "" {
			continue
		}
		if !first {
			b.WriteByte('&')
		}
		first = false
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(escape(p.value))
	}
	return b.String(), nil
}

// escape percent-encodes a query value the way UPI apps expect: spaces as
// %20 and the VPA separator left readable.
func escape(v string) string {
	out := url.QueryEscape(v)
	out = strings.ReplaceAll(out, "+", "%20")
	return strings.ReplaceAll(out, "%40", "@")
}

// QRPNG encodes content as a PNG QR code of size×size pixels.
func QRPNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// DataURI wraps a PNG for inline use in JSON responses.
func DataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
