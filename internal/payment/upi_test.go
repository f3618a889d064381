package payment_test

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-mithai/internal/payment"
)

func TestIntentLink(t *testing.T) {
	intent := payment.Intent{
		Payee:     payment.Payee{VPA: "mithai@okicici", Name: "Mithai Bhandar"},
		Amount:    123800,
		Note:      "Order ORD-2026-0007",
		Reference: "ORD-2026-0007",
	}
	link, err := intent.Link()
	require.NoError(t, err)
	require.Equal(t, "upi://pay?pa=mithai@okicici&pn=Mithai%20Bhandar&am=1238.00&cu=INR&tn=Order%20ORD-2026-0007&tr=ORD-2026-0007", link)
}

func TestIntentLinkEscapesSeparators(t *testing.T) {
	link, err := payment.Intent{
		Payee:  payment.Payee{VPA: "shop@upi", Name: "Sweets & Co"},
		Amount: 5900,
	}.Link()
	require.NoError(t, err)
	require.Contains(t, link, "pn=Sweets%20%26%20Co")
	require.Contains(t, link, "am=59.00")
	require.NotContains(t, link, "tn=")
}

func TestIntentLinkRequiresPayeeAndAmount(t *testing.T) {
	_, err := payment.Intent{Amount: 100}.Link()
	require.ErrorIs(t, err, payment.ErrPayeeNotConfigured)

	_, err = payment.Intent{Payee: payment.Payee{VPA: "a@b"}}.Link()
	require.Error(t, err)
}

func TestQRPNG(t *testing.T) {
	raw, err := payment.QRPNG("upi://pay?pa=a@b&am=1.00", 128)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, 128, img.Bounds().Dx())

	uri := payment.DataURI(raw)
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
}
