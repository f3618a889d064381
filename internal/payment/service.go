package payment

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-mithai/internal/common"
	"github.com/noah-isme/backend-mithai/internal/order"
	"github.com/noah-isme/backend-mithai/internal/pricing"
)

// OrderReader loads orders the viewer is allowed to see.
type OrderReader interface {
	Get(ctx context.Context, id string, viewer common.Identity) (order.Order, error)
}

// Service prepares UPI payment screens for placed orders.
type Service struct {
	Orders   OrderReader
	Payee    Payee
	Currency string
	QRSize   int
	Logger   zerolog.Logger
}

// UPIPayment is what the payment screen renders.
type UPIPayment struct {
	OrderID     string          `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	PayeeVPA    string          `json:"payeeVpa"`
	PayeeName   string          `json:"payeeName"`
	Amount      string          `json:"amount"`
	Link        string          `json:"link"`
	QRCode      string          `json:"qrCode"`
	Totals      pricing.Summary `json:"totals"`
}

// Intent returns the UPI intent for an order that is still awaiting payment.
func (s *Service) Intent(ctx context.Context, orderID string, viewer common.Identity) (order.Order, Intent, error) {
	if s == nil || s.Orders == nil {
		return order.Order{}, Intent{}, errors.New("payment service not configured")
	}
	o, err := s.Orders.Get(ctx, orderID, viewer)
	if err != nil {
		return order.Order{}, Intent{}, err
	}
	switch {
	case o.PaymentMethod != order.MethodUPI:
		return order.Order{}, Intent{}, common.ConflictError("order is not paid by UPI", nil)
	case o.Status == order.StatusCancelled:
		return order.Order{}, Intent{}, common.ConflictError("order is cancelled", nil)
	case o.PaymentStatus != order.PaymentPending:
		return order.Order{}, Intent{}, common.ConflictError("order is already paid", nil)
	}
	return o, Intent{
		Payee:     s.Payee,
		Amount:    o.Total,
		Currency:  s.Currency,
		Note:      "Order " + o.Number,
		Reference: o.Number,
	}, nil
}

// UPI builds the deep link and inline QR code for an order.
func (s *Service) UPI(ctx context.Context, orderID string, viewer common.Identity) (UPIPayment, error) {
	o, intent, err := s.Intent(ctx, orderID, viewer)
	if err != nil {
		return UPIPayment{}, err
	}
	link, err := s.link(intent)
	if err != nil {
		return UPIPayment{}, err
	}
	png, err := QRPNG(link, s.QRSize)
	if err != nil {
		return UPIPayment{}, err
	}
	return UPIPayment{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		PayeeVPA:    intent.Payee.VPA,
		PayeeName:   intent.Payee.Name,
		Amount:      pricing.Rupees(intent.Amount),
		Link:        link,
		QRCode:      DataURI(png),
		Totals:      o.Summary(),
	}, nil
}

// QRCode returns the raw PNG for an order's UPI link.
func (s *Service) QRCode(ctx context.Context, orderID string, viewer common.Identity) ([]byte, error) {
	_, intent, err := s.Intent(ctx, orderID, viewer)
	if err != nil {
		return nil, err
	}
	link, err := s.link(intent)
	if err != nil {
		return nil, err
	}
	return QRPNG(link, s.QRSize)
}

func (s *Service) link(intent Intent) (string, error) {
	link, err := intent.Link()
	if errors.Is(err, ErrPayeeNotConfigured) {
		s.Logger.Error().Msg("UPI_PAYEE_VPA is not set")
		return "", common.NewAppError("PAYMENT_UNAVAILABLE", "UPI payments are not available", http.StatusServiceUnavailable, err)
	}
	return link, err
}
