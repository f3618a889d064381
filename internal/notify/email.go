package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/noah-isme/backend-mithai/internal/events"
	"github.com/noah-isme/backend-mithai/internal/order"
	"github.com/noah-isme/backend-mithai/internal/pricing"
)

var orderMail = template.Must(template.New("order").Funcs(template.FuncMap{
	"inr": pricing.FormatINR,
}).Parse(`<p>Namaste {{.Order.ShippingAddress.Name}},</p>
<p>{{.Lead}}</p>
<table>
<tr><th align="left">Item</th><th>Qty</th><th align="right">Amount</th></tr>
{{range .Order.Items}}<tr><td>{{.Name}}{{if .TierLabel}} ({{.TierLabel}}){{end}}</td><td align="center">{{.Quantity}}</td><td align="right">{{inr .LineTotal}}</td></tr>
{{end}}</table>
<p>Subtotal: {{inr .Order.Subtotal}}<br>
Shipping: {{if eq .Order.Shipping 0}}Free{{else}}{{inr .Order.Shipping}}{{end}}<br>
GST: {{inr .Order.Tax}}<br>
<strong>Total: {{inr .Order.Total}}</strong></p>
{{if .PayByUPI}}<p>Pay by UPI from the order page to speed up dispatch.</p>{{end}}
<p>Delivering to: {{.Order.ShippingAddress.Line1}}{{with .Order.ShippingAddress.Line2}}, {{.}}{{end}}, {{.Order.ShippingAddress.City}} {{.Order.ShippingAddress.Pincode}}</p>
`))

// Mail is a rendered message.
type Mail struct {
	To      string
	Subject string
	HTML    string
}

func subjectFor(topic string, o order.Order) string {
	switch topic {
	case events.TopicOrderCreated:
		return fmt.Sprintf("Order %s confirmed", o.Number)
	case events.TopicOrderCancelled:
		return fmt.Sprintf("Order %s cancelled", o.Number)
	default:
		return fmt.Sprintf("Update on order %s", o.Number)
	}
}

func leadFor(topic string, o order.Order) string {
	switch topic {
	case events.TopicOrderCreated:
		if o.PaymentMethod == order.MethodCOD {
			return "Thank you for your order. Please keep cash ready at delivery."
		}
		return "Thank you for your order."
	case events.TopicOrderCancelled:
		return "Your order has been cancelled. If you already paid, the refund is on its way."
	default:
		return "Your order has been updated."
	}
}

// ComposeOrderMail renders the customer e-mail for an order event.
func ComposeOrderMail(topic string, o order.Order) (Mail, error) {
	to := strings.TrimSpace(o.Email)
	if to == "" {
		return Mail{}, fmt.Errorf("order %s has no e-mail", o.Number)
	}
	var buf bytes.Buffer
	err := orderMail.Execute(&buf, map[string]any{
		"Order":    o,
		"Lead":     leadFor(topic, o),
		"PayByUPI": topic == events.TopicOrderCreated && o.PaymentMethod == order.MethodUPI && o.PaymentStatus == order.PaymentPending,
	})
	if err != nil {
		return Mail{}, fmt.Errorf("render order mail: %w", err)
	}
	return Mail{To: to, Subject: subjectFor(topic, o), HTML: buf.String()}, nil
}
