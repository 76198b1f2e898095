package notification

import (
	"bytes"
	"fmt"
	"html/template"

	"storefront-be/internal/order"

	"github.com/shopspring/decimal"
)

const layoutTemplate = `{{define "items"}}
<table cellpadding="6" style="border-collapse:collapse;width:100%">
  <tr><th align="left">Item</th><th align="left">Color</th><th align="right">Qty</th><th align="right">Total</th></tr>
  {{range .Items}}
  <tr>
    <td>{{.ProductName}}</td>
    <td>{{.Color}}</td>
    <td align="right">{{.Quantity}}</td>
    <td align="right">{{money .Total}}</td>
  </tr>
  {{end}}
</table>
<p>Subtotal: {{money .Subtotal}}<br>Tax: {{money .Tax}}<br><strong>Total: {{money .TotalAmount}}</strong></p>
{{end}}`

const confirmationTemplate = `<h1>Thank you for your order, {{.CustomerName}}!</h1>
<p>Your order <strong>{{.OrderNumber}}</strong> has been received and is {{.Status}}.</p>
{{template "items" .}}
<p>Shipping to:<br>
{{.ShippingAddress.FullName}}<br>
{{.ShippingAddress.Line1}}{{if .ShippingAddress.Line2}}, {{.ShippingAddress.Line2}}{{end}}<br>
{{.ShippingAddress.City}} {{.ShippingAddress.PostalCode}}<br>
{{.ShippingAddress.Country}}</p>`

const adminTemplate = `<h1>New order {{.OrderNumber}}</h1>
<p>Customer: {{.CustomerName}} &lt;{{.CustomerEmail}}&gt; ({{.CustomerID}})</p>
<p>Payment status: {{.PaymentStatus}}</p>
{{template "items" .}}
{{if .Notes}}<p>Notes: {{.Notes}}</p>{{end}}`

// Renderer turns an order into the subject and HTML body of an email.
type Renderer struct {
	templates map[Kind]*template.Template
}

func money(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}

func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{"money": money}

	sources := map[Kind]string{
		KindOrderConfirmation: confirmationTemplate,
		KindAdminNewOrder:     adminTemplate,
	}

	r := &Renderer{templates: make(map[Kind]*template.Template, len(sources))}
	for kind, src := range sources {
		t, err := template.New(string(kind)).Funcs(funcs).Parse(layoutTemplate)
		if err != nil {
			return nil, fmt.Errorf("parse layout: %w", err)
		}
		if _, err := t.Parse(src); err != nil {
			return nil, fmt.Errorf("parse %s template: %w", kind, err)
		}
		r.templates[kind] = t
	}
	return r, nil
}

func (r *Renderer) Render(kind Kind, o *order.Order) (subject, body string, err error) {
	t, ok := r.templates[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", kind)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, o); err != nil {
		return "", "", fmt.Errorf("render %s: %w", kind, err)
	}

	switch kind {
	case KindAdminNewOrder:
		subject = fmt.Sprintf("New order %s (%s)", o.OrderNumber, money(o.TotalAmount))
	default:
		subject = fmt.Sprintf("Order confirmation %s", o.OrderNumber)
	}
	return subject, buf.String(), nil
}
