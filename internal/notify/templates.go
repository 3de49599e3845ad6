package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

type templateData struct {
	OrderData
	StoreName string
	Heading   string
	StatusMsg string
}

var templateFuncs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("₹%.2f", v) },
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"mul": func(price float64, qty int) float64 { return price * float64(qty) },
}

const itemsTable = `{{define "items"}}{{if .Items}}
<table style="width:100%;border-collapse:collapse">
  <tr><th align="left">Item</th><th>Qty</th><th align="right">Price</th><th align="right">Subtotal</th></tr>
  {{range .Items}}<tr><td>{{.Name}}{{if .ProductCode}} ({{.ProductCode}}){{end}}</td><td align="center">{{.Quantity}}</td><td align="right">{{money .Price}}</td><td align="right">{{money (mul .Price .Quantity)}}</td></tr>
  {{end}}
</table>{{end}}{{end}}`

const layoutHead = `<html><body style="font-family:Arial,sans-serif;color:#222">
<h2>{{.StoreName}}</h2>
<h3>{{.Heading}}</h3>
<p>Order <strong>{{.OrderID}}</strong></p>`

const layoutFoot = `<p><strong>Total: {{money .TotalAmount}}</strong></p>
<p>{{.StoreName}}</p>
</body></html>`

var templateText = map[Kind]string{
	KindOrderConfirmation: layoutHead + `
<p>Dear {{.CustomerName}}, thank you for your order. We have received it and will keep you posted.</p>
{{template "items" .}}
{{if .ShippingAddress}}<p>Shipping to: {{.ShippingAddress}}</p>{{end}}
` + layoutFoot,

	KindStatusUpdate: layoutHead + `
<p>Dear {{.CustomerName}}, {{.StatusMsg}}</p>
{{if .OrderStatus}}<p>Order status: <strong>{{title .OrderStatus}}</strong></p>{{end}}
{{if .PaymentStatus}}<p>Payment status: <strong>{{title .PaymentStatus}}</strong></p>{{end}}
{{if .TrackingNumber}}<p>Tracking number: <strong>{{.TrackingNumber}}</strong></p>{{end}}
` + layoutFoot,

	KindInvoice: layoutHead + `
<p>Billed to: {{.CustomerName}}{{if .CustomerPhone}}, {{.CustomerPhone}}{{end}}</p>
{{if .ShippingAddress}}<p>{{.ShippingAddress}}</p>{{end}}
{{if not .CreatedAt.IsZero}}<p>Date: {{.CreatedAt.Format "02 Jan 2006"}}</p>{{end}}
{{template "items" .}}
{{if .PaymentStatus}}<p>Payment: {{title .PaymentStatus}}</p>{{end}}
` + layoutFoot,

	KindAdminNotification: layoutHead + `
<p>New {{if .OrderType}}{{.OrderType}} {{end}}order from {{.CustomerName}}.</p>
<ul>
  {{if .CustomerEmail}}<li>Email: {{.CustomerEmail}}</li>{{end}}
  {{if .CustomerPhone}}<li>Phone: {{.CustomerPhone}}</li>{{end}}
  {{if .ShippingAddress}}<li>Address: {{.ShippingAddress}}</li>{{end}}
  {{if .PaymentStatus}}<li>Payment: {{.PaymentStatus}}</li>{{end}}
</ul>
{{template "items" .}}
` + layoutFoot,
}

var templates = mustParseTemplates()

func mustParseTemplates() map[Kind]*template.Template {
	out := make(map[Kind]*template.Template, len(templateText))
	for kind, text := range templateText {
		t := template.Must(template.New(string(kind)).Funcs(templateFuncs).Parse(itemsTable))
		out[kind] = template.Must(t.Parse(text))
	}
	return out
}

var statusMessages = map[string]string{
	"confirmed":  "your order has been confirmed.",
	"processing": "we are preparing your order.",
	"shipped":    "your order is on its way.",
	"delivered":  "your order has been delivered.",
	"cancelled":  "your order has been cancelled.",
}

// Render produces the subject and HTML body for n.
func Render(storeName string, n Notification) (string, string, error) {
	if err := n.Validate(); err != nil {
		return "", "", err
	}

	data := templateData{OrderData: n.Data, StoreName: storeName}
	var subject string
	switch n.Kind {
	case KindOrderConfirmation:
		data.Heading = "Order confirmation"
		subject = fmt.Sprintf("%s: order %s confirmed", storeName, n.Data.OrderID)
	case KindStatusUpdate:
		data.Heading = "Order update"
		data.StatusMsg = statusMessages[n.Data.OrderStatus]
		if data.StatusMsg == "" {
			data.StatusMsg = "there is an update on your order."
		}
		subject = fmt.Sprintf("%s: order %s update", storeName, n.Data.OrderID)
	case KindInvoice:
		data.Heading = "Invoice"
		subject = fmt.Sprintf("%s: invoice for order %s", storeName, n.Data.OrderID)
	case KindAdminNotification:
		data.Heading = "New order received"
		subject = fmt.Sprintf("New order %s from %s", n.Data.OrderID, n.Data.CustomerName)
	}

	var buf bytes.Buffer
	if err := templates[n.Kind].Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", n.Kind, err)
	}
	return subject, buf.String(), nil
}
