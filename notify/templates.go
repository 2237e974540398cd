package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/George-Dev-Web/cakes2/models"
	"github.com/shopspring/decimal"
)

var statusMessages = map[models.OrderStatus]string{
	models.OrderStatusConfirmed: "Your order has been confirmed!",
	models.OrderStatusPreparing: "Your cake is being prepared!",
	models.OrderStatusReady:     "Your order is ready for delivery/pickup!",
	models.OrderStatusDelivered: "Your order has been delivered!",
	models.OrderStatusCancelled: "Your order has been cancelled.",
}

// TrackingURL links to the public tracking page for o.
func TrackingURL(frontendURL string, o *models.Order) string {
	u := strings.TrimRight(frontendURL, "/") + "/track/" + url.PathEscape(o.OrderNumber)
	if o.TrackingToken != "" {
		u += "?token=" + url.QueryEscape(o.TrackingToken)
	}
	return u
}

// Money formats an amount as "KSh 9,876.00".
func Money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return "KSh " + sign + b.String() + "." + frac
}

var funcs = template.FuncMap{
	"money": Money,
	"date":  func(o *models.Order) string { return o.DeliveryDate.Format("January 02, 2006") },
	"upper": func(s models.OrderStatus) string { return strings.ToUpper(string(s)) },
}

var confirmationHTML = template.Must(template.New("confirmation").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1 style="background: #ff6b9d; color: white; padding: 20px; text-align: center;">Order Confirmation</h1>
    <h2>Thank you, {{.Order.CustomerName}}!</h2>
    <p>Your order has been received and is being processed.</p>
    <p><strong>Order Number:</strong> {{.Order.OrderNumber}}</p>
    <p><strong>Delivery Date:</strong> {{date .Order}}</p>
    <p><strong>Delivery Address:</strong> {{.Order.DeliveryAddress}}</p>
    <h3>Order Items:</h3>
    {{range .Order.Items}}<div style="padding: 10px 0; border-bottom: 1px solid #eee;">
      <strong>{{.CakeName}}</strong> ({{.CakeSize}}, {{.Quantity}}x)<br>
      <small>Price: {{money .Subtotal}}</small>
      {{if .MessageOnCake}}<br><small>Message: {{.MessageOnCake}}</small>{{end}}
    </div>
    {{end}}
    <p>Subtotal: {{money .Order.Subtotal}}</p>
    <p>Delivery Fee: {{money .Order.DeliveryFee}}</p>
    <p>Tax (16%): {{money .Order.Tax}}</p>
    <p style="font-size: 1.2em; font-weight: bold;">Total: {{money .Order.TotalPrice}}</p>
    <p><strong>Payment Method:</strong> {{.Order.PaymentMethod}}</p>
    <p><a href="{{.TrackURL}}" style="padding: 12px 24px; background: #ff6b9d; color: white; text-decoration: none;">Track Your Order</a></p>
    <p style="color: #777; font-size: 0.9em;">Thank you for choosing Cakes2! This is an automated email. Please do not reply.</p>
  </div>
</body>
</html>`))

var statusHTML = template.Must(template.New("status").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1 style="background: #ff6b9d; color: white; padding: 20px; text-align: center;">Order Status Update</h1>
    <h2>Hi {{.Order.CustomerName}},</h2>
    <p>{{.Message}}</p>
    <p style="display: inline-block; padding: 10px 20px; background: #4CAF50; color: white; font-weight: bold;">{{upper .Status}}</p>
    <p><strong>Order Number:</strong> {{.Order.OrderNumber}}</p>
    <p><strong>Delivery Date:</strong> {{date .Order}}</p>
    <p><a href="{{.TrackURL}}" style="padding: 12px 24px; background: #ff6b9d; color: white; text-decoration: none;">Track Your Order</a></p>
  </div>
</body>
</html>`))

type emailData struct {
	Order    *models.Order
	Status   models.OrderStatus
	Message  string
	TrackURL string
}

// ConfirmationEmail builds the order-placed email.
func ConfirmationEmail(o *models.Order, frontendURL string) (Email, error) {
	track := TrackingURL(frontendURL, o)

	var text strings.Builder
	fmt.Fprintf(&text, "Dear %s,\n\nThank you for your order!\n\n", o.CustomerName)
	fmt.Fprintf(&text, "Order Number: %s\n", o.OrderNumber)
	fmt.Fprintf(&text, "Order Date: %s\n", o.CreatedAt.Format("January 02, 2006"))
	fmt.Fprintf(&text, "Total Amount: %s\n\n", Money(o.TotalPrice))
	fmt.Fprintf(&text, "Delivery Details:\nAddress: %s\nDate: %s\nTime: %s\n\n",
		o.DeliveryAddress, o.DeliveryDate.Format("January 02, 2006"), orDefault(o.DeliveryTime, "As scheduled"))
	text.WriteString("Order Summary:\n")
	for _, item := range o.Items {
		fmt.Fprintf(&text, "- %s (%s, %dx) - %s\n", item.CakeName, item.CakeSize, item.Quantity, Money(item.Subtotal))
		if item.MessageOnCake != "" {
			fmt.Fprintf(&text, "  Message: %s\n", item.MessageOnCake)
		}
	}
	fmt.Fprintf(&text, "\nSubtotal: %s\nDelivery Fee: %s\nTax (16%%): %s\nTotal: %s\n\n",
		Money(o.Subtotal), Money(o.DeliveryFee), Money(o.Tax), Money(o.TotalPrice))
	fmt.Fprintf(&text, "Payment Method: %s\n\n", o.PaymentMethod)
	if o.SpecialInstructions != "" {
		fmt.Fprintf(&text, "Special Instructions: %s\n\n", o.SpecialInstructions)
	}
	fmt.Fprintf(&text, "You can track your order here:\n%s\n\nBest regards,\nCakes2 Team\n", track)

	var html bytes.Buffer
	if err := confirmationHTML.Execute(&html, emailData{Order: o, TrackURL: track}); err != nil {
		return Email{}, fmt.Errorf("render confirmation email: %w", err)
	}

	return Email{
		To:      o.CustomerEmail,
		Subject: "Order Confirmation - " + o.OrderNumber,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

// StatusUpdateEmail builds the email sent when an order moves to status.
func StatusUpdateEmail(o *models.Order, status models.OrderStatus, frontendURL string) (Email, error) {
	track := TrackingURL(frontendURL, o)
	message, ok := statusMessages[status]
	if !ok {
		message = "Your order status has been updated."
	}
	subjectLine := message
	if !ok {
		subjectLine = "Status Update"
	}

	text := fmt.Sprintf(
		"Dear %s,\n\n%s\n\nOrder Number: %s\nCurrent Status: %s\n\nDelivery Date: %s\nDelivery Address: %s\n\nTrack your order: %s\n\nThank you for your patience!\n\nBest regards,\nCakes2 Team\n",
		o.CustomerName, message, o.OrderNumber, strings.ToUpper(string(status)),
		o.DeliveryDate.Format("January 02, 2006"), o.DeliveryAddress, track,
	)

	var html bytes.Buffer
	data := emailData{Order: o, Status: status, Message: message, TrackURL: track}
	if err := statusHTML.Execute(&html, data); err != nil {
		return Email{}, fmt.Errorf("render status email: %w", err)
	}

	return Email{
		To:      o.CustomerEmail,
		Subject: fmt.Sprintf("Order %s - %s", o.OrderNumber, subjectLine),
		Text:    text,
		HTML:    html.String(),
	}, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
