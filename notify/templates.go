package notify

import (
	"fmt"
	"html"
	"strings"

	"bakehouse/models"
	"bakehouse/utils"
)

// OrderConfirmation renders the e-mail sent right after checkout.
func OrderConfirmation(to string, o models.Order) Message {
	cur := o.OrderSummary.Currency
	var lines, text strings.Builder
	for _, it := range o.Items {
		fmt.Fprintf(&lines, "<tr><td>%s</td><td>%d</td><td>%s</td></tr>",
			html.EscapeString(it.Name), it.Quantity, utils.FormatPrice(it.LineTotal, cur))
		fmt.Fprintf(&text, "%d x %s  %s\n", it.Quantity, it.Name, utils.FormatPrice(it.LineTotal, cur))
	}
	total := utils.FormatPrice(o.OrderSummary.Total, cur)
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Your order %s is confirmed", o.OrderNumber),
		HTML: fmt.Sprintf(
			"<p>Thank you for your order!</p><p>Tracking number: <strong>%s</strong></p><table>%s</table><p>Total: <strong>%s</strong></p>",
			html.EscapeString(o.TrackingID), lines.String(), total),
		Text: fmt.Sprintf("Thank you for your order!\nTracking number: %s\n\n%s\nTotal: %s\n",
			o.TrackingID, text.String(), total),
		Tag: "order-confirmation",
	}
}

// StatusUpdate tells the customer their order moved on.
func StatusUpdate(to string, o models.Order, status string) Message {
	label := utils.StatusLabel(status)
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Order %s: %s", o.OrderNumber, label),
		HTML: fmt.Sprintf("<p>Your order <strong>%s</strong> is now <strong>%s</strong>.</p>",
			html.EscapeString(o.TrackingID), html.EscapeString(label)),
		Text: fmt.Sprintf("Your order %s is now %s.\n", o.TrackingID, label),
		Tag:  "order-status",
	}
}
