package payment

import (
	"net/url"
	"strconv"

	"ms-booking/internal/models"
)

// Payee identifies who receives UPI payments. Both fields come from
// configuration; they are free text and get percent-encoded into the link.
type Payee struct {
	Handle   string // VPA, e.g. dripsync@okaxis
	Name     string // display name shown by the payment app
	Currency string // ISO code, e.g. INR
}

// BuildLink maps an order to the UPI deep link the client redirects to:
//
//	upi://pay?pa=<handle>&pn=<name>&tr=<orderId>&am=<amount>&cu=<currency>&tn=<note>
//
// It is a pure function of the order and the payee: same inputs, same
// bytes out. There is no callback channel behind this link; confirmation
// always comes from the buyer submitting a transaction reference.
func BuildLink(order models.Order, payee Payee) string {
	currency := payee.Currency
	if order.Currency != "" {
		currency = order.Currency
	}

	return "upi://pay" +
		"?pa=" + url.QueryEscape(payee.Handle) +
		"&pn=" + url.QueryEscape(payee.Name) +
		"&tr=" + url.QueryEscape(order.ID) +
		"&am=" + strconv.FormatFloat(order.Amount, 'f', 2, 64) +
		"&cu=" + url.QueryEscape(currency) +
		"&tn=" + url.QueryEscape("Ticket "+order.ID)
}
