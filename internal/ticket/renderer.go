package ticket

import (
	"bytes"
	"fmt"
	"image/png"
	"strconv"

	"ms-booking/internal/models"

	"github.com/signintech/gopdf"
)

// RenderError marks an irrecoverable output failure (font or storage
// unavailable). Missing optional order fields never cause one; the ticket
// prints "N/A" instead.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string { return "render ticket: " + e.Err.Error() }
func (e *RenderError) Unwrap() error { return e.Err }

// PDFRenderer builds the printable ticket document for an order and writes
// it to the artifact store keyed by order id.
type PDFRenderer struct {
	Store    *Store
	FontPath string
	QR       *QRGenerator
}

func NewPDFRenderer(store *Store, fontPath, qrSecret string) *PDFRenderer {
	return &PDFRenderer{
		Store:    store,
		FontPath: fontPath,
		QR:       NewQRGenerator(qrSecret),
	}
}

// qrPayload is what door staff see after decrypting a scanned ticket.
type qrPayload struct {
	OrderID      string `json:"order_id"`
	EventID      string `json:"event_id"`
	TxnReference string `json:"txn_reference,omitempty"`
}

// Render produces the ticket PDF for an order. Required fields are the
// order id, event id and amount; the transaction reference is optional and
// rendered as "N/A" when absent.
func (r *PDFRenderer) Render(order models.Order) (Artifact, error) {
	if order.ID == "" || order.EventID == "" || order.Amount <= 0 {
		return Artifact{}, fmt.Errorf("order %q is missing required ticket fields", order.ID)
	}

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := pdf.AddTTFFont("dejavu", r.FontPath); err != nil {
		return Artifact{}, &RenderError{Err: fmt.Errorf("load font: %w", err)}
	}
	if err := pdf.SetFont("dejavu", "", 14); err != nil {
		return Artifact{}, &RenderError{Err: fmt.Errorf("set font: %w", err)}
	}

	addHeader(pdf)

	pdf.SetY(70)
	addOrderInfo(pdf, order)

	qrBytes, err := r.QR.GenerateEncryptedQR(qrPayload{
		OrderID:      order.ID,
		EventID:      order.EventID,
		TxnReference: order.TxnReference,
	})
	if err == nil && len(qrBytes) > 0 {
		pdf.SetY(pdf.GetY() + 20)
		addQRCode(pdf, qrBytes)
	}

	pdf.SetY(780)
	addFooter(pdf)

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return Artifact{}, &RenderError{Err: fmt.Errorf("write pdf: %w", err)}
	}

	return r.Store.Write(order.ID, buf.Bytes())
}

// FormatAmount renders an amount the way the site displays prices: the
// rupee sign for INR, the ISO code for anything else.
func FormatAmount(amount float64, currency string) string {
	value := strconv.FormatFloat(amount, 'f', 2, 64)
	if currency == "" || currency == "INR" {
		return "₹" + value
	}
	return currency + " " + value
}

func addHeader(pdf *gopdf.GoPdf) {
	pdf.SetX(40)
	pdf.SetY(30)
	pdf.Cell(nil, "DripSync Ticket")
}

func addOrderInfo(pdf *gopdf.GoPdf, order models.Order) {
	txn := order.TxnReference
	if txn == "" {
		txn = "N/A"
	}

	info := []struct {
		Label string
		Value string
	}{
		{"Order", order.ID},
		{"Event", order.EventID},
		{"Amount", FormatAmount(order.Amount, order.Currency)},
		{"Txn", txn},
	}

	for _, item := range info {
		pdf.SetX(40)
		pdf.Cell(nil, item.Label+": "+item.Value)
		pdf.Br(20)
	}
}

func addQRCode(pdf *gopdf.GoPdf, qrCode []byte) {
	img, err := png.Decode(bytes.NewReader(qrCode))
	if err != nil {
		pdf.Cell(nil, "Failed to load QR code")
		return
	}

	rect := &gopdf.Rect{W: 100, H: 100}
	if err := pdf.ImageFrom(img, 40, pdf.GetY(), rect); err != nil {
		pdf.Cell(nil, "Failed to draw QR code")
	}
}

func addFooter(pdf *gopdf.GoPdf) {
	pdf.SetX(40)
	pdf.Cell(nil, "Show this ticket at entry.")
}
