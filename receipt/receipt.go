package receipt

import (
	"bytes"
	"fmt"
	"io"

	"bakehouse/models"
	"bakehouse/utils"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// QRPayload is what the receipt's code encodes: the public tracking id
// prefixed so a scanner app can tell it apart from other codes.
func QRPayload(trackingID string) string {
	return "bakehouse:track:" + trackingID
}

// Render writes a one page PDF receipt for o.
func Render(w io.Writer, storeName string, o models.Order) error {
	if o.TrackingID == "" {
		return fmt.Errorf("%w: order has no tracking id", utils.ErrInvalidInput)
	}
	qrPNG, err := qrcode.Encode(QRPayload(o.TrackingID), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("qr code: %w", err)
	}
	cur := o.OrderSummary.Currency

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Receipt "+o.TrackingID, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, tr(storeName))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 7, "Order: "+o.OrderNumber)
	pdf.Ln(6)
	pdf.Cell(0, 7, "Tracking: "+o.TrackingID)
	pdf.Ln(6)
	pdf.Cell(0, 7, "Placed: "+utils.FormatDate(o.CreatedAt))
	pdf.Ln(6)
	pdf.Cell(0, 7, "Status: "+utils.StatusLabel(o.Status))
	pdf.Ln(6)
	if a := o.Address; a != nil {
		pdf.Cell(0, 7, tr("Deliver to: "+a.FullName+", "+a.Line1+", "+a.City))
		pdf.Ln(6)
	}

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 155, 12, 40, 40, false, imageOpts, 0, "")

	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(100, 8, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(20, 8, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Total", "B", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	for _, it := range o.Items {
		line := it.LineTotal
		if line == 0 {
			line = it.Price * float64(it.Quantity)
		}
		pdf.CellFormat(100, 7, tr(it.Name), "", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", it.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, utils.FormatPrice(it.Price, cur), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, utils.FormatPrice(line, cur), "", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	total := func(label string, v float64, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 11)
		pdf.CellFormat(150, 7, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, utils.FormatPrice(v, cur), "", 1, "R", false, 0, "")
	}
	s := o.OrderSummary
	total("Subtotal", s.Subtotal, false)
	total("Delivery", s.DeliveryFee, false)
	total("Tax", s.Tax, false)
	total("Total", s.Total, true)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
