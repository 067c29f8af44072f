package report

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/Icestreamm/baseer-backend/internal/core/domain"
)

const minItemRows = 4

// LineItem is one billed row of the invoice.
type LineItem struct {
	Description string
	Amount      float64
}

// LineItems lists the billed items in local currency: paint per photo, then
// lights, windshield and tire. Zero amounts are left out.
func LineItems(costs domain.CostBreakdown) []LineItem {
	var items []LineItem
	for _, pc := range costs.PaintCostsLocal {
		if pc.Cost > 0 {
			items = append(items, LineItem{fmt.Sprintf("Damage Repair Photo %d", pc.PhotoNum), pc.Cost})
		}
	}
	if costs.LightCostLocal > 0 {
		items = append(items, LineItem{"Lights Repair", costs.LightCostLocal})
	}
	if costs.WindshieldCostLocal > 0 {
		items = append(items, LineItem{"Windshield Replacement", costs.WindshieldCostLocal})
	}
	if costs.TireCostLocal > 0 {
		items = append(items, LineItem{"Tire Replacement", costs.TireCostLocal})
	}
	return items
}

func (r *Renderer) RenderInvoice(w io.Writer, status *domain.AssessmentStatus) error {
	if status == nil || status.Result == nil {
		return domain.ErrAssessmentNotCompleted
	}
	costs := status.Result.Costs
	a := status.Assessment
	if a == nil {
		a = &domain.Assessment{ID: status.AssessmentID}
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, pageH := pdf.GetPageSize()
	pdf.SetMargins(12.7, 38, 12.7)
	pdf.SetAutoPageBreak(true, 25.4)

	pdf.SetHeaderFunc(func() {
		pdf.SetFillColor(darkBlue[0], darkBlue[1], darkBlue[2])
		pdf.Rect(0, 0, pageW, 31.75, "F")
		pdf.SetTextColor(245, 245, 245)
		pdf.SetFont("Helvetica", "B", 36)
		pdf.Text(19, 22, "INVOICE")
		pdf.SetTextColor(0, 0, 0)
		pdf.SetY(38)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetFillColor(darkBlue[0], darkBlue[1], darkBlue[2])
		pdf.Rect(0, pageH-19, pageW, 19, "F")
		pdf.SetY(-12.7)
		pdf.SetTextColor(245, 245, 245)
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 5, "Thank you for your business!", "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})

	pdf.AddPage()

	// Invoice details and bill-to block
	customer := a.CustomerName
	if customer == "" {
		customer = "Client Company Name"
	}
	country := a.Country
	if country == "" {
		country = "Address"
	}
	left := [][2]string{
		{"Invoice No.", a.ID},
		{"Date of Issue", r.now().Format("2006-01-02")},
		{"Vehicle", fmt.Sprintf("%s %s %d", a.CarMake, a.CarModel, a.CarYear)},
	}
	right := []string{customer, country}

	y := pdf.GetY()
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetXY(120, y)
	pdf.CellFormat(70, 6, "Bill To", "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range right {
		pdf.CellFormat(70, 5, tr(line), "", 2, "L", false, 0, "")
	}
	pdf.SetXY(19, y)
	for _, row := range left {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(38, 5, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(60, 5, tr(row[1]), "", 1, "L", false, 0, "")
		pdf.SetX(19)
	}

	pdf.Ln(10)
	pdf.SetDrawColor(lineGray[0], lineGray[1], lineGray[2])
	pdf.Line(12.7, pdf.GetY(), pageW-12.7, pdf.GetY())
	pdf.Ln(5)

	// Line items
	colW := []float64{12.7, 88.9, 50.8}
	x0 := (pageW - (colW[0] + colW[1] + colW[2])) / 2
	pdf.SetX(x0)
	pdf.SetFillColor(mediumGray[0], mediumGray[1], mediumGray[2])
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(colW[0], 8, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colW[1], 8, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colW[2], 8, "Amount ("+costs.Currency+")", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	items := LineItems(costs)
	rows := max(len(items), minItemRows)
	for i := 0; i < rows; i++ {
		fill := i%2 == 1
		if fill {
			pdf.SetFillColor(lightBlueGray[0], lightBlueGray[1], lightBlueGray[2])
		}
		num, desc, amount := "", "", ""
		if i < len(items) {
			num = fmt.Sprint(i + 1)
			desc = items[i].Description
			amount = fmt.Sprintf("%.2f", items[i].Amount)
		}
		pdf.SetX(x0)
		pdf.CellFormat(colW[0], 7, num, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(colW[1], 7, desc, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(colW[2], 7, amount, "1", 1, "R", fill, 0, "")
	}

	// Summary
	pdf.Ln(12)
	summary := [][2]string{
		{"Subtotal", fmt.Sprintf("%.2f", costs.SubtotalLocalBase)},
		{"Tax Rate", fmt.Sprintf("%.2f%%", costs.TaxRate*100)},
		{"Tax", fmt.Sprintf("%.2f", costs.TaxAmountOnBaseLocal)},
		{"Luxury Factor", fmt.Sprintf("%.2f x %.3f", costs.LuxuryIndex, costs.CountryLuxFactor)},
	}
	for _, row := range summary {
		pdf.SetX(pageW - 12.7 - 76.2)
		pdf.CellFormat(50.8, 6, row[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(25.4, 6, row[1], "", 1, "R", false, 0, "")
	}
	pdf.SetX(pageW - 12.7 - 76.2)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(lightBlueGray[0], lightBlueGray[1], lightBlueGray[2])
	pdf.CellFormat(50.8, 8, "Total", "T", 0, "R", false, 0, "")
	pdf.CellFormat(25.4, 8, fmt.Sprintf("%.2f %s", costs.FinalLocalCost, costs.Currency), "T", 1, "R", true, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render invoice: %w", err)
	}
	return pdf.Output(w)
}
