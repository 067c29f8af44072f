package report

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/Icestreamm/baseer-backend/internal/core/domain"
	output "github.com/Icestreamm/baseer-backend/internal/core/ports/output"
)

// Photo frame size in mm.
const (
	frameW = 88.9
	frameH = 66.7
)

// AnalysisLines is the processing log printed at the top of the analysis
// report.
func AnalysisLines(status *domain.AssessmentStatus) []string {
	res := status.Result
	lines := []string{"Assessment: " + status.AssessmentID}
	if a := status.Assessment; a != nil {
		lines = append(lines, fmt.Sprintf("Vehicle: %s %s %d", a.CarMake, a.CarModel, a.CarYear))
	}
	if res == nil {
		return lines
	}
	lines = append(lines, fmt.Sprintf("Photos processed: %d", len(res.Photos)))

	for _, p := range res.Photos {
		lines = append(lines,
			"",
			fmt.Sprintf("--- Photo %d ---", p.PhotoNum),
			fmt.Sprintf("Size: %dx%d px", p.Width, p.Height),
			fmt.Sprintf("Scale: %s (%.4f cm/px)", p.Scale.Source, p.Scale.CMPerPixel),
		)
		if p.Orientation != "" {
			lines = append(lines, "Orientation: "+p.Orientation)
		}
		for _, role := range domain.DamageModels {
			lines = append(lines, fmt.Sprintf("  %s: %.1f cm2", role, p.ModelDamageCM2[role]))
		}
		lines = append(lines, fmt.Sprintf("Consensus regions: %d", len(p.Consensus)))
		for _, item := range p.Consensus {
			label, _ := ConsensusStyle(item)
			lines = append(lines, fmt.Sprintf("  %s votes=%d box=[%.0f %.0f %.0f %.0f] area=%.1f cm2",
				label, item.Votes, item.Box[0], item.Box[1], item.Box[2], item.Box[3],
				domain.AreaCM2(item.Area(), p.Scale.CMPerPixel)))
		}
		lines = append(lines, fmt.Sprintf("Paint area: %.1f cm2, cost %.2f JOD", p.Paint.AreaCM2, p.PaintCostJOD))
	}

	c := res.Costs
	lines = append(lines,
		"",
		"--- Totals ---",
		fmt.Sprintf("Consensus damage: %.1f cm2", res.ConsensusDamageCM2),
		fmt.Sprintf("Windshield damage: %s", yesNo(res.HasWindshieldDamage)),
		fmt.Sprintf("Light damage: %s", yesNo(res.HasLightDamage)),
		fmt.Sprintf("Tire damage: %s", yesNo(res.HasTireDamage)),
		fmt.Sprintf("Paint total: %.2f JOD", c.PaintTotalJOD),
		fmt.Sprintf("Subtotal: %.2f %s", c.SubtotalLocalBase, c.Currency),
		fmt.Sprintf("Tax (%.2f%%): %.2f %s", c.TaxRate*100, c.TaxAmountOnBaseLocal, c.Currency),
		fmt.Sprintf("Final cost: %.2f %s", c.FinalLocalCost, c.Currency),
	)
	return lines
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (r *Renderer) RenderAnalysis(w io.Writer, status *domain.AssessmentStatus, photos []output.AnalysisPhoto) error {
	if status == nil || status.Result == nil {
		return domain.ErrAssessmentNotCompleted
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, pageH := pdf.GetPageSize()
	const margin, bottom = 25.4, 25.4
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, bottom)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr("Analysis Report: "+status.AssessmentID), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Courier", "", 8)
	for _, line := range AnalysisLines(status) {
		if line == "" {
			pdf.Ln(2)
			continue
		}
		pdf.MultiCell(0, 3.5, tr(line), "", "L", false)
	}

	pdf.Ln(12)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "All Processed Photos", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	x := (pageW - frameW) / 2
	for _, p := range photos {
		n := p.Result.PhotoNum
		var original, annotated image.Image
		if p.Image != nil {
			original = fit(p.Image, maxAnnotatedSide)
			annotated = Annotate(p.Image, p.Result.Consensus, maxAnnotatedSide)
		}
		blocks := []struct {
			title string
			img   image.Image
		}{
			{fmt.Sprintf("Photo %d: Original", n), original},
			{fmt.Sprintf("Photo %d: Final Consensus Damage", n), annotated},
		}
		for i, b := range blocks {
			if pdf.GetY()+frameH+12 > pageH-bottom {
				pdf.AddPage()
			}
			if err := imageBlock(pdf, fmt.Sprintf("photo-%d-%d", n, i), b.img, b.title, x); err != nil {
				return fmt.Errorf("render analysis photo %d: %w", n, err)
			}
			pdf.Ln(3)
		}
		pdf.Ln(8)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render analysis: %w", err)
	}
	return pdf.Output(w)
}

// imageBlock draws a framed photo with its caption at the current line. A nil
// image leaves a placeholder.
func imageBlock(pdf *fpdf.Fpdf, name string, img image.Image, title string, x float64) error {
	y := pdf.GetY()
	pdf.SetDrawColor(0, 0, 0)
	pdf.Rect(x, y, frameW, frameH+8, "D")

	if img == nil {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetXY(x, y+frameH/2-3)
		pdf.CellFormat(frameW, 6, "[Image not found]", "", 0, "C", false, 0, "")
	} else {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
			return err
		}
		opts := fpdf.ImageOptions{ImageType: "JPG"}
		pdf.RegisterImageOptionsReader(name, opts, &buf)

		// Fit inside the frame keeping the aspect ratio.
		b := img.Bounds()
		w, h := frameW-4, (frameW-4)*float64(b.Dy())/float64(b.Dx())
		if h > frameH-4 {
			h = frameH - 4
			w = h * float64(b.Dx()) / float64(b.Dy())
		}
		pdf.ImageOptions(name, x+(frameW-w)/2, y+2+(frameH-4-h)/2, w, h, false, opts, 0, "")
	}

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(x, y+frameH+1)
	pdf.CellFormat(frameW, 6, title, "", 0, "C", false, 0, "")
	pdf.SetY(y + frameH + 8)
	return nil
}
