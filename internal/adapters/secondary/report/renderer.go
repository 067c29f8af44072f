package report

import (
	"time"

	output "github.com/Icestreamm/baseer-backend/internal/core/ports/output"
)

// Palette
var (
	darkBlue      = [3]int{0x1b, 0x4a, 0x6b}
	mediumGray    = [3]int{0xcc, 0xcc, 0xcc}
	lightBlueGray = [3]int{0xe8, 0xee, 0xf3}
	lineGray      = [3]int{0xaa, 0xaa, 0xaa}
)

// Renderer produces the documents of completed assessments: the A4 invoice,
// the analysis report and annotated consensus photos.
type Renderer struct {
	now func() time.Time
}

var _ output.ReportRenderer = (*Renderer)(nil)

func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}
