package ports

import (
	"context"
	"image"
	"io"

	"github.com/Icestreamm/baseer-backend/internal/core/domain"
)

// AssessmentStatusRepository keeps the progress of running and recently
// finished assessments.
type AssessmentStatusRepository interface {
	// Create stores a new record; it fails with domain.ErrAssessmentInProgress
	// when the same id is still processing.
	Create(ctx context.Context, status *domain.AssessmentStatus) error
	Get(ctx context.Context, id string) (*domain.AssessmentStatus, error)
	Update(ctx context.Context, status *domain.AssessmentStatus) error
}

// PhotoFetcher downloads assessment photos.
type PhotoFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// AnalysisPhoto is a processed photo handed to the analysis report. Image is
// nil when the photo could not be loaded again.
type AnalysisPhoto struct {
	Result domain.PhotoResult
	Image  image.Image
}

// ReportRenderer renders finished assessments into documents.
type ReportRenderer interface {
	RenderInvoice(w io.Writer, status *domain.AssessmentStatus) error

	// RenderAnalysis writes the analysis PDF: the processing log followed by
	// each photo, original and annotated with its consensus boxes.
	RenderAnalysis(w io.Writer, status *domain.AssessmentStatus, photos []AnalysisPhoto) error

	// RenderConsensusImage writes img as JPEG with the consensus boxes of
	// photo drawn on it.
	RenderConsensusImage(w io.Writer, img image.Image, photo domain.PhotoResult) error
}
