package testutil

import (
	"context"
	"image"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Icestreamm/baseer-backend/internal/core/domain"
	"github.com/Icestreamm/baseer-backend/internal/core/ports/output"
)

// MockDetector is a mock of Detector.
type MockDetector struct {
	mock.Mock
}

func (m *MockDetector) Detect(ctx context.Context, img image.Image) ([]domain.Detection, error) {
	args := m.Called(ctx, img)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Detection), args.Error(1)
}

func (m *MockDetector) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockDetector) Ready() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockDetector) Close() error {
	args := m.Called()
	return args.Error(0)
}

// NewReadyDetector returns a MockDetector that is loaded and answers every
// Detect call with dets.
func NewReadyDetector(name string, dets []domain.Detection) *MockDetector {
	d := new(MockDetector)
	d.On("Name").Return(name).Maybe()
	d.On("Ready").Return(true).Maybe()
	d.On("Close").Return(nil).Maybe()
	d.On("Detect", mock.Anything, mock.Anything).Return(dets, nil).Maybe()
	return d
}

// MockAssessmentStatusRepo is a mock of AssessmentStatusRepository.
type MockAssessmentStatusRepo struct {
	mock.Mock
}

func (m *MockAssessmentStatusRepo) Create(ctx context.Context, status *domain.AssessmentStatus) error {
	args := m.Called(ctx, status)
	return args.Error(0)
}

func (m *MockAssessmentStatusRepo) Get(ctx context.Context, id string) (*domain.AssessmentStatus, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AssessmentStatus), args.Error(1)
}

func (m *MockAssessmentStatusRepo) Update(ctx context.Context, status *domain.AssessmentStatus) error {
	args := m.Called(ctx, status)
	return args.Error(0)
}

// MockPhotoFetcher is a mock of PhotoFetcher.
type MockPhotoFetcher struct {
	mock.Mock
}

func (m *MockPhotoFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockReportRenderer is a mock of ReportRenderer.
type MockReportRenderer struct {
	mock.Mock
}

func (m *MockReportRenderer) RenderInvoice(w io.Writer, status *domain.AssessmentStatus) error {
	args := m.Called(w, status)
	return args.Error(0)
}

func (m *MockReportRenderer) RenderAnalysis(w io.Writer, status *domain.AssessmentStatus, photos []ports.AnalysisPhoto) error {
	args := m.Called(w, status, photos)
	return args.Error(0)
}

func (m *MockReportRenderer) RenderConsensusImage(w io.Writer, img image.Image, photo domain.PhotoResult) error {
	args := m.Called(w, img, photo)
	return args.Error(0)
}

// MockKServeClient is a mock of KServeClient.
type MockKServeClient struct {
	mock.Mock
}

func (m *MockKServeClient) GetStatus(ctx context.Context, namespace, name string) (*ports.KServeStatus, error) {
	args := m.Called(ctx, namespace, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.KServeStatus), args.Error(1)
}

func (m *MockKServeClient) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockMetrics is a mock of MetricsRecorder.
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) ObserveInference(model string, took time.Duration, detections int, err error) {
	m.Called(model, took, detections, err)
}

func (m *MockMetrics) ObserveAssessment(state string, took time.Duration) {
	m.Called(state, took)
}
