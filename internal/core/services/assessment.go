package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Icestreamm/baseer-backend/internal/core/domain"
	output "github.com/Icestreamm/baseer-backend/internal/core/ports/output"
)

// Minimum confidences per model role.
var roleConfidence = map[string]float64{
	domain.ModelHandle:         0.4,
	domain.ModelComponent:      0.4,
	domain.ModelSideHunter:     0.5,
	domain.ModelSideKulas:      0.4,
	domain.ModelDamageSindhu:   0.3,
	domain.ModelDamageCDDCE:    0.3,
	domain.ModelDamageCapstone: 0.3,
}

// AssessmentOptions tunes the damage pipeline.
type AssessmentOptions struct {
	MaxPhotos    int
	IoUThreshold float64
	// MaxImagePixels defaults to DefaultMaxImagePixels
	MaxImagePixels int64
}

// AssessmentService accepts assessment requests and runs the damage pipeline
// for each of them in the background.
type AssessmentService struct {
	repo      output.AssessmentStatusRepository
	fetcher   output.PhotoFetcher
	renderer  output.ReportRenderer
	detectors output.DetectorSet
	metrics   output.MetricsRecorder
	opts      AssessmentOptions

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAssessmentService creates a new AssessmentService
func NewAssessmentService(
	repo output.AssessmentStatusRepository,
	fetcher output.PhotoFetcher,
	renderer output.ReportRenderer,
	detectors output.DetectorSet,
	metrics output.MetricsRecorder,
	opts AssessmentOptions,
) *AssessmentService {
	if metrics == nil {
		metrics = output.NopMetrics{}
	}
	if opts.IoUThreshold <= 0 {
		opts.IoUThreshold = domain.DefaultConsensusIoU
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &AssessmentService{
		repo:      repo,
		fetcher:   fetcher,
		renderer:  renderer,
		detectors: detectors,
		metrics:   metrics,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// ModelsLoaded reports whether every required detector is ready.
func (s *AssessmentService) ModelsLoaded() bool {
	return len(s.detectors.Missing(domain.RequiredModels)) == 0
}

// MissingModels lists the required roles without a ready detector.
func (s *AssessmentService) MissingModels() []string {
	return s.detectors.Missing(domain.RequiredModels)
}

// LoadedModels lists the roles with a ready detector.
func (s *AssessmentService) LoadedModels() []string {
	var loaded []string
	for _, role := range domain.AllModels {
		if d, ok := s.detectors[role]; ok && d != nil && d.Ready() {
			loaded = append(loaded, role)
		}
	}
	return loaded
}

// Start validates the request, records it as processing and launches the
// pipeline. The returned status is a snapshot.
func (s *AssessmentService) Start(ctx context.Context, req domain.Assessment) (*domain.AssessmentStatus, error) {
	a, err := domain.NewAssessment(req, s.opts.MaxPhotos)
	if err != nil {
		return nil, err
	}

	status := domain.NewAssessmentStatus(a)
	if err := s.repo.Create(ctx, status); err != nil {
		return nil, err
	}
	snapshot := *status

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(status)
	}()

	return &snapshot, nil
}

// Status returns the latest progress record of an assessment.
func (s *AssessmentService) Status(ctx context.Context, id string) (*domain.AssessmentStatus, error) {
	return s.repo.Get(ctx, id)
}

// WriteInvoice renders the invoice of a completed assessment into w.
func (s *AssessmentService) WriteInvoice(ctx context.Context, id string, w io.Writer) error {
	status, err := s.completed(ctx, id)
	if err != nil {
		return err
	}
	if err := s.renderer.RenderInvoice(w, status); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrReportUnavailable, err)
	}
	return nil
}

// WriteAnalysis renders the analysis report of a completed assessment into w.
// Photos are downloaded again; those that fail are reported as missing.
func (s *AssessmentService) WriteAnalysis(ctx context.Context, id string, w io.Writer) error {
	status, err := s.completed(ctx, id)
	if err != nil {
		return err
	}

	logger := log.WithField("assessment_id", id)
	photos := make([]output.AnalysisPhoto, 0, len(status.Result.Photos))
	for _, p := range status.Result.Photos {
		img, err := s.loadPhoto(ctx, p.PhotoURL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.WithError(err).WithField("photo", p.PhotoNum).Warn("Photo unavailable for analysis report")
		}
		photos = append(photos, output.AnalysisPhoto{Result: p, Image: img})
	}

	if err := s.renderer.RenderAnalysis(w, status, photos); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrReportUnavailable, err)
	}
	return nil
}

// WriteConsensusImage writes photo photoNum of a completed assessment as JPEG
// with its consensus boxes drawn on it.
func (s *AssessmentService) WriteConsensusImage(ctx context.Context, id string, photoNum int, w io.Writer) error {
	status, err := s.completed(ctx, id)
	if err != nil {
		return err
	}

	var photo *domain.PhotoResult
	for i := range status.Result.Photos {
		if status.Result.Photos[i].PhotoNum == photoNum {
			photo = &status.Result.Photos[i]
			break
		}
	}
	if photo == nil {
		return domain.ErrPhotoNotFound
	}

	img, err := s.loadPhoto(ctx, photo.PhotoURL)
	if err != nil {
		return err
	}
	if err := s.renderer.RenderConsensusImage(w, img, *photo); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrReportUnavailable, err)
	}
	return nil
}

func (s *AssessmentService) completed(ctx context.Context, id string) (*domain.AssessmentStatus, error) {
	status, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if status.State != domain.AssessmentCompleted || status.Result == nil {
		return nil, domain.ErrAssessmentNotCompleted
	}
	return status, nil
}

func (s *AssessmentService) loadPhoto(ctx context.Context, url string) (image.Image, error) {
	data, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPhotoDownload, err)
	}
	img, err := DecodeImageBytes(data, s.opts.MaxImagePixels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPhotoDownload, err)
	}
	return img, nil
}

// Shutdown cancels running pipelines and waits for them to record their
// final state, or for ctx to expire.
func (s *AssessmentService) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AssessmentService) run(status *domain.AssessmentStatus) {
	start := time.Now()
	logger := log.WithField("assessment_id", status.AssessmentID)
	logger.Info("Starting assessment processing")

	result, err := s.process(s.ctx, status, logger)
	if err != nil {
		logger.WithError(err).Error("Assessment processing failed")
		status.Fail(err)
	} else {
		logger.WithFields(log.Fields{
			"consensus_cm2": result.ConsensusDamageCM2,
			"final_cost":    result.Costs.FinalLocalCost,
			"currency":      result.Costs.Currency,
		}).Info("Assessment processed")
		status.Complete(result)
	}
	s.save(status, logger)
	s.metrics.ObserveAssessment(string(status.State), time.Since(start))
}

func (s *AssessmentService) advance(status *domain.AssessmentStatus, logger *log.Entry, msg string, progress int) {
	status.Advance(msg, progress)
	s.save(status, logger)
}

func (s *AssessmentService) save(status *domain.AssessmentStatus, logger *log.Entry) {
	// Status updates outlive cancellation so a shutdown still records the failure.
	if err := s.repo.Update(context.WithoutCancel(s.ctx), status); err != nil {
		logger.WithError(err).Warn("Failed to update assessment status")
	}
}

func (s *AssessmentService) process(ctx context.Context, status *domain.AssessmentStatus, logger *log.Entry) (*domain.AssessmentResult, error) {
	a := status.Assessment

	s.advance(status, logger, "Loading AI models...", 10)
	if missing := s.detectors.Missing(domain.RequiredModels); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", domain.ErrMissingModels, strings.Join(missing, ", "))
	}

	s.advance(status, logger, "Downloading photos...", -1)
	photos := s.downloadPhotos(ctx, a.PhotoURLs, logger)
	if len(photos) == 0 {
		return nil, domain.ErrPhotoDownload
	}

	result := &domain.AssessmentResult{
		Photos:         make([]domain.PhotoResult, 0, len(photos)),
		ModelDamageCM2: make(map[string]float64, len(domain.DamageModels)),
	}
	var paintCosts []domain.PaintCost

	s.advance(status, logger, fmt.Sprintf("Processing %d photos...", len(photos)), -1)
	for i, p := range photos {
		photoNum := i + 1
		pr, err := s.processPhoto(ctx, photoNum, p, a.References)
		if err != nil {
			return nil, fmt.Errorf("photo %d: %w", photoNum, err)
		}

		logger.WithFields(log.Fields{
			"photo":          photoNum,
			"scale_source":   pr.Scale.Source,
			"cm_per_px":      pr.Scale.CMPerPixel,
			"orientation":    pr.Orientation,
			"consensus":      len(pr.Consensus),
			"paint_area_cm2": pr.Paint.AreaCM2,
			"paint_cost_jod": pr.PaintCostJOD,
		}).Info("Photo processed")

		for role, area := range pr.ModelDamageCM2 {
			result.ModelDamageCM2[role] += area
		}
		result.ConsensusDamageCM2 += pr.ConsensusCM2
		result.HasWindshieldDamage = result.HasWindshieldDamage || pr.Paint.HasWindshield
		result.HasLightDamage = result.HasLightDamage || pr.Paint.HasLight
		result.HasTireDamage = result.HasTireDamage || pr.Paint.HasTire
		paintCosts = append(paintCosts, domain.PaintCost{
			PhotoNum: photoNum,
			AreaCM2:  pr.Paint.AreaCM2,
			Cost:     pr.PaintCostJOD,
		})
		result.Photos = append(result.Photos, *pr)

		progress := photoNum * 80 / len(photos)
		s.advance(status, logger, fmt.Sprintf("Processed photo %d/%d...", photoNum, len(photos)), progress)
	}

	s.advance(status, logger, "Calculating final costs...", 85)
	result.Costs = domain.CalculateCosts(domain.CostInput{
		PaintCostsJOD:    paintCosts,
		HasWindshield:    result.HasWindshieldDamage,
		HasLight:         result.HasLightDamage,
		HasTire:          result.HasTireDamage,
		JODToLocal:       a.CurrencyExchangeRate,
		TaxRate:          a.TaxRate,
		LuxuryIndex:      a.LuxuryIndex,
		CountryLuxFactor: a.CountryLuxFactor,
		Currency:         a.Currency,
	})

	s.advance(status, logger, "Saving results...", 92)
	return result, nil
}

type downloadedPhoto struct {
	url  string
	data []byte
}

// downloadPhotos skips photos that cannot be fetched.
func (s *AssessmentService) downloadPhotos(ctx context.Context, urls []string, logger *log.Entry) []downloadedPhoto {
	var photos []downloadedPhoto
	for i, url := range urls {
		if ctx.Err() != nil {
			break
		}
		data, err := s.fetcher.Fetch(ctx, url)
		if err != nil {
			logger.WithError(err).WithField("photo", i+1).Warn("Error downloading photo")
			continue
		}
		photos = append(photos, downloadedPhoto{url: url, data: data})
	}
	return photos
}

func (s *AssessmentService) processPhoto(ctx context.Context, photoNum int, p downloadedPhoto, ref domain.ReferenceSizes) (*domain.PhotoResult, error) {
	img, err := DecodeImageBytes(p.data, s.opts.MaxImagePixels)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()

	run := func(role string) ([]domain.Detection, error) {
		return s.detect(ctx, role, img)
	}

	handle, err := run(domain.ModelHandle)
	if err != nil {
		return nil, err
	}
	component, err := run(domain.ModelComponent)
	if err != nil {
		return nil, err
	}
	scale := domain.CalculateScale(handle, component, ref, b.Dx())

	pr := &domain.PhotoResult{
		PhotoNum:       photoNum,
		PhotoURL:       p.url,
		Width:          b.Dx(),
		Height:         b.Dy(),
		Scale:          scale,
		Orientation:    s.orientation(ctx, img),
		ModelDamageCM2: make(map[string]float64, len(domain.DamageModels)),
	}

	damage := make([][]domain.Detection, 0, len(domain.DamageModels))
	for _, role := range domain.DamageModels {
		dets, err := run(role)
		if err != nil {
			return nil, err
		}
		pr.ModelDamageCM2[role] = domain.DamageAreaCM2(dets, scale.CMPerPixel)
		damage = append(damage, dets)
	}

	pr.Consensus = domain.MultiModelConsensus(damage, s.opts.IoUThreshold)
	pr.ConsensusCM2 = domain.ConsensusAreaCM2(pr.Consensus, scale.CMPerPixel)
	pr.Paint = domain.AssessPaint(pr.Consensus, scale.TireBoxes, scale.CMPerPixel)
	pr.PaintCostJOD = domain.PaintCostJOD(pr.Paint.AreaCM2)
	return pr, nil
}

// orientation reports the strongest class of the optional side models.
func (s *AssessmentService) orientation(ctx context.Context, img image.Image) string {
	var parts []string
	for _, role := range []string{domain.ModelSideHunter, domain.ModelSideKulas} {
		d, ok := s.detectors[role]
		if !ok || d == nil || !d.Ready() {
			continue
		}
		dets, err := s.detect(ctx, role, img)
		if err != nil {
			log.WithError(err).WithField("model", role).Warn("Orientation model failed")
			continue
		}
		best := -1
		for i, det := range dets {
			if best < 0 || det.Confidence > dets[best].Confidence {
				best = i
			}
		}
		if best >= 0 {
			parts = append(parts, dets[best].ClassName)
		}
	}
	return strings.Join(parts, "/")
}

func (s *AssessmentService) detect(ctx context.Context, role string, img image.Image) ([]domain.Detection, error) {
	d, ok := s.detectors[role]
	if !ok || d == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDetectorNotFound, role)
	}

	start := time.Now()
	dets, err := d.Detect(ctx, img)
	s.metrics.ObserveInference(role, time.Since(start), len(dets), err)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInferenceFailed, role, err)
	}
	return filterConfidence(dets, roleConfidence[role]), nil
}

func filterConfidence(dets []domain.Detection, minConf float64) []domain.Detection {
	out := make([]domain.Detection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence >= minConf {
			out = append(out, d)
		}
	}
	return out
}
