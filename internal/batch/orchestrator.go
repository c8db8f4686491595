// Package batch orchestrates one furniture-removal request end to end:
// entitlement, concurrent model fan-out, result collection, and usage logging.
package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/esyasil/clearroom/internal/entitlement"
	"github.com/esyasil/clearroom/internal/imaging"
	"github.com/esyasil/clearroom/internal/logging"
	"github.com/esyasil/clearroom/internal/metrics"
	"github.com/esyasil/clearroom/internal/tracing"
	"github.com/esyasil/clearroom/pkg/models"
)

var (
	// ErrInvalidBatchSize indicates the request carried 0 or too many images
	ErrInvalidBatchSize = errors.New("invalid batch size")

	// ErrInsufficientCredits indicates the entitlement check denied the batch
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// itemFailureReason is the opaque per-image error surfaced to callers
const itemFailureReason = "processing failed"

// Dispatcher performs one furniture-removal model call
type Dispatcher interface {
	RemoveFurniture(ctx context.Context, encodedImage string) (string, error)
}

// Ledger answers and reserves entitlement for a batch
type Ledger interface {
	Authorize(ctx context.Context, userID string, count int) (*entitlement.Decision, error)
}

// UsageRecorder appends usage log entries
type UsageRecorder interface {
	CreateUsageLog(ctx context.Context, entry *models.UsageLogEntry) error
}

// ResultStore archives processed images. Optional; archival failures never
// affect batch outcomes.
type ResultStore interface {
	PutResult(ctx context.Context, userID, batchID string, index int, data []byte) (string, error)
}

// Orchestrator is the request entry point for image processing. All
// collaborators are injected at construction so tests can substitute fakes.
type Orchestrator struct {
	dispatcher Dispatcher
	ledger     Ledger
	usage      UsageRecorder
	results    ResultStore
	logger     *logging.Logger
	maxImages  int
}

// NewOrchestrator creates a new batch orchestrator. results may be nil.
func NewOrchestrator(dispatcher Dispatcher, ledger Ledger, usage UsageRecorder, results ResultStore, logger *logging.Logger, maxImages int) *Orchestrator {
	if maxImages < models.MinBatchSize {
		maxImages = models.MaxBatchSize
	}

	return &Orchestrator{
		dispatcher: dispatcher,
		ledger:     ledger,
		usage:      usage,
		results:    results,
		logger:     logger,
		maxImages:  maxImages,
	}
}

// Process runs one batch for an already-authenticated user. Billing policy:
// an accepted batch is charged for its full size even if every image fails —
// the user pays for attempted capacity, not successful output. Outcomes come
// back in input order, one per input image.
func (o *Orchestrator) Process(ctx context.Context, userID string, images []string) ([]models.ImageOutcome, error) {
	n := len(images)
	if n < models.MinBatchSize || n > o.maxImages {
		return nil, ErrInvalidBatchSize
	}

	decision, err := o.ledger.Authorize(ctx, userID, n)
	if err != nil {
		return nil, err
	}

	if !decision.Allowed {
		metrics.RecordEntitlementDenied()
		return nil, ErrInsufficientCredits
	}

	if !decision.Subscribed {
		metrics.RecordCreditsConsumed(n)
	}

	batchID := uuid.New().String()
	log := o.logger.WithUserID(userID).WithBatchID(batchID)
	log.LogBatchEvent(batchID, userID, "accepted", n)

	span, ctx := tracing.StartSpan(ctx, "batch.process")
	tracing.SetTag(span, "batch.id", batchID)
	tracing.SetTag(span, "batch.size", n)
	defer tracing.FinishSpan(span)

	start := time.Now()
	outcomes := o.dispatchAll(ctx, batchID, images)

	o.archiveResults(ctx, userID, batchID, outcomes)
	o.recordUsage(ctx, userID, n)

	metrics.RecordBatch("completed", n, time.Since(start).Seconds())
	log.LogBatchEvent(batchID, userID, "completed", n)

	return outcomes, nil
}

// dispatchAll fans the images out to the model concurrently and waits for
// every item to settle. Each goroutine owns exactly one slot of the result
// slice, so index i of the output always corresponds to input i and no item
// can cancel or block its siblings.
func (o *Orchestrator) dispatchAll(ctx context.Context, batchID string, images []string) []models.ImageOutcome {
	outcomes := make([]models.ImageOutcome, len(images))

	var wg sync.WaitGroup
	for i, image := range images {
		wg.Add(1)
		go func(i int, image string) {
			defer wg.Done()
			outcomes[i] = o.dispatchOne(ctx, batchID, i, image)
		}(i, image)
	}
	wg.Wait()

	return outcomes
}

// dispatchOne runs a single best-effort model call. Every failure, including
// a panic in the dispatcher, downgrades to an error outcome for that item.
func (o *Orchestrator) dispatchOne(ctx context.Context, batchID string, index int, image string) (outcome models.ImageOutcome) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			o.logger.WithBatchID(batchID).Errorf("Dispatch panic for image %d: %v", index, r)
			metrics.RecordDispatch(string(models.OutcomeStatusError), time.Since(start).Seconds())
			outcome = models.ErrorOutcome(itemFailureReason)
		}
	}()

	span, ctx := tracing.StartSpan(ctx, "batch.dispatch")
	tracing.SetTag(span, "image.index", index)
	defer tracing.FinishSpan(span)

	result, err := o.dispatcher.RemoveFurniture(ctx, imaging.StripDataURI(image))
	o.logger.LogDispatchResult(batchID, index, time.Since(start), err)

	if err != nil {
		tracing.LogError(span, err)
		metrics.RecordDispatch(string(models.OutcomeStatusError), time.Since(start).Seconds())
		return models.ErrorOutcome(itemFailureReason)
	}

	metrics.RecordDispatch(string(models.OutcomeStatusSuccess), time.Since(start).Seconds())
	return models.SuccessOutcome(result)
}

// archiveResults uploads successful images to object storage, best effort
func (o *Orchestrator) archiveResults(ctx context.Context, userID, batchID string, outcomes []models.ImageOutcome) {
	if o.results == nil {
		return
	}

	for i, outcome := range outcomes {
		if outcome.Status != models.OutcomeStatusSuccess {
			continue
		}

		data, err := imaging.Decode(outcome.Data)
		if err == nil {
			_, err = o.results.PutResult(ctx, userID, batchID, i, data)
		}
		if err != nil {
			o.logger.WithBatchID(batchID).WithError(err).Warnf("Failed to archive result %d", i)
		}
	}
}

// recordUsage appends the usage log entry. The deduction already happened at
// authorization, so a log failure is reported but never fails the batch.
func (o *Orchestrator) recordUsage(ctx context.Context, userID string, count int) {
	entry := &models.UsageLogEntry{
		UserID:     userID,
		ImageCount: count,
	}

	if err := o.usage.CreateUsageLog(ctx, entry); err != nil {
		o.logger.WithUserID(userID).ErrorWithErr("Failed to write usage log", err)
	}
}
