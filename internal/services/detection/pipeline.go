package detection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sparkvision/internal/config"
	"sparkvision/internal/logger"
	"sparkvision/internal/model"
	"sparkvision/internal/repository"
	"sparkvision/internal/services/alert"
	"sparkvision/internal/services/classifier"
	"sparkvision/internal/services/vision"

	"gocv.io/x/gocv"
)

// ErrFrameRead is returned by Run when the frame source stops delivering.
var ErrFrameRead = errors.New("unable to capture frame from webcam")

// maxEmptyFrames is how many empty frames in a row Run tolerates before
// treating the source as failed.
const maxEmptyFrames = 100

// SnapshotSink keeps the JPEG of a frame that fired an alert.
type SnapshotSink interface {
	AddSnapshot(data []byte, at time.Time)
}

// Options configures a Pipeline.
type Options struct {
	Band          vision.ColorBand
	JPEGQuality   int
	Threshold     int
	Timeout       time.Duration
	FailureWarn   int
	FrameInterval time.Duration
	Verdict       classifier.VerdictPolicy
}

// OptionsFromConfig maps the detector configuration onto pipeline options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Band:          vision.ColorBandFromConfig(cfg.Detection),
		JPEGQuality:   cfg.Detection.JPEGQuality,
		Threshold:     cfg.Detection.TriggerThreshold,
		Timeout:       cfg.Classifier.Timeout,
		FailureWarn:   cfg.Classifier.FailureWarn,
		FrameInterval: cfg.FrameInterval,
		Verdict:       classifier.ContainsYes,
	}
}

// FrameResult describes what happened to one frame.
type FrameResult struct {
	Signal     Signal
	FirePixels int
	Response   string
	Fired      bool
}

// Pipeline runs frames through prefilter, classifier and debounce, and
// publishes an alert when the controller fires. One frame is processed at
// a time.
type Pipeline struct {
	classifier classifier.Classifier
	publisher  alert.Publisher
	journal    repository.EscalationRepository
	snapshots  SnapshotSink
	logger     *logger.Logger

	controller *Controller
	options    Options

	encode func(frame gocv.Mat, quality int) (vision.EncodedImage, error)
	now    func() time.Time

	consecutiveFailures int
	degraded            bool
}

// NewPipeline wires a pipeline. journal and snapshots may be nil.
func NewPipeline(cls classifier.Classifier, publisher alert.Publisher, journal repository.EscalationRepository,
	snapshots SnapshotSink, options Options, logger *logger.Logger) *Pipeline {
	if options.Verdict == nil {
		options.Verdict = classifier.ContainsYes
	}
	if options.Timeout <= 0 {
		options.Timeout = 20 * time.Second
	}

	return &Pipeline{
		classifier: cls,
		publisher:  publisher,
		journal:    journal,
		snapshots:  snapshots,
		logger:     logger,
		controller: NewController(options.Threshold),
		options:    options,
		encode:     vision.EncodeFrame,
		now:        time.Now,
	}
}

// Controller exposes the debounce state.
func (p *Pipeline) Controller() *Controller {
	return p.controller
}

// Run reads frames until the context is cancelled, the viewer asks to
// stop, or the source fails. A source failure, or a long run of empty
// frames, returns ErrFrameRead.
func (p *Pipeline) Run(ctx context.Context, source vision.FrameSource, viewer vision.Viewer) error {
	frame := gocv.NewMat()
	defer frame.Close()

	p.logger.Info("🎬 Detection loop started - trigger after %d consecutive frame(s)", p.controller.Threshold())

	emptyFrames := 0
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("🛑 Detection loop stopped: %v", ctx.Err())
			return nil
		default:
		}

		if ok := source.Read(&frame); !ok {
			p.logger.Error("Error: Unable to capture frame from webcam.")
			return ErrFrameRead
		}

		if frame.Empty() {
			emptyFrames++
			if emptyFrames >= maxEmptyFrames {
				p.logger.Error("Error: Webcam returned %d empty frames in a row.", emptyFrames)
				return ErrFrameRead
			}
		} else {
			emptyFrames = 0
			p.ProcessFrame(ctx, frame)
		}

		if !viewer.Show(frame) {
			p.logger.Info("🛑 Detection loop stopped by user")
			return nil
		}

		if p.options.FrameInterval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(p.options.FrameInterval):
			}
		}
	}
}

// ProcessFrame handles a single frame and returns what happened to it.
func (p *Pipeline) ProcessFrame(ctx context.Context, frame gocv.Mat) FrameResult {
	result := FrameResult{FirePixels: vision.FirePixels(frame, p.options.Band)}

	if result.FirePixels <= p.options.Band.MinFirePixels {
		result.Signal = SignalFiltered
		p.controller.Observe(result.Signal)
		return result
	}

	p.logger.Debug("Frame passed colour prefilter: %d fire pixels", result.FirePixels)
	escalation := &model.Escalation{
		Timestamp:  p.now(),
		FirePixels: result.FirePixels,
	}

	encoded, err := p.encode(frame, p.options.JPEGQuality)
	if err != nil {
		p.logger.Error("Error: Failed to encode frame: %v", err)
		result.Signal = SignalEncodeFailed
		escalation.Error = fmt.Sprintf("encode: %v", err)
		p.controller.Observe(result.Signal)
		p.record(escalation, result)
		return result
	}

	response, latency, err := p.classify(ctx, encoded)
	escalation.Latency = latency
	if err != nil {
		p.logger.Error("Error during API call: %v", err)
		result.Signal = SignalError
		escalation.Error = err.Error()
		p.noteFailure()
		p.controller.Observe(result.Signal)
		p.record(escalation, result)
		return result
	}
	p.noteSuccess()

	result.Response = response
	p.logger.Info("[LLM] Response: %s", response)

	if p.options.Verdict(response) {
		result.Signal = SignalAffirmative
	} else {
		result.Signal = SignalNegative
	}
	escalation.Response = response
	escalation.Verdict = result.Signal == SignalAffirmative

	if p.controller.Observe(result.Signal) {
		result.Fired = true
		p.fire(encoded)
	}

	p.record(escalation, result)
	return result
}

func (p *Pipeline) classify(ctx context.Context, encoded vision.EncodedImage) (string, time.Duration, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.options.Timeout)
	defer cancel()

	start := time.Now()
	response, err := p.classifier.Classify(callCtx, encoded)
	return response, time.Since(start), err
}

func (p *Pipeline) fire(encoded vision.EncodedImage) {
	at := p.now()
	p.logger.Warning("🔥 ALERT: Fire detected!")

	event := model.NewAlertEvent(at)
	if err := p.publisher.Publish(event); err != nil {
		p.logger.Error("Failed to publish alert: %v", err)
	}

	if p.snapshots != nil {
		p.snapshots.AddSnapshot(encoded.JPEG, at)
	}
}

func (p *Pipeline) noteFailure() {
	p.consecutiveFailures++
	if p.options.FailureWarn > 0 && p.consecutiveFailures == p.options.FailureWarn {
		p.degraded = true
		p.logger.Warning("⚠️  Classifier failed %d times in a row - fire detection is degraded", p.consecutiveFailures)
	}
}

func (p *Pipeline) noteSuccess() {
	if p.degraded {
		p.logger.Info("Classifier recovered after %d failed call(s)", p.consecutiveFailures)
	}
	p.consecutiveFailures = 0
	p.degraded = false
}

// Degraded reports whether the classifier is currently failing repeatedly.
func (p *Pipeline) Degraded() bool {
	return p.degraded
}

func (p *Pipeline) record(escalation *model.Escalation, result FrameResult) {
	if p.journal == nil {
		return
	}
	escalation.CounterAfter = p.controller.Count()
	escalation.AlertFired = result.Fired
	if _, err := p.journal.Insert(escalation); err != nil {
		p.logger.Error("Failed to record escalation: %v", err)
	}
}
