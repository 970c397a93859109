package detection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sparkvision/internal/config"
	"sparkvision/internal/logger"
	"sparkvision/internal/model"
	"sparkvision/internal/repository/sqlite"
	"sparkvision/internal/services/classifier"
	"sparkvision/internal/services/vision"

	"gocv.io/x/gocv"
)

// scriptedClassifier returns the queued answers in order, then "No".
type scriptedClassifier struct {
	answers []scriptedAnswer
	calls   int
}

type scriptedAnswer struct {
	text string
	err  error
}

func (c *scriptedClassifier) Classify(ctx context.Context, img vision.EncodedImage) (string, error) {
	if len(img.JPEG) == 0 {
		return "", errors.New("empty image")
	}
	if c.calls >= len(c.answers) {
		return "No", nil
	}
	a := c.answers[c.calls]
	c.calls++
	return a.text, a.err
}

type recordingPublisher struct {
	events []model.AlertEvent
	err    error
}

func (p *recordingPublisher) Publish(event model.AlertEvent) error {
	p.events = append(p.events, event)
	return p.err
}

type recordingSnapshots struct {
	count int
}

func (s *recordingSnapshots) AddSnapshot(data []byte, at time.Time) {
	if len(data) > 0 {
		s.count++
	}
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
	t.Cleanup(l.Close)
	return l
}

func fireFrame() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 64, 255, 0), 120, 160, gocv.MatTypeCV8UC3)
}

func calmFrame() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 120, 40, 0), 120, 160, gocv.MatTypeCV8UC3)
}

func newTestPipeline(t *testing.T, threshold int, answers ...scriptedAnswer) (*Pipeline, *scriptedClassifier, *recordingPublisher) {
	t.Helper()
	cls := &scriptedClassifier{answers: answers}
	pub := &recordingPublisher{}
	opts := OptionsFromConfig(config.Default())
	opts.Threshold = threshold
	return NewPipeline(cls, pub, nil, nil, opts, newTestLogger(t)), cls, pub
}

func yes() scriptedAnswer { return scriptedAnswer{text: "Yes"} }
func no() scriptedAnswer  { return scriptedAnswer{text: "No."} }
func fail() scriptedAnswer {
	return scriptedAnswer{err: errors.New("connection reset by peer")}
}

func TestProcessFrame_FilteredFrameResetsWithoutClassifier(t *testing.T) {
	p, cls, _ := newTestPipeline(t, 5, yes(), yes())
	fire, calm := fireFrame(), calmFrame()
	defer fire.Close()
	defer calm.Close()

	p.ProcessFrame(context.Background(), fire)
	p.ProcessFrame(context.Background(), fire)
	if p.Controller().Count() != 2 {
		t.Fatalf("Expected counter 2, got %d", p.Controller().Count())
	}

	result := p.ProcessFrame(context.Background(), calm)
	if result.Signal != SignalFiltered {
		t.Errorf("Expected filtered signal, got %s", result.Signal)
	}
	if p.Controller().Count() != 0 {
		t.Errorf("Filtered frame should reset the counter, got %d", p.Controller().Count())
	}
	if cls.calls != 2 {
		t.Errorf("Classifier should not be called for filtered frames, calls=%d", cls.calls)
	}
}

func TestProcessFrame_ThreeAffirmativesFireOnce(t *testing.T) {
	p, _, pub := newTestPipeline(t, 3, yes(), yes(), yes())
	frame := fireFrame()
	defer frame.Close()

	var fired []bool
	for i := 0; i < 3; i++ {
		fired = append(fired, p.ProcessFrame(context.Background(), frame).Fired)
	}

	if fired[0] || fired[1] || !fired[2] {
		t.Errorf("Expected only the third frame to fire, got %v", fired)
	}
	if len(pub.events) != 1 {
		t.Fatalf("Expected exactly 1 alert, got %d", len(pub.events))
	}
	if pub.events[0].Message != model.AlertMessage {
		t.Errorf("Unexpected alert message %q", pub.events[0].Message)
	}
	if p.Controller().Count() != 0 {
		t.Errorf("Counter should reset after firing, got %d", p.Controller().Count())
	}
}

func TestProcessFrame_NegativeInTheMiddle(t *testing.T) {
	p, _, pub := newTestPipeline(t, 3, yes(), no(), yes())
	frame := fireFrame()
	defer frame.Close()

	for i := 0; i < 3; i++ {
		p.ProcessFrame(context.Background(), frame)
	}

	if len(pub.events) != 0 {
		t.Errorf("Expected no alert, got %d", len(pub.events))
	}
	if p.Controller().Count() != 1 {
		t.Errorf("Expected counter 1 after reset and one affirmative, got %d", p.Controller().Count())
	}
}

func TestProcessFrame_ClassifierErrorIsNoOp(t *testing.T) {
	p, _, pub := newTestPipeline(t, 3, yes(), fail(), yes(), yes())
	frame := fireFrame()
	defer frame.Close()

	signals := []Signal{}
	for i := 0; i < 4; i++ {
		signals = append(signals, p.ProcessFrame(context.Background(), frame).Signal)
	}

	if signals[1] != SignalError {
		t.Errorf("Expected error signal for second frame, got %s", signals[1])
	}
	if len(pub.events) != 1 {
		t.Errorf("Expected affirm, error, affirm, affirm to fire once, got %d alerts", len(pub.events))
	}
}

func TestProcessFrame_EncodeFailureResets(t *testing.T) {
	p, cls, pub := newTestPipeline(t, 2, yes(), yes())
	frame := fireFrame()
	defer frame.Close()

	p.ProcessFrame(context.Background(), frame)

	p.encode = func(gocv.Mat, int) (vision.EncodedImage, error) {
		return vision.EncodedImage{}, errors.New("imencode failed")
	}
	result := p.ProcessFrame(context.Background(), frame)
	if result.Signal != SignalEncodeFailed {
		t.Errorf("Expected encode-failed signal, got %s", result.Signal)
	}
	if p.Controller().Count() != 0 {
		t.Errorf("Encode failure should reset the counter, got %d", p.Controller().Count())
	}
	if cls.calls != 1 {
		t.Errorf("Classifier should not be called when encoding fails, calls=%d", cls.calls)
	}

	p.encode = vision.EncodeFrame
	p.ProcessFrame(context.Background(), frame)
	if len(pub.events) != 0 {
		t.Errorf("A run broken by an encode failure must not fire, got %d alerts", len(pub.events))
	}
}

func TestProcessFrame_VerdictPolicy(t *testing.T) {
	tests := []struct {
		response string
		policy   classifier.VerdictPolicy
		expected Signal
	}{
		{"Nope, I see nothing", classifier.ContainsYes, SignalNegative},
		{"Yes, I see flames", classifier.ContainsYes, SignalAffirmative},
		{"definitely not yes", classifier.ContainsYes, SignalAffirmative},
		{"definitely not yes", classifier.StartsWithYes, SignalNegative},
	}

	for _, tt := range tests {
		t.Run(tt.response, func(t *testing.T) {
			cls := &scriptedClassifier{answers: []scriptedAnswer{{text: tt.response}}}
			opts := OptionsFromConfig(config.Default())
			opts.Threshold = 5
			opts.Verdict = tt.policy
			p := NewPipeline(cls, &recordingPublisher{}, nil, nil, opts, newTestLogger(t))

			frame := fireFrame()
			defer frame.Close()

			result := p.ProcessFrame(context.Background(), frame)
			if result.Signal != tt.expected {
				t.Errorf("Response %q: expected %s, got %s", tt.response, tt.expected, result.Signal)
			}
			if result.Response != tt.response {
				t.Errorf("Expected response to be kept, got %q", result.Response)
			}
		})
	}
}

func TestProcessFrame_ClassifierDeadline(t *testing.T) {
	cls := classifierFunc(func(ctx context.Context, _ vision.EncodedImage) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	opts := OptionsFromConfig(config.Default())
	opts.Threshold = 3
	opts.Timeout = 20 * time.Millisecond
	p := NewPipeline(cls, &recordingPublisher{}, nil, nil, opts, newTestLogger(t))

	frame := fireFrame()
	defer frame.Close()

	start := time.Now()
	result := p.ProcessFrame(context.Background(), frame)
	if result.Signal != SignalError {
		t.Errorf("Expected timeout to be treated as error, got %s", result.Signal)
	}
	if time.Since(start) > time.Second {
		t.Error("Classifier call was not bounded by the timeout")
	}
}

type classifierFunc func(ctx context.Context, img vision.EncodedImage) (string, error)

func (f classifierFunc) Classify(ctx context.Context, img vision.EncodedImage) (string, error) {
	return f(ctx, img)
}

func TestProcessFrame_DegradedAfterRepeatedFailures(t *testing.T) {
	answers := []scriptedAnswer{fail(), fail(), fail(), yes()}
	cls := &scriptedClassifier{answers: answers}
	opts := OptionsFromConfig(config.Default())
	opts.Threshold = 5
	opts.FailureWarn = 3
	p := NewPipeline(cls, &recordingPublisher{}, nil, nil, opts, newTestLogger(t))

	frame := fireFrame()
	defer frame.Close()

	for i := 0; i < 2; i++ {
		p.ProcessFrame(context.Background(), frame)
	}
	if p.Degraded() {
		t.Error("Should not be degraded before reaching the warning threshold")
	}
	p.ProcessFrame(context.Background(), frame)
	if !p.Degraded() {
		t.Error("Expected degraded after 3 consecutive failures")
	}
	p.ProcessFrame(context.Background(), frame)
	if p.Degraded() {
		t.Error("Expected recovery after a successful call")
	}
}

func TestProcessFrame_PublishFailureStillResets(t *testing.T) {
	cls := &scriptedClassifier{answers: []scriptedAnswer{yes()}}
	pub := &recordingPublisher{err: errors.New("broker down")}
	snaps := &recordingSnapshots{}
	p := NewPipeline(cls, pub, nil, snaps, OptionsFromConfig(config.Default()), newTestLogger(t))

	frame := fireFrame()
	defer frame.Close()

	result := p.ProcessFrame(context.Background(), frame)
	if !result.Fired {
		t.Error("Expected the frame to fire at threshold 1")
	}
	if p.Controller().Count() != 0 {
		t.Errorf("Counter should reset even when publishing fails, got %d", p.Controller().Count())
	}
	if snaps.count != 1 {
		t.Errorf("Expected 1 snapshot, got %d", snaps.count)
	}
}

func TestProcessFrame_Journal(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "journal_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	db, err := sqlite.New(filepath.Join(tempDir, "journal.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()
	journal := sqlite.NewEscalationRepository(db)

	cls := &scriptedClassifier{answers: []scriptedAnswer{yes(), fail(), yes()}}
	opts := OptionsFromConfig(config.Default())
	opts.Threshold = 2
	p := NewPipeline(cls, &recordingPublisher{}, journal, nil, opts, newTestLogger(t))

	fire, calm := fireFrame(), calmFrame()
	defer fire.Close()
	defer calm.Close()

	p.ProcessFrame(context.Background(), fire)
	p.ProcessFrame(context.Background(), calm)
	p.ProcessFrame(context.Background(), fire)
	p.ProcessFrame(context.Background(), fire)

	entries, err := journal.GetAll(nil)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 escalations (filtered frames are not journaled), got %d", len(entries))
	}

	fired, err := journal.GetTotalCount(&model.JournalFilter{OnlyAlerts: true})
	if err != nil {
		t.Fatalf("GetTotalCount failed: %v", err)
	}
	if fired != 0 {
		t.Errorf("Filtered frame broke the run, expected no alert, got %d", fired)
	}

	var errored int
	for _, e := range entries {
		if e.Error != "" {
			errored++
		}
		if e.FirePixels <= vision.MinFirePixels {
			t.Errorf("Journaled escalation with %d fire pixels", e.FirePixels)
		}
	}
	if errored != 1 {
		t.Errorf("Expected 1 errored escalation, got %d", errored)
	}
}

// scriptedSource yields the given frames, then fails.
type scriptedSource struct {
	frames []gocv.Mat
	next   int
	closed bool
}

func (s *scriptedSource) Read(frame *gocv.Mat) bool {
	if s.next >= len(s.frames) {
		return false
	}
	s.frames[s.next].CopyTo(frame)
	s.next++
	return true
}

func (s *scriptedSource) Close() error {
	s.closed = true
	return nil
}

type countingViewer struct {
	shown  int
	stopAt int
}

func (v *countingViewer) Show(gocv.Mat) bool {
	v.shown++
	return v.stopAt == 0 || v.shown < v.stopAt
}

func (v *countingViewer) Close() error { return nil }

func TestRun_SourceFailureIsFatal(t *testing.T) {
	p, _, pub := newTestPipeline(t, 2, yes(), yes())
	fire := fireFrame()
	defer fire.Close()

	source := &scriptedSource{frames: []gocv.Mat{fire, fire}}
	viewer := &countingViewer{}

	err := p.Run(context.Background(), source, viewer)
	if !errors.Is(err, ErrFrameRead) {
		t.Errorf("Expected ErrFrameRead, got %v", err)
	}
	if viewer.shown != 2 {
		t.Errorf("Expected 2 frames shown, got %d", viewer.shown)
	}
	if len(pub.events) != 1 {
		t.Errorf("Expected 1 alert, got %d", len(pub.events))
	}
}

func TestRun_ViewerStop(t *testing.T) {
	p, _, _ := newTestPipeline(t, 1)
	calm := calmFrame()
	defer calm.Close()

	source := &scriptedSource{frames: []gocv.Mat{calm, calm, calm}}
	viewer := &countingViewer{stopAt: 2}

	if err := p.Run(context.Background(), source, viewer); err != nil {
		t.Errorf("Expected clean stop, got %v", err)
	}
	if source.next != 2 {
		t.Errorf("Expected loop to stop after 2 frames, read %d", source.next)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	p, _, _ := newTestPipeline(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &scriptedSource{}
	if err := p.Run(ctx, source, vision.HeadlessViewer{}); err != nil {
		t.Errorf("Expected nil on cancellation, got %v", err)
	}
	if source.next != 0 {
		t.Error("No frame should be read after cancellation")
	}
}

// emptySource keeps reporting success without ever producing a frame.
type emptySource struct {
	reads int
}

func (s *emptySource) Read(*gocv.Mat) bool {
	s.reads++
	return true
}

func (s *emptySource) Close() error { return nil }

func TestRun_EmptyFrames(t *testing.T) {
	tests := []struct {
		name      string
		stopAt    int
		expectErr bool
		shown     int
	}{
		{"viewer can still quit", 3, false, 3},
		{"endless empty frames fail", 0, true, maxEmptyFrames - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, cls, _ := newTestPipeline(t, 1)
			source := &emptySource{}
			viewer := &countingViewer{stopAt: tt.stopAt}

			err := p.Run(context.Background(), source, viewer)
			if tt.expectErr && !errors.Is(err, ErrFrameRead) {
				t.Errorf("Expected ErrFrameRead, got %v", err)
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected clean stop, got %v", err)
			}
			if viewer.shown != tt.shown {
				t.Errorf("Expected viewer called %d times, got %d", tt.shown, viewer.shown)
			}
			if cls.calls != 0 {
				t.Errorf("Empty frames must not reach the classifier, calls=%d", cls.calls)
			}
		})
	}
}
