package detection

// Signal is the per-frame outcome fed to the Controller.
type Signal int

const (
	// SignalFiltered means the frame failed the colour prefilter.
	SignalFiltered Signal = iota
	// SignalEncodeFailed means the frame could not be prepared for the
	// classifier. It is treated like a negative verdict.
	SignalEncodeFailed
	// SignalError means the classifier call failed; the counter is left alone.
	SignalError
	// SignalNegative is a classifier answer without confirmation.
	SignalNegative
	// SignalAffirmative is a confirmed frame.
	SignalAffirmative
)

func (s Signal) String() string {
	switch s {
	case SignalFiltered:
		return "filtered"
	case SignalEncodeFailed:
		return "encode-failed"
	case SignalError:
		return "error"
	case SignalNegative:
		return "negative"
	case SignalAffirmative:
		return "affirmative"
	default:
		return "unknown"
	}
}

// Controller debounces confirmations: an alert fires once a run of
// threshold consecutive affirmative frames is seen, after which the run
// starts again from zero. Not safe for concurrent use.
type Controller struct {
	threshold int
	counter   int
}

// NewController creates a controller; thresholds below 1 are raised to 1.
func NewController(threshold int) *Controller {
	if threshold < 1 {
		threshold = 1
	}
	return &Controller{threshold: threshold}
}

// Observe applies one frame's signal and reports whether an alert fires.
func (c *Controller) Observe(signal Signal) bool {
	switch signal {
	case SignalError:
		return false
	case SignalAffirmative:
		c.counter++
	default:
		c.counter = 0
		return false
	}

	if c.counter >= c.threshold {
		c.counter = 0
		return true
	}
	return false
}

// Count returns the current run length.
func (c *Controller) Count() int {
	return c.counter
}

// Threshold returns the run length required to fire.
func (c *Controller) Threshold() int {
	return c.threshold
}

// Armed reports whether no run is in progress.
func (c *Controller) Armed() bool {
	return c.counter == 0
}
