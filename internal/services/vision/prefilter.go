package vision

import (
	"sparkvision/internal/config"

	"gocv.io/x/gocv"
)

const (
	// MinFirePixels is the default number of flame-coloured pixels a frame
	// must exceed before it is escalated.
	MinFirePixels = 3000
)

// HSV is a point in OpenCV 8-bit HSV space (hue in [0,180]).
type HSV struct {
	H, S, V float64
}

// ColorBand is an inclusive HSV range plus the pixel count a frame must
// exceed to be considered fire-like.
type ColorBand struct {
	Lower         HSV
	Upper         HSV
	MinFirePixels int
}

// DefaultColorBand is the red/orange/yellow band used to spot flames.
func DefaultColorBand() ColorBand {
	return ColorBand{
		Lower:         HSV{H: 0, S: 100, V: 100},
		Upper:         HSV{H: 40, S: 255, V: 255},
		MinFirePixels: MinFirePixels,
	}
}

// ColorBandFromConfig builds the band from detection settings.
func ColorBandFromConfig(cfg config.DetectionConfig) ColorBand {
	return ColorBand{
		Lower:         HSV{H: float64(cfg.HueMin), S: float64(cfg.SatMin), V: float64(cfg.ValMin)},
		Upper:         HSV{H: float64(cfg.HueMax), S: float64(cfg.SatMax), V: float64(cfg.ValMax)},
		MinFirePixels: cfg.MinFirePixels,
	}
}

// FirePixels counts the pixels of a BGR frame that fall inside the band.
// Frames that cannot be converted count as zero.
func FirePixels(frame gocv.Mat, band ColorBand) int {
	if frame.Empty() {
		return 0
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	if err := gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV); err != nil {
		return 0
	}

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(band.Lower.H, band.Lower.S, band.Lower.V, 0),
		gocv.NewScalar(band.Upper.H, band.Upper.S, band.Upper.V, 0),
		&mask)

	return gocv.CountNonZero(mask)
}

// IsLikelyFire reports whether more than band.MinFirePixels pixels of the
// frame are flame-coloured.
func IsLikelyFire(frame gocv.Mat, band ColorBand) bool {
	return FirePixels(frame, band) > band.MinFirePixels
}
