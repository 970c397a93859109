package vision

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrCameraUnavailable is returned when the capture device cannot be opened.
var ErrCameraUnavailable = errors.New("unable to access the webcam")

// FrameSource produces frames on demand. *gocv.VideoCapture satisfies it.
type FrameSource interface {
	Read(frame *gocv.Mat) bool
	Close() error
}

// OpenCamera opens a local capture device by index.
func OpenCamera(device int) (*gocv.VideoCapture, error) {
	webcam, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrCameraUnavailable, device, err)
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return nil, fmt.Errorf("%w: device %d", ErrCameraUnavailable, device)
	}
	return webcam, nil
}

// Viewer shows processed frames. Show returns false when the user asked to stop.
type Viewer interface {
	Show(frame gocv.Mat) bool
	Close() error
}

// WindowViewer displays frames in a native window; 'q' or Esc stops the loop.
type WindowViewer struct {
	window *gocv.Window
}

// NewWindowViewer opens a display window with the given title.
func NewWindowViewer(title string) *WindowViewer {
	return &WindowViewer{window: gocv.NewWindow(title)}
}

func (v *WindowViewer) Show(frame gocv.Mat) bool {
	if !frame.Empty() {
		v.window.IMShow(frame)
	}
	key := v.window.WaitKey(1) & 0xFF
	return key != 'q' && key != 27
}

func (v *WindowViewer) Close() error {
	return v.window.Close()
}

// HeadlessViewer discards frames; used when no display is available.
type HeadlessViewer struct{}

func (HeadlessViewer) Show(gocv.Mat) bool { return true }

func (HeadlessViewer) Close() error { return nil }
