package vision

import (
	"encoding/base64"
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// DefaultJPEGQuality matches OpenCV's own default.
const DefaultJPEGQuality = 95

// ErrEmptyFrame is returned when there is nothing to encode.
var ErrEmptyFrame = errors.New("frame is empty")

// EncodedImage is a JPEG-compressed frame ready to be sent to a classifier.
type EncodedImage struct {
	JPEG   []byte
	Base64 string
}

// DataURI renders the image as an inline data URI.
func (e EncodedImage) DataURI() string {
	return "data:image/jpeg;base64," + e.Base64
}

// EncodeFrame compresses the frame to JPEG and base64-encodes the result.
func EncodeFrame(frame gocv.Mat, quality int) (EncodedImage, error) {
	if frame.Empty() {
		return EncodedImage{}, ErrEmptyFrame
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return EncodedImage{}, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	if buf.Len() == 0 {
		return EncodedImage{}, fmt.Errorf("failed to encode frame: empty buffer")
	}

	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())

	return EncodedImage{
		JPEG:   jpeg,
		Base64: base64.StdEncoding.EncodeToString(jpeg),
	}, nil
}
