// Package imaging converts raw image bytes into a pixel grid.
//
// JPEG, PNG, and GIF are supported via the standard library image registry;
// anything else is rejected as an unsupported format.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Kind classifies a decode failure.
type Kind string

const (
	// KindUnsupportedFormat marks input that no registered decoder recognizes.
	KindUnsupportedFormat Kind = "unsupported_format"
	// KindCorruptData marks input that a decoder recognized but could not parse.
	KindCorruptData Kind = "corrupt_data"
)

// DecodeError is a classified decoding failure.
type DecodeError struct {
	Kind Kind
	err  error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image (%s): %v", e.Kind, e.err)
}

// Unwrap exposes the underlying decoder error.
func (e *DecodeError) Unwrap() error {
	return e.err
}

// Pixel is one color sample in 8-bit RGBA.
type Pixel struct {
	R, G, B, A uint8
}

// Grid is a rectangular pixel grid. Every row has length Width and
// Width and Height are both positive.
type Grid struct {
	Width  int
	Height int
	Pix    [][]Pixel
}

// Decode parses raw image bytes into a Grid.
// The returned error is always a *DecodeError on failure.
func Decode(raw []byte) (*Grid, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, &DecodeError{Kind: KindUnsupportedFormat, err: err}
		}
		return nil, &DecodeError{Kind: KindCorruptData, err: err}
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, &DecodeError{
			Kind: KindCorruptData,
			err:  fmt.Errorf("%s image has degenerate dimensions %dx%d", format, width, height),
		}
	}

	pix := make([][]Pixel, height)
	for y := 0; y < height; y++ {
		row := make([]Pixel, width)
		for x := 0; x < width; x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			row[x] = Pixel{
				R: uint8(r >> 8),
				G: uint8(g >> 8),
				B: uint8(b >> 8),
				A: uint8(a >> 8),
			}
		}
		pix[y] = row
	}

	return &Grid{Width: width, Height: height, Pix: pix}, nil
}
