package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodePNGPreservesPixels(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	img.Set(1, 0, color.RGBA{A: 255})
	img.Set(0, 1, color.RGBA{A: 255})
	img.Set(1, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	grid, err := Decode(encodePNG(t, img))
	require.NoError(t, err)
	require.Equal(t, 2, grid.Width)
	require.Equal(t, 2, grid.Height)
	require.Len(t, grid.Pix, 2)
	for _, row := range grid.Pix {
		require.Len(t, row, grid.Width)
	}
	require.Equal(t, Pixel{R: 255, G: 255, B: 255, A: 255}, grid.Pix[0][0])
	require.Equal(t, Pixel{A: 255}, grid.Pix[0][1])
	require.Equal(t, Pixel{A: 255}, grid.Pix[1][0])
	require.Equal(t, Pixel{R: 255, G: 255, B: 255, A: 255}, grid.Pix[1][1])
}

func TestDecodeJPEG(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	grid, err := Decode(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, 8, grid.Width)
	require.Equal(t, 4, grid.Height)
}

func TestDecodeGIF(t *testing.T) {
	t.Parallel()

	img := image.NewPaletted(image.Rect(0, 0, 3, 3), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))

	grid, err := Decode(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, 3, grid.Width)
	require.Equal(t, 3, grid.Height)
}

func TestDecodeUnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte("<svg>not a raster</svg>"))
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Equal(t, KindUnsupportedFormat, decodeErr.Kind)
	require.ErrorIs(t, err, image.ErrFormat)
}

func TestDecodeCorruptData(t *testing.T) {
	t.Parallel()

	valid := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 4, 4)))
	truncated := valid[:len(valid)/2]

	_, err := Decode(truncated)
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Equal(t, KindCorruptData, decodeErr.Kind)
	require.False(t, errors.Is(err, image.ErrFormat))
}
