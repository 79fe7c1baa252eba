package captcha

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPreprocess(t *testing.T) {
	// left half dark, right half light, bottom row transparent
	data := testPNG(t, 4, 3, func(x, y int) color.Color {
		if y == 2 {
			return color.NRGBA{0, 0, 0, 0}
		}
		if x < 2 {
			return color.NRGBA{40, 40, 40, 255}
		}
		return color.NRGBA{220, 220, 220, 255}
	})

	out, err := Preprocess(Image{Data: data, ContentType: "image/png"})
	require.NoError(t, err)
	require.Equal(t, "image/png", out.ContentType)

	decoded, err := png.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 8, 6), decoded.Bounds())

	at := func(x, y int) uint8 {
		return color.GrayModel.Convert(decoded.At(x, y)).(color.Gray).Y
	}
	require.Equal(t, uint8(0), at(0, 0))
	require.Equal(t, uint8(0), at(3, 3))
	require.Equal(t, uint8(0xff), at(4, 0))
	require.Equal(t, uint8(0xff), at(7, 3))
	// transparent pixels are flattened onto white
	require.Equal(t, uint8(0xff), at(0, 5))
}

func TestPreprocessGarbage(t *testing.T) {
	_, err := Preprocess(Image{Data: []byte("not an image"), ContentType: "image/png"})
	require.Error(t, err)
}
