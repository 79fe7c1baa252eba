package captcha

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	// pixels brighter than this become white, everything else black
	binaryThreshold = 180
	upscaleFactor   = 2
)

// Preprocess flattens the image onto white, converts it to grayscale,
// binarizes it and upscales it. the result is always a PNG.
func Preprocess(img Image) (Image, error) {
	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return Image{}, fmt.Errorf("captcha: decode %s: %w", img.ContentType, err)
	}
	bounds := decoded.Bounds()
	if bounds.Empty() {
		return Image{}, fmt.Errorf("captcha: image is empty")
	}

	flat := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(flat, flat.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), decoded, bounds.Min, draw.Over)

	gray := image.NewGray(flat.Bounds())
	draw.Draw(gray, gray.Bounds(), flat, image.Point{}, draw.Src)
	for i, y := range gray.Pix {
		if y > binaryThreshold {
			gray.Pix[i] = 0xff
		} else {
			gray.Pix[i] = 0
		}
	}

	scaled := image.NewGray(image.Rect(0, 0, bounds.Dx()*upscaleFactor, bounds.Dy()*upscaleFactor))
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), gray, gray.Bounds(), draw.Src, nil)

	var out bytes.Buffer
	err = png.Encode(&out, scaled)
	if err != nil {
		return Image{}, fmt.Errorf("captcha: encode png: %w", err)
	}
	return Image{Data: out.Bytes(), ContentType: "image/png"}, nil
}
