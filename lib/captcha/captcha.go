// Package captcha turns CAPTCHA images into text, either through an OCR
// backend, a human at the terminal or a value supplied up front.
package captcha

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoSolution is returned when a solver produced nothing usable for an image.
// callers should fetch a fresh challenge rather than submit an empty answer.
var ErrNoSolution = errors.New("captcha: no solution produced")

// Image is an opaque CAPTCHA payload.
type Image struct {
	Data        []byte
	ContentType string
}

// NewImage sniffs the content type when the server didn't provide a usable one.
func NewImage(data []byte, contentType string) Image {
	if !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return Image{Data: data, ContentType: contentType}
}

// Extension returns a file extension (with the dot) matching the content type.
func (i Image) Extension() string {
	switch i.ContentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	}
	return ".img"
}

// DataURI encodes the image as a base64 data URI.
func (i Image) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", i.ContentType, base64.StdEncoding.EncodeToString(i.Data))
}

// ParseDataURI decodes a `data:image/...;base64,...` URI.
func ParseDataURI(uri string) (Image, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return Image{}, fmt.Errorf("captcha: not a data uri")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Image{}, fmt.Errorf("captcha: data uri has no payload")
	}
	mediatype, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return Image{}, fmt.Errorf("captcha: only base64 data uris are supported")
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return Image{}, fmt.Errorf("captcha: decode data uri: %w", err)
	}
	return NewImage(data, mediatype), nil
}

// Solver produces the text answer for a CAPTCHA image.
type Solver interface {
	Solve(ctx context.Context, img Image) (string, error)
}

// SolverFunc adapts a function to Solver.
type SolverFunc func(ctx context.Context, img Image) (string, error)

func (f SolverFunc) Solve(ctx context.Context, img Image) (string, error) {
	return f(ctx, img)
}

// Recognizer is an OCR backend: image in, best-effort guess out. the guess
// is never assumed correct.
type Recognizer interface {
	Recognize(ctx context.Context, img Image) (string, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, img Image) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, img Image) (string, error) {
	return f(ctx, img)
}

// Preset is an answer the caller already knows, it is returned unchanged.
type Preset string

func (p Preset) Solve(context.Context, Image) (string, error) {
	if p == "" {
		return "", ErrNoSolution
	}
	return string(p), nil
}
