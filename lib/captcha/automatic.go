package captcha

import (
	"context"
	"fmt"
	"log/slog"

	"mvr-docstatus/lib/textutil"
)

// Automatic solves CAPTCHAs with an OCR Recognizer.
type Automatic struct {
	Recognizer Recognizer
	// SkipPreprocess sends the image to the recognizer exactly as received.
	SkipPreprocess bool
}

func (a Automatic) Solve(ctx context.Context, img Image) (string, error) {
	if a.Recognizer == nil {
		return "", fmt.Errorf("captcha: automatic solver has no recognizer")
	}

	input := img
	if !a.SkipPreprocess {
		processed, err := Preprocess(img)
		if err != nil {
			slog.DebugContext(ctx, "preprocess failed, using original image", "err", err)
		} else {
			input = processed
		}
	}

	guess, err := a.Recognizer.Recognize(ctx, input)
	if err != nil {
		return "", fmt.Errorf("captcha: recognize: %w", err)
	}
	cleaned := textutil.KeepAlphanumeric(guess)
	slog.DebugContext(ctx, "ocr guess", "raw", guess, "cleaned", cleaned)
	if cleaned == "" {
		return "", ErrNoSolution
	}
	return cleaned, nil
}
