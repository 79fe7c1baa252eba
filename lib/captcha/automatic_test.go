package captcha

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAutomaticCleansGuess(t *testing.T) {
	data := testPNG(t, 3, 3, func(int, int) color.Color { return color.White })

	var seen Image
	solver := Automatic{
		Recognizer: RecognizerFunc(func(_ context.Context, img Image) (string, error) {
			seen = img
			return " a-7 K\n", nil
		}),
	}

	answer, err := solver.Solve(context.Background(), Image{Data: data, ContentType: "image/png"})
	require.NoError(t, err)
	require.Equal(t, "a7K", answer)
	require.NotEqual(t, data, seen.Data, "recognizer should receive the preprocessed image")
}

func TestAutomaticSkipPreprocess(t *testing.T) {
	img := Image{Data: []byte("raw"), ContentType: "image/gif"}
	solver := Automatic{
		SkipPreprocess: true,
		Recognizer: RecognizerFunc(func(_ context.Context, got Image) (string, error) {
			require.Equal(t, img, got)
			return "xyz", nil
		}),
	}
	answer, err := solver.Solve(context.Background(), img)
	require.NoError(t, err)
	require.Equal(t, "xyz", answer)
}

func TestAutomaticNoSolution(t *testing.T) {
	solver := Automatic{
		SkipPreprocess: true,
		Recognizer: RecognizerFunc(func(context.Context, Image) (string, error) {
			return " .. ", nil
		}),
	}
	_, err := solver.Solve(context.Background(), Image{})
	require.ErrorIs(t, err, ErrNoSolution)
}

func TestAutomaticRecognizerError(t *testing.T) {
	backendDown := errors.New("backend down")
	solver := Automatic{
		SkipPreprocess: true,
		Recognizer: RecognizerFunc(func(context.Context, Image) (string, error) {
			return "", backendDown
		}),
	}
	_, err := solver.Solve(context.Background(), Image{})
	require.ErrorIs(t, err, backendDown)
	require.NotErrorIs(t, err, ErrNoSolution)
}

func TestAutomaticWithoutRecognizer(t *testing.T) {
	_, err := Automatic{}.Solve(context.Background(), Image{})
	require.Error(t, err)
}
