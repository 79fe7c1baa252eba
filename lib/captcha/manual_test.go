package captcha

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManual(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	manual := NewManual(strings.NewReader("  x7Yq \nsecond\n"), &out)
	manual.Dir = dir

	img := Image{Data: []byte("png bytes"), ContentType: "image/png"}
	answer, err := manual.Solve(context.Background(), img)
	require.NoError(t, err)
	require.Equal(t, "x7Yq", answer)

	written, err := os.ReadFile(filepath.Join(dir, "mvr_captcha.png"))
	require.NoError(t, err)
	require.Equal(t, img.Data, written)
	require.Contains(t, out.String(), "Enter CAPTCHA text:")

	// the buffered reader is kept between calls
	answer, err = manual.Solve(context.Background(), img)
	require.NoError(t, err)
	require.Equal(t, "second", answer)
}

func TestManualEmptyAnswer(t *testing.T) {
	manual := NewManual(strings.NewReader("\n"), &bytes.Buffer{})
	manual.Dir = t.TempDir()

	_, err := manual.Solve(context.Background(), Image{ContentType: "image/png"})
	require.ErrorIs(t, err, ErrNoSolution)
}

func TestManualClosedInput(t *testing.T) {
	manual := NewManual(strings.NewReader(""), &bytes.Buffer{})
	manual.Dir = t.TempDir()

	_, err := manual.Solve(context.Background(), Image{ContentType: "image/png"})
	require.ErrorIs(t, err, io.EOF)
	require.NotErrorIs(t, err, ErrNoSolution)
}
