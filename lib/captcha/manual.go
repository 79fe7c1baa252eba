package captcha

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Manual shows the CAPTCHA to a human and reads their answer from a terminal.
type Manual struct {
	// Dir is where the image file is written, defaults to os.TempDir()
	Dir string
	// OpenViewer launches the platform image viewer on the written file
	OpenViewer bool

	in  *bufio.Reader
	out io.Writer
}

func NewManual(in io.Reader, out io.Writer) *Manual {
	return &Manual{
		in:  bufio.NewReader(in),
		out: out,
	}
}

func (m *Manual) writeImage(img Image) (string, error) {
	dir := m.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	err := os.MkdirAll(dir, 0700)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "mvr_captcha"+img.Extension())
	err = os.WriteFile(path, img.Data, 0600)
	if err != nil {
		return "", err
	}
	return path, nil
}

func viewerCommand(ctx context.Context, path string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.CommandContext(ctx, "open", path)
	case "windows":
		return exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", path)
	default:
		return exec.CommandContext(ctx, "xdg-open", path)
	}
}

func (m *Manual) Solve(ctx context.Context, img Image) (string, error) {
	path, err := m.writeImage(img)
	if err != nil {
		return "", fmt.Errorf("captcha: write image: %w", err)
	}
	fmt.Fprintf(m.out, "\nCAPTCHA image saved to: %s\n", path)
	fmt.Fprintln(m.out, "Please open the image and enter the CAPTCHA text below.")

	if m.OpenViewer {
		err := viewerCommand(context.WithoutCancel(ctx), path).Start()
		if err != nil {
			slog.DebugContext(ctx, "could not open image viewer", "err", err)
		}
	}

	fmt.Fprint(m.out, "Enter CAPTCHA text: ")
	line, err := m.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("captcha: read answer: %w", err)
	}
	answer := strings.TrimSpace(line)
	if answer == "" && err == io.EOF {
		return "", fmt.Errorf("captcha: input closed before an answer was entered: %w", err)
	}
	if answer == "" {
		return "", ErrNoSolution
	}
	return answer, nil
}
