package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"

	"mvr-docstatus/lib/statepath"
)

type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput clears `dir` (which may start with <state>) and writes
// one file per HTTP exchange into it.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	dir, err := statepath.Resolve(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.MkdirAll(dir, 0700)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Dir() string {
	return o.directory
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
