// Package statepath resolves paths written as "<state>/sub/path" into the
// per-user cache directory of the program.
package statepath

import (
	"os"
	"path/filepath"
	"strings"
)

const Prefix = "<state>"

const appDir = "mvrquery"

// override is used by tests and by MVRQUERY_STATE_DIR.
var override string

func init() {
	override = os.Getenv("MVRQUERY_STATE_DIR")
}

// Root returns the state directory, creating it if it does not exist yet.
func Root() (string, error) {
	root := override
	if root == "" {
		cache, err := os.UserCacheDir()
		if err != nil {
			return "", err
		}
		root = filepath.Join(cache, appDir)
	}
	err := os.MkdirAll(root, 0700)
	if err != nil {
		return "", err
	}
	return root, nil
}

// Resolve expands a leading <state> segment, other paths are returned as is.
func Resolve(path string) (string, error) {
	if !strings.HasPrefix(path, Prefix) {
		return path, nil
	}
	root, err := Root()
	if err != nil {
		return "", err
	}
	subpath := strings.TrimLeft(strings.TrimPrefix(path, Prefix), `/\`)
	return filepath.Join(root, subpath), nil
}
