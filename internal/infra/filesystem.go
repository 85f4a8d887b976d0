package infra

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

// EnsureWorkDir expands base (a leading ~ is allowed), joins parts and creates the directory.
func EnsureWorkDir(base string, parts ...string) (string, error) {
	expanded, err := homedir.Expand(base)
	if err != nil {
		return "", errors.WithMessage(err, "cant expand work dir")
	}
	workDir := filepath.Join(append([]string{expanded}, parts...)...)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", errors.WithMessage(err, "cant create work dir")
	}
	return workDir, nil
}
