// Package secrets resolves credentials referenced from the configuration:
// ${VAR} expansion and file-based secrets such as Docker or Kubernetes
// mounts. Secret values are never logged or included in errors.
package secrets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/contractwatch/internal/errors"
)

const (
	// maxSecretFileSize limits secret file reads, secrets are tokens and
	// passwords
	maxSecretFileSize = 64 * 1024

	// permissiveBits are the group and other permission bits
	permissiveBits = 0o077
)

// WarnFunc receives non fatal findings such as a world readable secret file
type WarnFunc func(msg string)

// ExpandString expands ${VAR} and ${VAR:-default} references. A referenced
// variable that is unset or empty and has no default is an error naming the
// variable.
func ExpandString(s string) (string, error) {
	if s == "" || !strings.Contains(s, "$") {
		return s, nil
	}

	var missing []string
	expanded := os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if v := os.Getenv(name); v != "" {
			return v
		}
		if hasFallback {
			return fallback
		}
		missing = append(missing, name)
		return ""
	})

	if len(missing) > 0 {
		return "", errors.Newf("missing environment variable(s): %s", strings.Join(missing, ", ")).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Context("variables", strings.Join(missing, ",")).
			Build()
	}
	return expanded, nil
}

// ReadFile reads a secret file and strips trailing newlines. Files larger
// than 64 KiB, non regular files and empty files are rejected. warn, when
// set, is told about group or world readable files.
func ReadFile(path string, warn WarnFunc) (string, error) {
	if path == "" {
		return "", fileError(errors.NewStd("secret file path is empty"), path)
	}
	clean := filepath.Clean(path)

	info, err := os.Stat(clean)
	if err != nil {
		return "", fileError(err, clean)
	}
	if !info.Mode().IsRegular() {
		return "", fileError(errors.NewStd("secret path is not a regular file"), clean)
	}
	if info.Size() > maxSecretFileSize {
		return "", fileError(errors.Newf("secret file exceeds %d bytes", maxSecretFileSize).Build(), clean)
	}
	if perm := info.Mode().Perm(); perm&permissiveBits != 0 && warn != nil {
		warn("secret file " + clean + " is readable by group or others")
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return "", fileError(err, clean)
	}
	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", fileError(errors.NewStd("secret file is empty"), clean)
	}
	return secret, nil
}

// Resolve returns the secret from filePath when set, otherwise value with
// environment references expanded
func Resolve(filePath, value string, warn WarnFunc) (string, error) {
	if filePath != "" {
		return ReadFile(filePath, warn)
	}
	return ExpandString(value)
}

func fileError(err error, path string) error {
	return errors.New(err).
		Component("secrets").
		Category(errors.CategoryConfiguration).
		Context("secret_file", path).
		Build()
}
