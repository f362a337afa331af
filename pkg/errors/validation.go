package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// ValidateArtifactName validates an artifact file name taken from a request
// path. Only plain ".pdf" basenames are accepted.
func ValidateArtifactName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPath, "artifact name cannot be empty")
	}
	if len(name) > 128 {
		return New(ErrCodeInvalidPath, "artifact name too long (max 128 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "artifact name contains invalid characters")
		}
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return New(ErrCodeInvalidPath, "artifact name cannot contain path components")
	}
	if filepath.Ext(name) != ".pdf" {
		return New(ErrCodeInvalidPath, "artifact name must end in .pdf")
	}
	return nil
}

// ValidateOutputDir validates a directory that output files will be written to.
func ValidateOutputDir(dir string) error {
	if dir == "" {
		return nil
	}
	for _, r := range dir {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "output directory contains invalid characters")
		}
	}
	return nil
}
