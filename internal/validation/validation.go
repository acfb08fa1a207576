// Package validation checks command-line paths before any work starts.
package validation

import (
	"os"
	"path/filepath"

	"fjacquet/fueltrack/internal/parsererror"
)

// IsStdout reports whether path designates standard output.
func IsStdout(path string) bool {
	return path == "" || path == "-"
}

// InputFile checks that path exists and is a regular, non-empty file.
func InputFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return &parsererror.ValidationError{FilePath: path, Reason: "file does not exist"}
	}
	if err != nil {
		return &parsererror.ValidationError{FilePath: path, Reason: err.Error()}
	}
	if !info.Mode().IsRegular() {
		return &parsererror.ValidationError{FilePath: path, Reason: "not a regular file"}
	}
	if info.Size() == 0 {
		return &parsererror.ValidationError{FilePath: path, Reason: "file is empty"}
	}
	return nil
}

// InputDirectory checks that path exists and is a directory.
func InputDirectory(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return &parsererror.ValidationError{FilePath: path, Reason: "directory does not exist"}
	}
	if err != nil {
		return &parsererror.ValidationError{FilePath: path, Reason: err.Error()}
	}
	if !info.IsDir() {
		return &parsererror.ValidationError{FilePath: path, Reason: "not a directory"}
	}
	return nil
}

// OutputPath checks that a file can be created at path: it must not be a directory
// and no ancestor may be a regular file. Standard output is always valid.
func OutputPath(path string) error {
	if IsStdout(path) {
		return nil
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return &parsererror.ValidationError{FilePath: path, Reason: "output is a directory"}
	}
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return &parsererror.ValidationError{FilePath: path, Reason: dir + " is not a directory"}
			}
			return nil
		}
		if parent := filepath.Dir(dir); parent == dir {
			return nil
		}
	}
}
