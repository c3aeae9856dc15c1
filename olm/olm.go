// Package olm opens Outlook for Mac archives and locates the message
// entries inside them. An .olm file is a ZIP container whose messages live
// under a Local and/or Accounts top-level directory, either as
// .olk15Message/.olk14Message blobs or as message_*.xml documents.
package olm

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidArchive means the file is not a readable ZIP container.
	ErrInvalidArchive = errors.New("not a valid olm archive")
	// ErrNoMessagesFound means the archive layout is unrecognized: neither
	// the Local nor the Accounts directory exists after unpacking.
	ErrNoMessagesFound = errors.New("no Local or Accounts directory found in olm archive")
)

// messageRoots are the only top-level directories known to hold messages.
var messageRoots = []string{"Local", "Accounts"}

// shadowPrefix marks AppleDouble resource fork files shipped alongside the
// real entries on macOS.
const shadowPrefix = "._"

// ExtractArchive unpacks the archive at path into a freshly created scratch
// directory and returns its location. The caller owns the scratch directory
// and must remove it, including on error paths.
func ExtractArchive(path string, logger *slog.Logger) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidArchive, path, err)
	}
	defer reader.Close()

	scratch, err := os.MkdirTemp("", "olm-to-eml-*")
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}

	for _, file := range reader.File {
		if err := extractFile(file, scratch); err != nil {
			os.RemoveAll(scratch)
			return "", fmt.Errorf("%w: extract %s: %v", ErrInvalidArchive, file.Name, err)
		}
	}

	if logger != nil {
		logger.Debug("archive unpacked", "path", path, "scratch", scratch, "files", len(reader.File))
	}

	return scratch, nil
}

func extractFile(file *zip.File, scratch string) error {
	dest := filepath.Join(scratch, filepath.FromSlash(file.Name))

	// Reject entries that would escape the scratch directory.
	if rel, err := filepath.Rel(scratch, dest); err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("illegal entry path %q", file.Name)
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// LocateEntries walks the known message roots under the scratch directory
// and returns, in traversal order, every file that looks like a message
// entry. It returns ErrNoMessagesFound when neither root exists.
func LocateEntries(scratch string) ([]string, error) {
	var roots []string
	for _, name := range messageRoots {
		dir := filepath.Join(scratch, name)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			roots = append(roots, dir)
		}
	}
	if len(roots) == 0 {
		return nil, ErrNoMessagesFound
	}

	var entries []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if IsMessageEntry(d.Name()) {
				entries = append(entries, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	return entries, nil
}

// IsMessageEntry reports whether a file name matches one of the known
// message entry patterns, excluding platform shadow files.
func IsMessageEntry(name string) bool {
	if strings.HasPrefix(name, shadowPrefix) {
		return false
	}
	return strings.HasSuffix(name, ".olk15Message") ||
		strings.HasSuffix(name, ".olk14Message") ||
		(strings.HasPrefix(name, "message_") && strings.HasSuffix(name, ".xml"))
}
