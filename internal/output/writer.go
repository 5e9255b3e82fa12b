// Package output writes rendered reports into the output directory and
// checks the asset directory the HTML renderer depends on.
package output

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrAssetsMissing is returned when the asset directory or the HTML skeleton
// inside it does not exist. The CLI maps it to exit status 2.
var ErrAssetsMissing = errors.New("asset directory missing")

// timestampLayout names report files; it sorts lexically and is valid on Windows.
const timestampLayout = "2006-01-02T15-04-05.000000"

// Writer saves rendered reports under a base directory.
// Safe for concurrent use.
type Writer struct {
	outputDir string
	now       func() time.Time
	mu        sync.Mutex
	hashes    []FileHash
}

// FileHash records the SHA-256 hash of a written report.
type FileHash struct {
	File   string `json:"file"`
	SHA256 string `json:"sha256"`
	Size   int    `json:"size"`
}

// NewWriter creates a Writer for outputDir, creating the directory if needed.
func NewWriter(outputDir string) (*Writer, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Writer{outputDir: outputDir, now: time.Now}, nil
}

// OutputDir returns the output directory path.
func (w *Writer) OutputDir() string {
	return w.outputDir
}

// Save writes data to a new timestamped file with the given extension
// (without the dot) and returns its path.
func (w *Writer) Save(ext string, data []byte) (string, error) {
	name := TimestampedName(w.now(), ext)
	path := filepath.Join(w.outputDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	w.mu.Lock()
	w.hashes = append(w.hashes, FileHash{
		File:   name,
		SHA256: sha256Hex(data),
		Size:   len(data),
	})
	w.mu.Unlock()

	return path, nil
}

// Hashes returns the hashes of every file written so far.
func (w *Writer) Hashes() []FileHash {
	w.mu.Lock()
	defer w.mu.Unlock()
	cp := make([]FileHash, len(w.hashes))
	copy(cp, w.hashes)
	return cp
}

// TimestampedName returns the report file name for t and ext.
func TimestampedName(t time.Time, ext string) string {
	return t.Format(timestampLayout) + "." + strings.TrimPrefix(ext, ".")
}

// CheckAssets verifies that assetsDir exists and contains skeleton.
func CheckAssets(assetsDir, skeleton string) (string, error) {
	info, err := os.Stat(assetsDir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: directory %s does not exist", ErrAssetsMissing, assetsDir)
	}
	path := filepath.Join(assetsDir, skeleton)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s not found", ErrAssetsMissing, path)
	}
	return path, nil
}

func sha256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
