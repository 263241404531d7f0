package backup

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Gzeu/ultra-turbo-appdata-cleaner/internal/logging"
)

// Restore extracts every entry of the manifest back to its original path.
// A target path that already exists is skipped, never overwritten. Each
// extracted file is checksum-verified against the manifest; a mismatch counts
// as a failure and the partial file is removed.
func (m *Manager) Restore(manifest *Manifest) (*RestoreResult, error) {
	zr, err := zip.OpenReader(manifest.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", manifest.ArchivePath, err)
	}
	defer zr.Close()

	byName := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		byName[f.Name] = f
	}

	result := &RestoreResult{}
	for _, entry := range manifest.Entries {
		if _, err := os.Lstat(entry.OriginalPath); err == nil {
			result.Skipped++
			logging.L().Debug().Str("path", entry.OriginalPath).Msg("restore target exists, skipping")
			continue
		}

		zf, ok := byName[entry.ArchiveName]
		if !ok {
			result.Failed++
			result.Errors = append(result.Errors, Failure{
				Path: entry.OriginalPath,
				Err:  fmt.Errorf("archive entry %s missing", entry.ArchiveName),
			})
			continue
		}

		if err := extractEntry(zf, entry); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, Failure{Path: entry.OriginalPath, Err: err})
			continue
		}
		result.Restored++
	}

	logging.L().Info().
		Str("id", manifest.ID).
		Int("restored", result.Restored).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("restore finished")
	return result, nil
}

// extractEntry writes one archive entry to its original path and verifies the
// checksum recorded at backup time.
func extractEntry(zf *zip.File, entry ManifestEntry) error {
	if err := os.MkdirAll(filepath.Dir(entry.OriginalPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	src, err := zf.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(entry.OriginalPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create target: %w", err)
	}

	h := sha256.New()
	_, copyErr := io.Copy(io.MultiWriter(dst, h), src)
	closeErr := dst.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(entry.OriginalPath)
		if copyErr != nil {
			return fmt.Errorf("failed to extract: %w", copyErr)
		}
		return fmt.Errorf("failed to close target: %w", closeErr)
	}

	if sum := hex.EncodeToString(h.Sum(nil)); sum != entry.Checksum {
		os.Remove(entry.OriginalPath)
		return fmt.Errorf("checksum mismatch for %s: archive is damaged", entry.OriginalPath)
	}
	return nil
}
