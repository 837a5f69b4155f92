// Package archive bundles the files of one converter run into a .tar.gz
// with a manifest of SHA-256 checksums, and lists, verifies and extracts
// such bundles.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ManifestName is the last entry of every bundle.
const ManifestName = "manifest.json"

// Manifest describes the contents of a bundle.
type Manifest struct {
	Version   int                  `json:"version"`
	Tool      string               `json:"tool"`
	Timestamp string               `json:"timestamp"`
	Mode      string               `json:"mode"`
	Source    string               `json:"source"`
	Target    string               `json:"target"`
	Objects   int                  `json:"objects"`
	Files     map[string]FileEntry `json:"files"`
}

// FileEntry describes a single file within the bundle.
type FileEntry struct {
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
	Type   string `json:"type"` // "input", "output", "report", "bolt", "metrics", "conf"
}

// Params holds all inputs needed to create a bundle. Empty paths are skipped.
type Params struct {
	Dir     string // output directory for the bundle
	Mode    string
	Source  string // source dialect
	Target  string // target dialect
	Objects int    // objects written

	Input   string
	Output  string
	Report  string
	Bolt    string
	Metrics string
	Conf    string
}

// Create writes a bundle into p.Dir and returns its path.
func Create(p Params) (string, error) {
	if err := os.MkdirAll(p.Dir, 0755); err != nil {
		return "", errors.Wrapf(err, "archive: create dir %s", p.Dir)
	}

	name := "omega-" + time.Now().Format("20060102-150405")
	if p.Mode != "" {
		name += "-" + p.Mode
	}
	path := filepath.Join(p.Dir, name+".tar.gz")

	manifest := Manifest{
		Version:   1,
		Tool:      "omega",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Mode:      p.Mode,
		Source:    p.Source,
		Target:    p.Target,
		Objects:   p.Objects,
		Files:     make(map[string]FileEntry),
	}

	outFile, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "archive: create %s", path)
	}
	defer outFile.Close()

	gw := gzip.NewWriter(outFile)
	tw := tar.NewWriter(gw)

	files := []struct {
		src, dir, typ string
	}{
		{p.Input, "input", "input"},
		{p.Output, "output", "output"},
		{p.Report, "reports", "report"},
		{p.Bolt, "data", "bolt"},
		{p.Metrics, "metrics", "metrics"},
		{p.Conf, "conf", "conf"},
	}
	for _, f := range files {
		if f.src == "" {
			continue
		}
		if _, err := os.Stat(f.src); err != nil {
			continue
		}
		archName := f.dir + "/" + filepath.Base(f.src)
		entry, err := addFileToTar(tw, f.src, archName)
		if err != nil {
			return "", err
		}
		entry.Type = f.typ
		manifest.Files[archName] = entry
	}

	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "archive: marshal manifest")
	}
	if err := tw.WriteHeader(&tar.Header{
		Name:    ManifestName,
		Size:    int64(len(manifestJSON)),
		Mode:    0644,
		ModTime: time.Now(),
	}); err != nil {
		return "", errors.Wrap(err, "archive: write manifest header")
	}
	if _, err := tw.Write(manifestJSON); err != nil {
		return "", errors.Wrap(err, "archive: write manifest")
	}

	if err := tw.Close(); err != nil {
		return "", errors.Wrap(err, "archive: close tar")
	}
	if err := gw.Close(); err != nil {
		return "", errors.Wrap(err, "archive: close gzip")
	}
	return path, outFile.Close()
}

// addFileToTar adds a single file to the tar archive with the given archive name,
// computing its SHA-256 while writing.
func addFileToTar(tw *tar.Writer, srcPath, archName string) (FileEntry, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return FileEntry{}, errors.Wrapf(err, "archive: open %s", srcPath)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return FileEntry{}, errors.Wrapf(err, "archive: stat %s", srcPath)
	}

	// Use forward slashes in tar paths
	archName = strings.ReplaceAll(archName, "\\", "/")

	if err := tw.WriteHeader(&tar.Header{
		Name:    archName,
		Size:    info.Size(),
		Mode:    0644,
		ModTime: info.ModTime(),
	}); err != nil {
		return FileEntry{}, errors.Wrapf(err, "archive: header %s", archName)
	}

	h := sha256.New()
	written, err := io.Copy(tw, io.TeeReader(f, h))
	if err != nil {
		return FileEntry{}, errors.Wrapf(err, "archive: write %s", archName)
	}

	return FileEntry{
		SHA256: hex.EncodeToString(h.Sum(nil)),
		Size:   written,
	}, nil
}
