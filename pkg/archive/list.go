package archive

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
)

// Info holds metadata about an existing bundle.
type Info struct {
	Path      string // Full filesystem path
	Filename  string // Base filename
	Size      int64  // File size in bytes
	Timestamp string // From manifest, or file mod time
	Mode      string // From manifest
	Objects   int    // From manifest
}

// List scans a directory for .tar.gz bundles and returns info about each,
// sorted newest-first.
func List(dir string) ([]Info, error) {
	pattern := filepath.Join(dir, "*.tar.gz")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "archive: glob %s", pattern)
	}

	var bundles []Info
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		bi := Info{
			Path:      path,
			Filename:  filepath.Base(path),
			Size:      info.Size(),
			Timestamp: info.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
		}
		if m, err := ReadManifest(path); err == nil {
			bi.Timestamp = m.Timestamp
			bi.Mode = m.Mode
			bi.Objects = m.Objects
		}
		bundles = append(bundles, bi)
	}

	// RFC3339 sorts lexically
	sort.Slice(bundles, func(i, j int) bool {
		return bundles[i].Timestamp > bundles[j].Timestamp
	})
	return bundles, nil
}

// ReadManifest opens a bundle and decodes its manifest entry.
func ReadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if hdr.Name == ManifestName {
			return decodeManifest(tr)
		}
	}
	return nil, errors.Newf("%s not found in %s", ManifestName, path)
}

func decodeManifest(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "parse manifest")
	}
	return &m, nil
}
