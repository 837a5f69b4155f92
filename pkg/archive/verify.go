package archive

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrChecksum marks a bundle entry whose content does not match the manifest.
var ErrChecksum = errors.New("checksum mismatch")

// Verify reads a whole bundle and checks every manifest entry against the
// content stored for it.
func Verify(path string) (*Manifest, error) {
	return walk(path, "")
}

// Extract verifies a bundle and writes its files under dir.
func Extract(path, dir string) (*Manifest, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "extract: create %s", dir)
	}
	return walk(path, dir)
}

// walk hashes every entry, writing it under dest when dest is set.
func walk(path, dest string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "archive: open %s", path)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "archive: %s", path)
	}
	defer gr.Close()

	sums := make(map[string]string)
	var manifest *Manifest
	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "archive: %s", path)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if hdr.Name == ManifestName {
			if manifest, err = decodeManifest(tr); err != nil {
				return nil, err
			}
			continue
		}

		var w io.Writer = io.Discard
		var out *os.File
		if dest != "" {
			// Sanitize path to prevent directory traversal
			target := filepath.Join(dest, filepath.FromSlash(hdr.Name))
			if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(dest)+string(filepath.Separator)) {
				return nil, errors.Newf("invalid archive entry: %s", hdr.Name)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return nil, err
			}
			if out, err = os.Create(target); err != nil {
				return nil, err
			}
			w = out
		}

		h := sha256.New()
		_, err = io.Copy(io.MultiWriter(w, h), tr)
		if out != nil {
			if cerr := out.Close(); err == nil {
				err = cerr
			}
		}
		if err != nil {
			return nil, errors.Wrapf(err, "archive: read %s", hdr.Name)
		}
		sums[hdr.Name] = hex.EncodeToString(h.Sum(nil))
	}

	if manifest == nil {
		return nil, errors.Newf("%s not found in %s", ManifestName, path)
	}
	for name, entry := range manifest.Files {
		got, ok := sums[name]
		if !ok {
			return nil, errors.Wrapf(ErrChecksum, "%s missing from bundle", name)
		}
		if got != entry.SHA256 {
			return nil, errors.Wrapf(ErrChecksum, "%s", name)
		}
	}
	return manifest, nil
}
