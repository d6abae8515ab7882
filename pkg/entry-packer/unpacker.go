package packer

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	outputset "github.com/taskcache/taskcache/pkg/output-set"
)

// Unpack materializes a packed cache entry onto disk, mapping every record
// back to the root it was packed from via the blob's roots manifest. The
// declaration is not re-resolved: by the time a hit is replayed the outputs
// are typically absent, so a resolution that enumerates the filesystem
// would come up empty. Parent directories are created as needed, existing
// files are overwritten. Any failure is reported to the caller; a partially
// restored tree is never silently accepted.
func Unpack(decl *outputset.Declaration, blob []byte) error {
	tr := tar.NewReader(bytes.NewReader(blob))
	roots, err := readManifest(tr)
	if err != nil {
		return err
	}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading cache entry: %w", err)
		}
		target, err := targetPath(roots, hdr.Name)
		if err != nil {
			return err
		}
		if hdr.Typeflag == tar.TypeDir {
			if err := os.MkdirAll(target, fs.FileMode(hdr.Mode).Perm()|0o700); err != nil {
				return fmt.Errorf("restoring output directory: %w", err)
			}
			continue
		}
		if err := restoreFile(target, fs.FileMode(hdr.Mode).Perm(), tr); err != nil {
			return err
		}
	}
	return nil
}

// readManifest consumes the leading roots record of a packed entry.
func readManifest(tr *tar.Reader) ([]string, error) {
	hdr, err := tr.Next()
	if err != nil {
		return nil, fmt.Errorf("malformed cache entry: missing roots manifest")
	}
	if hdr.Name != rootsManifestName {
		return nil, fmt.Errorf("malformed cache entry: missing roots manifest")
	}
	content, err := io.ReadAll(tr)
	if err != nil {
		return nil, fmt.Errorf("reading roots manifest: %w", err)
	}
	if len(content) == 0 {
		return nil, nil
	}
	return strings.Split(string(content), "\n"), nil
}

// targetPath maps a record name to its on-disk location based on the root
// its ordinal refers to.
func targetPath(roots []string, name string) (string, error) {
	ordinal, rel, found := strings.Cut(strings.TrimSuffix(name, "/"), "/")
	if !found {
		return "", fmt.Errorf("malformed cache entry record %q", name)
	}
	idx, err := strconv.Atoi(ordinal)
	if err != nil || idx < 0 || idx >= len(roots) {
		return "", fmt.Errorf("cache entry record %q does not match any packed output", name)
	}
	return filepath.Join(roots[idx], filepath.FromSlash(rel)), nil
}

func restoreFile(target string, mode fs.FileMode, content io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("restoring output file %s: %w", target, err)
	}
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("restoring output file %s: %w", target, err)
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		return fmt.Errorf("restoring output file %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("restoring output file %s: %w", target, err)
	}
	return nil
}
