package packer

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	outputset "github.com/taskcache/taskcache/pkg/output-set"

	"github.com/sourcegraph/conc/iter"
)

// The packed entry is a tar stream with all metadata normalized: epoch
// modification times, zero owner ids, no user names. Identical logical
// output therefore always serializes to identical bytes, which is what
// makes same-key overwrites in the store safe.
//
// The first record is a roots manifest listing the root of every backing
// entry, in resolution order. Content records are named
// "<ordinal>/<relative path>", where the ordinal indexes into the manifest.
// Restoration locations come from the manifest, not from re-resolving the
// declaration: a declaration that enumerates the filesystem (a visited
// tree) yields nothing on the clean workspace a cache hit is replayed
// into.

const rootsManifestName = "roots"

type record struct {
	name string
	src  string
	dir  bool
	mode fs.FileMode
}

// Pack resolves the declaration and serializes the content of every backing
// entry into a single cache entry blob. File contents are read concurrently,
// the blob itself is assembled in resolution order.
func Pack(decl *outputset.Declaration) ([]byte, error) {
	entries, err := outputset.Resolve(decl)
	if err != nil {
		return nil, err
	}
	records, roots, err := collect(entries)
	if err != nil {
		return nil, err
	}

	contents, err := iter.MapErr(records, func(r *record) ([]byte, error) {
		if r.dir {
			return nil, nil
		}
		return os.ReadFile(r.src)
	})
	if err != nil {
		return nil, fmt.Errorf("reading output contents: %w", err)
	}

	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	manifest := []byte(strings.Join(roots, "\n"))
	if err := tw.WriteHeader(&tar.Header{
		Name:    rootsManifestName,
		Mode:    0o644,
		Size:    int64(len(manifest)),
		ModTime: time.Unix(0, 0),
		Format:  tar.FormatPAX,
	}); err != nil {
		return nil, fmt.Errorf("packing roots manifest: %w", err)
	}
	if _, err := tw.Write(manifest); err != nil {
		return nil, fmt.Errorf("packing roots manifest: %w", err)
	}
	for i, r := range records {
		hdr := &tar.Header{
			Name:    r.name,
			Mode:    int64(r.mode.Perm()),
			ModTime: time.Unix(0, 0),
			Format:  tar.FormatPAX,
		}
		if r.dir {
			hdr.Typeflag = tar.TypeDir
			hdr.Name += "/"
		} else {
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(contents[i]))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("packing %s: %w", r.name, err)
		}
		if !r.dir {
			if _, err := tw.Write(contents[i]); err != nil {
				return nil, fmt.Errorf("packing %s: %w", r.name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing cache entry: %w", err)
	}
	return buf.Bytes(), nil
}

// collect turns backing entries into the ordered record list of the blob,
// plus the root of each entry for the manifest. Directory entries are
// walked in lexical order, which keeps the record order deterministic for
// a given output tree. The root of a directory entry gets a record of its
// own, so an empty declared output directory is still recreated on unpack.
func collect(entries []outputset.Entry) ([]record, []string, error) {
	var records []record
	roots := make([]string, len(entries))
	for i, entry := range entries {
		prefix := strconv.Itoa(i) + "/"
		switch entry.Kind {
		case outputset.EntryFile:
			roots[i] = filepath.Dir(entry.Path)
			info, err := os.Stat(entry.Path)
			if err != nil {
				return nil, nil, fmt.Errorf("reading output file: %w", err)
			}
			records = append(records, record{
				name: prefix + filepath.Base(entry.Path),
				src:  entry.Path,
				mode: info.Mode(),
			})
		case outputset.EntryDirectory:
			filter := outputset.NewFilter(entry.Includes, entry.Excludes)
			root := entry.Path
			roots[i] = root
			info, err := os.Stat(root)
			if err != nil {
				return nil, nil, fmt.Errorf("reading output directory: %w", err)
			}
			records = append(records, record{name: prefix + ".", dir: true, mode: info.Mode()})
			err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if path == root {
					return nil
				}
				rel, err := filepath.Rel(root, path)
				if err != nil {
					return err
				}
				rel = filepath.ToSlash(rel)
				info, err := d.Info()
				if err != nil {
					return err
				}
				if d.IsDir() {
					if !filter.KeepDir(rel) {
						return fs.SkipDir
					}
					records = append(records, record{name: prefix + rel, dir: true, mode: info.Mode()})
					return nil
				}
				if !filter.Matches(rel) {
					return nil
				}
				records = append(records, record{name: prefix + rel, src: path, mode: info.Mode()})
				return nil
			})
			if err != nil {
				return nil, nil, fmt.Errorf("walking output directory %s: %w", root, err)
			}
		}
	}
	return records, roots, nil
}
