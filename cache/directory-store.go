package cache

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// footerSize is the length of the xxhash checksum appended to every entry
// file. The checksum covers the payload only.
const footerSize = 8

// tmpPrefix starts with a character outside the base64 URL alphabet, so a
// temp file can never collide with an encoded key.
const tmpPrefix = ".tmp-"

// DirectoryStore is the reference store backend: one file per key under a
// configured directory, named by the URL-safe base64 of the key. Keys are
// opaque strings; encoding them keeps a key containing a path separator or
// a dot sequence from reaching outside the directory. Puts go through a
// temp file and a rename, so a partial put is never visible under the key.
// Every entry carries a checksum footer; an entry that fails verification
// is purged and reported as a miss rather than handed to the unpacker.
type DirectoryStore struct {
	dir string
	log zerolog.Logger
}

// NewDirectoryStore creates the backing directory if needed.
// The global zerolog logger is used if logger is nil.
func NewDirectoryStore(dir string, logger *zerolog.Logger) (*DirectoryStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	l := log.Logger
	if logger != nil {
		l = *logger
	}
	return &DirectoryStore{
		dir: dir,
		log: l.With().Str("cacheDir", dir).Logger(),
	}, nil
}

func (s *DirectoryStore) Get(key Key) ([]byte, bool, error) {
	b, err := os.ReadFile(s.entryPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	payload, ok := verifyFooter(b)
	if !ok {
		s.log.Warn().Str("key", string(key)).Msg("Purging corrupt cache entry")
		os.Remove(s.entryPath(key))
		return nil, false, nil
	}
	return payload, true, nil
}

func (s *DirectoryStore) Put(key Key, entry []byte) error {
	tmp := filepath.Join(s.dir, tmpPrefix+uuid.NewString())
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	_, err = f.Write(entry)
	if err == nil {
		_, err = f.Write(footer(entry))
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp, s.entryPath(key))
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func (s *DirectoryStore) Keys(cb func(Key)) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Error().Err(err).Msg("Could not list cache directory")
		return
	}
	for _, de := range dirents {
		if de.IsDir() || strings.HasPrefix(de.Name(), tmpPrefix) {
			continue
		}
		key, err := base64.RawURLEncoding.DecodeString(de.Name())
		if err != nil {
			continue
		}
		cb(Key(key))
	}
}

func (s *DirectoryStore) entryPath(key Key) string {
	return filepath.Join(s.dir, base64.RawURLEncoding.EncodeToString([]byte(key)))
}

func footer(payload []byte) []byte {
	sum := make([]byte, footerSize)
	binary.BigEndian.PutUint64(sum, xxhash.Sum64(payload))
	return sum
}

// verifyFooter splits an entry file into payload and checksum and reports
// whether the checksum matches.
func verifyFooter(b []byte) ([]byte, bool) {
	if len(b) < footerSize {
		return nil, false
	}
	payload := b[:len(b)-footerSize]
	sum := binary.BigEndian.Uint64(b[len(b)-footerSize:])
	if xxhash.Sum64(payload) != sum {
		return nil, false
	}
	return payload, true
}
