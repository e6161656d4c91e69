package registry

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// FileSystem is what the registry needs from the disk.
type FileSystem interface {
	// Canonical returns the key a path is cached under.
	Canonical(path string) (string, error)
	ModTime(path string) (time.Time, error)
	// ReadFile returns the file's text as UTF-8.
	ReadFile(path string) ([]byte, error)
	Exists(path string) bool
}

// Encodings lists the source encodings ReadFile can fall back to.
var Encodings = map[string]encoding.Encoding{
	"euc-kr":       korean.EUCKR,
	"windows-1252": charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
}

// AferoFS is a FileSystem over an afero.Fs. Files that are not valid UTF-8
// are decoded with each configured fallback encoding in turn.
type AferoFS struct {
	fs        afero.Fs
	fallbacks []encoding.Encoding
}

// NewFS returns a FileSystem over fs. encodings names the fallbacks tried
// for non-UTF-8 sources, in order; "utf-8" is accepted and ignored.
func NewFS(fs afero.Fs, encodings ...string) (*AferoFS, error) {
	a := &AferoFS{fs: fs}
	for _, name := range encodings {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || name == "utf-8" || name == "utf8" {
			continue
		}
		enc, ok := Encodings[name]
		if !ok {
			return nil, fmt.Errorf("registry: unknown encoding %q", name)
		}
		a.fallbacks = append(a.fallbacks, enc)
	}
	return a, nil
}

// OSFS returns a FileSystem over the real disk with the given fallbacks.
func OSFS(encodings ...string) (*AferoFS, error) {
	return NewFS(afero.NewOsFs(), encodings...)
}

// Canonical makes path absolute and clean. On the real disk symlinks are
// resolved as well.
func (a *AferoFS) Canonical(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("registry: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("registry: canonicalize %s: %w", path, err)
	}
	if _, ok := a.fs.(*afero.OsFs); ok {
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
	}
	return abs, nil
}

func (a *AferoFS) ModTime(path string) (time.Time, error) {
	info, err := a.fs.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (a *AferoFS) ReadFile(path string) ([]byte, error) {
	raw, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return nil, err
	}
	if utf8.Valid(raw) {
		return raw, nil
	}
	for _, enc := range a.fallbacks {
		decoded, _, err := transform.Bytes(enc.NewDecoder(), raw)
		if err == nil {
			return decoded, nil
		}
	}
	// Best effort: the parser copes with stray bytes.
	return raw, nil
}

func (a *AferoFS) Exists(path string) bool {
	ok, err := afero.Exists(a.fs, path)
	return err == nil && ok
}

// Fs exposes the underlying afero filesystem.
func (a *AferoFS) Fs() afero.Fs { return a.fs }
