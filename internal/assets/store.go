package assets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// UploadsDir is the sub-directory of the static root holding course folders.
const UploadsDir = "uploads"

var (
	ErrUnsupportedFormat = errors.New("unsupported video format")
	ErrNotFound          = errors.New("asset not found")
)

var unsafeNameRe = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Store keeps uploaded videos under <root>/uploads/<course slug>/.
type Store struct {
	root    string
	allowed map[string]struct{}
}

func New(root string, allowedExt []string) *Store {
	allowed := make(map[string]struct{}, len(allowedExt))
	for _, e := range allowedExt {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			allowed[e] = struct{}{}
		}
	}
	return &Store{root: root, allowed: allowed}
}

func (s *Store) Root() string { return s.root }

// EnsureCourseDir creates the course's upload directory if it is missing.
func (s *Store) EnsureCourseDir(courseSlug string) error {
	return os.MkdirAll(filepath.Join(s.root, UploadsDir, courseSlug), 0o755)
}

// Allowed reports whether the last dot segment of name is an allowed
// extension, compared case-insensitively.
func (s *Store) Allowed(name string) bool {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return false
	}
	_, ok := s.allowed[strings.ToLower(name[i+1:])]
	return ok
}

// SanitizeFilename reduces an uploaded filename to ASCII letters, digits,
// '_', '.' and '-', with no directory components.
func SanitizeFilename(name string) string {
	name = norm.NFKD.String(name)
	var b strings.Builder
	for _, r := range name {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	name = b.String()
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeNameRe.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// Save writes r into the course directory under a sanitised form of name.
// If that file already exists, -2, -3, ... is inserted before the extension
// until a free name is found. It returns the path relative to the static
// root, always using forward slashes.
func (s *Store) Save(courseSlug, name string, r io.Reader) (string, error) {
	if !s.Allowed(name) {
		return "", ErrUnsupportedFormat
	}
	safe := SanitizeFilename(name)
	ext := path.Ext(safe)
	if ext == "" || ext == safe {
		// nothing usable survived sanitising
		safe = "video." + strings.ToLower(name[strings.LastIndex(name, ".")+1:])
		ext = path.Ext(safe)
	}
	stem := strings.TrimSuffix(safe, ext)

	if err := s.EnsureCourseDir(courseSlug); err != nil {
		return "", fmt.Errorf("create course dir: %w", err)
	}
	dir := filepath.Join(s.root, UploadsDir, courseSlug)

	candidate := safe
	for i := 2; ; i++ {
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", candidate, err)
		}
		if _, err := io.Copy(f, r); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("write %s: %w", candidate, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close %s: %w", candidate, err)
		}
		return path.Join(UploadsDir, courseSlug, candidate), nil
	}
}

// Resolve maps a relative asset path to a regular file under the root.
// Paths escaping the root resolve to ErrNotFound.
func (s *Store) Resolve(rel string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(rel, "\\", "/"))
	if clean == "/" {
		return "", ErrNotFound
	}
	full := filepath.Join(s.root, filepath.FromSlash(clean))
	fi, err := os.Stat(full)
	if err != nil || !fi.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return full, nil
}
