// Package document stores CMS documents as plain files in one directory.
//
// Only bare file names are accepted: anything carrying directory parts,
// traversal sequences or a leading dot is rejected with ErrInvalidName, so
// callers can pass route parameters straight through.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adrg/frontmatter"

	"github.com/goflash/flashcms/security"
	"github.com/goflash/flashcms/validate"
)

var (
	// ErrNotFound is returned when the named document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrExists is returned by Create when the name is already taken.
	ErrExists = errors.New("document already exists")
	// ErrInvalidName is returned for names that are not bare file names.
	ErrInvalidName = errors.New("invalid document name")
)

// Kind tells how a document is presented.
type Kind int

const (
	Text Kind = iota
	Markdown
)

func (k Kind) String() string {
	if k == Markdown {
		return "markdown"
	}
	return "text"
}

// KindOf returns Markdown for names ending in .md and Text otherwise.
func KindOf(name string) Kind {
	if strings.EqualFold(filepath.Ext(name), ".md") {
		return Markdown
	}
	return Text
}

// Info describes a stored document.
type Info struct {
	Name    string
	Kind    Kind
	Size    int64
	ModTime time.Time
}

// Document is a document read from the store.
type Document struct {
	Info
	// Title comes from the "title" front matter key of markdown documents and
	// defaults to the file name.
	Title string
	// Content is the file exactly as stored.
	Content []byte
	// Body is Content without its front matter block. It equals Content for
	// text documents.
	Body []byte
}

type frontMatter struct {
	Title string `yaml:"title"`
}

// NameError reports why a proposed document name was refused. Message is
// meant for users.
type NameError struct {
	Name    string
	Message string
}

func (e *NameError) Error() string { return fmt.Sprintf("document name %q: %s", e.Name, e.Message) }

// ValidateName checks a user-supplied name for a new document and returns it
// normalised, with spaces around each dot-separated part removed.
//
//	ValidateName(" notes . md ") // "notes.md", nil
//	ValidateName("notes")        // "", *NameError{Message: "Please enter a valid name."}
func ValidateName(name string) (string, error) {
	if err := validate.Var(name, "docname"); err != nil {
		return "", &NameError{Name: name, Message: validate.FirstMessage(err)}
	}
	return validate.NormalizeDocName(name), nil
}

// Store is a directory of documents. It is safe for concurrent use; writes
// replace files atomically so readers never observe partial content.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore opens the store at dir, creating the directory when missing.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("document: empty data directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("document: create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory the store works in.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) (string, error) {
	if security.SafeFilename(name) != name {
		return "", ErrInvalidName
	}
	return filepath.Join(s.dir, name), nil
}

// Ping reports whether the data directory can be listed.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(s.dir)
	if err != nil {
		return fmt.Errorf("document: open data dir: %w", err)
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("document: read data dir: %w", err)
	}
	return nil
}

// List returns the regular, non-hidden files of the store sorted by name.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("document: list: %w", err)
	}
	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		out = append(out, infoOf(fi))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func infoOf(fi fs.FileInfo) Info {
	return Info{Name: fi.Name(), Kind: KindOf(fi.Name()), Size: fi.Size(), ModTime: fi.ModTime()}
}

// Stat returns the Info of one document.
func (s *Store) Stat(ctx context.Context, name string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	p, err := s.path(name)
	if err != nil {
		return Info{}, err
	}
	fi, err := os.Stat(p)
	if err != nil || !fi.Mode().IsRegular() {
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return Info{}, ErrNotFound
		}
		return Info{}, fmt.Errorf("document: stat %s: %w", name, err)
	}
	return infoOf(fi), nil
}

// Exists reports whether name is a stored document.
func (s *Store) Exists(ctx context.Context, name string) bool {
	_, err := s.Stat(ctx, name)
	return err == nil
}

// Read loads a document. Markdown front matter is parsed for the title; a
// malformed block is kept as part of the body.
func (s *Store) Read(ctx context.Context, name string) (Document, error) {
	info, err := s.Stat(ctx, name)
	if err != nil {
		return Document{}, err
	}
	p, _ := s.path(name)
	content, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("document: read %s: %w", name, err)
	}
	info.Size = int64(len(content))

	doc := Document{Info: info, Title: name, Content: content, Body: content}
	if info.Kind == Markdown {
		var fm frontMatter
		if body, err := frontmatter.Parse(bytes.NewReader(content), &fm); err == nil {
			doc.Body = body
			if t := strings.TrimSpace(fm.Title); t != "" {
				doc.Title = t
			}
		}
	}
	return doc, nil
}

// Create makes a new empty document.
func (s *Store) Create(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(name)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrExists
		}
		return fmt.Errorf("document: create %s: %w", name, err)
	}
	return f.Close()
}

// Write replaces the content of name, creating the document when missing.
func (s *Store) Write(ctx context.Context, name string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFileAtomic(p, content, 0o644); err != nil {
		return fmt.Errorf("document: write %s: %w", name, err)
	}
	return nil
}

// Delete removes name. Deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("document: delete %s: %w", name, err)
	}
	return nil
}

// Duplicate copies name to base_cp.ext and returns the new name. When that
// name is taken, "_cp" is appended again until a free name is found.
// ErrInvalidName is returned once the copy name grows past what a file name
// may hold.
func (s *Store) Duplicate(ctx context.Context, name string) (string, error) {
	if _, err := s.Stat(ctx, name); err != nil {
		return "", err
	}
	src, _ := s.path(name)
	content, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("document: duplicate %s: %w", name, err)
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		base += "_cp"
		copyName := base + ext
		dst, err := s.path(copyName)
		if err != nil {
			return "", err
		}
		f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("document: duplicate %s: %w", name, err)
		}
		_, werr := f.Write(content)
		cerr := f.Close()
		if werr != nil || cerr != nil {
			_ = os.Remove(dst)
			return "", fmt.Errorf("document: duplicate %s: %w", name, errors.Join(werr, cerr))
		}
		return copyName, nil
	}
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir, base := filepath.Split(path)
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
