// Package journal stores captured facts as line-oriented markdown files.
// Each category lives in its own file under a memory root; files stay
// readable and editable by hand, so every view is re-derived from the text.
package journal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/quantumlife/lifeos/internal/core"
)

// layout maps categories to paths relative to the memory root.
// These paths are shared with other tools and must not change.
var layout = map[core.Category]string{
	core.CategoryTasks:       filepath.Join("gtd", "inbox.md"),
	core.CategoryIdeas:       "ideas.md",
	core.CategoryMood:        "mood.md",
	core.CategoryHabits:      "habits.md",
	core.CategoryAssessments: filepath.Join("assessments", "current.md"),
	core.CategoryReviews:     "reviews.md",
}

// Ledger is the append-only text store behind every journal category
type Ledger struct {
	root string
	now  func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a Ledger
type Option func(*Ledger)

// WithClock overrides the time source used for capture timestamps
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a ledger rooted at the memory directory
func NewLedger(root string, opts ...Option) *Ledger {
	l := &Ledger{
		root:  root,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Root returns the memory directory
func (l *Ledger) Root() string { return l.root }

// Path returns the file backing a category
func (l *Ledger) Path(cat core.Category) (string, error) {
	rel, ok := layout[cat]
	if !ok {
		return "", fmt.Errorf("%w: unknown category %q", core.ErrInvalidInput, cat)
	}
	return filepath.Join(l.root, rel), nil
}

// lockFor returns the mutex serializing writers of one file
func (l *Ledger) lockFor(path string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[path]
	if !ok {
		m = &sync.Mutex{}
		l.locks[path] = m
	}
	return m
}

// Append writes one record to the end of a category file, creating the
// file and its directory when absent. Existing content is never rewritten.
func (l *Ledger) Append(cat core.Category, record string) error {
	path, err := l.Path(cat)
	if err != nil {
		return err
	}

	m := l.lockFor(path)
	m.Lock()
	defer m.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return ioFailure("create directory", path, err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return ioFailure("open", path, err)
	}
	defer f.Close()

	// A hand-edited file may lack its final newline
	prefix, err := needsNewline(f)
	if err != nil {
		return ioFailure("inspect", path, err)
	}

	if _, err := f.WriteString(prefix + record + "\n"); err != nil {
		return ioFailure("append", path, err)
	}
	return nil
}

func needsNewline(f *os.File) (string, error) {
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.Size() == 0 {
		return "", nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil && err != io.EOF {
		return "", err
	}
	if last[0] == '\n' {
		return "", nil
	}
	return "\n", nil
}

// ReadAll returns the raw lines of a category file in storage order.
// A missing file is an empty category, not an error.
func (l *Ledger) ReadAll(cat core.Category) ([]string, error) {
	path, err := l.Path(cat)
	if err != nil {
		return nil, err
	}
	return readLines(path)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, ioFailure("open", path, err)
	}
	defer f.Close()

	lines := []string{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, ioFailure("read", path, err)
	}
	return lines, nil
}

// rewrite replaces a file's content through a temp file and rename.
// Callers hold the path lock.
func rewrite(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return ioFailure("create directory", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return ioFailure("create temp", path, err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		w.WriteString(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return ioFailure("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return ioFailure("close", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return ioFailure("chmod", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return ioFailure("rename", path, err)
	}
	return nil
}

func ioFailure(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", core.ErrIOFailure, op, path, err)
}
