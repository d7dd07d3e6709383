// Package library gives read-only access to the study notes generated for
// each unit of an imported book.
package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// ErrUnitNotFound is returned when no notes exist for a unit.
var ErrUnitNotFound = errors.New("unit not found")

// Unit is one unit's notes.
type Unit struct {
	ID      string
	BookID  string
	Chapter int
	Number  int
	Title   string
	Notes   string
}

// Source looks up unit notes.
type Source interface {
	Unit(ctx context.Context, bookID string, chapter, unit int) (*Unit, error)
	// Units lists the unit numbers of a chapter in ascending order.
	Units(ctx context.Context, bookID string, chapter int) ([]int, error)
	// Chapters lists the chapter numbers of a book in ascending order.
	Chapters(ctx context.Context, bookID string) ([]int, error)
}

// UnitID formats the canonical unit identifier, e.g. "llm-book-ch02-u03".
func UnitID(bookID string, chapter, unit int) string {
	return fmt.Sprintf("%s-ch%02d-u%02d", bookID, chapter, unit)
}

var unitFileRe = regexp.MustCompile(`-ch(\d+)-u(\d+)\.md$`)

// Dir reads notes from <root>/<book>/artifacts/notes/<unit_id>.md.
type Dir struct {
	root string
}

// NewDir returns a Source over the books directory root.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

func (d *Dir) notesDir(bookID string) string {
	return filepath.Join(d.root, bookID, "artifacts", "notes")
}

func (d *Dir) Unit(ctx context.Context, bookID string, chapter, unit int) (*Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := UnitID(bookID, chapter, unit)
	data, err := os.ReadFile(filepath.Join(d.notesDir(bookID), id+".md"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read notes %s: %w", id, err)
	}
	notes := string(data)
	return &Unit{
		ID:      id,
		BookID:  bookID,
		Chapter: chapter,
		Number:  unit,
		Title:   titleOf(notes, unit),
		Notes:   notes,
	}, nil
}

func (d *Dir) index(bookID string) (map[int][]int, error) {
	entries, err := os.ReadDir(d.notesDir(bookID))
	if errors.Is(err, os.ErrNotExist) {
		return map[int][]int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list notes for %s: %w", bookID, err)
	}
	idx := map[int][]int{}
	prefix := bookID + "-ch"
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		m := unitFileRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		ch, _ := strconv.Atoi(m[1])
		u, _ := strconv.Atoi(m[2])
		idx[ch] = append(idx[ch], u)
	}
	for ch := range idx {
		sort.Ints(idx[ch])
	}
	return idx, nil
}

func (d *Dir) Units(ctx context.Context, bookID string, chapter int) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, err := d.index(bookID)
	if err != nil {
		return nil, err
	}
	return idx[chapter], nil
}

func (d *Dir) Chapters(ctx context.Context, bookID string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, err := d.index(bookID)
	if err != nil {
		return nil, err
	}
	return sortedKeys(idx), nil
}

// titleOf returns the first level-one heading of the notes.
func titleOf(notes string, unit int) string {
	for _, line := range strings.Split(notes, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return fmt.Sprintf("Unidad %d", unit)
}

func sortedKeys(m map[int][]int) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// Memory is an in-process Source, handy for demos and tests.
type Memory struct {
	mu    sync.RWMutex
	units map[string]map[int]map[int]string
}

// NewMemory returns an empty in-memory library.
func NewMemory() *Memory {
	return &Memory{units: map[string]map[int]map[int]string{}}
}

// Put stores the notes of a unit.
func (m *Memory) Put(bookID string, chapter, unit int, notes string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.units[bookID] == nil {
		m.units[bookID] = map[int]map[int]string{}
	}
	if m.units[bookID][chapter] == nil {
		m.units[bookID][chapter] = map[int]string{}
	}
	m.units[bookID][chapter][unit] = notes
}

func (m *Memory) Unit(_ context.Context, bookID string, chapter, unit int) (*Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	notes, ok := m.units[bookID][chapter][unit]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, UnitID(bookID, chapter, unit))
	}
	return &Unit{
		ID:      UnitID(bookID, chapter, unit),
		BookID:  bookID,
		Chapter: chapter,
		Number:  unit,
		Title:   titleOf(notes, unit),
		Notes:   notes,
	}, nil
}

func (m *Memory) Units(_ context.Context, bookID string, chapter int) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []int
	for u := range m.units[bookID][chapter] {
		out = append(out, u)
	}
	sort.Ints(out)
	return out, nil
}

func (m *Memory) Chapters(_ context.Context, bookID string) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []int
	for ch := range m.units[bookID] {
		out = append(out, ch)
	}
	sort.Ints(out)
	return out, nil
}
