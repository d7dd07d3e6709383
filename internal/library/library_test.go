package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeNotes(t *testing.T, root, book, name, body string) {
	t.Helper()
	dir := filepath.Join(root, book, "artifacts", "notes")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestUnitID(t *testing.T) {
	if got := UnitID("llm", 2, 3); got != "llm-ch02-u03" {
		t.Errorf("UnitID = %q, want llm-ch02-u03", got)
	}
}

func TestDir(t *testing.T) {
	root := t.TempDir()
	writeNotes(t, root, "llm", "llm-ch01-u02.md", "# Atención\n\ntexto")
	writeNotes(t, root, "llm", "llm-ch01-u01.md", "sin título")
	writeNotes(t, root, "llm", "llm-ch03-u01.md", "# Final")
	writeNotes(t, root, "llm", "README.md", "ignorado")

	d := NewDir(root)
	ctx := context.Background()

	u, err := d.Unit(ctx, "llm", 1, 2)
	if err != nil {
		t.Fatalf("Unit: %v", err)
	}
	if u.Title != "Atención" || u.ID != "llm-ch01-u02" {
		t.Errorf("Unit = %+v", u)
	}

	u, err = d.Unit(ctx, "llm", 1, 1)
	if err != nil {
		t.Fatalf("Unit: %v", err)
	}
	if u.Title != "Unidad 1" {
		t.Errorf("Title = %q, want fallback", u.Title)
	}

	if _, err := d.Unit(ctx, "llm", 9, 9); !errors.Is(err, ErrUnitNotFound) {
		t.Errorf("missing unit err = %v, want ErrUnitNotFound", err)
	}

	units, err := d.Units(ctx, "llm", 1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(units, []int{1, 2}) {
		t.Errorf("Units = %v, want [1 2]", units)
	}

	chapters, err := d.Chapters(ctx, "llm")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(chapters, []int{1, 3}) {
		t.Errorf("Chapters = %v, want [1 3]", chapters)
	}

	chapters, err = d.Chapters(ctx, "unknown-book")
	if err != nil || len(chapters) != 0 {
		t.Errorf("Chapters(unknown) = %v, %v", chapters, err)
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	m.Put("b", 1, 2, "# Dos")
	m.Put("b", 1, 1, "# Uno")
	ctx := context.Background()

	units, _ := m.Units(ctx, "b", 1)
	if !reflect.DeepEqual(units, []int{1, 2}) {
		t.Errorf("Units = %v", units)
	}
	u, err := m.Unit(ctx, "b", 1, 2)
	if err != nil || u.Title != "Dos" {
		t.Errorf("Unit = %+v, %v", u, err)
	}
	if _, err := m.Unit(ctx, "b", 2, 1); !errors.Is(err, ErrUnitNotFound) {
		t.Errorf("err = %v", err)
	}
}
