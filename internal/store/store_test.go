package store

import (
	"context"
	"errors"
	"testing"

	"github.com/prevostgo/prevostgo/internal/inventory"
)

func TestMemory_Get_NotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestMemory_InsertGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	rec := &inventory.Record{
		Identity: "abc123def456",
		Title:    "2015 Prevost H3-45 Vantare",
		Year:     2015,
		Features: []string{"3 Slides"},
		Images:   []string{"https://example.com/1.jpg"},
	}
	if err := m.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := m.Get(ctx, "abc123def456")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != rec.Title || got.Year != rec.Year {
		t.Errorf("got %+v", got)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestMemory_Get_ReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	rec := &inventory.Record{
		Identity: "abc123def456",
		Features: []string{"3 Slides"},
	}
	if err := m.Insert(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, _ := m.Get(ctx, "abc123def456")
	got.Features[0] = "mutated"
	got.Title = "mutated"

	again, _ := m.Get(ctx, "abc123def456")
	if again.Features[0] != "3 Slides" || again.Title != "" {
		t.Error("Get() must return a copy, not a view of stored state")
	}
}

func TestMemory_Update(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	rec := &inventory.Record{Identity: "abc123def456", Status: inventory.StatusAvailable}
	if err := m.Insert(ctx, rec); err != nil {
		t.Fatal(err)
	}

	rec.Status = inventory.StatusSold
	if err := m.Update(ctx, rec); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := m.Get(ctx, "abc123def456")
	if got.Status != inventory.StatusSold {
		t.Errorf("Status = %q, want sold", got.Status)
	}
}

func TestMemory_Update_NotFound(t *testing.T) {
	m := NewMemory()
	err := m.Update(context.Background(), &inventory.Record{Identity: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestMemory_DeleteInvalid(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	records := []*inventory.Record{
		{Identity: "a", Title: "Prevost", Year: 0},
		{Identity: "b", Title: "Prevost", Year: 2015},
		{Identity: "c", Title: "2015 Prevost H3-45", Year: 2015},
		{Identity: "d", Title: "Prevost", Year: 0},
	}
	for _, rec := range records {
		if err := m.Insert(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	deleted, err := m.DeleteInvalid(ctx, "Prevost")
	if err != nil {
		t.Fatalf("DeleteInvalid() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
	if _, err := m.Get(ctx, "b"); err != nil {
		t.Error("valid record with bare-brand title but real year must survive")
	}
}
