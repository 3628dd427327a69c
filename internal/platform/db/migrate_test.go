package db

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/medconnect/medconnect/migrations"
)

func TestLoadMigrations(t *testing.T) {
	source := fstest.MapFS{
		"001_principal.sql":   {Data: []byte("CREATE TABLE principal (id UUID PRIMARY KEY);")},
		"002_appointment.sql": {Data: []byte("CREATE TABLE appointment (id UUID PRIMARY KEY);")},
		"003_review.sql":      {Data: []byte("CREATE TABLE review (id UUID PRIMARY KEY);")},
	}

	migs, err := NewMigrator(nil, source).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migs) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migs))
	}
	if migs[0].Version != 1 || migs[0].Name != "001_principal.sql" {
		t.Errorf("unexpected first migration: %+v", migs[0])
	}
	if migs[0].SQL != "CREATE TABLE principal (id UUID PRIMARY KEY);" {
		t.Errorf("unexpected SQL content: %s", migs[0].SQL)
	}
	if migs[2].Version != 3 {
		t.Errorf("expected version 3, got %d", migs[2].Version)
	}
}

func TestLoadMigrations_SortOrderAndSkips(t *testing.T) {
	source := fstest.MapFS{
		"010_tables.sql":  {Data: []byte("SELECT 10;")},
		"002_second.sql":  {Data: []byte("SELECT 2;")},
		"001_first.sql":   {Data: []byte("SELECT 1;")},
		"README.md":       {Data: []byte("docs")},
		"noversion.sql":   {Data: []byte("SELECT 0;")},
		"abc_letters.sql": {Data: []byte("SELECT 0;")},
	}

	migs, err := NewMigrator(nil, source).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	want := []int{1, 2, 10}
	if len(migs) != len(want) {
		t.Fatalf("expected %d migrations, got %d", len(want), len(migs))
	}
	for i, v := range want {
		if migs[i].Version != v {
			t.Errorf("position %d: expected version %d, got %d", i, v, migs[i].Version)
		}
	}
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	source := fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"001_b.sql": {Data: []byte("SELECT 1;")},
	}
	if _, err := NewMigrator(nil, source).LoadMigrations(); err == nil {
		t.Fatal("expected error for duplicate version")
	}
}

func TestPendingAndStatus(t *testing.T) {
	migs := []Migration{
		{Version: 1, Name: "001_a.sql"},
		{Version: 2, Name: "002_b.sql"},
		{Version: 3, Name: "003_c.sql"},
	}
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	applied := map[int]time.Time{1: at}

	pending := Pending(migs, applied)
	if len(pending) != 2 || pending[0].Version != 2 || pending[1].Version != 3 {
		t.Fatalf("unexpected pending set: %+v", pending)
	}

	statuses := BuildStatus(migs, applied)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if !statuses[0].Applied || statuses[0].AppliedAt == nil || !statuses[0].AppliedAt.Equal(at) {
		t.Errorf("expected first migration applied at %v, got %+v", at, statuses[0])
	}
	if statuses[1].Applied || statuses[1].AppliedAt != nil {
		t.Errorf("expected second migration pending, got %+v", statuses[1])
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	migs, err := NewMigrator(nil, migrations.FS).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migs) == 0 {
		t.Fatal("expected embedded migrations")
	}
	if migs[0].Name != "001_principal.sql" {
		t.Errorf("expected principal table first, got %s", migs[0].Name)
	}
}
