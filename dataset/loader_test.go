package dataset

import (
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_SplitsTarget(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "part-0.csv", "no,30,admin.,may,100\nyes,41,technician,jun,250\n")
	writeFile(t, dir, "part-1.csv", "no,25,services,jul,80\n")
	writeFile(t, dir, ".hidden", "garbage\n")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	ds, err := Load(dir, bankHeader(t))
	if err != nil {
		t.Fatal(err)
	}
	if ds.Rows() != 3 || len(ds.Target) != 3 {
		t.Fatalf("rows: got %d features, %d targets", ds.Rows(), len(ds.Target))
	}
	for i, row := range ds.Features {
		if len(row) != 4 {
			t.Errorf("row %d: %d feature columns, want 4", i, len(row))
		}
	}
	if ds.Target[1] != "yes" || ds.Features[1][0] != "41" {
		t.Errorf("row 1: target=%q features=%v", ds.Target[1], ds.Features[1])
	}
	if len(ds.Files) != 2 {
		t.Errorf("files: %v", ds.Files)
	}
}

func TestLoad_SkipsHeaderLine(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "train.csv", "y,age,job,month,duration\nno,30,admin.,may,100\n")
	ds, err := Load(dir, bankHeader(t))
	if err != nil {
		t.Fatal(err)
	}
	if ds.Rows() != 1 {
		t.Errorf("rows: got %d, want 1", ds.Rows())
	}
}

func TestLoad_Gzip(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "train.csv.gz"))
	if err != nil {
		t.Fatal(err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte("no,30,admin.,may,100\n")); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	ds, err := Load(dir, bankHeader(t))
	if err != nil {
		t.Fatal(err)
	}
	if ds.Rows() != 1 || ds.Target[0] != "no" {
		t.Errorf("got %+v", ds)
	}
}

func TestLoad_NoTarget(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "train.csv", "1,2\n3,4\n")
	h, err := NewHeader([]string{"a", "b"}, "")
	if err != nil {
		t.Fatal(err)
	}
	ds, err := Load(dir, h)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Target != nil || ds.Rows() != 2 || len(ds.Features[0]) != 2 {
		t.Errorf("got %+v", ds)
	}
}

func TestLoad_InconsistentRow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "train.csv", "no,30,admin.,may,100\nyes,41,technician,jun\n")
	_, err := Load(dir, bankHeader(t))
	if !errors.Is(err, ErrInconsistentRow) {
		t.Fatalf("expected ErrInconsistentRow, got %v", err)
	}
}

func TestLoad_MissingOrEmpty(t *testing.T) {
	h := bankHeader(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope"), h); !errors.Is(err, ErrNoData) {
		t.Errorf("missing dir: got %v", err)
	}
	if _, err := Load(t.TempDir(), h); !errors.Is(err, ErrNoData) {
		t.Errorf("empty dir: got %v", err)
	}
	dir := t.TempDir()
	writeFile(t, dir, "empty.csv", "")
	if _, err := Load(dir, h); !errors.Is(err, ErrNoData) {
		t.Errorf("empty file: got %v", err)
	}
}
