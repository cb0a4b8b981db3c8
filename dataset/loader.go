package dataset

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

// Dataset is training data split by the header's target column.
type Dataset struct {
	// Features holds one row per record with the target removed.
	Features [][]string
	// Target holds the target value per record; nil when the header has no target.
	Target []string
	// Files lists the data files read, in read order.
	Files []string
}

// Rows returns the number of records.
func (d *Dataset) Rows() int { return len(d.Features) }

// Load reads every data file in dir (sorted by name, hidden files and
// subdirectories skipped) as header-less CSV and splits each record into
// features and target using h. Files ending in .gz are decompressed. A first
// record equal to the header's column names is treated as a header line and
// skipped.
func Load(dir string, h *Header) (*Dataset, error) {
	files, err := dataFiles(dir)
	if err != nil {
		return nil, err
	}
	ds := &Dataset{Files: files}
	ti := h.TargetIndex()
	for _, path := range files {
		if err := readFile(path, h, ti, ds); err != nil {
			return nil, err
		}
	}
	if ds.Rows() == 0 {
		return nil, fmt.Errorf("%w: %s holds no rows", ErrNoData, dir)
	}
	return ds, nil
}

func dataFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: directory %s does not exist", ErrNoData, dir)
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no data files in %s", ErrNoData, dir)
	}
	sort.Strings(files)
	return files, nil
}

func readFile(path string, h *Header, ti int, ds *Dataset) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("gunzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	first := true
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if first {
			first = false
			if slices.Equal(rec, h.Columns) {
				continue
			}
		}
		if len(rec) != len(h.Columns) {
			line, _ := reader.FieldPos(0)
			return fmt.Errorf("%w: %s line %d has %d fields, header declares %d",
				ErrInconsistentRow, path, line, len(rec), len(h.Columns))
		}
		if ti < 0 {
			ds.Features = append(ds.Features, rec)
			continue
		}
		row := make([]string, 0, len(rec)-1)
		row = append(row, rec[:ti]...)
		row = append(row, rec[ti+1:]...)
		ds.Features = append(ds.Features, row)
		ds.Target = append(ds.Target, rec[ti])
	}
}
