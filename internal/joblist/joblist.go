// Package joblist reads batches of logo jobs from disk.
package joblist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dunamismax/logocrunch/internal/domain"
	"github.com/dunamismax/logocrunch/internal/raster"
)

// PlaceholderURL marks jobs generated from files rather than a job list.
const PlaceholderURL = "none"

var ErrNoJobs = errors.New("joblist: no jobs found")

type document struct {
	Logos domain.JobBatch `json:"logos"`
}

// Load reads a job file holding either a JSON array of jobs or an object
// with a "logos" array.
func Load(path string) (domain.JobBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (domain.JobBatch, error) {
	data = bytes.TrimSpace(data)
	var batch domain.JobBatch
	switch {
	case len(data) == 0:
		return nil, ErrNoJobs
	case data[0] == '[':
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("decode job list: %w", err)
		}
	default:
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode job document: %w", err)
		}
		batch = doc.Logos
	}

	if len(batch) == 0 {
		return nil, ErrNoJobs
	}
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	return batch, nil
}

// ScanDir creates one job per image file in dir whose stem is an unsigned
// 32-bit integer. Files may carry a known raster extension or none at all.
// Jobs are sorted by id.
func ScanDir(dir string) (domain.JobBatch, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan job dir: %w", err)
	}

	known := make(map[string]bool, len(raster.Extensions))
	for _, ext := range raster.Extensions {
		known[ext] = true
	}

	seen := make(map[uint32]bool)
	var batch domain.JobBatch
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != "" && !known[ext] {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimSuffix(name, filepath.Ext(name)), 10, 32)
		if err != nil || seen[uint32(id)] {
			continue
		}
		seen[uint32(id)] = true
		batch = append(batch, domain.LogoJob{ID: uint32(id), URL: PlaceholderURL})
	}

	if len(batch) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoJobs, dir)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].ID < batch[j].ID })
	return batch, nil
}

// Save writes batch as an indented JSON array, replacing path atomically.
func Save(path string, batch domain.JobBatch) error {
	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("encode job list: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".jobs-*.json")
	if err != nil {
		return fmt.Errorf("create temp job file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp job file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp job file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace job file: %w", err)
	}
	return nil
}
