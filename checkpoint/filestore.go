// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cpmech/gosl/io"
	"github.com/unifhy-org/unifhy/unifhyerr"
)

// FileStore is the durable Store: one dump file per Frame under Dir,
// named <tag>_<datetime>.dump, plus a manifest.json indexing every dump
// by tag and simulation datetime. A Frame already carries every
// component's snapshot, so one file per dump boundary is the complete
// model-level checkpoint; the manifest is what a resume in a later
// process scans to locate the right frame without decoding each dump.
type FileStore struct {
	Dir string
}

// NewFileStore returns a FileStore rooted at dir. The directory is
// created lazily on first Write.
func NewFileStore(dir string) *FileStore { return &FileStore{Dir: dir} }

// manifestEntry is one dump's line in manifest.json.
type manifestEntry struct {
	File       string `json:"file"`
	Tag        string `json:"tag"`
	Datetime   string `json:"datetime"`
	Simulation string `json:"simulation"`
}

func frameFileName(tag, datetime string) string {
	clean := strings.NewReplacer("-", "", ":", "").Replace(datetime)
	return io.Sf("%s_%s.dump", tag, clean)
}

// Write encodes f to its dump file and refreshes the manifest.
func (s *FileStore) Write(f Frame) error {
	raw, err := Encode(f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return unifhyerr.NewIOError("create dump directory "+s.Dir, err)
	}
	name := frameFileName(f.Tag, f.Datetime)
	if err := os.WriteFile(filepath.Join(s.Dir, name), raw, 0o644); err != nil {
		return unifhyerr.NewIOError("write dump file "+name, err)
	}
	return s.appendManifest(manifestEntry{File: name, Tag: f.Tag, Datetime: f.Datetime, Simulation: f.Simulation})
}

func (s *FileStore) appendManifest(e manifestEntry) error {
	entries, _ := s.readManifest()
	replaced := false
	for i := range entries {
		if entries[i].File == e.File {
			entries[i] = e
			replaced = true
		}
	}
	if !replaced {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Tag != entries[j].Tag {
			return entries[i].Tag < entries[j].Tag
		}
		return entries[i].Datetime < entries[j].Datetime
	})
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return unifhyerr.NewIOError("marshal dump manifest", err)
	}
	io.WriteFileSD(s.Dir, "manifest.json", string(raw))
	return nil
}

func (s *FileStore) readManifest() ([]manifestEntry, error) {
	raw, err := io.ReadFile(filepath.Join(s.Dir, "manifest.json"))
	if err != nil {
		return nil, err
	}
	var entries []manifestEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, unifhyerr.NewIOError("parse dump manifest", err)
	}
	return entries, nil
}

// Latest scans the manifest for the latest frame tagged tag with
// Datetime <= at and decodes its dump file.
func (s *FileStore) Latest(tag, at string) (Frame, bool, error) {
	entries, err := s.readManifest()
	if err != nil {
		// no manifest yet means no dumps yet, not a failure
		return Frame{}, false, nil
	}
	best := ""
	for _, e := range entries {
		if e.Tag == tag && e.Datetime <= at {
			best = e.File
		}
	}
	if best == "" {
		return Frame{}, false, nil
	}
	raw, err := io.ReadFile(filepath.Join(s.Dir, best))
	if err != nil {
		return Frame{}, false, unifhyerr.NewIOError("read dump file "+best, err)
	}
	f, err := Decode(raw)
	if err != nil {
		return Frame{}, false, err
	}
	return f, true, nil
}
