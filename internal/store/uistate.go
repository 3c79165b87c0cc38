package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/diskv/v3"
)

// UIState is the small per-profile preference store: tour progress,
// table sort, last visited view. The localStorage analog, with JSON
// values keyed by name under <cache>/uistate.
type UIState struct {
	d *diskv.Diskv
}

type TourProgress struct {
	StepIndex int  `json:"stepIndex"`
	Completed bool `json:"completed"`
	Dismissed bool `json:"dismissed"`
}

type SortPref struct {
	Key  string `json:"key"`
	Desc bool   `json:"desc"`
}

func OpenUIState(dir string) *UIState {
	return &UIState{d: diskv.New(diskv.Options{
		BasePath:     filepath.Join(dir, "uistate"),
		CacheSizeMax: 64 * 1024,
	})}
}

func (s *UIState) read(key string, v any) bool {
	b, err := s.d.Read(key)
	if err != nil {
		return false
	}
	return json.Unmarshal(b, v) == nil
}

func (s *UIState) write(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.d.Write(key, b)
}

// Tour returns stored tour progress; the zero value means never started.
func (s *UIState) Tour() TourProgress {
	var p TourProgress
	s.read("tour", &p)
	return p
}

func (s *UIState) SetTour(p TourProgress) error {
	return s.write("tour", p)
}

// ResetTour clears tour progress so the tour replays from the start.
func (s *UIState) ResetTour() error {
	err := s.d.Erase("tour")
	if err != nil && (errors.Is(err, fs.ErrNotExist) || strings.Contains(err.Error(), "not found")) {
		return nil
	}
	return err
}

func (s *UIState) EntriesSort() (SortPref, bool) {
	var p SortPref
	ok := s.read("entries-sort", &p)
	return p, ok
}

func (s *UIState) SetEntriesSort(p SortPref) error {
	return s.write("entries-sort", p)
}

// LastView remembers the last visited calendar view ("day", "week",
// "month"); "/" redirects there.
func (s *UIState) LastView() string {
	var v string
	if !s.read("last-view", &v) {
		return ""
	}
	switch v {
	case "day", "week", "month":
		return v
	}
	return ""
}

func (s *UIState) SetLastView(v string) error {
	return s.write("last-view", v)
}

// Keys lists the stored preference keys, for `state show`.
func (s *UIState) Keys() []string {
	var keys []string
	for k := range s.d.Keys(nil) {
		keys = append(keys, k)
	}
	return keys
}
