// Package memo persists the set of redeem codes already announced, so a
// code is only notified the first cycle it appears.
package memo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aluiziolira/redeem-code-bot/models"
)

// Store holds the codes seen by the most recent successful cycle, backed by
// a newline-delimited sorted file. It keeps no history: every successful
// cycle replaces the contents wholesale.
//
// A Store is not safe for concurrent use; cycles are serialized by the
// scheduler.
type Store struct {
	path  string
	codes map[string]struct{}
}

// Load reads the memo file at path. A missing file yields an empty store;
// blank lines are discarded.
func Load(path string) (*Store, error) {
	s := &Store{
		path:  path,
		codes: make(map[string]struct{}),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read memo file %s: %w", path, err)
	}

	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.codes[line] = struct{}{}
	}
	return s, nil
}

// Diff compares this cycle's records against the memo as it stood before
// the call, replaces the memo wholesale with the scraped set, persists it,
// and returns the newly added codes in first-seen table order.
//
// The in-memory set and the file are only updated together: a persist
// failure leaves both at their pre-cycle state.
func (s *Store) Diff(records []models.CodeRecord) ([]string, error) {
	current := make(map[string]struct{}, len(records))
	var added []string

	for _, record := range records {
		code := record.Code()
		if _, dup := current[code]; dup {
			continue
		}
		current[code] = struct{}{}
		if _, seen := s.codes[code]; !seen {
			added = append(added, code)
		}
	}

	if err := s.persist(current); err != nil {
		return nil, err
	}
	s.codes = current
	return added, nil
}

// Contains reports whether code was present in the last successful cycle.
func (s *Store) Contains(code string) bool {
	_, ok := s.codes[code]
	return ok
}

// Len returns the number of memoized codes.
func (s *Store) Len() int {
	return len(s.codes)
}

// Codes returns the memoized codes in lexicographic order.
func (s *Store) Codes() []string {
	out := make([]string, 0, len(s.codes))
	for code := range s.codes {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// persist overwrites the memo file with the sorted codes, one per line.
// The write goes through a temp file in the same directory so the memo is
// never observed half-written.
func (s *Store) persist(codes map[string]struct{}) error {
	sorted := make([]string, 0, len(codes))
	for code := range codes {
		sorted = append(sorted, code)
	}
	sort.Strings(sorted)

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create memo temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strings.Join(sorted, "\n")); err != nil {
		tmp.Close()
		return fmt.Errorf("write memo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close memo temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace memo file: %w", err)
	}
	return nil
}
