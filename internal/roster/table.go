package roster

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/levelbot/backend/internal/metrics"
)

const (
	defaultTableFile = "userdata.csv"
	appDirName       = "levelbot"
)

// ErrBadHeader is returned when the table file exists but its first line
// is not the expected column header.
var ErrBadHeader = errors.New("unexpected table header")

// Table persists the full set of user records as a plain comma-delimited
// text file. Every save rewrites the whole file; readers never observe a
// partial write because the new contents are renamed into place.
//
// Table does not serialize load→mutate→save sequences; the award engine
// owns that discipline.
type Table struct {
	dir  string
	file string
	log  *zap.Logger
}

// NewTable creates a Table rooted at dir. Pass an empty dir to use the
// default XDG state path, or an empty file for the default file name.
func NewTable(dir, file string, log *zap.Logger) *Table {
	if dir == "" {
		dir = defaultTableDir()
	}
	if file == "" {
		file = defaultTableFile
	}
	return &Table{dir: dir, file: file, log: log}
}

// Path returns the full path to the table file.
func (t *Table) Path() string {
	return filepath.Join(t.dir, t.file)
}

// EnsureExists creates an empty table (header only) if none exists yet,
// so the first LoadAll of a fresh deployment succeeds.
func (t *Table) EnsureExists() error {
	if _, err := os.Stat(t.Path()); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking user table: %w", err)
	}
	return t.SaveAll(nil)
}

// LoadAll reads and parses every row of the table. Rows that fail to
// parse are skipped with a warning; a missing or unreadable file, or a
// file with the wrong header, fails the whole load.
func (t *Table) LoadAll() ([]UserRecord, error) {
	data, err := os.ReadFile(t.Path())
	if err != nil {
		return nil, fmt.Errorf("reading user table: %w", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r") != Header {
		return nil, fmt.Errorf("%w in %s", ErrBadHeader, t.Path())
	}

	records := make([]UserRecord, 0, len(lines)-1)
	for i, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		rec, err := parseRow(line)
		if err != nil {
			metrics.MalformedRowsTotal.Inc()
			t.log.Warn("skipping unparseable table row",
				zap.Int("line", i+2),
				zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// SaveAll rewrites the table with the given records, in the order given,
// using a temp-file-then-rename so readers always see a complete file.
// The directory is created if it does not already exist.
func (t *Table) SaveAll(records []UserRecord) error {
	if err := os.MkdirAll(t.dir, 0o700); err != nil {
		return fmt.Errorf("creating table dir: %w", err)
	}

	var b strings.Builder
	b.WriteString(Header)
	b.WriteByte('\n')
	for _, r := range records {
		b.WriteString(formatRow(r))
		b.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(t.dir, ".userdata-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, t.Path()); err != nil {
		return fmt.Errorf("renaming table file: %w", err)
	}
	committed = true

	return nil
}

// defaultTableDir returns ~/.local/state/levelbot, respecting
// XDG_STATE_HOME if set.
func defaultTableDir() string {
	if base := os.Getenv("XDG_STATE_HOME"); base != "" {
		return filepath.Join(base, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".local", "state", appDirName)
}
