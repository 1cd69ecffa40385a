package roster

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// UserRecord is one row of the durable user table.
//
// XP is the amount accumulated within the current level; after
// normalization it is always below the next-level threshold. Username is
// the last-seen display name and is overwritten on every award.
type UserRecord struct {
	UserID   string
	Username string
	XP       int
	Level    int
}

// Header is the fixed first line of every table file.
const Header = "userId,username,xp,level"

// ErrMalformedRow marks a line that cannot be parsed into a UserRecord.
// Loads skip such lines instead of failing.
var ErrMalformedRow = errors.New("malformed row")

// parseRow splits one table line into a UserRecord. Fields are
// comma-separated with no quoting, so a username containing a comma
// cannot round-trip; such rows surface here as a field-count mismatch.
func parseRow(line string) (UserRecord, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 4 {
		return UserRecord{}, fmt.Errorf("%w: expected 4 fields, got %d", ErrMalformedRow, len(fields))
	}
	if fields[0] == "" {
		return UserRecord{}, fmt.Errorf("%w: empty userId", ErrMalformedRow)
	}

	xp, err := strconv.Atoi(fields[2])
	if err != nil {
		return UserRecord{}, fmt.Errorf("%w: xp %q is not an integer", ErrMalformedRow, fields[2])
	}
	level, err := strconv.Atoi(fields[3])
	if err != nil {
		return UserRecord{}, fmt.Errorf("%w: level %q is not an integer", ErrMalformedRow, fields[3])
	}
	if xp < 0 || level < 1 {
		return UserRecord{}, fmt.Errorf("%w: xp=%d level=%d out of range", ErrMalformedRow, xp, level)
	}

	return UserRecord{
		UserID:   fields[0],
		Username: fields[1],
		XP:       xp,
		Level:    level,
	}, nil
}

func formatRow(r UserRecord) string {
	return fmt.Sprintf("%s,%s,%d,%d", r.UserID, r.Username, r.XP, r.Level)
}

// FindByUserID returns the index of the record with the given id, or -1.
// Lookup is an exact string match in table order.
func FindByUserID(records []UserRecord, id string) int {
	for i := range records {
		if records[i].UserID == id {
			return i
		}
	}
	return -1
}
