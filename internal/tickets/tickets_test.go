package tickets

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idPattern = regexp.MustCompile(`^TKT-\d{14}-[0-9a-f]{4}$`)

func TestFileAppendsOneWellFormedRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.log")
	l := NewLog(path)

	rec, err := l.File("db down", "high")
	require.NoError(t, err)
	assert.Regexp(t, idPattern, rec.ID)
	assert.Equal(t, "db down", rec.Summary)
	assert.Equal(t, "high", rec.Severity)
	assert.Equal(t, "open", rec.Status)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var parsed Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &parsed))
		assert.Equal(t, rec.ID, parsed.ID)
		lines++
	}
	assert.Equal(t, 1, lines)
}

func TestLookupReturnsFirstExactMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.log")
	l := NewLog(path)

	first, err := l.File("printer on fire", "low")
	require.NoError(t, err)
	_, err = l.File("printer still on fire", "medium")
	require.NoError(t, err)

	got, err := l.Lookup(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "printer on fire", got.Summary)
	assert.Equal(t, "low", got.Severity)
}

func TestLookupSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.log")
	l := NewLog(path)

	rec, err := l.File("db down", "high")
	require.NoError(t, err)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("not json at all\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := l.Lookup(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}

func TestLookupMissingLog(t *testing.T) {
	l := NewLog(filepath.Join(t.TempDir(), "never-created.log"))

	_, err := l.Lookup("TKT-20250101120000-a3f2")
	assert.True(t, errors.Is(err, ErrLogMissing))
}

func TestLookupUnknownID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.log")
	l := NewLog(path)
	_, err := l.File("db down", "high")
	require.NoError(t, err)

	_, err = l.Lookup("TKT-19990101000000-ffff")
	assert.True(t, errors.Is(err, ErrNotFound))
}
