package tickets

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"support-agent/internal/helper"
)

// ErrLogMissing reports that no ticket has ever been filed, which readers
// present as "no tickets" rather than an error.
var ErrLogMissing = errors.New("ticket log does not exist")

// ErrNotFound reports that a full scan found no matching ticket id.
var ErrNotFound = errors.New("ticket not found")

const (
	idPrefix     = "TKT"
	idTimeFormat = "20060102150405"
	statusOpen   = "open"
)

// Record is one filed support ticket. Records are appended to the log as one
// JSON object per line and are never mutated in place.
type Record struct {
	ID        string `json:"ticket_id"`
	Timestamp string `json:"timestamp"`
	Summary   string `json:"summary"`
	Severity  string `json:"severity"`
	Status    string `json:"status"`
}

// Log is an append-only JSON-lines ticket file shared by all tools.
type Log struct {
	path string
}

func NewLog(path string) *Log {
	return &Log{path: path}
}

// File mints a new ticket and appends it as a single line. The id carries a
// second-granularity timestamp plus a short random suffix so two tickets
// filed within the same second still get distinct ids.
func (l *Log) File(summary, severity string) (Record, error) {
	now := time.Now()
	rec := Record{
		ID:        fmt.Sprintf("%s-%s-%s", idPrefix, now.Format(idTimeFormat), helper.ShortID(4)),
		Timestamp: now.Format(time.RFC3339),
		Summary:   summary,
		Severity:  severity,
		Status:    statusOpen,
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return Record{}, err
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return Record{}, err
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return Record{}, err
	}

	log.Info().Str("ticket_id", rec.ID).Str("severity", severity).Msg("Ticket filed")
	return rec, nil
}

// Lookup scans the log from the start and returns the first record whose id
// matches exactly. Malformed lines are skipped silently.
func (l *Log) Lookup(id string) (Record, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, ErrLogMissing
		}
		return Record{}, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		if rec.ID == id {
			return rec, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return Record{}, err
	}
	return Record{}, ErrNotFound
}
