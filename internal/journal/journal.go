// Package journal is the operator-facing log pane: timestamped, leveled
// lines describing what each command did.
package journal

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level of a journal entry.
type Level string

const (
	Info  Level = "info"
	Warn  Level = "warn"
	Error Level = "error"
)

// DefaultLimit bounds the number of retained entries.
const DefaultLimit = 1000

// Entry is one log pane line.
type Entry struct {
	Time    time.Time `json:"ts"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
}

// Format renders the entry as "[15:04:05] [INFO] message".
func (e Entry) Format() string {
	return fmt.Sprintf("[%s] [%s] %s", e.Time.Format("15:04:05"), strings.ToUpper(string(e.Level)), e.Message)
}

// Journal is safe for concurrent use.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
	limit   int
	subs    []func(Entry)
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates a journal mirroring every entry into logger.
func New(logger zerolog.Logger) *Journal {
	return &Journal{limit: DefaultLimit, logger: logger, now: time.Now}
}

// Subscribe registers fn to be called after every append.
func (j *Journal) Subscribe(fn func(Entry)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.subs = append(j.subs, fn)
}

// Info appends an info line.
func (j *Journal) Info(msg string) Entry { return j.Append(Info, msg) }

// Warn appends a warning line.
func (j *Journal) Warn(msg string) Entry { return j.Append(Warn, msg) }

// Error appends an error line.
func (j *Journal) Error(msg string) Entry { return j.Append(Error, msg) }

// Append records msg at level and notifies subscribers.
func (j *Journal) Append(level Level, msg string) Entry {
	j.mu.Lock()
	e := Entry{Time: j.now(), Level: level, Message: msg}
	j.entries = append(j.entries, e)
	if len(j.entries) > j.limit {
		j.entries = j.entries[len(j.entries)-j.limit:]
	}
	subs := slices.Clone(j.subs)
	j.mu.Unlock()

	switch level {
	case Error:
		j.logger.Error().Msg(msg)
	case Warn:
		j.logger.Warn().Msg(msg)
	default:
		j.logger.Info().Msg(msg)
	}
	for _, fn := range subs {
		fn(e)
	}
	return e
}

// Entries returns a copy of the retained entries, oldest first.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Entry(nil), j.entries...)
}

// Last returns the newest entry.
func (j *Journal) Last() (Entry, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.entries) == 0 {
		return Entry{}, false
	}
	return j.entries[len(j.entries)-1], true
}
