package sink

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/google/uuid"

	"subsim-ctl/internal/state"
)

// Record is one line of a snapshot recording.
type Record struct {
	Session string `json:"session"`
	Server  string `json:"server,omitempty"`
	state.Snapshot
}

// FileWriter records snapshots to a JSONL file.
type FileWriter struct {
	mu      sync.Mutex
	file    *os.File
	enc     *json.Encoder
	session string
	server  string
}

// NewFileWriter creates (or truncates) path. Every record carries a fresh
// session id so several recordings can be concatenated and told apart.
func NewFileWriter(path, server string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileWriter{file: f, enc: json.NewEncoder(f), session: uuid.NewString(), server: server}, nil
}

// Session returns the recording's session id.
func (f *FileWriter) Session() string { return f.session }

// WriteSnapshot appends one record.
func (f *FileWriter) WriteSnapshot(s state.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enc.Encode(Record{Session: f.session, Server: f.server, Snapshot: s})
}

// Close closes the underlying file.
func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
