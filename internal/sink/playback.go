package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"
)

// ReplayLog replays recorded snapshots from r to writer. A speed >0 scales
// the recorded gaps between snapshots (2 plays twice as fast); speed <= 0
// inserts no delay.
func ReplayLog(ctx context.Context, r io.Reader, writer StatusWriter, speed float64) (int, error) {
	dec := json.NewDecoder(r)
	var prev time.Time
	n := 0
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, err
		}
		if !prev.IsZero() && speed > 0 {
			diff := time.Duration(float64(rec.ReceivedAt.Sub(prev)) / speed)
			if diff > 0 {
				select {
				case <-ctx.Done():
					return n, ctx.Err()
				case <-time.After(diff):
				}
			}
		}
		if err := writer.WriteSnapshot(rec.Snapshot); err != nil {
			return n, err
		}
		n++
		prev = rec.ReceivedAt
	}
}

// ReplayLogFile opens a recording and replays it.
func ReplayLogFile(ctx context.Context, path string, writer StatusWriter, speed float64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ReplayLog(ctx, f, writer, speed)
}
