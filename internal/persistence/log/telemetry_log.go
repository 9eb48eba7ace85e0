package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/AaroAskala/Suomidle-sub000/internal/sim/telemetry"
)

const hourLayout = "2006-01-02-15"

// Entry is one telemetry line.
type Entry struct {
	ID      string         `json:"id"`
	At      string         `json:"at"`
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
}

// TelemetryLog persists telemetry events as JSON lines in hourly zstd files
// <dataDir>/telemetry/telemetry-YYYY-MM-DD-HH.jsonl.zst. An event is filed
// under the hour of its own game-clock stamp (payload "at", unix millis),
// or of the wall clock when it carries none. Late events, such as buff
// expiries found on load, reopen their hour's file and append a new frame.
type TelemetryLog struct {
	dir string
	now func() time.Time

	mu     sync.Mutex
	hour   string
	f      *os.File
	enc    *zstd.Encoder
	counts map[string]int
}

func NewTelemetryLog(dataDir string) *TelemetryLog {
	return &TelemetryLog{
		dir:    filepath.Join(dataDir, "telemetry"),
		now:    time.Now,
		counts: map[string]int{},
	}
}

// Emit implements telemetry.Sink.
func (l *TelemetryLog) Emit(event string, payload map[string]any) error {
	at := l.eventTime(payload)
	line, err := json.Marshal(Entry{
		ID:      uuid.NewString(),
		At:      at.Format(time.RFC3339Nano),
		Event:   event,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("telemetry %s: %w", event, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if hour := at.Format(hourLayout); hour != l.hour {
		if err := l.openLocked(hour); err != nil {
			return err
		}
	}
	if _, err := l.enc.Write(append(line, '\n')); err != nil {
		return err
	}
	if err := l.enc.Flush(); err != nil {
		return err
	}
	l.counts[event]++
	return nil
}

func (l *TelemetryLog) eventTime(payload map[string]any) time.Time {
	var ms int64
	switch v := payload[telemetry.PayloadAt].(type) {
	case int64:
		ms = v
	case int:
		ms = int64(v)
	case float64:
		ms = int64(v)
	}
	if ms > 0 && ms < telemetryMaxMillis {
		return time.UnixMilli(ms).UTC()
	}
	return l.now().UTC()
}

// telemetryMaxMillis rejects never-ending stamps (MaxSafeInteger) as event
// times; year 9999 is beyond any file name the layout can produce.
var telemetryMaxMillis = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC).UnixMilli()

// Counts reports how many events of each name were written this session.
func (l *TelemetryLog) Counts() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

func (l *TelemetryLog) openLocked(hour string) error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.pathFor(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	l.f, l.enc, l.hour = f, enc, hour
	return nil
}

func (l *TelemetryLog) closeLocked() error {
	var err error
	if l.enc != nil {
		err = l.enc.Close()
		l.enc = nil
	}
	if l.f != nil {
		if cerr := l.f.Close(); err == nil {
			err = cerr
		}
		l.f = nil
	}
	l.hour = ""
	return err
}

func (l *TelemetryLog) pathFor(hour string) string {
	return filepath.Join(l.dir, "telemetry-"+hour+".jsonl.zst")
}

func (l *TelemetryLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

// ReadEntries decodes one telemetry file, all of its frames.
func ReadEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Entry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
