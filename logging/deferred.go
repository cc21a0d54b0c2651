package logging

import (
	"context"
	"sync"
)

type deferredLevel int

const (
	deferredDebug deferredLevel = iota
	deferredInfo
	deferredWarning
	deferredError
)

type deferredEntry struct {
	level deferredLevel
	code  string
	msg   string
}

// DeferredLogger collects messages produced while wells are evaluated and
// replays them through a Logger afterwards. Evaluation may run one well per
// goroutine; buffering keeps the output ordered per well and keeps the hot
// path free of handler work.
type DeferredLogger struct {
	mu      sync.Mutex
	entries []deferredEntry
}

// NewDeferredLogger returns an empty deferred logger.
func NewDeferredLogger() *DeferredLogger {
	return &DeferredLogger{}
}

// Debug buffers a debug message.
func (d *DeferredLogger) Debug(msg string) {
	d.append(deferredEntry{level: deferredDebug, msg: msg})
}

// Info buffers an informational message.
func (d *DeferredLogger) Info(msg string) {
	d.append(deferredEntry{level: deferredInfo, msg: msg})
}

// Warning buffers a warning carrying a machine-readable code, for example
// NOT_SUPPORTING_ENDRUN.
func (d *DeferredLogger) Warning(code, msg string) {
	d.append(deferredEntry{level: deferredWarning, code: code, msg: msg})
}

// Error buffers an error message.
func (d *DeferredLogger) Error(msg string) {
	d.append(deferredEntry{level: deferredError, msg: msg})
}

func (d *DeferredLogger) append(e deferredEntry) {
	d.mu.Lock()
	d.entries = append(d.entries, e)
	d.mu.Unlock()
}

// Len reports the number of buffered messages.
func (d *DeferredLogger) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Absorb moves all messages from other into d, preserving their order.
// other is left empty.
func (d *DeferredLogger) Absorb(other *DeferredLogger) {
	if other == nil || other == d {
		return
	}
	other.mu.Lock()
	moved := other.entries
	other.entries = nil
	other.mu.Unlock()

	d.mu.Lock()
	d.entries = append(d.entries, moved...)
	d.mu.Unlock()
}

// Flush replays the buffered messages through l and clears the buffer.
// Warnings carry their code as a structured field.
func (d *DeferredLogger) Flush(ctx context.Context, l Logger) {
	if l == nil {
		l = Noop()
	}
	d.mu.Lock()
	entries := d.entries
	d.entries = nil
	d.mu.Unlock()

	for _, e := range entries {
		switch e.level {
		case deferredDebug:
			l.Debug(ctx, e.msg)
		case deferredInfo:
			l.Info(ctx, e.msg)
		case deferredWarning:
			if e.code != "" {
				l.Warn(ctx, e.msg, String("code", e.code))
			} else {
				l.Warn(ctx, e.msg)
			}
		default:
			l.Error(ctx, e.msg)
		}
	}
}
