package compare

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/flarebyte/qr-ostraca/internal/config"
	"github.com/flarebyte/qr-ostraca/internal/stage"
)

type progressReporter struct {
	enabled  bool
	interval time.Duration
	w        io.Writer

	mu        sync.Mutex
	stageName string
	processed int
	total     int
	errors    int
}

func newProgressReporter(s *config.Settings, w io.Writer) *progressReporter {
	if s == nil || !s.UI.Progress {
		return &progressReporter{enabled: false}
	}
	interval := s.UI.ProgressIntervalMs
	if interval <= 0 {
		interval = config.DefaultUIProgressIntervalMs
	}
	return &progressReporter{
		enabled:  true,
		interval: time.Duration(interval) * time.Millisecond,
		w:        w,
	}
}

// tick counts one decoded file in the running stage.
func (p *progressReporter) tick() {
	if p == nil || !p.enabled {
		return
	}
	p.mu.Lock()
	p.processed++
	p.mu.Unlock()
}

func (p *progressReporter) runStage(ctx context.Context, name string, in stage.Envelope, deps stage.Deps) (stage.Envelope, error) {
	if p == nil || !p.enabled {
		return stage.Run(ctx, name, in, deps)
	}

	p.setSnapshot(name, 0, len(in.Records), len(in.Errors))
	p.emit()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				p.emit()
			case <-done:
				return
			}
		}
	}()

	out, err := stage.Run(ctx, name, in, deps)
	close(done)
	if err == nil {
		p.setSnapshot(name, len(out.Records), len(out.Records), len(out.Errors))
		p.emit()
	}
	return out, err
}

func (p *progressReporter) setSnapshot(stageName string, processed, total, errs int) {
	p.mu.Lock()
	p.stageName = stageName
	p.processed = processed
	p.total = total
	p.errors = errs
	p.mu.Unlock()
}

func (p *progressReporter) emit() {
	if p == nil || !p.enabled || p.w == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.w, "progress stage=%s processed=%d total=%d errors=%d\n", p.stageName, p.processed, p.total, p.errors)
}
