package instrument

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SnapshotSource yields one status reading. The action server implements it
// so polls are serialized with actions.
type SnapshotSource interface {
	PollStatus(ctx context.Context) (StatusSnapshot, error)
}

// Poller reads device status on an interval and reports changes.
type Poller struct {
	source   SnapshotSource
	interval time.Duration
	onChange func(StatusSnapshot)
	logger   *zap.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
	stopping bool
	last     *StatusSnapshot
}

func NewPoller(source SnapshotSource, interval time.Duration, onChange func(StatusSnapshot), logger *zap.Logger) *Poller {
	return &Poller{
		source:   source,
		interval: interval,
		onChange: onChange,
		logger:   logger,
	}
}

// Start begins polling. A second Start is a no-op; a stopped poller can be
// started again.
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	p.running = true
	p.stopChan = make(chan struct{})
	p.wg.Add(1)

	go p.pollLoop(p.stopChan)

	p.logger.Info("Status poller started", zap.Duration("interval", p.interval))

	return nil
}

func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running || p.stopping {
		p.mu.Unlock()
		return
	}
	p.stopping = true
	stop := p.stopChan
	p.mu.Unlock()

	close(stop)
	p.wg.Wait()

	p.mu.Lock()
	p.running = false
	p.stopping = false
	p.mu.Unlock()

	p.logger.Info("Status poller stopped")
}

func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Last returns the most recent reading, if any.
func (p *Poller) Last() (StatusSnapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.last == nil {
		return StatusSnapshot{}, false
	}
	return *p.last, true
}

func (p *Poller) pollLoop(stop <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *Poller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	defer cancel()

	snap, err := p.source.PollStatus(ctx)
	if err != nil {
		p.logger.Warn("Status poll failed", zap.Error(err))
		snap = StatusSnapshot{Status: StatusUnknown, Error: err.Error(), At: time.Now()}
	}

	p.mu.Lock()
	changed := p.last == nil || p.last.Status != snap.Status || p.last.Error != snap.Error
	p.last = &snap
	p.mu.Unlock()

	if changed {
		p.logger.Info("Device status changed",
			zap.Stringer("status", snap.Status),
			zap.String("error", snap.Error))
		if p.onChange != nil {
			p.onChange(snap)
		}
	}
}
