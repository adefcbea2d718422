package main

import (
	"fmt"
	"sync/atomic"
	"time"
)

const (
	progressUpdateInterval = 100 * time.Millisecond
	clearLineSequence      = "\r\033[K"
)

// ProgressPrinter displays a single-line countdown while a scan runs.
// Single-use: Start at most once, Stop exactly once; reaching a stop
// phase via Callback stops it automatically.
type ProgressPrinter struct {
	prefix     string
	phase      atomic.Value
	stopPhases map[string]struct{}
	duration   time.Duration
	startTime  time.Time
	ticker     atomic.Pointer[time.Ticker]
	stopChan   chan struct{}
	done       chan struct{}
	started    atomic.Bool
}

// NewCountdownProgressPrinter creates a progress printer counting down
// from duration. stopPhases trigger cleanup when set via Callback.
func NewCountdownProgressPrinter(prefix, phase string, duration time.Duration, stopPhases ...string) *ProgressPrinter {
	stopSet := make(map[string]struct{})
	for _, p := range stopPhases {
		stopSet[p] = struct{}{}
	}
	p := &ProgressPrinter{
		prefix:     prefix,
		stopPhases: stopSet,
		duration:   duration,
	}
	p.phase.Store(phase)
	return p
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressPrinter) Start() {
	if !p.started.CompareAndSwap(false, true) {
		panic("ProgressPrinter.Start called more than once")
	}

	p.done = make(chan struct{})
	p.stopChan = make(chan struct{})
	p.startTime = time.Now()
	ticker := time.NewTicker(progressUpdateInterval)
	p.ticker.Store(ticker)

	fmt.Printf("\r%s (%s...)   ", p.prefix, p.phase.Load().(string))

	go func() {
		defer close(p.done)
		for {
			select {
			case <-p.stopChan:
				return
			case <-ticker.C:
				phase := p.phase.Load().(string)
				if _, stop := p.stopPhases[phase]; stop {
					return
				}
				remaining := p.duration - time.Since(p.startTime)
				if remaining < 0 {
					remaining = 0
				}
				seconds := int(remaining.Seconds() + 0.5)
				if seconds > 0 {
					fmt.Printf("\r%s (%s %ds)   ", p.prefix, phase, seconds)
				} else {
					fmt.Printf("\r%s (%s...)   ", p.prefix, phase)
				}
			}
		}
	}()
}

// Callback returns a phase-update function for the scanner. Safe to
// call from multiple goroutines.
func (p *ProgressPrinter) Callback() func(phase string) {
	return func(phase string) {
		p.phase.Store(phase)
		if _, stop := p.stopPhases[phase]; stop {
			p.Stop()
		}
	}
}

// Stop stops the progress display and clears the line. Safe to call
// more than once.
func (p *ProgressPrinter) Stop() {
	ticker := p.ticker.Swap(nil)
	if ticker == nil {
		return
	}

	ticker.Stop()
	close(p.stopChan)
	<-p.done
	p.stopChan = nil

	fmt.Print(clearLineSequence)
}
