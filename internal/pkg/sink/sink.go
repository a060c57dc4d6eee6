// Package sink delivers pipeline events to their consumer.
package sink

import (
	"fmt"
	"sync/atomic"

	"github.com/gethiox/evmoused/internal/pkg/logger"
	"github.com/gethiox/evmoused/internal/pkg/mouse"
)

var log = logger.GetLogger()

type Sink interface {
	Send(ev mouse.Event) error
	Close() error
}

// Log writes every event into the log stream.
type Log struct{}

func (Log) Send(ev mouse.Event) error {
	switch ev.(type) {
	case mouse.ButtonEvent:
		log.Info(ev.String(), logger.Action)
	default:
		log.Info(ev.String(), logger.Motion)
	}
	return nil
}

func (Log) Close() error {
	return nil
}

// Multi fans events out to several sinks, the first error wins.
type Multi []Sink

func (m Multi) Send(ev mouse.Event) error {
	var first error
	for _, s := range m {
		if err := s.Send(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Paused drops events while paused, the pipeline keeps running.
type Paused struct {
	Sink
	paused atomic.Bool
}

func NewPaused(s Sink) *Paused {
	return &Paused{Sink: s}
}

func (p *Paused) Send(ev mouse.Event) error {
	if p.paused.Load() {
		return nil
	}
	return p.Sink.Send(ev)
}

// Toggle flips the pause state and returns the new one.
func (p *Paused) Toggle() bool {
	for {
		old := p.paused.Load()
		if p.paused.CompareAndSwap(old, !old) {
			state := "resumed"
			if !old {
				state = "paused"
			}
			log.Info(fmt.Sprintf("event delivery %s", state), logger.Info)
			return !old
		}
	}
}

func (p *Paused) Paused() bool {
	return p.paused.Load()
}
