// Package relay pushes store change notifications to connected websocket clients.
//
// Delivery is fire-and-forget: at most once, no acknowledgement, no replay.
package relay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/bassista/go_reel/internal/logger"
	"github.com/bassista/go_reel/internal/repository"
	"github.com/bassista/go_reel/internal/storage"
)

// MessageTypeMovieChange tags every relayed change.
const MessageTypeMovieChange = "movie-change"

// Message is the frame sent to websocket clients.
type Message struct {
	Type string                 `json:"type"`
	Data repository.ChangeEvent `json:"data"`
}

// ChangeSource produces store change events. storage.Storage satisfies it.
type ChangeSource interface {
	Watch(ctx context.Context, onChange storage.ChangeHandler) error
}

// ChangeSink consumes change events before they are broadcast, e.g. a cache.
type ChangeSink interface {
	ApplyChange(ev repository.ChangeEvent)
}

// Broadcaster fans a message out to clients. Hub satisfies it.
type Broadcaster interface {
	Broadcast(msg Message) int
}

// Relay forwards events from a ChangeSource to sinks and then to a Broadcaster.
type Relay struct {
	source   ChangeSource
	out      Broadcaster
	sinks    []ChangeSink
	degraded atomic.Bool
	warnOnce sync.Once
	events   atomic.Int64
}

func New(source ChangeSource, out Broadcaster, sinks ...ChangeSink) *Relay {
	return &Relay{source: source, out: out, sinks: sinks}
}

// Run consumes change events until ctx is done.
// A source that cannot stream changes puts the relay in degraded mode, which is not an error.
func (r *Relay) Run(ctx context.Context) error {
	if r.source == nil {
		r.degrade("no change source configured")
		return nil
	}

	err := r.source.Watch(ctx, r.handle)
	switch {
	case errors.Is(err, repository.ErrChangeStreamUnsupported):
		r.degrade("store cannot stream changes (MongoDB change streams need a replica set)")
		return nil
	case err != nil && ctx.Err() == nil:
		r.degraded.Store(true)
		logger.WithComponent("relay").Errorf("change stream stopped: %v", err)
		return err
	}
	return nil
}

func (r *Relay) handle(ev repository.ChangeEvent) {
	for _, sink := range r.sinks {
		sink.ApplyChange(ev)
	}
	r.events.Add(1)
	if r.out == nil {
		return
	}
	n := r.out.Broadcast(Message{Type: MessageTypeMovieChange, Data: ev})
	logger.WithComponent("relay").Debugf("%s %s relayed to %d session(s)", ev.OperationType, ev.DocumentKey, n)
}

func (r *Relay) degrade(reason string) {
	r.degraded.Store(true)
	r.warnOnce.Do(func() {
		logger.WithComponent("relay").Warnf("live updates disabled: %s", reason)
	})
}

// Degraded reports whether change notifications are unavailable.
func (r *Relay) Degraded() bool {
	return r.degraded.Load()
}

// Relayed returns how many change events have been handled.
func (r *Relay) Relayed() int64 {
	return r.events.Load()
}
