package ladcache

import "github.com/bft-labs/ladcache/internal/app"

// State represents the lifecycle state of a Service.
type State = app.State

const (
	StateStopped  = app.StateStopped
	StateStarting = app.StateStarting
	StateRunning  = app.StateRunning
	StateStopping = app.StateStopping
	StateCrashed  = app.StateCrashed
)

// StateChangeEvent describes one lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// DictionaryReloadEvent reports a dictionary reload. Err is nil on success;
// on failure the previous content stays in use.
type DictionaryReloadEvent struct {
	Path string
	Err  error
}

// EventHandler receives service notifications. Calls are synchronous and
// should return quickly.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnDictionaryReload(DictionaryReloadEvent)
}

// BaseEventHandler implements EventHandler with no-ops; embed it to
// override only some methods.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)           {}
func (BaseEventHandler) OnDictionaryReload(DictionaryReloadEvent) {}

// stateEmitter adapts EventHandler to the lifecycle's emitter.
type stateEmitter struct {
	handler EventHandler
}

func (e stateEmitter) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: previous,
		Current:  current,
		Reason:   reason,
	})
}
