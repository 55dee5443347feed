package eightball

import (
	"sync"

	"github.com/google/uuid"
)

// Device identifies a remote peer as seen by a role. On the Central side
// Peer is the peripheral's transport handle; on the Peripheral side it is
// the asking central's handle.
type Device struct {
	Peer string
	Name string
	RSSI int
}

// Observer receives session events. Implementations are compared by
// identity, so observers are expected to be pointer values.
type Observer interface {
	// DeviceDiscovered fires when a session finishes characteristic
	// discovery and is ready for questions, and again on updates.
	DeviceDiscovered(dev Device)
	// QuestionAsked fires on the Peripheral side when a valid question
	// write arrives.
	QuestionAsked(dev Device, question string)
	// AnswerReceived fires on the Central side when the answer
	// notification for an in-flight question arrives.
	AnswerReceived(dev Device, answer string)
	// ErrorOccurred fires for every transport or protocol failure.
	ErrorOccurred(err error)
}

type observerEntry struct {
	id       string
	observer Observer
}

// Registry holds subscribed observers in subscription order and dispatches
// events to them synchronously.
type Registry struct {
	mu      sync.Mutex
	entries []observerEntry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Subscribe registers an observer and returns its generated identifier.
// Subscribing an already-registered observer mutates nothing and reports
// ok=false.
func (r *Registry) Subscribe(o Observer) (string, bool) {
	if o == nil {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.observer == o {
			return "", false
		}
	}
	id := uuid.NewString()
	r.entries = append(r.entries, observerEntry{id: id, observer: o})
	return id, true
}

// Unsubscribe removes an observer. Removing one that was never registered
// is a no-op.
func (r *Registry) Unsubscribe(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.observer == o {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}

// IsSubscribed reports whether the observer is currently registered.
func (r *Registry) IsSubscribed(o Observer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.observer == o {
			return true
		}
	}
	return false
}

// Len returns the number of subscribed observers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// dispatch calls fn for each subscriber in subscription order. The pass
// works off a snapshot: a subscriber added mid-dispatch is not visited this
// pass, and one removed before its turn is skipped. Handlers run without
// the registry lock so they may subscribe/unsubscribe reentrantly.
func (r *Registry) dispatch(fn func(Observer)) {
	r.mu.Lock()
	snapshot := make([]observerEntry, len(r.entries))
	copy(snapshot, r.entries)
	r.mu.Unlock()

	for _, e := range snapshot {
		if r.stillPresent(e.id) {
			fn(e.observer)
		}
	}
}

func (r *Registry) stillPresent(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.id == id {
			return true
		}
	}
	return false
}

func (r *Registry) deviceDiscovered(dev Device) {
	r.dispatch(func(o Observer) { o.DeviceDiscovered(dev) })
}

func (r *Registry) questionAsked(dev Device, question string) {
	r.dispatch(func(o Observer) { o.QuestionAsked(dev, question) })
}

func (r *Registry) answerReceived(dev Device, answer string) {
	r.dispatch(func(o Observer) { o.AnswerReceived(dev, answer) })
}

func (r *Registry) errorOccurred(err error) {
	r.dispatch(func(o Observer) { o.ErrorOccurred(err) })
}
