package eightball

import "time"

// session tracks one remote Peripheral on the Central side: discovery
// progress, the in-flight question, the answer timeout, and the last
// delivered answer. Identity is the transport peer handle. All fields are
// guarded by the owning Central's mutex.
type session struct {
	peer string
	name string
	rssi int

	// Set once by the first characteristic-discovery completion; later
	// duplicate completions are ignored.
	discovered   bool
	questionChar string
	answerChar   string

	// notifying tracks answer-characteristic notify interest, which is
	// released after each delivered answer and re-registered by the next
	// SendQuestion.
	notifying bool

	// asking is set by SendQuestion until the answer, the timeout, or a
	// write failure clears it; question holds the text (possibly empty, the
	// peer decides whether that is acceptable). sent marks that the write
	// was acknowledged.
	asking   bool
	question string
	sent     bool

	lastAnswer string

	timer    *time.Timer
	timerGen int

	// retired: the transport invalidated this peer; further sends fail the
	// precondition.
	retired bool
}

func newSession(peer, name string, rssi int) *session {
	return &session{peer: peer, name: name, rssi: rssi}
}

func (s *session) device() Device {
	return Device{Peer: s.peer, Name: s.name, RSSI: s.rssi}
}

// armTimer schedules fire after d and returns the generation it was armed
// with. A fire whose generation no longer matches timerGen is stale and must
// be ignored by the caller.
func (s *session) armTimer(d time.Duration, fire func(gen int)) {
	s.timerGen++
	gen := s.timerGen
	s.timer = time.AfterFunc(d, func() { fire(gen) })
}

// disarmTimer stops the pending timer and bumps the generation so an
// already-fired callback racing with the stop is discarded.
func (s *session) disarmTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}

// clearInflight drops the outstanding question state.
func (s *session) clearInflight() {
	s.asking = false
	s.question = ""
	s.sent = false
}
