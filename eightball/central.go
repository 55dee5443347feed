package eightball

import (
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/atomic"

	"github.com/user/eightball-blue/logger"
)

// CentralOptions configures the asker role.
type CentralOptions struct {
	// Name is the local display name.
	Name string

	// RSSIMin/RSSIMax bound the inclusive signal-strength range a peer
	// must fall in to be promoted to a session. Peers outside the range
	// are treated as unreliable or decoy signals and ignored.
	RSSIMin int
	RSSIMax int

	// AnswerTimeout is how long a written question waits for its answer
	// notification before failing with DeviceOffline.
	AnswerTimeout time.Duration
}

func (o CentralOptions) withDefaults() CentralOptions {
	if o.Name == "" {
		o.Name = "eightball-central"
	}
	if o.RSSIMin == 0 && o.RSSIMax == 0 {
		o.RSSIMin, o.RSSIMax = -90, -20
	}
	if o.AnswerTimeout <= 0 {
		o.AnswerTimeout = 10 * time.Second
	}
	return o
}

// Central is the asker role: it scans for answering peripherals, promotes
// acceptable peers to sessions, and runs the single-shot question/answer
// exchange per session. One Central exists per process radio.
//
// Central implements CentralEvents; the transport must deliver those
// callbacks serially. All session mutation is funneled through c.mu, so
// application calls may race with transport callbacks safely.
type Central struct {
	mu        sync.Mutex
	opts      CentralOptions
	transport CentralTransport
	registry  *Registry
	sessions  map[string]*session
	scanning  bool

	lastErr atomic.Error
}

// NewCentral creates the asker role over the given transport. The caller
// must route the transport's callbacks into the returned Central (it
// implements CentralEvents) before calling Start.
func NewCentral(transport CentralTransport, opts CentralOptions) *Central {
	return &Central{
		opts:      opts.withDefaults(),
		transport: transport,
		registry:  NewRegistry(),
		sessions:  make(map[string]*session),
	}
}

// Subscribe registers an observer for discovery, answer and error events.
func (c *Central) Subscribe(o Observer) (string, bool) {
	return c.registry.Subscribe(o)
}

func (c *Central) Unsubscribe(o Observer) {
	c.registry.Unsubscribe(o)
}

func (c *Central) IsSubscribed(o Observer) bool {
	return c.registry.IsSubscribed(o)
}

// Name returns the local display name.
func (c *Central) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.Name
}

func (c *Central) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.Name = name
}

// LastError returns the most recent precondition or transport failure
// recorded by this role, or nil.
func (c *Central) LastError() error {
	return c.lastErr.Load()
}

// Start begins scanning for peripherals advertising the well-known
// service. Scanning continues while sessions are pursued; multiple
// sessions may be in flight concurrently.
func (c *Central) Start() error {
	c.mu.Lock()
	if c.scanning {
		c.mu.Unlock()
		return nil
	}
	c.scanning = true
	c.mu.Unlock()

	if err := c.transport.StartScanning(EightBallServiceUUID); err != nil {
		c.mu.Lock()
		c.scanning = false
		c.mu.Unlock()
		c.lastErr.Store(&TransportError{Reason: err})
		return &TransportError{Reason: err}
	}
	logger.Info(logger.Short(c.opts.Name), "scanning for %s", logger.Short(EightBallServiceUUID))
	return nil
}

// Close stops scanning and retires every open session without dispatching
// further events.
func (c *Central) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scanning {
		c.transport.StopScanning()
		c.scanning = false
	}
	for peer, s := range c.sessions {
		s.disarmTimer()
		s.retired = true
		delete(c.sessions, peer)
	}
}

// Devices returns a snapshot of fully discovered, live sessions.
func (c *Central) Devices() []Device {
	c.mu.Lock()
	defer c.mu.Unlock()

	devices := make([]Device, 0, len(c.sessions))
	for _, s := range c.sessions {
		if s.discovered && !s.retired {
			devices = append(devices, s.device())
		}
	}
	return devices
}

// SendQuestion writes a question to a discovered peer and arms the answer
// timeout. The call never blocks and never returns an error; outcomes
// surface through observers. Preconditions (session exists, discovery
// complete, no question already in flight) are checked first — a failed
// precondition leaves all session state untouched and is recorded in the
// last-error slot.
func (c *Central) SendQuestion(peer, question string) {
	c.mu.Lock()
	s, ok := c.sessions[peer]
	switch {
	case !ok || s.retired:
		c.mu.Unlock()
		c.lastErr.Store(ErrNoSession)
		logger.Warn(logger.Short(c.opts.Name), "sendQuestion to %s: no session", logger.Short(peer))
		return
	case !s.discovered:
		c.mu.Unlock()
		c.lastErr.Store(ErrSessionNotReady)
		return
	case s.asking:
		c.mu.Unlock()
		c.lastErr.Store(ErrQuestionInFlight)
		logger.Warn(logger.Short(c.opts.Name), "sendQuestion to %s: question already in flight", logger.Short(peer))
		return
	}

	s.asking = true
	s.question = question
	s.sent = false
	charUUID := s.questionChar
	answerChar := s.answerChar
	resubscribe := !s.notifying
	s.notifying = true
	s.armTimer(c.opts.AnswerTimeout, func(gen int) { c.answerTimedOut(peer, gen) })
	c.mu.Unlock()

	logger.Debug(logger.Short(c.opts.Name), "asking %s: %q", logger.Short(peer), question)
	// Interest in the answer characteristic is released after each delivered
	// answer; re-register it so this question's answer can arrive.
	if resubscribe {
		c.transport.SetNotify(peer, answerChar, true)
	}
	c.transport.WriteValue(peer, charUUID, []byte(question))
}

// answerTimedOut runs when the timeout timer fires. The generation check
// discards stale fires: an answer or disconnect that won the race already
// bumped the generation.
func (c *Central) answerTimedOut(peer string, gen int) {
	c.mu.Lock()
	s, ok := c.sessions[peer]
	if !ok || gen != s.timerGen || !s.asking {
		c.mu.Unlock()
		return
	}
	s.timer = nil
	s.clearInflight()
	c.mu.Unlock()

	logger.Warn(logger.Short(c.opts.Name), "no answer from %s within %v", logger.Short(peer), c.opts.AnswerTimeout)
	c.registry.errorOccurred(errDeviceOffline())
}

// Discovered applies the acceptance filter to a scan result: the peer must
// expose a non-empty display name, must not already have an open session,
// and must report an RSSI within the configured inclusive bounds. Accepted
// peers get a session and an immediate connection attempt; scanning is not
// stopped.
func (c *Central) Discovered(peer, name string, serviceUUIDs []string, rssi int) {
	c.mu.Lock()
	if name == "" {
		c.mu.Unlock()
		logger.Trace(logger.Short(c.opts.Name), "ignoring %s: empty name", logger.Short(peer))
		return
	}
	if _, open := c.sessions[peer]; open {
		c.mu.Unlock()
		return
	}
	if rssi < c.opts.RSSIMin || rssi > c.opts.RSSIMax {
		c.mu.Unlock()
		logger.Trace(logger.Short(c.opts.Name), "ignoring %s (%s): RSSI %d outside [%d, %d]",
			logger.Short(peer), name, rssi, c.opts.RSSIMin, c.opts.RSSIMax)
		return
	}
	c.sessions[peer] = newSession(peer, name, rssi)
	c.mu.Unlock()

	logger.Info(logger.Short(c.opts.Name), "discovered %s (%s) RSSI %d, connecting", logger.Short(peer), name, rssi)
	c.transport.Connect(peer)
}

// Connected triggers service discovery for the session's peer.
func (c *Central) Connected(peer string) {
	c.mu.Lock()
	_, ok := c.sessions[peer]
	c.mu.Unlock()
	if !ok {
		return
	}
	c.transport.DiscoverServices(peer, EightBallServiceUUID)
}

// ServicesDiscovered requests both well-known characteristics in one
// combined request, so a single completion yields both handles.
func (c *Central) ServicesDiscovered(peer string, err error) {
	c.mu.Lock()
	_, ok := c.sessions[peer]
	c.mu.Unlock()
	if !ok {
		return
	}
	if err != nil {
		c.reportTransport(err)
		return
	}
	c.transport.DiscoverCharacteristics(peer, EightBallServiceUUID,
		[]string{QuestionCharUUID, AnswerCharUUID})
}

// CharacteristicsDiscovered completes discovery for a session. Only the
// first completion is processed; duplicate callbacks are ignored. On
// success the Central registers for answer notifications and publishes the
// device to observers.
func (c *Central) CharacteristicsDiscovered(peer string, err error) {
	c.mu.Lock()
	s, ok := c.sessions[peer]
	if !ok || s.discovered {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.reportTransport(err)
		return
	}
	s.discovered = true
	s.questionChar = QuestionCharUUID
	s.answerChar = AnswerCharUUID
	s.notifying = true
	dev := s.device()
	c.mu.Unlock()

	c.transport.SetNotify(peer, AnswerCharUUID, true)
	logger.Info(logger.Short(c.opts.Name), "session ready: %s (%s)", logger.Short(peer), dev.Name)
	c.registry.deviceDiscovered(dev)
}

// WriteAcknowledged resolves the outcome of the question write. A clean ack
// promotes the pending question to "sent"; a rejection clears the in-flight
// state and dispatches the mapped protocol error.
func (c *Central) WriteAcknowledged(peer, charUUID string, err error) {
	c.mu.Lock()
	s, ok := c.sessions[peer]
	if !ok || !s.asking || charUUID != s.questionChar {
		c.mu.Unlock()
		return
	}
	if err == nil {
		s.sent = true
		c.mu.Unlock()
		return
	}
	s.disarmTimer()
	s.clearInflight()
	c.mu.Unlock()

	sendErr := sendErrorFromWrite(err)
	logger.Warn(logger.Short(c.opts.Name), "write to %s rejected: %v", logger.Short(peer), sendErr)
	c.registry.errorOccurred(sendErr)
}

// ValueUpdated delivers the answer when a non-empty text notification
// arrives on the answer characteristic while a question is in flight. The
// timeout is canceled and notification interest released; the exchange is
// single-shot.
func (c *Central) ValueUpdated(peer, charUUID string, data []byte, err error) {
	c.mu.Lock()
	s, ok := c.sessions[peer]
	if !ok || charUUID != s.answerChar {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.reportTransport(err)
		return
	}
	answer := string(data)
	if !s.asking || answer == "" || !utf8.ValidString(answer) {
		c.mu.Unlock()
		return
	}
	s.disarmTimer()
	s.clearInflight()
	s.lastAnswer = answer
	s.notifying = false
	dev := s.device()
	c.mu.Unlock()

	c.transport.SetNotify(peer, charUUID, false)
	logger.Info(logger.Short(c.opts.Name), "answer from %s: %q", logger.Short(peer), answer)
	c.registry.answerReceived(dev, answer)
}

// ServicesInvalidated retires the session: the peer is treated as offline,
// a single DeviceOffline error is dispatched, and further sends to the peer
// fail the precondition. The session owns its peer handle, so retiring it
// releases the handle and the notification subscription with it.
func (c *Central) ServicesInvalidated(peer string) {
	c.mu.Lock()
	s, ok := c.sessions[peer]
	if !ok || s.retired {
		c.mu.Unlock()
		return
	}
	s.retired = true
	s.disarmTimer()
	s.clearInflight()
	delete(c.sessions, peer)
	c.mu.Unlock()

	logger.Warn(logger.Short(c.opts.Name), "peer %s went offline", logger.Short(peer))
	c.registry.errorOccurred(errDeviceOffline())
}

func (c *Central) reportTransport(err error) {
	werr := &TransportError{Reason: err}
	c.lastErr.Store(werr)
	c.registry.errorOccurred(werr)
}

var _ CentralEvents = (*Central)(nil)
