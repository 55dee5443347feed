package eightball

import (
	"sync"
	"unicode/utf8"

	"go.uber.org/atomic"

	"github.com/user/eightball-blue/logger"
)

// PeripheralOptions configures the answerer role.
type PeripheralOptions struct {
	// Name is the advertised local name. Centrals reject peers with an
	// empty name, so it defaults when unset.
	Name string
}

func (o PeripheralOptions) withDefaults() PeripheralOptions {
	if o.Name == "" {
		o.Name = "eightball"
	}
	return o
}

// Peripheral is the answerer role: it advertises the well-known service,
// validates incoming question writes, and pushes answers back as
// notifications. One question may be pending per asking central; the
// exchange is single-shot.
//
// Peripheral implements PeripheralEvents; the transport must deliver write
// callbacks serially.
type Peripheral struct {
	mu        sync.Mutex
	opts      PeripheralOptions
	transport PeripheralTransport
	registry  *Registry

	// pending maps an asking central's handle to its unanswered question.
	pending map[string]string

	advertising atomic.Bool
	lastErr     atomic.Error
}

// NewPeripheral creates the answerer role over the given transport. The
// caller must route the transport's write callbacks into the returned
// Peripheral before calling Start.
func NewPeripheral(transport PeripheralTransport, opts PeripheralOptions) *Peripheral {
	return &Peripheral{
		opts:      opts.withDefaults(),
		transport: transport,
		registry:  NewRegistry(),
		pending:   make(map[string]string),
	}
}

func (p *Peripheral) Subscribe(o Observer) (string, bool) {
	return p.registry.Subscribe(o)
}

func (p *Peripheral) Unsubscribe(o Observer) {
	p.registry.Unsubscribe(o)
}

func (p *Peripheral) IsSubscribed(o Observer) bool {
	return p.registry.IsSubscribed(o)
}

func (p *Peripheral) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opts.Name
}

func (p *Peripheral) SetName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opts.Name = name
}

// LastError returns the most recent precondition or transport failure
// recorded by this role, or nil.
func (p *Peripheral) LastError() error {
	return p.lastErr.Load()
}

// Start advertises the service and its two characteristics. Only the first
// of concurrent Start calls reaches the transport.
func (p *Peripheral) Start() error {
	if !p.advertising.CompareAndSwap(false, true) {
		return nil
	}
	p.mu.Lock()
	name := p.opts.Name
	p.mu.Unlock()

	if err := p.transport.Advertise(name, EightBallServiceUUID, QuestionCharUUID, AnswerCharUUID); err != nil {
		p.advertising.Store(false)
		werr := &TransportError{Reason: err}
		p.lastErr.Store(werr)
		return werr
	}
	logger.Info(logger.Short(name), "advertising %s", logger.Short(EightBallServiceUUID))
	return nil
}

// Close stops advertising and drops any pending questions.
func (p *Peripheral) Close() {
	if !p.advertising.Swap(false) {
		return
	}
	p.transport.StopAdvertising()
	p.mu.Lock()
	p.pending = make(map[string]string)
	p.mu.Unlock()
}

// WriteReceived validates a question write. Writes to anything but the
// question characteristic are refused outright. Empty or undecodable
// payloads are rejected with the "question please" application code, which
// the asking central surfaces as SendError{QuestionPlease}. A valid
// question is parked as pending and published to observers; the hosting
// application answers it with SendAnswer.
func (p *Peripheral) WriteReceived(central, charUUID string, data []byte) int {
	if charUUID != QuestionCharUUID {
		return ATTErrWriteNotPermitted
	}
	question := string(data)
	if question == "" || !utf8.ValidString(question) {
		logger.Debug(logger.Short(p.Name()), "rejecting write from %s: no question text", logger.Short(central))
		return ATTErrQuestionPlease
	}

	p.mu.Lock()
	p.pending[central] = question
	p.mu.Unlock()

	logger.Info(logger.Short(p.Name()), "question from %s: %q", logger.Short(central), question)
	p.registry.questionAsked(Device{Peer: central}, question)
	return ATTStatusSuccess
}

// SendAnswer writes the answer into the answer characteristic and notifies
// the asking central. The pending-question flag for the central is cleared
// regardless of outcome: a second SendAnswer without an intervening
// question is a no-op recorded in the last-error slot.
func (p *Peripheral) SendAnswer(central, answer string) {
	p.mu.Lock()
	_, ok := p.pending[central]
	delete(p.pending, central)
	p.mu.Unlock()

	if !ok {
		p.lastErr.Store(ErrNoPendingQuestion)
		logger.Warn(logger.Short(p.Name()), "sendAnswer to %s: no question pending", logger.Short(central))
		return
	}

	logger.Debug(logger.Short(p.Name()), "answering %s: %q", logger.Short(central), answer)
	if !p.transport.UpdateValue(AnswerCharUUID, []byte(answer)) {
		p.lastErr.Store(ErrNotifyFailed)
		p.registry.errorOccurred(&SendError{Reason: DeviceOffline})
	}
}

// PendingQuestion returns the unanswered question for a central, if any.
func (p *Peripheral) PendingQuestion(central string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, ok := p.pending[central]
	return q, ok
}

var _ PeripheralEvents = (*Peripheral)(nil)
