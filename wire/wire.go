// Package wire is an in-process simulation of the BLE transport the
// eightball roles run over: a Hub stands in for the radio medium and each
// Endpoint for one device's stack. Endpoints implement both transport
// contracts; every callback into a role is delivered on that endpoint's
// single dispatch goroutine, matching the serial callback context a real
// platform stack provides.
package wire

import (
	"sync"

	"github.com/user/eightball-blue/eightball"
	"github.com/user/eightball-blue/logger"
)

// DefaultRSSI is the simulated signal strength reported for an endpoint
// unless a test overrides it with SetRSSI.
const DefaultRSSI = -45

// Hub connects simulated endpoints within one process.
type Hub struct {
	mu        sync.Mutex
	endpoints map[string]*Endpoint
}

func NewHub() *Hub {
	return &Hub{endpoints: make(map[string]*Endpoint)}
}

// NewEndpoint registers a device on the hub and starts its dispatch loop.
func (h *Hub) NewEndpoint(uuid string) *Endpoint {
	ep := &Endpoint{
		hub:         h,
		uuid:        uuid,
		rssi:        DefaultRSSI,
		subscribers: make(map[string]map[string]bool),
		peers:       make(map[string]bool),
		centrals:    make(map[string]bool),
		dispatch:    make(chan func(), 64),
		done:        make(chan struct{}),
	}
	go ep.loop()

	h.mu.Lock()
	h.endpoints[uuid] = ep
	h.mu.Unlock()
	return ep
}

func (h *Hub) endpoint(uuid string) *Endpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.endpoints[uuid]
}

func (h *Hub) remove(uuid string) {
	h.mu.Lock()
	delete(h.endpoints, uuid)
	h.mu.Unlock()
}

func (h *Hub) snapshot() []*Endpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	eps := make([]*Endpoint, 0, len(h.endpoints))
	for _, ep := range h.endpoints {
		eps = append(eps, ep)
	}
	return eps
}

// advertisement is the simulated advertising packet plus the GATT layout it
// implies: the service with its question and answer characteristics.
type advertisement struct {
	name         string
	serviceUUID  string
	questionChar string
	answerChar   string
}

func (a *advertisement) hasChar(charUUID string) bool {
	return charUUID == a.questionChar || charUUID == a.answerChar
}

// Endpoint is one device on the hub. It implements both
// eightball.CentralTransport and eightball.PeripheralTransport, so a role
// of either kind can run over it.
type Endpoint struct {
	hub  *Hub
	uuid string

	mu         sync.Mutex
	rssi       int
	adv        *advertisement
	scanning   bool
	scanFilter string
	central    eightball.CentralEvents
	peripheral eightball.PeripheralEvents

	// subscribers: charUUID -> set of central endpoint uuids with notify
	// interest (peripheral side).
	subscribers map[string]map[string]bool
	// peers: endpoints we connected to as central.
	peers map[string]bool
	// centrals: endpoints connected to us as peripheral.
	centrals map[string]bool

	dispatch chan func()
	done     chan struct{}
	closed   bool
}

// UUID returns the endpoint's handle on the hub.
func (ep *Endpoint) UUID() string {
	return ep.uuid
}

// SetRSSI overrides the simulated signal strength scanners observe for
// this endpoint.
func (ep *Endpoint) SetRSSI(rssi int) {
	ep.mu.Lock()
	ep.rssi = rssi
	ep.mu.Unlock()
}

// SetCentralEvents routes central-side transport callbacks into sink.
// Must be set before StartScanning.
func (ep *Endpoint) SetCentralEvents(sink eightball.CentralEvents) {
	ep.mu.Lock()
	ep.central = sink
	ep.mu.Unlock()
}

// SetPeripheralEvents routes peripheral-side transport callbacks into
// sink. Must be set before Advertise.
func (ep *Endpoint) SetPeripheralEvents(sink eightball.PeripheralEvents) {
	ep.mu.Lock()
	ep.peripheral = sink
	ep.mu.Unlock()
}

// Close takes the endpoint off the hub. A closed advertising endpoint
// invalidates its connected centrals first, like a device powering off
// mid-session.
func (ep *Endpoint) Close() {
	ep.mu.Lock()
	if ep.closed {
		ep.mu.Unlock()
		return
	}
	ep.closed = true
	advertising := ep.adv != nil
	ep.mu.Unlock()

	if advertising {
		ep.StopAdvertising()
	}
	ep.hub.remove(ep.uuid)
	close(ep.done)
}

// post enqueues fn on this endpoint's serial dispatch loop.
func (ep *Endpoint) post(fn func()) {
	select {
	case <-ep.done:
	case ep.dispatch <- fn:
	}
}

func (ep *Endpoint) loop() {
	for {
		select {
		case fn := <-ep.dispatch:
			fn()
		case <-ep.done:
			return
		}
	}
}

func (ep *Endpoint) centralSink() eightball.CentralEvents {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.central
}

func (ep *Endpoint) peripheralSink() eightball.PeripheralEvents {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.peripheral
}

func clone(data []byte) []byte {
	if data == nil {
		return nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

var (
	_ eightball.CentralTransport    = (*Endpoint)(nil)
	_ eightball.PeripheralTransport = (*Endpoint)(nil)
)

func (ep *Endpoint) logPrefix() string {
	return logger.Short(ep.uuid) + " wire"
}
