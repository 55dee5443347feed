package wire

import (
	"fmt"

	"github.com/user/eightball-blue/logger"
)

// StartScanning begins delivering discoveries for endpoints advertising the
// given service. Endpoints already advertising are reported immediately;
// later Advertise calls reach every active scanner.
func (ep *Endpoint) StartScanning(serviceUUID string) error {
	ep.mu.Lock()
	if ep.central == nil {
		ep.mu.Unlock()
		return fmt.Errorf("no central event sink on %s", ep.uuid)
	}
	ep.scanning = true
	ep.scanFilter = serviceUUID
	ep.mu.Unlock()

	for _, other := range ep.hub.snapshot() {
		if other.uuid != ep.uuid {
			ep.reportAdvertiser(other)
		}
	}
	return nil
}

func (ep *Endpoint) StopScanning() {
	ep.mu.Lock()
	ep.scanning = false
	ep.mu.Unlock()
}

// reportAdvertiser delivers other's advertisement to this endpoint's
// central sink if the scan filter matches.
func (ep *Endpoint) reportAdvertiser(other *Endpoint) {
	other.mu.Lock()
	adv := other.adv
	rssi := other.rssi
	other.mu.Unlock()
	if adv == nil {
		return
	}

	ep.mu.Lock()
	sink := ep.central
	matches := ep.scanning && ep.scanFilter == adv.serviceUUID
	ep.mu.Unlock()
	if sink == nil || !matches {
		return
	}

	peer := other.uuid
	name := adv.name
	services := []string{adv.serviceUUID}
	logger.Trace(ep.logPrefix(), "scan result %s (%s) RSSI %d", logger.Short(peer), name, rssi)
	ep.post(func() { sink.Discovered(peer, name, services, rssi) })
}

// Advertise publishes the service and its two characteristics. The
// advertisement is what scanners discover and what discovery requests are
// answered from.
func (ep *Endpoint) Advertise(name, serviceUUID, questionCharUUID, answerCharUUID string) error {
	ep.mu.Lock()
	if ep.adv != nil {
		ep.mu.Unlock()
		return fmt.Errorf("%s is already advertising", ep.uuid)
	}
	if ep.peripheral == nil {
		ep.mu.Unlock()
		return fmt.Errorf("no peripheral event sink on %s", ep.uuid)
	}
	ep.adv = &advertisement{
		name:         name,
		serviceUUID:  serviceUUID,
		questionChar: questionCharUUID,
		answerChar:   answerCharUUID,
	}
	ep.mu.Unlock()

	logger.Debug(ep.logPrefix(), "advertising %s as %q", logger.Short(serviceUUID), name)
	for _, other := range ep.hub.snapshot() {
		if other.uuid != ep.uuid {
			other.reportAdvertiser(ep)
		}
	}
	return nil
}

// StopAdvertising withdraws the advertisement and invalidates the services
// for every connected central, mirroring a peripheral vanishing
// mid-session.
func (ep *Endpoint) StopAdvertising() {
	ep.mu.Lock()
	if ep.adv == nil {
		ep.mu.Unlock()
		return
	}
	ep.adv = nil
	connected := make([]string, 0, len(ep.centrals))
	for uuid := range ep.centrals {
		connected = append(connected, uuid)
	}
	ep.centrals = make(map[string]bool)
	ep.subscribers = make(map[string]map[string]bool)
	ep.mu.Unlock()

	for _, uuid := range connected {
		ep.invalidateOn(uuid)
	}
}

// invalidateOn reports this endpoint's services as gone to the central
// endpoint with the given uuid.
func (ep *Endpoint) invalidateOn(centralUUID string) {
	other := ep.hub.endpoint(centralUUID)
	if other == nil {
		return
	}
	other.mu.Lock()
	delete(other.peers, ep.uuid)
	sink := other.central
	other.mu.Unlock()
	if sink == nil {
		return
	}
	peer := ep.uuid
	logger.Debug(ep.logPrefix(), "services invalidated for %s", logger.Short(centralUUID))
	other.post(func() { sink.ServicesInvalidated(peer) })
}
