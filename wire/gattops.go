package wire

import (
	"fmt"

	"github.com/user/eightball-blue/eightball"
	"github.com/user/eightball-blue/logger"
)

// Connect links this endpoint to an advertising peer. Like a real stack
// there is no failure callback: connecting to a vanished peer simply never
// completes.
func (ep *Endpoint) Connect(peer string) {
	target := ep.hub.endpoint(peer)
	if target == nil {
		logger.Warn(ep.logPrefix(), "connect to unknown peer %s", logger.Short(peer))
		return
	}
	target.mu.Lock()
	if target.adv == nil {
		target.mu.Unlock()
		logger.Warn(ep.logPrefix(), "connect to %s: not advertising", logger.Short(peer))
		return
	}
	target.centrals[ep.uuid] = true
	target.mu.Unlock()

	ep.mu.Lock()
	ep.peers[peer] = true
	sink := ep.central
	ep.mu.Unlock()
	if sink == nil {
		return
	}
	ep.post(func() { sink.Connected(peer) })
}

// Drop severs an established link and reports the peer's services as
// invalidated to the central side, from whichever side it is called on.
func (ep *Endpoint) Drop(peer string) {
	target := ep.hub.endpoint(peer)

	ep.mu.Lock()
	wasCentral := ep.peers[peer]
	delete(ep.peers, peer)
	delete(ep.centrals, peer)
	sink := ep.central
	ep.mu.Unlock()

	if wasCentral {
		// We are the central; our own stack reports the invalidation.
		if target != nil {
			target.mu.Lock()
			delete(target.centrals, ep.uuid)
			target.mu.Unlock()
		}
		if sink != nil {
			ep.post(func() { sink.ServicesInvalidated(peer) })
		}
		return
	}
	// We are the peripheral; the central's stack reports it.
	ep.invalidateOn(peer)
}

// DiscoverServices answers from the peer's advertised layout.
func (ep *Endpoint) DiscoverServices(peer, serviceUUID string) {
	sink := ep.centralSink()
	if sink == nil {
		return
	}
	err := ep.lookupService(peer, serviceUUID)
	ep.post(func() { sink.ServicesDiscovered(peer, err) })
}

// DiscoverCharacteristics checks every requested characteristic against
// the peer's advertised layout and completes once for the whole batch.
func (ep *Endpoint) DiscoverCharacteristics(peer, serviceUUID string, charUUIDs []string) {
	sink := ep.centralSink()
	if sink == nil {
		return
	}
	err := ep.lookupService(peer, serviceUUID)
	if err == nil {
		target := ep.hub.endpoint(peer)
		target.mu.Lock()
		adv := target.adv
		target.mu.Unlock()
		for _, charUUID := range charUUIDs {
			if !adv.hasChar(charUUID) {
				err = fmt.Errorf("characteristic %s not found on %s", charUUID, peer)
				break
			}
		}
	}
	ep.post(func() { sink.CharacteristicsDiscovered(peer, err) })
}

func (ep *Endpoint) lookupService(peer, serviceUUID string) error {
	target := ep.hub.endpoint(peer)
	if target == nil {
		return fmt.Errorf("peer %s is gone", peer)
	}
	target.mu.Lock()
	defer target.mu.Unlock()
	if target.adv == nil || target.adv.serviceUUID != serviceUUID {
		return fmt.Errorf("service %s not found on %s", serviceUUID, peer)
	}
	return nil
}

// WriteValue carries a write to the peer's peripheral sink and routes the
// resulting ATT status back as the write acknowledgment. A write to a
// vanished or never-connected peer is dropped; the asker's timeout covers
// that case.
func (ep *Endpoint) WriteValue(peer, charUUID string, data []byte) {
	sink := ep.centralSink()
	target := ep.hub.endpoint(peer)
	if target == nil {
		logger.Warn(ep.logPrefix(), "write to vanished peer %s dropped", logger.Short(peer))
		return
	}
	target.mu.Lock()
	connected := target.centrals[ep.uuid]
	psink := target.peripheral
	target.mu.Unlock()
	if !connected || psink == nil {
		logger.Warn(ep.logPrefix(), "write to %s dropped: not connected", logger.Short(peer))
		return
	}

	from := ep.uuid
	payload := clone(data)
	target.post(func() {
		status := psink.WriteReceived(from, charUUID, payload)
		if sink == nil {
			return
		}
		var err error
		if status != eightball.ATTStatusSuccess {
			err = &eightball.ATTError{Code: status}
		}
		ep.post(func() { sink.WriteAcknowledged(peer, charUUID, err) })
	})
}

// SetNotify records or clears this endpoint's interest in a characteristic
// on the peer.
func (ep *Endpoint) SetNotify(peer, charUUID string, enabled bool) {
	target := ep.hub.endpoint(peer)
	if target == nil {
		return
	}
	target.mu.Lock()
	defer target.mu.Unlock()
	if enabled {
		if target.subscribers[charUUID] == nil {
			target.subscribers[charUUID] = make(map[string]bool)
		}
		target.subscribers[charUUID][ep.uuid] = true
	} else if subs := target.subscribers[charUUID]; subs != nil {
		delete(subs, ep.uuid)
	}
}

// UpdateValue notifies every central subscribed to the characteristic.
func (ep *Endpoint) UpdateValue(charUUID string, data []byte) bool {
	ep.mu.Lock()
	if ep.closed {
		ep.mu.Unlock()
		return false
	}
	subs := make([]string, 0, len(ep.subscribers[charUUID]))
	for uuid := range ep.subscribers[charUUID] {
		subs = append(subs, uuid)
	}
	ep.mu.Unlock()

	from := ep.uuid
	for _, uuid := range subs {
		other := ep.hub.endpoint(uuid)
		if other == nil {
			continue
		}
		sink := other.centralSink()
		if sink == nil {
			continue
		}
		payload := clone(data)
		logger.Trace(ep.logPrefix(), "notify %s on %s (%d bytes)", logger.Short(uuid), logger.Short(charUUID), len(payload))
		other.post(func() { sink.ValueUpdated(from, charUUID, payload, nil) })
	}
	return true
}
