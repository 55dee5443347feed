// Package tinyble adapts tinygo.org/x/bluetooth to the eightball transport
// contracts, so both roles can run against a real radio. Peer handles are
// the stringified platform addresses (MAC on Linux, CoreBluetooth UUID on
// macOS).
package tinyble

import (
	"fmt"
	"sync"

	"tinygo.org/x/bluetooth"

	"github.com/user/eightball-blue/eightball"
	"github.com/user/eightball-blue/logger"
)

// Central implements eightball.CentralTransport over a hardware adapter.
// tinygo's blocking calls run on background goroutines; serialization of
// the resulting events is left to the role controller's own lock, which the
// core guarantees.
type Central struct {
	adapter *bluetooth.Adapter
	events  eightball.CentralEvents

	mu       sync.Mutex
	addrs    map[string]bluetooth.Address            // discovered peer -> address
	devices  map[string]bluetooth.Device             // connected peer -> device
	services map[string]bluetooth.DeviceService      // peer -> discovered service
	chars    map[string]map[string]*deviceChar       // peer -> charUUID -> characteristic
	scanning bool
}

type deviceChar struct {
	char bluetooth.DeviceCharacteristic
}

// NewCentral wraps the default adapter.
func NewCentral() *Central {
	return &Central{
		adapter:  bluetooth.DefaultAdapter,
		addrs:    make(map[string]bluetooth.Address),
		devices:  make(map[string]bluetooth.Device),
		services: make(map[string]bluetooth.DeviceService),
		chars:    make(map[string]map[string]*deviceChar),
	}
}

// SetEvents routes transport callbacks into sink. Must be called before
// Enable.
func (c *Central) SetEvents(sink eightball.CentralEvents) {
	c.events = sink
}

// Enable powers on the adapter and registers the disconnect handler, which
// is surfaced as ServicesInvalidated per the core's offline model.
func (c *Central) Enable() error {
	if err := c.adapter.Enable(); err != nil {
		return fmt.Errorf("tinyble: enable adapter: %w", err)
	}
	c.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		peer := device.Address.String()
		c.mu.Lock()
		_, known := c.devices[peer]
		delete(c.devices, peer)
		delete(c.services, peer)
		delete(c.chars, peer)
		c.mu.Unlock()
		if known && c.events != nil {
			c.events.ServicesInvalidated(peer)
		}
	})
	return nil
}

// StartScanning runs the blocking hardware scan on a goroutine and
// forwards matching results. Every scan packet for a peer is reported; the
// role controller's open-session filter handles repeats.
func (c *Central) StartScanning(serviceUUID string) error {
	svc, err := bluetooth.ParseUUID(serviceUUID)
	if err != nil {
		return fmt.Errorf("tinyble: parse service UUID: %w", err)
	}

	c.mu.Lock()
	if c.scanning {
		c.mu.Unlock()
		return nil
	}
	c.scanning = true
	c.mu.Unlock()

	go func() {
		err := c.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !result.HasServiceUUID(svc) {
				return
			}
			peer := result.Address.String()
			c.mu.Lock()
			c.addrs[peer] = result.Address
			c.mu.Unlock()
			c.events.Discovered(peer, result.LocalName(), []string{serviceUUID}, int(result.RSSI))
		})
		if err != nil {
			logger.Warn("tinyble", "scan stopped: %v", err)
		}
		c.mu.Lock()
		c.scanning = false
		c.mu.Unlock()
	}()
	return nil
}

func (c *Central) StopScanning() {
	if err := c.adapter.StopScan(); err != nil {
		logger.Warn("tinyble", "stop scan: %v", err)
	}
}

// Connect dials the peer in the background. Hardware connect failures are
// logged and otherwise silent, matching the contract: a peer that cannot
// be reached simply never reports Connected.
func (c *Central) Connect(peer string) {
	c.mu.Lock()
	addr, ok := c.addrs[peer]
	c.mu.Unlock()
	if !ok {
		logger.Warn("tinyble", "connect to never-scanned peer %s", logger.Short(peer))
		return
	}

	go func() {
		device, err := c.adapter.Connect(addr, bluetooth.ConnectionParams{})
		if err != nil {
			logger.Warn("tinyble", "connect %s: %v", logger.Short(peer), err)
			return
		}
		c.mu.Lock()
		c.devices[peer] = device
		c.mu.Unlock()
		c.events.Connected(peer)
	}()
}

func (c *Central) DiscoverServices(peer, serviceUUID string) {
	go func() {
		svc, err := bluetooth.ParseUUID(serviceUUID)
		if err != nil {
			c.events.ServicesDiscovered(peer, err)
			return
		}
		c.mu.Lock()
		device, ok := c.devices[peer]
		c.mu.Unlock()
		if !ok {
			c.events.ServicesDiscovered(peer, fmt.Errorf("tinyble: %s not connected", peer))
			return
		}
		svcs, err := device.DiscoverServices([]bluetooth.UUID{svc})
		if err == nil && len(svcs) == 0 {
			err = fmt.Errorf("tinyble: service %s not found on %s", serviceUUID, peer)
		}
		if err != nil {
			c.events.ServicesDiscovered(peer, err)
			return
		}
		c.mu.Lock()
		c.services[peer] = svcs[0]
		c.mu.Unlock()
		c.events.ServicesDiscovered(peer, nil)
	}()
}

// DiscoverCharacteristics resolves the whole batch in one hardware request
// so the completion carries every requested handle at once.
func (c *Central) DiscoverCharacteristics(peer, serviceUUID string, charUUIDs []string) {
	go func() {
		c.mu.Lock()
		svc, ok := c.services[peer]
		c.mu.Unlock()
		if !ok {
			c.events.CharacteristicsDiscovered(peer, fmt.Errorf("tinyble: no discovered service on %s", peer))
			return
		}

		uuids := make([]bluetooth.UUID, 0, len(charUUIDs))
		for _, s := range charUUIDs {
			u, err := bluetooth.ParseUUID(s)
			if err != nil {
				c.events.CharacteristicsDiscovered(peer, err)
				return
			}
			uuids = append(uuids, u)
		}

		chars, err := svc.DiscoverCharacteristics(uuids)
		if err == nil && len(chars) < len(charUUIDs) {
			err = fmt.Errorf("tinyble: %d of %d characteristics found on %s", len(chars), len(charUUIDs), peer)
		}
		if err != nil {
			c.events.CharacteristicsDiscovered(peer, err)
			return
		}

		c.mu.Lock()
		byUUID := make(map[string]*deviceChar, len(chars))
		for i := range chars {
			byUUID[chars[i].UUID().String()] = &deviceChar{char: chars[i]}
		}
		c.chars[peer] = byUUID
		c.mu.Unlock()
		c.events.CharacteristicsDiscovered(peer, nil)
	}()
}

// WriteValue issues a write-without-response; the question characteristic
// does not require a responded write. The acknowledgment reflects whether
// the stack accepted the write.
func (c *Central) WriteValue(peer, charUUID string, data []byte) {
	go func() {
		dc := c.lookupChar(peer, charUUID)
		if dc == nil {
			c.events.WriteAcknowledged(peer, charUUID, fmt.Errorf("tinyble: characteristic %s not discovered on %s", charUUID, peer))
			return
		}
		_, err := dc.char.WriteWithoutResponse(data)
		c.events.WriteAcknowledged(peer, charUUID, err)
	}()
}

func (c *Central) SetNotify(peer, charUUID string, enabled bool) {
	dc := c.lookupChar(peer, charUUID)
	if dc == nil {
		return
	}
	var cb func([]byte)
	if enabled {
		cb = func(buf []byte) {
			c.events.ValueUpdated(peer, charUUID, buf, nil)
		}
	}
	if err := dc.char.EnableNotifications(cb); err != nil {
		logger.Warn("tinyble", "set notify %v on %s: %v", enabled, logger.Short(peer), err)
	}
}

func (c *Central) lookupChar(peer, charUUID string) *deviceChar {
	c.mu.Lock()
	defer c.mu.Unlock()
	byUUID, ok := c.chars[peer]
	if !ok {
		return nil
	}
	// Stacks differ in UUID string casing; match case-insensitively via
	// the parsed form.
	if dc, ok := byUUID[charUUID]; ok {
		return dc
	}
	want, err := bluetooth.ParseUUID(charUUID)
	if err != nil {
		return nil
	}
	return byUUID[want.String()]
}

var _ eightball.CentralTransport = (*Central)(nil)
