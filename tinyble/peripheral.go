package tinyble

import (
	"fmt"
	"strconv"

	"tinygo.org/x/bluetooth"

	"github.com/user/eightball-blue/eightball"
	"github.com/user/eightball-blue/logger"
)

// Peripheral implements eightball.PeripheralTransport over a hardware
// adapter.
//
// One limitation: tinygo's characteristic write events cannot return an ATT
// error to the writer, so rejections (including the "question please" code)
// are logged locally instead of reaching the central's acknowledgment. The
// central's answer timeout covers that path on real radios.
type Peripheral struct {
	adapter *bluetooth.Adapter
	events  eightball.PeripheralEvents

	answerChar bluetooth.Characteristic
	adv        *bluetooth.Advertisement
}

// NewPeripheral wraps the default adapter.
func NewPeripheral() *Peripheral {
	return &Peripheral{adapter: bluetooth.DefaultAdapter}
}

// SetEvents routes write callbacks into sink. Must be called before
// Advertise.
func (p *Peripheral) SetEvents(sink eightball.PeripheralEvents) {
	p.events = sink
}

// Enable powers on the adapter.
func (p *Peripheral) Enable() error {
	if err := p.adapter.Enable(); err != nil {
		return fmt.Errorf("tinyble: enable adapter: %w", err)
	}
	return nil
}

// Advertise registers the GATT service and starts advertising it under the
// given local name.
func (p *Peripheral) Advertise(name, serviceUUID, questionCharUUID, answerCharUUID string) error {
	svc, err := bluetooth.ParseUUID(serviceUUID)
	if err != nil {
		return fmt.Errorf("tinyble: parse service UUID: %w", err)
	}
	questionUUID, err := bluetooth.ParseUUID(questionCharUUID)
	if err != nil {
		return fmt.Errorf("tinyble: parse question UUID: %w", err)
	}
	answerUUID, err := bluetooth.ParseUUID(answerCharUUID)
	if err != nil {
		return fmt.Errorf("tinyble: parse answer UUID: %w", err)
	}

	err = p.adapter.AddService(&bluetooth.Service{
		UUID: svc,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				UUID:  questionUUID,
				Flags: bluetooth.CharacteristicWritePermission | bluetooth.CharacteristicWriteWithoutResponsePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					if offset != 0 {
						return
					}
					status := p.events.WriteReceived(clientHandle(client), questionCharUUID, value)
					if status != eightball.ATTStatusSuccess {
						logger.Debug("tinyble", "write rejected with 0x%02x (not reportable to central)", status)
					}
				},
			},
			{
				Handle: &p.answerChar,
				UUID:   answerUUID,
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("tinyble: add service: %w", err)
	}

	adv := p.adapter.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    name,
		ServiceUUIDs: []bluetooth.UUID{svc},
	}); err != nil {
		return fmt.Errorf("tinyble: configure advertisement: %w", err)
	}
	if err := adv.Start(); err != nil {
		return fmt.Errorf("tinyble: start advertising: %w", err)
	}
	p.adv = adv
	return nil
}

func (p *Peripheral) StopAdvertising() {
	if p.adv == nil {
		return
	}
	if err := p.adv.Stop(); err != nil {
		logger.Warn("tinyble", "stop advertising: %v", err)
	}
	p.adv = nil
}

// UpdateValue writes the characteristic value, which notifies every
// subscribed central.
func (p *Peripheral) UpdateValue(charUUID string, data []byte) bool {
	_, err := p.answerChar.Write(data)
	if err != nil {
		logger.Warn("tinyble", "notify on %s: %v", logger.Short(charUUID), err)
		return false
	}
	return true
}

// clientHandle renders a hardware connection handle as an opaque central
// identifier.
func clientHandle(client bluetooth.Connection) string {
	return "central-" + strconv.Itoa(int(client))
}

var _ eightball.PeripheralTransport = (*Peripheral)(nil)
