package eightball

// CentralTransport is everything the Central role requires from a BLE stack.
// Calls never block; outcomes arrive later through the CentralEvents sink.
type CentralTransport interface {
	// StartScanning begins scanning for peripherals advertising the given
	// service UUID. Discoveries arrive via CentralEvents.Discovered.
	StartScanning(serviceUUID string) error
	StopScanning()

	// Connect initiates a connection to a discovered peer. Success arrives
	// via CentralEvents.Connected.
	Connect(peer string)

	DiscoverServices(peer, serviceUUID string)
	DiscoverCharacteristics(peer, serviceUUID string, charUUIDs []string)

	// WriteValue writes bytes to a characteristic on the peer. The outcome
	// arrives via CentralEvents.WriteAcknowledged.
	WriteValue(peer, charUUID string, data []byte)

	// SetNotify registers or unregisters interest in value updates for a
	// characteristic. Updates arrive via CentralEvents.ValueUpdated.
	SetNotify(peer, charUUID string, enabled bool)
}

// CentralEvents is the callback sink a CentralTransport delivers into.
// Implementations of the transport must deliver all events serially: no two
// callbacks for the same sink may run concurrently.
type CentralEvents interface {
	Discovered(peer, name string, serviceUUIDs []string, rssi int)
	Connected(peer string)
	ServicesDiscovered(peer string, err error)
	CharacteristicsDiscovered(peer string, err error)
	WriteAcknowledged(peer, charUUID string, err error)
	ValueUpdated(peer, charUUID string, data []byte, err error)

	// ServicesInvalidated reports that the peer's services are gone. The
	// core treats this unconditionally as "peer went offline".
	ServicesInvalidated(peer string)
}

// PeripheralTransport is everything the Peripheral role requires from a BLE
// stack.
type PeripheralTransport interface {
	// Advertise publishes the service with a writable question
	// characteristic and a notifiable answer characteristic, under the
	// given local name.
	Advertise(name, serviceUUID, questionCharUUID, answerCharUUID string) error
	StopAdvertising()

	// UpdateValue stores bytes into a characteristic and notifies
	// subscribed centrals. Reports false if the notification could not be
	// queued.
	UpdateValue(charUUID string, data []byte) bool
}

// PeripheralEvents is the callback sink a PeripheralTransport delivers into.
type PeripheralEvents interface {
	// WriteReceived reports a write from a central and returns an ATT
	// status: ATTStatusSuccess accepts the write, anything else rejects it
	// and is reported back to the writer.
	WriteReceived(central, charUUID string, data []byte) int
}
