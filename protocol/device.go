package protocol

// DeviceID identifies one half on air. Frames carry the sender's id so a
// half can ignore traffic from radios that are not its peer.
type DeviceID uint32

// Device holds the radio addressing of one half and the last time (ms)
// a frame from it was seen.
type Device struct {
	ID      DeviceID
	Address uint32
	Prefix  byte
	Channel uint8

	LastSeen uint32
	seen     bool
}

// NewDevice returns a device on the shared default address and channel.
func NewDevice(id DeviceID) *Device {
	return &Device{
		ID:      id,
		Address: DefaultAddress,
		Prefix:  DefaultPrefix,
		Channel: DefaultChannel,
	}
}

// UpdateLastSeen records that a frame from d arrived at now.
func (d *Device) UpdateLastSeen(now uint32) {
	d.LastSeen = now
	d.seen = true
}

// IsAlive reports whether d was heard from within timeout ms of now.
func (d *Device) IsAlive(now, timeout uint32) bool {
	return d.seen && now-d.LastSeen < timeout
}
