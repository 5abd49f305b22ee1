package hid

// Report IDs of the composite keyboard + consumer descriptor.
const (
	ReportIDKeyboard uint8 = 0x01
	ReportIDConsumer uint8 = 0x02
)

// Transport delivers input reports to the host. Only the Primary half owns
// one.
type Transport interface {
	SendInputReport(reportID uint8, data []byte) error
}
