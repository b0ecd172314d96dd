package telemetry

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// DefaultBaudRate for the serial command port.
const DefaultBaudRate = 115200

// OpenPort opens the real serial command port. A baud rate of 0 uses the
// default.
func OpenPort(name string, baudRate int) (io.ReadWriteCloser, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open command port %s: %w", name, err)
	}
	return port, nil
}
