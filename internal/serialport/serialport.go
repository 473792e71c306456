// Package serialport opens the physical UART behind an io.ReadWriteCloser.
package serialport

import (
	"fmt"
	"io"

	"github.com/tarm/serial"
)

// Open configures and opens the serial device. Reads block; closing the
// port is what unblocks the driver's read pump on shutdown.
func Open(device string, baud int) (io.ReadWriteCloser, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name: device,
		Baud: baud,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", device, err)
	}
	return port, nil
}
