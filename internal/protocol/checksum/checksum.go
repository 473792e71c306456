// Package checksum holds the integrity primitives of the wire protocol.
//
// Ownership boundary:
// - the XOR frame checksum guarding every data frame
// - CRC-16/AUG-CCITT used by firmware transfer payloads
package checksum

// XorSum folds buf into a single byte, seeded with 0xFF. The frame codec
// computes it over the length byte and the payload.
func XorSum(buf []byte) byte {
	sum := byte(0xFF)
	for _, b := range buf {
		sum ^= b
	}
	return sum
}

const (
	crcInit uint16 = 0x1D0F
	crcPoly uint16 = 0x1021
)

// CRC16 computes CRC-16/AUG-CCITT over buf in one call.
func CRC16(buf []byte) uint16 {
	var d CRC16Digest
	d.Reset()
	d.Write(buf)
	return d.Sum16()
}

// CRC16Digest accumulates CRC-16/AUG-CCITT incrementally, for payloads
// that arrive in chunks. The zero value is not ready; call Reset first or
// use CRC16.
type CRC16Digest struct {
	crc uint16
}

func (d *CRC16Digest) Reset() {
	d.crc = crcInit
}

func (d *CRC16Digest) WriteByte(b byte) error {
	d.crc ^= uint16(b) << 8
	for i := 0; i < 8; i++ {
		if d.crc&0x8000 != 0 {
			d.crc = d.crc<<1 ^ crcPoly
		} else {
			d.crc <<= 1
		}
	}
	return nil
}

func (d *CRC16Digest) Write(buf []byte) {
	for _, b := range buf {
		d.WriteByte(b)
	}
}

func (d *CRC16Digest) Sum16() uint16 {
	return d.crc
}
