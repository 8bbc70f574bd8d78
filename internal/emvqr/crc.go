package emvqr

import "fmt"

const crcPoly = 0x1021

// CRC16 computes CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF, no reflection, no final xor).
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ crcPoly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func checksumHex(s string) string {
	return fmt.Sprintf("%04X", CRC16([]byte(s)))
}
