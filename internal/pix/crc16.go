package pix

import "fmt"

const crcPolynomial = 0x1021

// Checksum computes the CRC-16/CCITT-FALSE of the payload and renders it as
// four uppercase hexadecimal digits, the form banking apps expect in the
// trailing field of a BR Code.
func Checksum(payload string) string {
	reg := 0xFFFF
	for i := 0; i < len(payload); i++ {
		reg ^= int(payload[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if reg&0x8000 != 0 {
				reg = (reg << 1) ^ crcPolynomial
			} else {
				reg <<= 1
			}
			reg &= 0xFFFF
		}
	}
	return fmt.Sprintf("%04X", reg)
}
