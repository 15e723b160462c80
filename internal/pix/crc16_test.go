package pix

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		// 0x29B1 is the published CRC-16/CCITT-FALSE check value.
		{"reference check value", "123456789", "29B1"},
		{"empty payload", "", "FFFF"},
		{"plain text", "hello pix", "646A"},
		{
			"scanned payload prefix",
			"00020126420014br.gov.bcb.pix0120igorwagner@gmail.com520400005303986540530.005802BR5911IGOR WAGNER6006BRASIL62070503***6304",
			"58BB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Checksum(tt.payload))
		})
	}
}

func TestChecksumIsStable(t *testing.T) {
	payload := "000201"
	first := Checksum(payload)
	assert.Equal(t, first, Checksum(payload))
	assert.Len(t, first, 4)
}
