// Package ss58 encodes and decodes Substrate SS58 addresses.
package ss58

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// DefaultPrefix is the network prefix of the staking chain.
const DefaultPrefix uint16 = 117

const (
	publicKeyLen = 32
	checksumLen  = 2
)

var (
	ErrInvalidAddress = errors.New("invalid ss58 address")
	ErrChecksum       = errors.New("ss58 checksum mismatch")
)

var checksumPrefix = []byte("SS58PRE")

// Encode renders a 32-byte public key for the given network prefix.
func Encode(pubKey []byte, prefix uint16) (string, error) {
	if len(pubKey) != publicKeyLen {
		return "", fmt.Errorf("%w: public key has %d bytes", ErrInvalidAddress, len(pubKey))
	}
	if prefix > 16383 {
		return "", fmt.Errorf("%w: prefix %d out of range", ErrInvalidAddress, prefix)
	}

	payload := append(encodePrefix(prefix), pubKey...)
	sum, err := checksum(payload)
	if err != nil {
		return "", err
	}
	return base58.Encode(append(payload, sum[:checksumLen]...)), nil
}

// Decode returns the public key and network prefix of an address.
func Decode(address string) ([]byte, uint16, error) {
	data, err := base58.Decode(address)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if len(data) == 0 {
		return nil, 0, ErrInvalidAddress
	}

	if data[0] > 127 {
		return nil, 0, fmt.Errorf("%w: reserved prefix byte %d", ErrInvalidAddress, data[0])
	}
	prefixLen := 1
	prefix := uint16(data[0])
	if data[0]&0x40 != 0 {
		if len(data) < 2 {
			return nil, 0, ErrInvalidAddress
		}
		prefixLen = 2
		lower := (data[0] << 2) | (data[1] >> 6)
		upper := data[1] & 0x3f
		prefix = uint16(lower) | uint16(upper)<<8
	}

	if len(data) != prefixLen+publicKeyLen+checksumLen {
		return nil, 0, fmt.Errorf("%w: length %d", ErrInvalidAddress, len(data))
	}
	payload := data[:prefixLen+publicKeyLen]
	sum, err := checksum(payload)
	if err != nil {
		return nil, 0, err
	}
	if !bytes.Equal(sum[:checksumLen], data[prefixLen+publicKeyLen:]) {
		return nil, 0, ErrChecksum
	}
	return append([]byte(nil), data[prefixLen:prefixLen+publicKeyLen]...), prefix, nil
}

// Reencode converts an address to the given network prefix.
func Reencode(address string, prefix uint16) (string, error) {
	pub, current, err := Decode(address)
	if err != nil {
		return "", err
	}
	if current == prefix {
		return address, nil
	}
	return Encode(pub, prefix)
}

func encodePrefix(prefix uint16) []byte {
	if prefix < 64 {
		return []byte{byte(prefix)}
	}
	return []byte{
		byte((prefix&0xfc)>>2) | 0x40,
		byte(prefix>>8) | byte((prefix&0x03)<<6),
	}
}

func checksum(payload []byte) ([]byte, error) {
	h, err := blake2b.New512(nil)
	if err != nil {
		return nil, err
	}
	h.Write(checksumPrefix)
	h.Write(payload)
	return h.Sum(nil), nil
}
