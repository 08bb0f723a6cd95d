package encoding

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// MarshalString encodes the given string as a byte array padded with spaces to the given length
func MarshalString(s string, padToLength int) []byte {
	if len(s) > padToLength {
		s = s[:padToLength]
	}
	missingPadding := padToLength - len(s)
	s = s + strings.Repeat(" ", missingPadding)
	return []byte(s)
}

// UnmarshalInt32LSBMSB decodes a 32-bit integer in both byte orders, as defined in ECMA-119 7.3.3
func UnmarshalInt32LSBMSB(data []byte) (int32, error) {
	if len(data) < 8 {
		return 0, io.ErrUnexpectedEOF
	}

	lsb := int32(binary.LittleEndian.Uint32(data[0:4]))
	msb := int32(binary.BigEndian.Uint32(data[4:8]))

	if lsb != msb {
		return 0, fmt.Errorf("little-endian and big-endian value mismatch: %d != %d", lsb, msb)
	}

	return lsb, nil
}

// UnmarshalUint32LSBMSB is the same as UnmarshalInt32LSBMSB but returns an unsigned integer
func UnmarshalUint32LSBMSB(data []byte) (uint32, error) {
	n, err := UnmarshalInt32LSBMSB(data)
	return uint32(n), err
}

// UnmarshalInt16LSBMSB decodes a 16-bit integer in both byte orders, as defined in ECMA-119 7.2.3
func UnmarshalInt16LSBMSB(data []byte) (int16, error) {
	if len(data) < 4 {
		return 0, io.ErrUnexpectedEOF
	}

	lsb := int16(binary.LittleEndian.Uint16(data[0:2]))
	msb := int16(binary.BigEndian.Uint16(data[2:4]))

	if lsb != msb {
		return 0, fmt.Errorf("little-endian and big-endian value mismatch: %d != %d", lsb, msb)
	}

	return lsb, nil
}

// WriteInt32LSBMSB writes a 32-bit integer in both byte orders, as defined in ECMA-119 7.3.3
func WriteInt32LSBMSB(dst []byte, value int32) {
	_ = dst[7] // early bounds check to guarantee safety of writes below
	binary.LittleEndian.PutUint32(dst[0:4], uint32(value))
	binary.BigEndian.PutUint32(dst[4:8], uint32(value))
}

// WriteInt16LSBMSB writes a 16-bit integer in both byte orders, as defined in ECMA-119 7.2.3
func WriteInt16LSBMSB(dst []byte, value int16) {
	_ = dst[3] // early bounds check to guarantee safety of writes below
	binary.LittleEndian.PutUint16(dst[0:2], uint16(value))
	binary.BigEndian.PutUint16(dst[2:4], uint16(value))
}

// OSTA compression IDs (OSTA UDF 2.1.1).
const (
	CompressionLatin1 = 8
	CompressionUCS2   = 16
)

// DecodeCS0 decodes an OSTA compressed Unicode identifier as used in File Identifier Descriptors. The first
// byte selects 8-bit (Latin-1) or 16-bit (UCS-2 big endian) characters. Decoding stops at the first NUL.
func DecodeCS0(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	var (
		out []byte
		err error
	)
	switch data[0] {
	case CompressionLatin1:
		out, err = charmap.ISO8859_1.NewDecoder().Bytes(data[1:])
	case CompressionUCS2:
		body := data[1:]
		if len(body)%2 != 0 {
			body = body[:len(body)-1]
		}
		out, err = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(body)
	default:
		return "", fmt.Errorf("unsupported compression id %d", data[0])
	}
	if err != nil {
		return "", err
	}
	s := string(out)
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return s, nil
}

// DecodeDString decodes a fixed-size UDF dstring field (ECMA-167 1/7.2.12): the last byte holds the number of
// bytes used, including the compression ID.
func DecodeDString(field []byte) (string, error) {
	if len(field) == 0 {
		return "", nil
	}
	used := int(field[len(field)-1])
	if used == 0 {
		return "", nil
	}
	if used > len(field)-1 {
		return "", fmt.Errorf("dstring length %d exceeds field size %d", used, len(field)-1)
	}
	return DecodeCS0(field[:used])
}

// EncodeLatin1 converts s to Latin-1 bytes, replacing runes outside the code page with '?'.
func EncodeLatin1(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if b, ok := charmap.ISO8859_1.EncodeRune(r); ok {
			out = append(out, b)
		} else {
			out = append(out, '?')
		}
	}
	return out
}

// TrimIdentifier removes the space and NUL padding that ISO9660 puts after identifiers.
func TrimIdentifier(data []byte) string {
	return strings.TrimRight(string(data), " \x00")
}
