package jpegls

import "fmt"

// golombCode is one entry of a decoding table: the unmapped error value and
// the codeword length. A zero length means the codeword is longer than the
// eight bit lookahead.
type golombCode struct {
	value  int
	length int
}

type golombCodeTable [256]golombCode

// decodingTables holds a table per k for the codewords that fit in a byte.
// It is built once and only read afterwards.
var decodingTables = buildDecodingTables()

func buildDecodingTables() [16]golombCodeTable {
	var tables [16]golombCodeTable
	for k := range tables {
		tables[k] = createDecodingTable(k)
	}
	return tables
}

func createDecodingTable(k int) golombCodeTable {
	var table golombCodeTable
	for errVal := 0; ; errVal++ {
		length, code := encodedValue(k, mapErrorValue(errVal))
		if length > 8 {
			break
		}
		table.add(code, golombCode{value: errVal, length: length})
	}
	for errVal := -1; ; errVal-- {
		length, code := encodedValue(k, mapErrorValue(errVal))
		if length > 8 {
			break
		}
		table.add(code, golombCode{value: errVal, length: length})
	}
	return table
}

// add fills every lookahead byte that starts with the codeword.
func (t *golombCodeTable) add(code int, c golombCode) {
	shift := 8 - c.length
	for i := 0; i < 1<<shift; i++ {
		t[code<<shift+i] = c
	}
}

// encodedValue returns the length and bits of the non-escaped codeword.
func encodedValue(k, mapped int) (int, int) {
	highBits := mapped >> k
	return highBits + k + 1, 1<<k | mapped&(1<<k-1)
}

// mapErrorValue interleaves signed errors onto 0, 1, 2, ...: 0, -1, 1, -2, 2.
func mapErrorValue(errVal int) int {
	if errVal >= 0 {
		return 2 * errVal
	}
	return -2*errVal - 1
}

func unmapErrorValue(mapped int) int {
	if mapped&1 == 0 {
		return mapped >> 1
	}
	return -(mapped >> 1) - 1
}

// WriteGolomb writes a mapped error value with Golomb parameter k. A unary
// part of limit-qbpp-1 or more zero bits is replaced by the escape code:
// limit-qbpp-1 zeros, a one, and mapped-1 in qbpp bits. No codeword is
// longer than limit bits.
func (bw *BitWriter) WriteGolomb(k, mapped, limit, qbpp int) error {
	highBits := mapped >> k
	if highBits < limit-qbpp-1 {
		if err := bw.writeZeros(highBits); err != nil {
			return err
		}
		if err := bw.WriteBits(1, 1); err != nil {
			return err
		}
		return bw.WriteBits(uint32(mapped&(1<<k-1)), k)
	}

	if err := bw.writeZeros(limit - qbpp - 1); err != nil {
		return err
	}
	if err := bw.WriteBits(1, 1); err != nil {
		return err
	}
	return bw.WriteBits(uint32(mapped-1)&(1<<qbpp-1), qbpp)
}

// ReadGolomb reads a mapped error value written by WriteGolomb.
func (br *BitReader) ReadGolomb(k, limit, qbpp int) (int, error) {
	escape := limit - qbpp - 1
	highBits, err := br.readHighBits(escape)
	if err != nil {
		return 0, err
	}
	if highBits < escape {
		low, err := br.ReadBits(k)
		if err != nil {
			return 0, err
		}
		return highBits<<k | int(low), nil
	}

	raw, err := br.ReadBits(qbpp)
	if err != nil {
		return 0, err
	}
	mapped := int(raw) + 1
	if mapped>>k < escape {
		return 0, fmt.Errorf("%w: escaped value %d fits a regular codeword (k=%d)", ErrInvalidEncodedData, mapped, k)
	}
	return mapped, nil
}
