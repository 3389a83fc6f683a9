package link

// DNP3 CRC-16, polynomial 0x3D65 (reversed 0xA6BC), final value inverted.

var crcTable [256]uint16

func init() {
	const poly uint16 = 0xA6BC
	for i := range crcTable {
		crc := uint16(i)
		for j := 0; j < 8; j++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ poly
			} else {
				crc >>= 1
			}
		}
		crcTable[i] = crc
	}
}

// CalculateCRC calculates DNP3 CRC-16 for the given data
func CalculateCRC(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = crcTable[byte(crc)^b] ^ (crc >> 8)
	}
	return ^crc
}

// VerifyCRC checks the little-endian CRC in the last two bytes of data
func VerifyCRC(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	n := len(data) - 2
	received := uint16(data[n]) | uint16(data[n+1])<<8
	return CalculateCRC(data[:n]) == received
}

// AddCRCs inserts a CRC after every 16-byte block of data
func AddCRCs(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}

	numBlocks := (len(data) + BlockSize - 1) / BlockSize
	result := make([]byte, 0, len(data)+numBlocks*2)
	for i := 0; i < len(data); i += BlockSize {
		end := min(i+BlockSize, len(data))
		block := data[i:end]
		crc := CalculateCRC(block)
		result = append(result, block...)
		result = append(result, byte(crc), byte(crc>>8))
	}
	return result
}

// RemoveCRCs verifies and strips the block CRCs added by AddCRCs
func RemoveCRCs(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	result := make([]byte, 0, len(data))
	for pos := 0; pos < len(data); {
		blockSize := min(BlockSize, len(data)-pos-2)
		if blockSize <= 0 {
			return nil, ErrInvalidCRC
		}
		if !VerifyCRC(data[pos : pos+blockSize+2]) {
			return nil, ErrInvalidCRC
		}
		result = append(result, data[pos:pos+blockSize]...)
		pos += blockSize + 2
	}
	return result, nil
}

// WireSize returns the encoded size of a frame carrying dataLen user bytes
func WireSize(dataLen int) int {
	numBlocks := (dataLen + BlockSize - 1) / BlockSize
	return HeaderSize + dataLen + numBlocks*2
}
