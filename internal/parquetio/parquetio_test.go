package parquetio_test

import (
	"encoding/binary"
	"testing"

	"github.com/micromegas/lakehouse/internal/parquetio"
	"github.com/stretchr/testify/require"
)

func TestFooterLengthParsesTrailer(t *testing.T) {
	footer := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x00} // dummy footer bytes
	var lengthBytes [4]byte
	binary.LittleEndian.PutUint32(lengthBytes[:], uint32(len(footer)))
	data := append(append([]byte{}, footer...), lengthBytes[:]...)
	data = append(data, []byte("PAR1")...)

	n, err := parquetio.FooterLength(int64(len(data)), data)
	require.NoError(t, err)
	require.Equal(t, len(footer), n)
}

func TestFooterLengthRejectsMissingMagic(t *testing.T) {
	data := make([]byte, 16)
	_, err := parquetio.FooterLength(int64(len(data)), data)
	require.Error(t, err)
}

func TestFooterLengthRejectsTooSmall(t *testing.T) {
	_, err := parquetio.FooterLength(4, []byte{1, 2, 3, 4})
	require.Error(t, err)
}
