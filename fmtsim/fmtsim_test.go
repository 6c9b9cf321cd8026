package fmtsim

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/stephen-fox/fmtkit/iokit"
)

func TestRun_ByteWrites(t *testing.T) {
	require := require.New(t)

	// 24 bytes of format string, then two pointers.
	payload, err := iokit.NewPayloadBuilder().
		String("%65c%7$hhn%1c%8$hhn").
		RepeatString(".", 4).
		String("\x00").
		Uint64(0x601018).
		Uint64(0x601019).
		Result()
	require.NoError(err)

	result, err := Run(payload, Config{
		PointerSizeBytes: 8,
		ParamOffset:      4,
	})
	require.NoError(err)

	require.Equal([]Write{
		{Param: 7, Address: 0x601018, Value: 'A'},
		{Param: 8, Address: 0x601019, Value: 'B'},
	}, result.Writes)
	require.Equal(map[uint64]byte{0x601018: 'A', 0x601019: 'B'}, result.Memory)
	require.Equal([]int{65, 1}, result.PaddingWidths)
	require.Equal(66+4, result.Printed)
}

func TestRun_BytesAlreadyWritten(t *testing.T) {
	require := require.New(t)

	payload, err := iokit.NewPayloadBuilder().
		String("%4$hhn..\x00").
		Uint32(0x804a010, binary.LittleEndian).
		Result()
	require.NoError(err)

	// The 3 bytes before the payload and the 9 bytes of format
	// string are 3 pointers long, so the address is in parameter 4.
	result, err := Run(payload, Config{
		PointerSizeBytes:    4,
		ParamOffset:         1,
		BytesAlreadyWritten: 3,
	})
	require.NoError(err)

	require.Equal(map[uint64]byte{0x804a010: 3}, result.Memory)
	require.Equal(5, result.Printed)
}

func TestRun_CounterWraps(t *testing.T) {
	require := require.New(t)

	payload, err := iokit.NewPayloadBuilder().
		String("%255c%5$hhn\x00").
		Uint32(0x1000).
		Result()
	require.NoError(err)

	result, err := Run(payload, Config{
		PointerSizeBytes:    4,
		ParamOffset:         1,
		BytesAlreadyWritten: 4,
	})
	require.NoError(err)

	require.Equal(byte(3), result.Memory[0x1000])
	require.Equal(259, result.Printed)
}

func TestRun_PercentLiteralAndNull(t *testing.T) {
	result, err := Run([]byte("100%%\x00%p%p%p"), Config{
		PointerSizeBytes: 8,
		ParamOffset:      6,
	})
	require.NoError(t, err)
	require.Empty(t, result.Writes)
	require.Equal(t, 4, result.Printed)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name   string
		str    string
		config Config
		err    error
	}{
		{
			name:   "unsupported conversion",
			str:    "%p",
			config: Config{PointerSizeBytes: 8, ParamOffset: 6},
			err:    ErrUnsupportedSpecifier,
		},
		{
			name:   "full width write",
			str:    "%6$n",
			config: Config{PointerSizeBytes: 8, ParamOffset: 6},
			err:    ErrUnsupportedSpecifier,
		},
		{
			name:   "truncated",
			str:    "AAAA%12",
			config: Config{PointerSizeBytes: 8, ParamOffset: 6},
			err:    ErrUnsupportedSpecifier,
		},
		{
			name:   "parameter before format string",
			str:    "%1$hhn\x00AAAAAAAAAA",
			config: Config{PointerSizeBytes: 8, ParamOffset: 6},
			err:    ErrParamOutOfRange,
		},
		{
			name:   "parameter past end",
			str:    "%9$hhn\x00A",
			config: Config{PointerSizeBytes: 8, ParamOffset: 6},
			err:    ErrParamOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run([]byte(tt.str), tt.config)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	_, err := Run(nil, Config{PointerSizeBytes: 2, ParamOffset: 1})
	require.Error(t, err)

	_, err = Run(nil, Config{PointerSizeBytes: 4})
	require.Error(t, err)

	_, err = Run(nil, Config{PointerSizeBytes: 4, ParamOffset: 1, BytesAlreadyWritten: -1})
	require.Error(t, err)
}
