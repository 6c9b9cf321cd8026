package memory

import (
	"bytes"
	"log"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/stephen-fox/fmtkit/fmtsim"
)

func simulate(t *testing.T, w *FormatStringWriter, payload *FormatStringPayload) *fmtsim.Result {
	t.Helper()

	result, err := fmtsim.Run(payload.Payload, fmtsim.Config{
		PointerSizeBytes:    w.PointerSizeBytes(),
		ParamOffset:         w.ParamOffset(),
		BytesAlreadyWritten: w.BytesAlreadyWritten(),
	})
	require.NoError(t, err)

	return result
}

func TestFormatStringWriter_Build_64(t *testing.T) {
	require := require.New(t)

	w, err := NewFormatStringWriter(FormatStringWriterConfig{
		PointerSizeBytes:    8,
		BytesAlreadyWritten: 32,
		OptParamOffset:      7,
	})
	require.NoError(err)
	require.Zero(w.Padding())

	require.NoError(w.SetUint(0x601018, 0x400626))
	require.Equal(8, w.Table().Len())

	payload, err := w.Build()
	require.NoError(err)

	pm := PointerMakerForX86_64()
	exp := bytes.NewBufferString("%224c%25$hhn%26$hhn%27$hhn%28$hhn%29$hhn%6c%30$hhn%32c%31$hhn%26c%32$hhn")
	exp.WriteString("DEADBEEF")
	exp.Write(bytes.Repeat([]byte{'.'}, 31))
	exp.WriteByte(0x00)
	for _, addr := range []uint64{0x60101b, 0x60101c, 0x60101d, 0x60101e, 0x60101f, 0x601019, 0x601018, 0x60101a} {
		exp.Write(pm.FromUint(addr).Bytes())
	}

	require.Equal(exp.Bytes(), payload.Payload)
	require.Len(payload.Payload, 176)
	require.Equal([]byte(DefaultSignature), payload.Signature)
	require.Equal(append([]byte("DEADBEEF"), bytes.Repeat([]byte{'.'}, 31)...), payload.Marker)
	require.Zero(w.Table().Len())

	result := simulate(t, w, payload)
	require.Equal(map[uint64]byte{
		0x601018: 0x26,
		0x601019: 0x06,
		0x60101a: 0x40,
		0x60101b: 0x00,
		0x60101c: 0x00,
		0x60101d: 0x00,
		0x60101e: 0x00,
		0x60101f: 0x00,
	}, result.Memory)
}

func TestFormatStringWriter_Build_32(t *testing.T) {
	require := require.New(t)

	w, err := NewFormatStringWriter(FormatStringWriterConfig{
		PointerSizeBytes:    4,
		BytesAlreadyWritten: 3,
	})
	require.NoError(err)
	require.Equal(1, w.ParamOffset())
	require.Equal(1, w.Padding())

	require.NoError(w.SetString(0x804a010, "AB"))

	payload, err := w.Build()
	require.NoError(err)

	exp := []byte(".%61c%11$hhn%1c%12$hhnDEADBEEF......\x00\x10\xa0\x04\x08\x11\xa0\x04\x08")
	require.Equal(exp, payload.Payload)
	require.Equal([]byte("DEADBEEF......"), payload.Marker)

	result := simulate(t, w, payload)
	require.Equal(map[uint64]byte{0x804a010: 'A', 0x804a011: 'B'}, result.Memory)
	require.Equal([]int{61, 1}, result.PaddingWidths)
}

func TestFormatStringWriter_AlignmentPadding(t *testing.T) {
	for _, ptrSize := range []int{4, 8} {
		for written := 0; written < 64; written++ {
			w, err := NewFormatStringWriter(FormatStringWriterConfig{
				PointerSizeBytes:    ptrSize,
				BytesAlreadyWritten: written,
			})
			require.NoError(t, err)

			padding := w.Padding()
			require.GreaterOrEqual(t, padding, 0)
			require.Less(t, padding, ptrSize)
			require.Zero(t, (written+padding)%ptrSize)
		}
	}
}

func TestFormatStringWriter_DefaultParamOffset(t *testing.T) {
	w, err := NewFormatStringWriter(FormatStringWriterConfig{PointerSizeBytes: 4})
	require.NoError(t, err)
	require.Equal(t, 1, w.ParamOffset())

	w, err = NewFormatStringWriter(FormatStringWriterConfig{PointerSizeBytes: 8})
	require.NoError(t, err)
	require.Equal(t, 6, w.ParamOffset())

	w, err = NewFormatStringWriter(FormatStringWriterConfig{PointerSizeBytes: 8, OptParamOffset: 12})
	require.NoError(t, err)
	require.Equal(t, 12, w.ParamOffset())
}

func TestNewFormatStringWriter_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config FormatStringWriterConfig
		err    error
	}{
		{
			name:   "zero pointer size",
			config: FormatStringWriterConfig{},
			err:    ErrUnsupportedPointerSize,
		},
		{
			name:   "16-bit pointers",
			config: FormatStringWriterConfig{PointerSizeBytes: 2},
			err:    ErrUnsupportedPointerSize,
		},
		{
			name:   "negative bytes written",
			config: FormatStringWriterConfig{PointerSizeBytes: 8, BytesAlreadyWritten: -1},
			err:    ErrInvalidConfig,
		},
		{
			name:   "negative param offset",
			config: FormatStringWriterConfig{PointerSizeBytes: 8, OptParamOffset: -6},
			err:    ErrInvalidConfig,
		},
		{
			name:   "signature contains specifier",
			config: FormatStringWriterConfig{PointerSizeBytes: 8, OptSignature: []byte("%p")},
			err:    ErrInvalidConfig,
		},
		{
			name:   "signature contains null",
			config: FormatStringWriterConfig{PointerSizeBytes: 8, OptSignature: []byte("AB\x00")},
			err:    ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFormatStringWriter(tt.config)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestFormatStringWriter_ResetThenBuild(t *testing.T) {
	for _, ptrSize := range []int{4, 8} {
		require := require.New(t)

		w, err := NewFormatStringWriter(FormatStringWriterConfig{
			PointerSizeBytes:    ptrSize,
			BytesAlreadyWritten: 5,
		})
		require.NoError(err)

		require.NoError(w.SetUint(0x1000, 0x41414141))
		w.Reset()
		require.Zero(w.Table().Len())

		payload, err := w.Build()
		require.NoError(err)

		require.NotContains(string(payload.Payload), "$hhn")
		require.Len(payload.Payload, w.Padding()+markerReserveLen+ptrSize)
		require.True(bytes.HasPrefix(payload.Payload[w.Padding():], payload.Marker))
		require.Equal(byte(0x00), payload.Payload[len(payload.Payload)-1])

		result := simulate(t, w, payload)
		require.Empty(result.Writes)
	}
}

func TestFormatStringWriter_BuildClearsTable(t *testing.T) {
	require := require.New(t)

	w, err := NewFormatStringWriter(FormatStringWriterConfig{PointerSizeBytes: 8})
	require.NoError(err)

	require.NoError(w.SetBytes(0x601040, []byte("/bin/sh\x00")))

	first, err := w.Build()
	require.NoError(err)
	require.Zero(w.Table().Len())

	second, err := w.Build()
	require.NoError(err)
	require.Less(len(second.Payload), len(first.Payload))
}

func TestFormatStringWriter_LengthIsDeterministic(t *testing.T) {
	require := require.New(t)

	w, err := NewFormatStringWriter(FormatStringWriterConfig{
		PointerSizeBytes:    8,
		BytesAlreadyWritten: 13,
		OptParamOffset:      10,
	})
	require.NoError(err)

	record := func() {
		require.NoError(w.SetUint(0x601018, 0x7ffff7a52390))
		require.NoError(w.SetString(0x601100, "cat flag.txt"))
	}

	record()
	first, err := w.Build()
	require.NoError(err)

	record()
	second, err := w.Build()
	require.NoError(err)

	require.Equal(first.Payload, second.Payload)
	require.Equal(first.Marker, second.Marker)
}

func TestFormatStringWriter_LastWriteWins(t *testing.T) {
	require := require.New(t)

	w, err := NewFormatStringWriter(FormatStringWriterConfig{PointerSizeBytes: 4})
	require.NoError(err)

	require.NoError(w.SetUint(0x804a000, 0x41414141))
	require.NoError(w.SetUint(0x804a000, 0x42424242))
	require.NoError(w.SetBytes(0x804a003, []byte{0x43}))

	payload, err := w.Build()
	require.NoError(err)

	result := simulate(t, w, payload)
	require.Len(result.Writes, 4)
	require.Equal(map[uint64]byte{
		0x804a000: 0x42,
		0x804a001: 0x42,
		0x804a002: 0x42,
		0x804a003: 0x43,
	}, result.Memory)
}

func TestFormatStringWriter_InvalidValueDoesNotModifyTable(t *testing.T) {
	require := require.New(t)

	w, err := NewFormatStringWriter(FormatStringWriterConfig{PointerSizeBytes: 4})
	require.NoError(err)

	require.ErrorIs(w.SetAny(0x1000, struct{}{}), ErrInvalidValueType)
	require.ErrorIs(w.SetUint(0x1000, 0x7ffff7a52390), ErrValueOutOfRange)
	require.Zero(w.Table().Len())
}

func TestFormatStringWriter_LongSignatureGrowsReservation(t *testing.T) {
	require := require.New(t)

	signature := []byte("THIS-IS-A-VERY-LONG-SIGNATURE")

	w, err := NewFormatStringWriter(FormatStringWriterConfig{
		PointerSizeBytes: 8,
		OptSignature:     signature,
	})
	require.NoError(err)

	require.NoError(w.SetUint(0x601018, 0x400626))

	payload, err := w.Build()
	require.NoError(err)

	require.Equal(signature, payload.Signature)
	require.True(bytes.HasPrefix(payload.Marker, signature))
	require.Zero(len(payload.Payload) % 8)

	result := simulate(t, w, payload)
	require.Len(result.Memory, 8)
	require.Equal(byte(0x26), result.Memory[0x601018])
}

func TestFormatStringWriter_BuildLogsFirstParam(t *testing.T) {
	tests := []struct {
		name       string
		signature  []byte
		firstParam string
		logged     string
	}{
		{
			name:       "default reservation",
			firstParam: "%20$hhn",
			logged:     "112 reserved bytes, first parameter: 20,",
		},
		{
			name:       "grown reservation",
			signature:  bytes.Repeat([]byte{'A'}, 50),
			firstParam: "%21$hhn",
			logged:     "120 reserved bytes, first parameter: 21,",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := bytes.NewBuffer(nil)

			w, err := NewFormatStringWriter(FormatStringWriterConfig{
				PointerSizeBytes: 8,
				OptSignature:     tt.signature,
				OptLogger:        log.New(logs, "", 0),
			})
			require.NoError(t, err)

			require.NoError(t, w.SetUint(0x601018, 0x400626))

			payload, err := w.Build()
			require.NoError(t, err)

			require.True(t, bytes.HasPrefix(payload.Payload, []byte(tt.firstParam)))
			require.Contains(t, logs.String(), tt.logged)
		})
	}
}

// TestFormatStringWriter_RoundTrip builds payloads for random writes and
// checks that simulating them produces exactly the recorded bytes.
func TestFormatStringWriter_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1337))

	for i := 0; i < 300; i++ {
		ptrSize := 4
		if rng.Intn(2) == 1 {
			ptrSize = 8
		}

		config := FormatStringWriterConfig{
			PointerSizeBytes:    ptrSize,
			BytesAlreadyWritten: rng.Intn(300),
			OptParamOffset:      rng.Intn(20),
		}

		w, err := NewFormatStringWriter(config)
		require.NoError(t, err)

		// Enough writes to need three digit parameter numbers.
		numWrites := rng.Intn(40)
		for j := 0; j < numWrites; j++ {
			addr := uint64(0x804a000 + rng.Intn(256))
			switch rng.Intn(3) {
			case 0:
				require.NoError(t, w.SetUint(addr, uint64(rng.Uint32())))
			case 1:
				b := make([]byte, rng.Intn(16))
				rng.Read(b)
				require.NoError(t, w.SetBytes(addr, b))
			default:
				require.NoError(t, w.SetString(addr, "/bin/sh"))
			}
		}

		exp := make(map[uint64]byte)
		for _, write := range w.Table().Entries() {
			exp[write.Address] = write.Value
		}

		payload, err := w.Build()
		require.NoError(t, err)

		require.Zero(t, (len(payload.Payload)-w.Padding())%ptrSize)

		result := simulate(t, w, payload)
		require.Len(t, result.Writes, len(exp))
		require.Equal(t, exp, result.Memory)

		for _, width := range result.PaddingWidths {
			require.GreaterOrEqual(t, width, 1)
			require.LessOrEqual(t, width, 255)
		}
	}
}
