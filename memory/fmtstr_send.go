package memory

import (
	"bytes"
	"fmt"
)

// ProcessIO abstracts the input/output of a running software process.
type ProcessIO interface {
	// WriteLine writes the specified []byte to the process
	// and appends a new line.
	WriteLine(p []byte) error

	// ReadUntil blocks and attempts to read from the process'
	// output until the specified []byte is found, returning
	// the data read, including the specified []byte.
	ReadUntil(p []byte) ([]byte, error)
}

// SendToOrExit calls SendTo. It calls DefaultExitFn if an error occurs.
func (o *FormatStringPayload) SendToOrExit(process ProcessIO) []byte {
	output, err := o.SendTo(process)
	if err != nil {
		DefaultExitFn(err)
	}
	return output
}

// SendTo writes the payload to process as a single line and reads the
// process' output until the payload's marker is found. The output that
// precedes the marker is returned.
//
// Programs that read lines of input will stop reading at the first
// new line character. An error is returned if the payload contains
// one, as the rest of the payload would be lost.
func (o *FormatStringPayload) SendTo(process ProcessIO) ([]byte, error) {
	if i := bytes.IndexByte(o.Payload, '\n'); i > -1 {
		return nil, fmt.Errorf("payload contains a new line character at index %d", i)
	}

	err := process.WriteLine(o.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to write format string to process - %w", err)
	}

	output, err := process.ReadUntil(o.Marker)
	if err != nil {
		return nil, fmt.Errorf("failed to find marker in process output - %w", err)
	}

	return bytes.TrimSuffix(output, o.Marker), nil
}
