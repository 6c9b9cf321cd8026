// Package process provides input/output for local and remote programs
// that payloads are sent to.
package process

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os/exec"
	"sync"
)

// StartOrExit calls Start. It calls DefaultExitFn if an error occurs.
func StartOrExit(cmd *exec.Cmd) *Process {
	p, err := Start(cmd)
	if err != nil {
		DefaultExitFn(fmt.Errorf("failed to start process - %w", err))
	}
	return p
}

// Start starts cmd and returns a *Process connected to its stdin
// and stdout. Close kills the process if it has not exited.
func Start(cmd *exec.Cmd) (*Process, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe - %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe - %w", err)
	}

	err = cmd.Start()
	if err != nil {
		return nil, fmt.Errorf("failed to start process - %w", err)
	}

	proc := &Process{
		input:  stdin,
		output: bufio.NewReader(stdout),
	}

	waitDone := make(chan struct{})
	proc.done = func() error {
		if !proc.HasExited() {
			_ = cmd.Process.Kill()
		}
		<-waitDone

		proc.mu.Lock()
		defer proc.mu.Unlock()
		return proc.exitErr
	}

	go func() {
		err := cmd.Wait()
		proc.mu.Lock()
		proc.exited = true
		proc.exitErr = err
		proc.mu.Unlock()
		close(waitDone)
	}()

	return proc, nil
}

// DialOrExit calls Dial. It calls DefaultExitFn if an error occurs.
func DialOrExit(network string, address string) *Process {
	p, err := Dial(network, address)
	if err != nil {
		DefaultExitFn(fmt.Errorf("failed to dial program - %w", err))
	}
	return p
}

// Dial connects to a remote program.
func Dial(network string, address string) (*Process, error) {
	c, err := net.Dial(network, address)
	if err != nil {
		return nil, err
	}

	return FromNetConn(c), nil
}

// FromNetConn returns a *Process that reads from and writes to c.
// Close closes c.
func FromNetConn(c net.Conn) *Process {
	return &Process{
		input:  c,
		output: bufio.NewReader(c),
		done:   c.Close,
	}
}

// Process is a running program that can be written to and read from.
// Methods that read from a Process should not be called concurrently.
type Process struct {
	input  io.Writer
	output *bufio.Reader
	done   func() error
	logger *log.Logger

	mu      sync.Mutex
	exited  bool
	exitErr error
}

// SetLogger sets an optional logger that receives a copy of the
// data written to and read from the process.
func (o *Process) SetLogger(logger *log.Logger) {
	o.logger = logger
}

// HasExited returns true if the process was started by Start
// and has exited.
func (o *Process) HasExited() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.exited
}

// Close releases the process' resources.
func (o *Process) Close() error {
	return o.done()
}

// WriteLine writes p followed by a new line character.
func (o *Process) WriteLine(p []byte) error {
	if o.logger != nil {
		o.logger.Printf("writing line: 0x%x", p)
	}

	line := make([]byte, 0, len(p)+1)
	line = append(line, p...)
	line = append(line, '\n')

	_, err := o.input.Write(line)
	return err
}

// ReadLineOrExit calls ReadLine. It calls DefaultExitFn
// if an error occurs.
func (o *Process) ReadLineOrExit() []byte {
	p, err := o.ReadLine()
	if err != nil {
		DefaultExitFn(fmt.Errorf("failed to read line from process - %w", err))
	}
	return p
}

// ReadLine reads until a new line character is found. The new line
// character is included in the returned []byte.
func (o *Process) ReadLine() ([]byte, error) {
	p, err := o.output.ReadBytes('\n')
	if err != nil {
		return nil, err
	}

	if o.logger != nil {
		o.logger.Printf("read line: %q", p)
	}

	return p, nil
}

// ReadUntil reads until p is found. The returned []byte includes p.
func (o *Process) ReadUntil(p []byte) ([]byte, error) {
	if len(p) == 0 {
		return nil, errors.New("cannot read until an empty delimiter")
	}

	last := p[len(p)-1]
	buff := bytes.NewBuffer(nil)

	for {
		chunk, err := o.output.ReadBytes(last)
		buff.Write(chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to find 0x%x in %d bytes of output - %w",
				p, buff.Len(), err)
		}

		if bytes.HasSuffix(buff.Bytes(), p) {
			if o.logger != nil {
				o.logger.Printf("read until 0x%x: %q", p, buff.Bytes())
			}
			return buff.Bytes(), nil
		}
	}
}
