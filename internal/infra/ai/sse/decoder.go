// Package sse decodes OpenAI style chat completion event streams into text
// deltas without buffering the whole response.
package sse

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"strings"
)

const (
	defaultChunkSize  = 4 << 10
	defaultMaxPending = 4 << 20

	donePayload = "[DONE]"
)

var dataPrefix = []byte("data:")

// chunkFrame is the part of a streamed completion chunk we care about:
// choices[0].delta.content.
type chunkFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Decoder pulls bytes from an event stream and yields content deltas.
//
// Bytes are processed line by line; a line is only looked at once its '\n'
// has arrived, so arbitrary chunk boundaries produce the same output. A data
// line whose payload does not parse stays at the head of the pending buffer
// and decoding waits for the next read.
type Decoder struct {
	r          io.ReadCloser
	chunk      []byte
	pending    []byte
	maxPending int

	queue []string
	delta string
	text  strings.Builder

	done   bool
	desync bool
	closed bool
	err    error
	reads  int
}

type Option func(*Decoder)

// WithChunkSize sets the size of a single read from the body.
func WithChunkSize(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.chunk = make([]byte, n)
		}
	}
}

// WithMaxPending bounds the bytes kept while waiting for a line to complete.
func WithMaxPending(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.maxPending = n
		}
	}
}

func NewDecoder(r io.ReadCloser, opts ...Option) *Decoder {
	d := &Decoder{
		r:          r,
		chunk:      make([]byte, defaultChunkSize),
		maxPending: defaultMaxPending,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Next advances to the next delta, reading from the body as needed. It
// returns false at [DONE], at end of stream, on a read error or after Close.
func (d *Decoder) Next() bool {
	for len(d.queue) == 0 {
		if d.done {
			return false
		}
		d.fill()
	}
	d.delta = d.queue[0]
	d.queue = d.queue[1:]
	d.text.WriteString(d.delta)
	return true
}

// Delta returns the delta produced by the last call to Next.
func (d *Decoder) Delta() string { return d.delta }

// Text returns every delta yielded so far, in order.
func (d *Decoder) Text() string { return d.text.String() }

// Err returns the first read error that is not io.EOF.
func (d *Decoder) Err() error { return d.err }

// Desynced reports that some bytes could not be decoded before the stream
// ended: a trailing partial line, an unparseable data line, or pending input
// above the configured limit. Those bytes are dropped.
func (d *Decoder) Desynced() bool { return d.desync }

// Reads returns how many reads were issued against the body.
func (d *Decoder) Reads() int { return d.reads }

// Close stops decoding and closes the body without draining it.
func (d *Decoder) Close() error {
	d.done = true
	d.queue = nil
	d.pending = nil
	if d.closed {
		return nil
	}
	d.closed = true
	return d.r.Close()
}

// Deltas returns the remaining deltas as an iterator. Breaking out of the
// loop closes the body.
func (d *Decoder) Deltas() iter.Seq[string] {
	return func(yield func(string) bool) {
		for d.Next() {
			if !yield(d.delta) {
				_ = d.Close()
				return
			}
		}
	}
}

func (d *Decoder) fill() {
	n, err := d.r.Read(d.chunk)
	d.reads++
	if n > 0 {
		d.feed(d.chunk[:n])
	}
	if d.done || err == nil {
		return
	}
	if !errors.Is(err, io.EOF) {
		d.err = err
	} else if len(bytes.TrimSpace(d.pending)) > 0 {
		d.desync = true
	}
	d.pending = nil
	d.done = true
}

func (d *Decoder) feed(p []byte) {
	d.pending = append(d.pending, p...)

	start := 0
	for !d.done {
		i := bytes.IndexByte(d.pending[start:], '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSuffix(d.pending[start:start+i], []byte{'\r'})
		if !d.handleLine(line) {
			// keep the line, terminator included, and wait for more bytes
			break
		}
		start += i + 1
	}

	if d.done {
		d.pending = nil
		return
	}
	d.pending = append(d.pending[:0], d.pending[start:]...)
	if len(d.pending) > d.maxPending {
		d.desync = true
		d.pending = nil
		d.done = true
	}
}

// handleLine returns false when the line must be kept for a later attempt.
func (d *Decoder) handleLine(line []byte) bool {
	if len(line) == 0 || line[0] == ':' || len(bytes.TrimSpace(line)) == 0 {
		return true
	}
	if !bytes.HasPrefix(line, dataPrefix) {
		return true
	}
	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if len(payload) == 0 {
		return true
	}
	if string(payload) == donePayload {
		d.done = true
		return true
	}

	// only a cut-off line is waited on; well-formed JSON of another shape carries no text
	if !json.Valid(payload) {
		return false
	}
	var frame chunkFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return true
	}
	if len(frame.Choices) > 0 && frame.Choices[0].Delta.Content != "" {
		d.queue = append(d.queue, frame.Choices[0].Delta.Content)
	}
	return true
}

// Decode consumes the whole stream and returns the accumulated text.
func Decode(r io.ReadCloser, opts ...Option) (string, error) {
	d := NewDecoder(r, opts...)
	defer d.Close()
	for d.Next() {
	}
	return d.Text(), d.Err()
}
