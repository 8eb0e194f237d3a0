// Package jsonw is an append-only streaming JSON writer. Values are written as
// they arrive; nothing is buffered beyond the underlying bufio.Writer.
package jsonw

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"strconv"
)

// Writer is the narrow sink contract the tree serializer depends on.
type Writer interface {
	WriteStartObject()
	WriteEndObject()
	WriteStartArray()
	WriteEndArray()
	WritePropertyName(name string)
	WritePropertyStartArray(name string)
	WriteProperty(name, value string)
	WriteValue(value string)
	WriteValueFromParts(a, sep, b string)
}

var (
	ErrUnbalanced = errors.New("jsonw: unbalanced containers")
	ErrNoProperty = errors.New("jsonw: property name outside of an object")
)

type frame struct {
	object bool
	count  int
}

// Stream writes compact JSON to an io.Writer. The first error sticks and turns
// every later call into a no-op; read it with Err or Flush.
type Stream struct {
	w       *bufio.Writer
	stack   []frame
	pending bool // property name written, value expected
	err     error
}

var _ Writer = (*Stream)(nil)

func New(w io.Writer) *Stream {
	return &Stream{w: bufio.NewWriter(w)}
}

func (s *Stream) WriteStartObject() {
	s.beforeValue()
	s.raw("{")
	s.stack = append(s.stack, frame{object: true})
}

func (s *Stream) WriteEndObject() {
	s.pop(true)
	s.raw("}")
}

func (s *Stream) WriteStartArray() {
	s.beforeValue()
	s.raw("[")
	s.stack = append(s.stack, frame{})
}

func (s *Stream) WriteEndArray() {
	s.pop(false)
	s.raw("]")
}

func (s *Stream) WritePropertyName(name string) {
	if s.err != nil {
		return
	}
	if len(s.stack) == 0 || !s.stack[len(s.stack)-1].object || s.pending {
		s.err = ErrNoProperty
		return
	}
	top := &s.stack[len(s.stack)-1]
	if top.count > 0 {
		s.raw(",")
	}
	top.count++
	s.str(name)
	s.raw(":")
	s.pending = true
}

func (s *Stream) WritePropertyStartArray(name string) {
	s.WritePropertyName(name)
	s.WriteStartArray()
}

func (s *Stream) WriteProperty(name, value string) {
	s.WritePropertyName(name)
	s.WriteValue(value)
}

func (s *Stream) WriteValue(value string) {
	s.beforeValue()
	s.str(value)
}

// WriteValueFromParts writes a+sep+b as one string value.
func (s *Stream) WriteValueFromParts(a, sep, b string) {
	s.WriteValue(a + sep + b)
}

// WriteUint writes an unquoted number.
func (s *Stream) WriteUint(v uint64) {
	s.beforeValue()
	s.raw(strconv.FormatUint(v, 10))
}

// WriteBool writes an unquoted boolean.
func (s *Stream) WriteBool(v bool) {
	s.beforeValue()
	s.raw(strconv.FormatBool(v))
}

// Depth is the number of open containers.
func (s *Stream) Depth() int {
	return len(s.stack)
}

func (s *Stream) Err() error {
	return s.err
}

// Flush pushes buffered output and reports the first error, including
// containers left open.
func (s *Stream) Flush() error {
	if s.err == nil {
		s.err = s.w.Flush()
	}
	if s.err == nil && (len(s.stack) != 0 || s.pending) {
		return ErrUnbalanced
	}
	return s.err
}

func (s *Stream) beforeValue() {
	if s.err != nil {
		return
	}
	if s.pending {
		s.pending = false
		return
	}
	if len(s.stack) == 0 {
		return
	}
	top := &s.stack[len(s.stack)-1]
	if top.object {
		s.err = ErrNoProperty
		return
	}
	if top.count > 0 {
		s.raw(",")
	}
	top.count++
}

func (s *Stream) pop(object bool) {
	if s.err != nil {
		return
	}
	if len(s.stack) == 0 || s.stack[len(s.stack)-1].object != object || s.pending {
		s.err = ErrUnbalanced
		return
	}
	s.stack = s.stack[:len(s.stack)-1]
}

func (s *Stream) str(v string) {
	if s.err != nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		s.err = err
		return
	}
	_, s.err = s.w.Write(b)
}

func (s *Stream) raw(v string) {
	if s.err != nil {
		return
	}
	_, s.err = s.w.WriteString(v)
}
