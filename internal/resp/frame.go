// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package resp implements the subset of the Redis Serialization Protocol
// (RESP2) kvember speaks: an incremental, allocation-disciplined frame
// parser and a response encoder.
//
// The parser never reads past the end of the buffered bytes it is given
// and never consumes input on an incomplete frame, so the caller can feed
// it whatever arrived on the last socket read and simply try again once
// more bytes land. A complete frame's command name and arguments are
// buf.Frozen ranges sliced directly out of the accumulator: nothing is
// copied until the dispatcher decides a value needs to outlive the
// accumulator (see internal/dispatch).
package resp

import (
	"code.hybscloud.com/kvember/internal/buf"
)

// Status reports the outcome of a single parse attempt.
type Status int

const (
	// Incomplete means more bytes are needed; no input was consumed and
	// the caller should retry the same parse after the next read.
	Incomplete Status = iota
	// Complete means a full Frame was parsed and split off the
	// Accumulator.
	Complete
	// Invalid means the byte stream violates the protocol; the
	// connection must be closed without a reply.
	Invalid
)

// Frame is one parsed command: a name plus zero or more arguments, each a
// zero-copy slice into the accumulator that produced it.
type Frame struct {
	Name buf.Frozen
	Args []buf.Frozen
}

// ProtocolError describes why a frame was rejected as Invalid.
type ProtocolError struct{ Reason string }

func (e *ProtocolError) Error() string { return "resp: " + e.Reason }

const (
	maxBulkLen  = 1<<31 - 1
	maxArrayLen = 1 << 20 // generous upper bound; guards against overflow abuse, not a protocol limit
)

// Parse attempts to parse exactly one frame starting at acc's current
// read cursor. On Incomplete, acc is left untouched. On Complete, the
// frame's bytes have been split off acc (the read cursor has advanced
// past them). On Invalid, the caller must close the connection; acc's
// cursor position after an Invalid result is unspecified since the
// stream can no longer be trusted.
func Parse(acc *buf.Accumulator) (Frame, Status, error) {
	data := acc.Bytes()
	if len(data) == 0 {
		return Frame{}, Incomplete, nil
	}
	if data[0] == '*' {
		return parseMultibulk(acc, data)
	}
	return parseInline(acc, data)
}

// parseMultibulk parses "*N\r\n" followed by N bulk strings, each
// "$len\r\n<len bytes>\r\n". It only begins splitting bytes off acc once
// the full frame has been located in data, so an Incomplete result never
// mutates acc.
func parseMultibulk(acc *buf.Accumulator, data []byte) (Frame, Status, error) {
	crPos, next, st, err := readCRLFLine(data, 1)
	if st != Complete {
		return Frame{}, st, err
	}
	count, ok := parseInt64(data[1:crPos])
	if !ok {
		return Frame{}, Invalid, &ProtocolError{Reason: "malformed array count"}
	}
	if count < 1 || count > maxArrayLen {
		return Frame{}, Invalid, &ProtocolError{Reason: "array count must be >= 1"}
	}

	bulks := make([]bulkSpan, 0, count)
	cursor := next

	for i := int64(0); i < count; i++ {
		if cursor >= len(data) {
			return Frame{}, Incomplete, nil
		}
		if data[cursor] != '$' {
			return Frame{}, Invalid, &ProtocolError{Reason: "expected bulk string"}
		}
		lenCrPos, lenNext, st, err := readCRLFLine(data, cursor+1)
		if st != Complete {
			return Frame{}, st, err
		}
		length, ok := parseInt64(data[cursor+1 : lenCrPos])
		if !ok {
			return Frame{}, Invalid, &ProtocolError{Reason: "malformed bulk length"}
		}
		if length == -1 {
			return Frame{}, Invalid, &ProtocolError{Reason: "null bulk not allowed as a command argument"}
		}
		if length < 0 || length > maxBulkLen {
			return Frame{}, Invalid, &ProtocolError{Reason: "bulk length out of range"}
		}
		payloadStart := lenNext
		payloadEnd := payloadStart + int(length)
		if payloadEnd+2 > len(data) {
			return Frame{}, Incomplete, nil
		}
		if data[payloadEnd] != '\r' || data[payloadEnd+1] != '\n' {
			return Frame{}, Invalid, &ProtocolError{Reason: "missing CRLF after bulk payload"}
		}
		bulks = append(bulks, bulkSpan{start: payloadStart, length: int(length)})
		cursor = payloadEnd + 2
	}

	// The whole frame is present. Split it off in one pass now.
	return splitMultibulk(acc, bulks, cursor)
}

// bulkSpan is the [start, start+length) extent of one already-validated
// bulk string's payload within the peeked data, relative to the
// Accumulator's current read cursor.
type bulkSpan struct{ start, length int }

// splitMultibulk performs the actual Accumulator.Split calls for a frame
// whose full extent [0, total) in the peeked data has already been
// validated by parseMultibulk.
func splitMultibulk(acc *buf.Accumulator, bulks []bulkSpan, total int) (Frame, Status, error) {
	frame := Frame{Args: make([]buf.Frozen, 0, len(bulks)-1)}
	prev := 0
	for i, b := range bulks {
		if b.start > prev {
			acc.Discard(b.start - prev)
		}
		f := acc.Split(b.length)
		acc.Discard(2) // trailing CRLF after the payload
		prev = b.start + b.length + 2
		if i == 0 {
			frame.Name = f
		} else {
			frame.Args = append(frame.Args, f)
		}
	}
	if prev < total {
		acc.Discard(total - prev)
	}
	return frame, Complete, nil
}

// parseInline parses "TOKEN SP TOKEN ... \r\n". The whole line is split
// off as one Frozen range first, then tokenized in place with Sub so
// tokens keep sharing the accumulator's backing array.
func parseInline(acc *buf.Accumulator, data []byte) (Frame, Status, error) {
	crPos, lineEnd, st, err := readCRLFLine(data, 0)
	if st != Complete {
		return Frame{}, st, err
	}
	lineLen := crPos
	total := lineEnd

	line := acc.Split(lineLen)
	acc.Discard(total - lineLen)

	tokens := tokenizeInline(line)
	if len(tokens) == 0 {
		return Frame{}, Invalid, &ProtocolError{Reason: "empty inline command"}
	}
	return Frame{Name: tokens[0], Args: tokens[1:]}, Complete, nil
}

func tokenizeInline(line buf.Frozen) []buf.Frozen {
	data := line.Bytes()
	var out []buf.Frozen
	i := 0
	for i < len(data) {
		for i < len(data) && data[i] == ' ' {
			i++
		}
		if i >= len(data) {
			break
		}
		start := i
		for i < len(data) && data[i] != ' ' {
			i++
		}
		out = append(out, line.Sub(start, i))
	}
	return out
}

// readCRLFLine scans data[from:] for a terminating "\r\n". It returns the
// index of the '\r' (relative to data) and the index just past the '\n'
// (i.e. the start of whatever follows the line). A bare '\r' not
// immediately followed by '\n', or a '\n' not immediately preceded by
// '\r', is Invalid per the framing rules in the protocol design.
func readCRLFLine(data []byte, from int) (crPos, lineEnd int, status Status, err error) {
	for i := from; i < len(data); i++ {
		switch data[i] {
		case '\n':
			if i == from || data[i-1] != '\r' {
				return 0, 0, Invalid, &ProtocolError{Reason: "bare LF in frame"}
			}
			return i - 1, i + 1, Complete, nil
		case '\r':
			if i+1 >= len(data) {
				return 0, 0, Incomplete, nil
			}
			if data[i+1] != '\n' {
				return 0, 0, Invalid, &ProtocolError{Reason: "bare CR in frame"}
			}
			// Loop continues and the '\n' branch above returns on the next iteration.
		}
	}
	return 0, 0, Incomplete, nil
}

// parseInt64 parses a decimal integer with an optional leading '-'. It
// rejects empty input, a lone sign, and non-digit characters.
func parseInt64(b []byte) (int64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	neg := false
	i := 0
	if b[0] == '-' {
		neg = true
		i++
	}
	if i == len(b) {
		return 0, false
	}
	var v int64
	for ; i < len(b); i++ {
		c := b[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int64(c-'0')
		if v > 1<<34 {
			return 0, false // well past any valid length/count; avoid overflow
		}
	}
	if neg {
		v = -v
	}
	return v, true
}
