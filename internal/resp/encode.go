// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package resp

import (
	"strconv"

	"code.hybscloud.com/kvember/internal/buf"
)

// Kind discriminates the variants a Value can encode as.
type Kind uint8

const (
	KindOK Kind = iota
	KindInteger
	KindBulkString
	KindNil
	KindArray
	KindError
	KindSimpleString
)

// Value is a response value awaiting RESP2 encoding. Encoding is lazy:
// constructing a Value never touches the output buffer, so the dispatcher
// can build one and the connection writer encodes it only once it is
// actually this connection's turn to flush.
type Value struct {
	Kind    Kind
	Integer int64
	Bulk    buf.Frozen
	Array   []Value
	Err     string
	Simple  string
}

// OK is the canonical "+OK\r\n" response.
var OK = Value{Kind: KindOK}

// SimpleString builds a "+<s>\r\n" response. s must not contain CR or LF.
func SimpleString(s string) Value { return Value{Kind: KindSimpleString, Simple: s} }

// Nil is the canonical "$-1\r\n" response.
var Nil = Value{Kind: KindNil}

// Integer builds an Integer response.
func Integer(n int64) Value { return Value{Kind: KindInteger, Integer: n} }

// Bulk builds a BulkString response from an already-owned Frozen range.
func Bulk(b buf.Frozen) Value { return Value{Kind: KindBulkString, Bulk: b} }

// Array builds an Array response.
func Array(vs []Value) Value { return Value{Kind: KindArray, Array: vs} }

// Error builds an Error response. reason is written verbatim after '-',
// so it must not contain CR or LF.
func Error(reason string) Value { return Value{Kind: KindError, Err: reason} }

// AppendEncoded appends v's RESP2 wire encoding to dst and returns the
// extended slice. It never allocates beyond what append itself needs to
// grow dst, so the writer can reuse one staging buffer across an entire
// batch of queued responses.
func AppendEncoded(dst []byte, v Value) []byte {
	switch v.Kind {
	case KindOK:
		return append(dst, "+OK\r\n"...)
	case KindInteger:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, v.Integer, 10)
		return append(dst, '\r', '\n')
	case KindBulkString:
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(v.Bulk.Len()), 10)
		dst = append(dst, '\r', '\n')
		dst = append(dst, v.Bulk.Bytes()...)
		return append(dst, '\r', '\n')
	case KindNil:
		return append(dst, "$-1\r\n"...)
	case KindArray:
		dst = append(dst, '*')
		dst = strconv.AppendInt(dst, int64(len(v.Array)), 10)
		dst = append(dst, '\r', '\n')
		for _, elem := range v.Array {
			dst = AppendEncoded(dst, elem)
		}
		return dst
	case KindError:
		dst = append(dst, '-')
		dst = append(dst, v.Err...)
		return append(dst, '\r', '\n')
	case KindSimpleString:
		dst = append(dst, '+')
		dst = append(dst, v.Simple...)
		return append(dst, '\r', '\n')
	default:
		return append(dst, "-ERR internal: unknown response kind\r\n"...)
	}
}
