// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dispatch converts a parsed resp.Frame into a typed operation
// against a store.Store and an encoded resp.Value response, following
// the command table and copy-vs-share policy described for the
// connection pipeline's synchronous per-frame dispatch step.
package dispatch

import (
	"strconv"
	"strings"

	"code.hybscloud.com/kvember/internal/buf"
	"code.hybscloud.com/kvember/internal/resp"
	"code.hybscloud.com/kvember/internal/store"
)

// largePayloadThreshold is the size above which Dispatcher retains a
// frame argument's Frozen range as-is rather than compacting it into a
// freshly allocated, tightly sized copy. Below the threshold, compacting
// releases the (likely much larger) accumulator backing array early;
// above it, the argument already occupies most of whatever backing array
// produced it, so a second copy would only double peak memory for no
// real benefit. This is a tuning policy (§4.4), not a correctness
// requirement: either branch satisfies I3 because both return a Frozen
// range that is never subsequently mutated.
const largePayloadThreshold = 1024

// Dispatcher applies frames to one connection's Store.
type Dispatcher struct {
	store *store.Store
}

// New returns a Dispatcher bound to store s.
func New(s *store.Store) *Dispatcher {
	return &Dispatcher{store: s}
}

type cmdSpec struct {
	minArgs int
	maxArgs int // -1 means unbounded
	handler func(d *Dispatcher, args []buf.Frozen) resp.Value
}

var commands = map[string]cmdSpec{
	"GET":      {1, 1, (*Dispatcher).cmdGet},
	"SET":      {2, 2, (*Dispatcher).cmdSet},
	"LPUSH":    {2, -1, (*Dispatcher).cmdLPush},
	"RPUSH":    {2, -1, (*Dispatcher).cmdRPush},
	"LPOP":     {1, 1, (*Dispatcher).cmdLPop},
	"RPOP":     {1, 1, (*Dispatcher).cmdRPop},
	"LRANGE":   {3, 3, (*Dispatcher).cmdLRange},
	"LLEN":     {1, 1, (*Dispatcher).cmdLLen},
	"SADD":     {2, -1, (*Dispatcher).cmdSAdd},
	"SPOP":     {1, 1, (*Dispatcher).cmdSPop},
	"SMEMBERS": {1, 1, (*Dispatcher).cmdSMembers},
	"SCARD":    {1, 1, (*Dispatcher).cmdSCard},
	"DEL":      {1, -1, (*Dispatcher).cmdDel},
	"EXISTS":   {1, -1, (*Dispatcher).cmdExists},
	"TYPE":     {1, 1, (*Dispatcher).cmdType},
	"PING":     {0, 1, (*Dispatcher).cmdPing},
	"ECHO":     {1, 1, (*Dispatcher).cmdEcho},
}

// Dispatch applies one frame and returns the response to enqueue for the
// writer. It never returns an error: every failure mode the core is
// responsible for (unknown command, wrong arity, wrong type) is encoded
// as a resp.Value error reply per §7's propagation policy. The caller is
// still responsible for closing the connection on a protocol-malformed
// frame — that decision is made by the framer, before Dispatch is ever
// called.
func (d *Dispatcher) Dispatch(f resp.Frame) resp.Value {
	name := strings.ToUpper(string(f.Name.Bytes()))
	spec, ok := commands[name]
	if !ok {
		return resp.Error("ERR unknown command '" + string(f.Name.Bytes()) + "'")
	}
	if len(f.Args) < spec.minArgs || (spec.maxArgs >= 0 && len(f.Args) > spec.maxArgs) {
		return resp.Error("ERR wrong number of arguments for '" + strings.ToLower(name) + "'")
	}
	return spec.handler(d, f.Args)
}

// own materializes arg as an owned Frozen range per I3, applying the
// large-payload policy described above commands.
func (d *Dispatcher) own(arg buf.Frozen) buf.Frozen {
	if arg.Len() > largePayloadThreshold {
		return arg
	}
	return buf.NewFrozen(arg.Bytes())
}

func typeErrorOrNil(err error) (resp.Value, bool) {
	if err == store.ErrWrongType {
		return resp.Error(err.Error()), true
	}
	return resp.Value{}, false
}

func (d *Dispatcher) cmdGet(args []buf.Frozen) resp.Value {
	v, ok, err := d.store.Get(args[0].Bytes())
	if e, isErr := typeErrorOrNil(err); isErr {
		return e
	}
	if !ok {
		return resp.Nil
	}
	return resp.Bulk(v)
}

func (d *Dispatcher) cmdSet(args []buf.Frozen) resp.Value {
	d.store.Set(args[0].Bytes(), d.own(args[1]))
	return resp.OK
}

func (d *Dispatcher) cmdLPush(args []buf.Frozen) resp.Value {
	vals := make([]buf.Frozen, len(args)-1)
	for i, a := range args[1:] {
		vals[i] = d.own(a)
	}
	n, err := d.store.LPush(args[0].Bytes(), vals)
	if e, isErr := typeErrorOrNil(err); isErr {
		return e
	}
	return resp.Integer(n)
}

func (d *Dispatcher) cmdRPush(args []buf.Frozen) resp.Value {
	vals := make([]buf.Frozen, len(args)-1)
	for i, a := range args[1:] {
		vals[i] = d.own(a)
	}
	n, err := d.store.RPush(args[0].Bytes(), vals)
	if e, isErr := typeErrorOrNil(err); isErr {
		return e
	}
	return resp.Integer(n)
}

func (d *Dispatcher) cmdLPop(args []buf.Frozen) resp.Value {
	v, ok, err := d.store.LPop(args[0].Bytes())
	if e, isErr := typeErrorOrNil(err); isErr {
		return e
	}
	if !ok {
		return resp.Nil
	}
	return resp.Bulk(v)
}

func (d *Dispatcher) cmdRPop(args []buf.Frozen) resp.Value {
	v, ok, err := d.store.RPop(args[0].Bytes())
	if e, isErr := typeErrorOrNil(err); isErr {
		return e
	}
	if !ok {
		return resp.Nil
	}
	return resp.Bulk(v)
}

func (d *Dispatcher) cmdLRange(args []buf.Frozen) resp.Value {
	start, ok1 := parseInt(args[1].Bytes())
	stop, ok2 := parseInt(args[2].Bytes())
	if !ok1 || !ok2 {
		return resp.Error("ERR value is not an integer or out of range")
	}
	items, err := d.store.LRange(args[0].Bytes(), start, stop)
	if e, isErr := typeErrorOrNil(err); isErr {
		return e
	}
	return arrayOfBulk(items)
}

func (d *Dispatcher) cmdLLen(args []buf.Frozen) resp.Value {
	n, err := d.store.LLen(args[0].Bytes())
	if e, isErr := typeErrorOrNil(err); isErr {
		return e
	}
	return resp.Integer(n)
}

func (d *Dispatcher) cmdSAdd(args []buf.Frozen) resp.Value {
	members := make([]buf.Frozen, len(args)-1)
	for i, a := range args[1:] {
		members[i] = d.own(a)
	}
	n, err := d.store.SAdd(args[0].Bytes(), members)
	if e, isErr := typeErrorOrNil(err); isErr {
		return e
	}
	return resp.Integer(n)
}

func (d *Dispatcher) cmdSPop(args []buf.Frozen) resp.Value {
	v, ok, err := d.store.SPop(args[0].Bytes())
	if e, isErr := typeErrorOrNil(err); isErr {
		return e
	}
	if !ok {
		return resp.Nil
	}
	return resp.Bulk(v)
}

func (d *Dispatcher) cmdSMembers(args []buf.Frozen) resp.Value {
	members, err := d.store.SMembers(args[0].Bytes())
	if e, isErr := typeErrorOrNil(err); isErr {
		return e
	}
	return arrayOfBulk(members)
}

func (d *Dispatcher) cmdSCard(args []buf.Frozen) resp.Value {
	n, err := d.store.SCard(args[0].Bytes())
	if e, isErr := typeErrorOrNil(err); isErr {
		return e
	}
	return resp.Integer(n)
}

func (d *Dispatcher) cmdDel(args []buf.Frozen) resp.Value {
	keys := make([][]byte, len(args))
	for i, a := range args {
		keys[i] = a.Bytes()
	}
	return resp.Integer(d.store.Del(keys))
}

func (d *Dispatcher) cmdExists(args []buf.Frozen) resp.Value {
	keys := make([][]byte, len(args))
	for i, a := range args {
		keys[i] = a.Bytes()
	}
	return resp.Integer(d.store.Exists(keys))
}

func (d *Dispatcher) cmdType(args []buf.Frozen) resp.Value {
	return resp.SimpleString(d.store.Type(args[0].Bytes()))
}

func (d *Dispatcher) cmdPing(args []buf.Frozen) resp.Value {
	if len(args) == 0 {
		return resp.SimpleString("PONG")
	}
	return resp.Bulk(d.own(args[0]))
}

func (d *Dispatcher) cmdEcho(args []buf.Frozen) resp.Value {
	return resp.Bulk(args[0])
}

func arrayOfBulk(items []buf.Frozen) resp.Value {
	vals := make([]resp.Value, len(items))
	for i, it := range items {
		vals[i] = resp.Bulk(it)
	}
	return resp.Array(vals)
}

func parseInt(b []byte) (int64, bool) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
