// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch_test

import (
	"bytes"
	"testing"

	"code.hybscloud.com/kvember/internal/buf"
	"code.hybscloud.com/kvember/internal/dispatch"
	"code.hybscloud.com/kvember/internal/resp"
	"code.hybscloud.com/kvember/internal/store"
)

func parseFrame(t *testing.T, wire string) resp.Frame {
	t.Helper()
	acc := buf.NewAccumulator(256, 0)
	if _, err := acc.ReadFrom(bytes.NewReader([]byte(wire))); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	frame, status, err := resp.Parse(acc)
	if status != resp.Complete {
		t.Fatalf("Parse status = %v, err = %v", status, err)
	}
	return frame
}

func encode(v resp.Value) string {
	return string(resp.AppendEncoded(nil, v))
}

func TestDispatchUnknownCommand(t *testing.T) {
	d := dispatch.New(store.New())
	v := d.Dispatch(parseFrame(t, "*1\r\n$3\r\nFOO\r\n"))
	if got, want := encode(v), "-ERR unknown command 'FOO'\r\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDispatchWrongArity(t *testing.T) {
	d := dispatch.New(store.New())
	v := d.Dispatch(parseFrame(t, "*1\r\n$3\r\nGET\r\n"))
	if got, want := encode(v), "-ERR wrong number of arguments for 'get'\r\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDispatchSetGet(t *testing.T) {
	d := dispatch.New(store.New())
	v := d.Dispatch(parseFrame(t, "*3\r\n$3\r\nSET\r\n$1\r\na\r\n$5\r\nhello\r\n"))
	if got, want := encode(v), "+OK\r\n"; got != want {
		t.Fatalf("SET got %q, want %q", got, want)
	}

	v = d.Dispatch(parseFrame(t, "*2\r\n$3\r\nGET\r\n$1\r\na\r\n"))
	if got, want := encode(v), "$5\r\nhello\r\n"; got != want {
		t.Fatalf("GET got %q, want %q", got, want)
	}

	v = d.Dispatch(parseFrame(t, "*2\r\n$3\r\nGET\r\n$1\r\nb\r\n"))
	if got, want := encode(v), "$-1\r\n"; got != want {
		t.Fatalf("GET absent got %q, want %q", got, want)
	}
}

func TestDispatchListSemantics(t *testing.T) {
	d := dispatch.New(store.New())

	v := d.Dispatch(parseFrame(t, "*4\r\n$5\r\nLPUSH\r\n$1\r\nL\r\n$1\r\nx\r\n$1\r\ny\r\n"))
	if got, want := encode(v), ":2\r\n"; got != want {
		t.Fatalf("LPUSH got %q, want %q", got, want)
	}

	v = d.Dispatch(parseFrame(t, "*2\r\n$4\r\nLPOP\r\n$1\r\nL\r\n"))
	if got, want := encode(v), "$1\r\ny\r\n"; got != want {
		t.Fatalf("LPOP got %q, want %q", got, want)
	}

	v = d.Dispatch(parseFrame(t, "*4\r\n$6\r\nLRANGE\r\n$1\r\nL\r\n$1\r\n0\r\n$2\r\n-1\r\n"))
	if got, want := encode(v), "*1\r\n$1\r\nx\r\n"; got != want {
		t.Fatalf("LRANGE got %q, want %q", got, want)
	}

	v = d.Dispatch(parseFrame(t, "*2\r\n$4\r\nLPOP\r\n$1\r\nL\r\n"))
	if got, want := encode(v), "$1\r\nx\r\n"; got != want {
		t.Fatalf("second LPOP got %q, want %q", got, want)
	}

	v = d.Dispatch(parseFrame(t, "*2\r\n$3\r\nGET\r\n$1\r\nL\r\n"))
	if got, want := encode(v), "$-1\r\n"; got != want {
		t.Fatalf("GET after drain got %q, want %q", got, want)
	}
}

func TestDispatchTypeError(t *testing.T) {
	d := dispatch.New(store.New())
	d.Dispatch(parseFrame(t, "*3\r\n$3\r\nSET\r\n$1\r\ns\r\n$1\r\nv\r\n"))

	v := d.Dispatch(parseFrame(t, "*3\r\n$5\r\nLPUSH\r\n$1\r\ns\r\n$1\r\nx\r\n"))
	if got, want := encode(v), "-WRONGTYPE Operation against a key holding the wrong kind of value\r\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	v = d.Dispatch(parseFrame(t, "*2\r\n$3\r\nGET\r\n$1\r\ns\r\n"))
	if got, want := encode(v), "$1\r\nv\r\n"; got != want {
		t.Fatalf("value should be unchanged: got %q, want %q", got, want)
	}
}

func TestDispatchSetCommands(t *testing.T) {
	d := dispatch.New(store.New())

	v := d.Dispatch(parseFrame(t, "*4\r\n$4\r\nSADD\r\n$1\r\nS\r\n$1\r\na\r\n$1\r\na\r\n"))
	if got, want := encode(v), ":1\r\n"; got != want {
		t.Fatalf("SADD got %q, want %q", got, want)
	}

	v = d.Dispatch(parseFrame(t, "*3\r\n$4\r\nSADD\r\n$1\r\nS\r\n$1\r\nb\r\n"))
	if got, want := encode(v), ":1\r\n"; got != want {
		t.Fatalf("second SADD got %q, want %q", got, want)
	}

	v = d.Dispatch(parseFrame(t, "*2\r\n$8\r\nSMEMBERS\r\n$1\r\nS\r\n"))
	if got, want := encode(v), "*2\r\n$1\r\na\r\n$1\r\nb\r\n"; got != want {
		t.Fatalf("SMEMBERS got %q, want %q", got, want)
	}

	first := d.Dispatch(parseFrame(t, "*2\r\n$4\r\nSPOP\r\n$1\r\nS\r\n"))
	if got, want := encode(first), "$1\r\na\r\n"; got != want {
		t.Fatalf("first SPOP got %q, want %q", got, want)
	}
	second := d.Dispatch(parseFrame(t, "*2\r\n$4\r\nSPOP\r\n$1\r\nS\r\n"))
	if got, want := encode(second), "$1\r\nb\r\n"; got != want {
		t.Fatalf("second SPOP got %q, want %q", got, want)
	}
	third := d.Dispatch(parseFrame(t, "*2\r\n$4\r\nSPOP\r\n$1\r\nS\r\n"))
	if got, want := encode(third), "$-1\r\n"; got != want {
		t.Fatalf("third SPOP got %q, want %q", got, want)
	}
}

func TestDispatchPingAndEcho(t *testing.T) {
	d := dispatch.New(store.New())

	v := d.Dispatch(parseFrame(t, "*1\r\n$4\r\nPING\r\n"))
	if got, want := encode(v), "+PONG\r\n"; got != want {
		t.Fatalf("PING got %q, want %q", got, want)
	}

	v = d.Dispatch(parseFrame(t, "*2\r\n$4\r\nPING\r\n$5\r\nhello\r\n"))
	if got, want := encode(v), "$5\r\nhello\r\n"; got != want {
		t.Fatalf("PING with message got %q, want %q", got, want)
	}

	v = d.Dispatch(parseFrame(t, "*2\r\n$4\r\nECHO\r\n$5\r\nhello\r\n"))
	if got, want := encode(v), "$5\r\nhello\r\n"; got != want {
		t.Fatalf("ECHO got %q, want %q", got, want)
	}
}

func TestDispatchDelExistsType(t *testing.T) {
	d := dispatch.New(store.New())
	d.Dispatch(parseFrame(t, "*3\r\n$3\r\nSET\r\n$1\r\na\r\n$1\r\nv\r\n"))

	v := d.Dispatch(parseFrame(t, "*2\r\n$4\r\nTYPE\r\n$1\r\na\r\n"))
	if got, want := encode(v), "+string\r\n"; got != want {
		t.Fatalf("TYPE got %q, want %q", got, want)
	}

	v = d.Dispatch(parseFrame(t, "*3\r\n$6\r\nEXISTS\r\n$1\r\na\r\n$1\r\nb\r\n"))
	if got, want := encode(v), ":1\r\n"; got != want {
		t.Fatalf("EXISTS got %q, want %q", got, want)
	}

	v = d.Dispatch(parseFrame(t, "*2\r\n$3\r\nDEL\r\n$1\r\na\r\n"))
	if got, want := encode(v), ":1\r\n"; got != want {
		t.Fatalf("DEL got %q, want %q", got, want)
	}
}
