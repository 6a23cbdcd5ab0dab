// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package resp_test

import (
	"bytes"
	"testing"

	"code.hybscloud.com/kvember/internal/buf"
	"code.hybscloud.com/kvember/internal/resp"
)

func mustParse(t *testing.T, wire string) resp.Frame {
	t.Helper()
	acc := buf.NewAccumulator(64, 0)
	if _, err := acc.ReadFrom(bytes.NewReader([]byte(wire))); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	frame, status, err := resp.Parse(acc)
	if status != resp.Complete {
		t.Fatalf("Parse status = %v, err = %v, want Complete", status, err)
	}
	return frame
}

func TestParseMultibulk(t *testing.T) {
	frame := mustParse(t, "*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n")
	if string(frame.Name.Bytes()) != "SET" {
		t.Fatalf("Name = %q, want SET", frame.Name.Bytes())
	}
	if len(frame.Args) != 2 {
		t.Fatalf("len(Args) = %d, want 2", len(frame.Args))
	}
	if string(frame.Args[0].Bytes()) != "foo" || string(frame.Args[1].Bytes()) != "bar" {
		t.Fatalf("Args = %q, %q", frame.Args[0].Bytes(), frame.Args[1].Bytes())
	}
}

func TestParseInline(t *testing.T) {
	frame := mustParse(t, "PING hello\r\n")
	if string(frame.Name.Bytes()) != "PING" {
		t.Fatalf("Name = %q, want PING", frame.Name.Bytes())
	}
	if len(frame.Args) != 1 || string(frame.Args[0].Bytes()) != "hello" {
		t.Fatalf("Args = %v", frame.Args)
	}
}

func TestParseIncomplete(t *testing.T) {
	acc := buf.NewAccumulator(64, 0)
	_, _ = acc.ReadFrom(bytes.NewReader([]byte("*2\r\n$3\r\nGET\r\n$3\r\nfo")))
	_, status, _ := resp.Parse(acc)
	if status != resp.Incomplete {
		t.Fatalf("status = %v, want Incomplete", status)
	}
}

func TestParseInvalidEmptyInline(t *testing.T) {
	acc := buf.NewAccumulator(64, 0)
	_, _ = acc.ReadFrom(bytes.NewReader([]byte("   \r\n")))
	_, status, err := resp.Parse(acc)
	if status != resp.Invalid {
		t.Fatalf("status = %v, err = %v, want Invalid", status, err)
	}
}

func TestParseInvalidMultibulkBadLength(t *testing.T) {
	acc := buf.NewAccumulator(64, 0)
	_, _ = acc.ReadFrom(bytes.NewReader([]byte("*1\r\n$-5\r\n")))
	_, status, err := resp.Parse(acc)
	if status != resp.Invalid {
		t.Fatalf("status = %v, err = %v, want Invalid", status, err)
	}
}

func TestParsePipelinedFrames(t *testing.T) {
	acc := buf.NewAccumulator(64, 0)
	_, _ = acc.ReadFrom(bytes.NewReader([]byte("PING\r\nPING\r\n")))

	first, status, err := resp.Parse(acc)
	if status != resp.Complete {
		t.Fatalf("first Parse status = %v, err = %v", status, err)
	}
	if string(first.Name.Bytes()) != "PING" {
		t.Fatalf("first Name = %q", first.Name.Bytes())
	}

	second, status, err := resp.Parse(acc)
	if status != resp.Complete {
		t.Fatalf("second Parse status = %v, err = %v", status, err)
	}
	if string(second.Name.Bytes()) != "PING" {
		t.Fatalf("second Name = %q", second.Name.Bytes())
	}
}

func TestAppendEncoded(t *testing.T) {
	cases := []struct {
		name string
		v    resp.Value
		want string
	}{
		{"ok", resp.OK, "+OK\r\n"},
		{"nil", resp.Nil, "$-1\r\n"},
		{"integer", resp.Integer(42), ":42\r\n"},
		{"negative integer", resp.Integer(-1), ":-1\r\n"},
		{"bulk", resp.Bulk(buf.NewFrozen([]byte("hi"))), "$2\r\nhi\r\n"},
		{"error", resp.Error("ERR boom"), "-ERR boom\r\n"},
		{"simple", resp.SimpleString("PONG"), "+PONG\r\n"},
		{
			"array",
			resp.Array([]resp.Value{resp.Integer(1), resp.Bulk(buf.NewFrozen([]byte("x")))}),
			"*2\r\n:1\r\n$1\r\nx\r\n",
		},
		{"empty array", resp.Array(nil), "*0\r\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := string(resp.AppendEncoded(nil, tc.v))
			if got != tc.want {
				t.Fatalf("AppendEncoded = %q, want %q", got, tc.want)
			}
		})
	}
}
