// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conn_test

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"code.hybscloud.com/kvember/internal/conn"
)

// serveOverPipe creates a connected pair using net.Pipe, wired exactly like
// a real accepted socket: one end handed to a Connection, the other
// returned for the test to use as the client.
func serveOverPipe(t *testing.T) (client net.Conn) {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	c := conn.New(serverSide, conn.DefaultOptions(), zerolog.Nop(), nil)
	go c.Serve()
	t.Cleanup(func() { _ = clientSide.Close() })
	return clientSide
}

func TestConnUnknownCommand(t *testing.T) {
	client := serveOverPipe(t)
	reader := bufio.NewReader(client)

	if _, err := client.Write([]byte("*1\r\n$3\r\nFOO\r\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	line, err := readLine(reader)
	if err != nil {
		t.Fatalf("readLine: %v", err)
	}
	if want := "-ERR unknown command 'FOO'"; line != want {
		t.Fatalf("got %q, want %q", line, want)
	}
}

func TestConnPipeliningPreservesOrder(t *testing.T) {
	client := serveOverPipe(t)
	reader := bufio.NewReader(client)

	// One write containing SET k v1, SET k v2, GET k.
	wire := "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$2\r\nv1\r\n" +
		"*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$2\r\nv2\r\n" +
		"*2\r\n$3\r\nGET\r\n$1\r\nk\r\n"
	if _, err := client.Write([]byte(wire)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	want := []string{"+OK", "+OK", "$2", "v2"}
	for _, w := range want {
		got, err := readLine(reader)
		if err != nil {
			t.Fatalf("readLine: %v", err)
		}
		if got != w {
			t.Fatalf("got %q, want %q", got, w)
		}
	}
}

func TestConnClosesOnMalformedFrame(t *testing.T) {
	client := serveOverPipe(t)
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))

	if _, err := client.Write([]byte("*1\r\n$-5\r\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	buf := make([]byte, 16)
	n, err := client.Read(buf)
	if n != 0 || err == nil {
		t.Fatalf("expected connection close with no reply, got n=%d err=%v", n, err)
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	if len(line) >= 2 && line[len(line)-2] == '\r' {
		line = line[:len(line)-2]
	}
	return line, nil
}
