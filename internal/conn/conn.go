// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package conn is the connection pipeline: it glues one TCP connection's
// byte stream through buf.Accumulator and resp.Parse into dispatch.Dispatch
// calls, and ships the resulting resp.Values back out in request order.
//
// Framing and dispatch happen synchronously, in a single reader goroutine,
// one frame at a time — there is never more than one in-flight command per
// connection, matching the cooperative, single-threaded-per-connection
// model the core describes. A second, independent writer goroutine drains
// the resulting response queue and owns all writes to the socket. The
// queue between them is the connection's only concurrency boundary and its
// only backpressure mechanism: once it is full, the reader's enqueue blocks
// until the writer has drained room, so a slow client naturally throttles
// how fast its own commands are accepted. This two-goroutine-over-a-channel
// shape mirrors a websocket client's readPump/writePump split, generalized
// from framed binary messages to RESP frames.
package conn

import (
	"errors"
	"io"
	"net"

	"github.com/rs/zerolog"

	"code.hybscloud.com/kvember/internal/buf"
	"code.hybscloud.com/kvember/internal/dispatch"
	"code.hybscloud.com/kvember/internal/metrics"
	"code.hybscloud.com/kvember/internal/resp"
	"code.hybscloud.com/kvember/internal/store"
)

// Options configures a Connection's buffering and queueing behavior.
type Options struct {
	QueueDepth     int
	AccInitialCap  int
	AccMaxCap      int
}

// DefaultOptions returns the options a bare net.Dial client would see.
func DefaultOptions() Options {
	return Options{QueueDepth: 256, AccInitialCap: 4096, AccMaxCap: 64 << 20}
}

// Connection serves one client socket end to end: framing, dispatch, and
// ordered response delivery.
type Connection struct {
	nc      net.Conn
	acc     *buf.Accumulator
	disp    *dispatch.Dispatcher
	queue   chan resp.Value
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// New returns a Connection ready to Serve nc. metrics may be nil, in which
// case no counters are updated.
func New(nc net.Conn, opts Options, log zerolog.Logger, m *metrics.Metrics) *Connection {
	return &Connection{
		nc:      nc,
		acc:     buf.NewAccumulator(opts.AccInitialCap, opts.AccMaxCap),
		disp:    dispatch.New(store.New()),
		queue:   make(chan resp.Value, opts.QueueDepth),
		log:     log,
		metrics: m,
	}
}

// Serve runs the connection to completion: it blocks until the peer
// disconnects, a protocol error closes the connection, or an I/O error
// occurs on either side. It always closes nc before returning.
func (c *Connection) Serve() {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop()
	}()

	c.readLoop()
	close(c.queue)
	<-writerDone
	_ = c.nc.Close()
}

// readLoop pulls bytes off the socket into the accumulator and drains every
// complete frame it can find after each read, until EOF, a read error, or a
// malformed frame ends the connection.
func (c *Connection) readLoop() {
	for {
		n, err := c.acc.ReadFrom(c.nc)
		if n > 0 {
			if !c.drainFrames() {
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.log.Debug().Msg("peer closed connection")
			} else if errors.Is(err, buf.ErrTooLarge) {
				c.log.Warn().Err(err).Msg("accumulator exceeded max size, closing")
			} else {
				c.log.Debug().Err(err).Msg("read error, closing")
			}
			return
		}
	}
}

// drainFrames parses and dispatches every complete frame currently
// buffered, enqueueing each response in frame order. It returns false if a
// malformed frame was encountered, signaling the caller to close the
// connection without further replies for that frame (§7: protocol errors
// close silently, no error reply).
func (c *Connection) drainFrames() bool {
	for {
		frame, status, err := resp.Parse(c.acc)
		switch status {
		case resp.Incomplete:
			c.acc.Compact()
			return true
		case resp.Invalid:
			c.log.Debug().Err(err).Msg("malformed frame")
			return false
		case resp.Complete:
			name := string(frame.Name.Bytes())
			v := c.disp.Dispatch(frame)
			c.observe(name, v)
			select {
			case c.queue <- v:
			default:
				if c.metrics != nil {
					c.metrics.BackpressureStalls.Inc()
				}
				c.queue <- v
			}
		}
	}
}

func (c *Connection) observe(name string, v resp.Value) {
	if c.metrics == nil {
		return
	}
	c.metrics.CommandsTotal.WithLabelValues(name).Inc()
	if v.Kind == resp.KindError {
		c.metrics.CommandErrors.WithLabelValues(errKind(v.Err)).Inc()
	}
	c.metrics.QueueDepth.Observe(float64(len(c.queue)))
}

func errKind(reason string) string {
	for i := 0; i < len(reason); i++ {
		if reason[i] == ' ' {
			return reason[:i]
		}
	}
	return reason
}

// writeLoop drains the response queue, batching every response already
// available into one staging buffer before issuing a single Write. This
// turns a burst of pipelined commands into one write syscall instead of
// one per response.
func (c *Connection) writeLoop() {
	staging := make([]byte, 0, 4096)
	for v, ok := <-c.queue; ok; {
		staging = staging[:0]
		staging = resp.AppendEncoded(staging, v)

	drain:
		for {
			select {
			case next, ok2 := <-c.queue:
				if !ok2 {
					if err := c.flush(staging); err != nil {
						return
					}
					return
				}
				staging = resp.AppendEncoded(staging, next)
			default:
				break drain
			}
		}

		if err := c.flush(staging); err != nil {
			return
		}
		v, ok = <-c.queue
	}
}

func (c *Connection) flush(staging []byte) error {
	if len(staging) == 0 {
		return nil
	}
	if c.metrics != nil {
		c.metrics.WriteBatchBytes.Observe(float64(len(staging)))
	}
	_, err := c.nc.Write(staging)
	if err != nil {
		c.log.Debug().Err(err).Msg("write error, closing")
	}
	return err
}
