// Package channel establishes the single stream connection between the two
// participants of a training run.
//
// The server side listens and accepts exactly one peer. The client side keeps
// dialing at a fixed interval until the server is up.
package channel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/relab/fedwalk/logging"
	"golang.org/x/time/rate"
)

// ErrBind is returned by Listen when the listening socket could not be bound,
// even after the retry.
var ErrBind = errors.New("channel: failed to bind")

// Options configures connection establishment.
type Options struct {
	// BindRetryDelay is how long Listen waits before its single bind retry.
	BindRetryDelay time.Duration
	// ConnectInterval is the fixed pause between two connection attempts.
	ConnectInterval time.Duration
	Logger          logging.Logger
}

// DefaultOptions returns one second for both delays and a logger named "channel".
func DefaultOptions() Options {
	return Options{
		BindRetryDelay:  time.Second,
		ConnectInterval: time.Second,
		Logger:          logging.New("channel"),
	}
}

func (o *Options) fill() {
	def := DefaultOptions()
	if o.BindRetryDelay <= 0 {
		o.BindRetryDelay = def.BindRetryDelay
	}
	if o.ConnectInterval <= 0 {
		o.ConnectInterval = def.ConnectInterval
	}
	if o.Logger == nil {
		o.Logger = def.Logger
	}
}

// Channel is an established connection to the other participant.
// It is used for every exchange of a run and closed once by the server.
type Channel struct {
	net.Conn
	closeOnce sync.Once
	closeErr  error
}

// Close releases the connection. Calling Close more than once is harmless.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.Conn.Close()
	})
	return c.closeErr
}

// Listen binds bindAddress:port and blocks until one peer has connected.
// A failed bind is retried once after opts.BindRetryDelay. The listening
// socket is closed as soon as the peer is accepted.
func Listen(ctx context.Context, bindAddress string, port int, opts Options) (*Channel, error) {
	opts.fill()
	addr := net.JoinHostPort(bindAddress, strconv.Itoa(port))

	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		opts.Logger.Warnf("Failed to bind %s, retrying in %v: %v", addr, opts.BindRetryDelay, err)
		timer := time.NewTimer(opts.BindRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		lis, err = lc.Listen(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrBind, addr, err)
		}
	}
	return accept(ctx, lis, opts.Logger)
}

func accept(ctx context.Context, lis net.Listener, logger logging.Logger) (*Channel, error) {
	defer lis.Close()
	stop := context.AfterFunc(ctx, func() { lis.Close() })
	defer stop()

	logger.Infof("Waiting for peer on %s", lis.Addr())
	conn, err := lis.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("channel: failed to accept on %s: %w", lis.Addr(), err)
	}
	logger.Infof("Connection from: %s", conn.RemoteAddr())
	return &Channel{Conn: conn}, nil
}

// Connect dials host:port until it succeeds, pausing opts.ConnectInterval
// between attempts. There is no maximum number of attempts; only ctx ends
// the loop early.
func Connect(ctx context.Context, host string, port int, opts Options) (*Channel, error) {
	opts.fill()
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	limiter := rate.NewLimiter(rate.Every(opts.ConnectInterval), 1)

	var d net.Dialer
	for attempt := 1; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("channel: gave up connecting to %s after %d attempts: %w", addr, attempt-1, err)
		}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			opts.Logger.Infof("Connected to %s", addr)
			return &Channel{Conn: conn}, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("channel: gave up connecting to %s after %d attempts: %w", addr, attempt, ctx.Err())
		}
		opts.Logger.Warnf("Connection to %s failed (attempt %d), retrying: %v", addr, attempt, err)
	}
}
