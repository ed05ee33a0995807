package channel

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/relab/fedwalk/logging"
	"golang.org/x/sync/errgroup"
)

func testOptions() Options {
	return Options{
		BindRetryDelay:  200 * time.Millisecond,
		ConnectInterval: 20 * time.Millisecond,
		Logger:          logging.Nop(),
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer lis.Close()
	return lis.Addr().(*net.TCPAddr).Port
}

func establish(t *testing.T, ctx context.Context, port int, connectDelay, listenDelay time.Duration) (server, client *Channel) {
	t.Helper()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		time.Sleep(connectDelay)
		client, err = Connect(ctx, "127.0.0.1", port, testOptions())
		return err
	})
	g.Go(func() (err error) {
		time.Sleep(listenDelay)
		server, err = Listen(ctx, "127.0.0.1", port, testOptions())
		return err
	})
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	return server, client
}

func TestConnectBeforeListen(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server, client := establish(t, ctx, freePort(t), 0, 150*time.Millisecond)
	defer server.Close()
	defer client.Close()

	if _, err := client.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 5)
	if _, err := io.ReadFull(server, buf); err != nil {
		t.Fatal(err)
	}
	if got := string(buf); got != "hello" {
		t.Errorf("got: %q, want: %q", got, "hello")
	}
}

func TestListenRetriesBindOnce(t *testing.T) {
	port := freePort(t)
	blocker, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", itoa(port)))
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		blocker.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// connect only once the blocking listener is gone, so that the client
	// cannot end up in its accept backlog
	server, client := establish(t, ctx, port, 100*time.Millisecond, 0)
	server.Close()
	client.Close()
}

func TestListenBindFailsTwice(t *testing.T) {
	blocker, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer blocker.Close()
	port := blocker.Addr().(*net.TCPAddr).Port

	start := time.Now()
	_, err = Listen(context.Background(), "127.0.0.1", port, testOptions())
	if !errors.Is(err, ErrBind) {
		t.Fatalf("got: %v, want: %v", err, ErrBind)
	}
	if elapsed := time.Since(start); elapsed < testOptions().BindRetryDelay {
		t.Errorf("second bind attempted after %v, want at least %v", elapsed, testOptions().BindRetryDelay)
	}
}

func TestListenCanceled(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := Listen(ctx, "127.0.0.1", port, testOptions())
		errc <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("got: %v, want: %v", err, context.Canceled)
	}
}

func TestConnectRetriesUntilCanceled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err := Connect(ctx, "127.0.0.1", freePort(t), testOptions())
	if err == nil {
		t.Fatal("Connect succeeded without a listener")
	}
	if ctx.Err() == nil {
		t.Errorf("Connect returned before the context ended: %v", err)
	}
}

func TestCloseTwice(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	c := &Channel{Conn: a}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		want    Mode
		wantErr error
	}{
		{name: "subprocess", want: Subprocess},
		{name: "docker", want: Docker},
		{name: "kubernetes", wantErr: ErrUnknownMode},
		{name: "", wantErr: ErrUnknownMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMode(tt.name)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseMode(%q) error: got: %v, want: %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q): got: %q, want: %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestBindAddressSubprocess(t *testing.T) {
	got, err := BindAddress(Subprocess)
	if err != nil {
		t.Fatal(err)
	}
	if got != "localhost" {
		t.Errorf("got: %q, want: %q", got, "localhost")
	}
	if _, err := BindAddress("swarm"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("got: %v, want: %v", err, ErrUnknownMode)
	}
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
