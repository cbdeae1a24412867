package transport

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nczempin/httpd-go-uring/errors"
)

var loopback = Endpoint{Host: "127.0.0.1", Port: 0}

// listenOrSkip binds with engine, skipping when io_uring is unavailable
func listenOrSkip(t *testing.T, engine Engine, ep Endpoint) Listener {
	t.Helper()

	l, err := Listen(engine, ep, DefaultBacklog)
	if errors.IsSetup(err, errors.SetupErrorIoUringInit) {
		t.Skipf("io_uring not available: %v", err)
	}
	if err != nil {
		t.Fatalf("Failed to listen with %s: %v", engine, err)
	}
	return l
}

func TestListenSocket_ReusePort(t *testing.T) {
	first := listenOrSkip(t, EngineNet, loopback)
	defer first.Close()

	port := first.Addr().(*net.TCPAddr).Port
	second := listenOrSkip(t, EngineNet, Endpoint{Host: "127.0.0.1", Port: port})
	defer second.Close()

	if got := second.Addr().(*net.TCPAddr).Port; got != port {
		t.Errorf("Expected both listeners on port %d, second got %d", port, got)
	}
}

func TestListenSocket_InvalidEndpoint(t *testing.T) {
	tests := []Endpoint{
		{Host: "not-an-ip", Port: 80},
		{Host: "127.0.0.1", Port: 70000},
		{Host: "127.0.0.1", Port: -1},
	}

	for _, ep := range tests {
		_, err := ListenSocket(ep, DefaultBacklog)
		if !errors.IsSetup(err, errors.SetupErrorInvalidEndpoint) {
			t.Errorf("ListenSocket(%v): expected SetupErrorInvalidEndpoint, got %v", ep, err)
		}
	}
}

func TestListenSocket_BindFailure(t *testing.T) {
	// TEST-NET-3 is never assigned to a local interface
	_, err := ListenSocket(Endpoint{Host: "203.0.113.1", Port: 0}, DefaultBacklog)
	if !errors.IsSetup(err, errors.SetupErrorBind) {
		t.Errorf("Expected SetupErrorBind, got %v", err)
	}
}

func TestListen_UnknownEngine(t *testing.T) {
	_, err := Listen("carrier-pigeon", loopback, DefaultBacklog)
	if !errors.IsSetup(err, errors.SetupErrorUnknownEngine) {
		t.Errorf("Expected SetupErrorUnknownEngine, got %v", err)
	}
}

func TestListener_Engines_RoundTrip(t *testing.T) {
	for _, engine := range Engines {
		t.Run(string(engine), func(t *testing.T) {
			l := listenOrSkip(t, engine, loopback)
			defer Release(l)

			received := make(chan string, 1)
			go func() {
				conn, err := l.Accept()
				if err != nil {
					received <- "accept: " + err.Error()
					return
				}
				defer conn.Close()

				buf := make([]byte, 1024)
				n, err := conn.Read(buf)
				if err != nil {
					received <- "read: " + err.Error()
					return
				}
				received <- string(buf[:n])
				conn.Write([]byte("pong:" + string(buf[:n])))
			}()

			client, err := net.Dial("tcp", l.Addr().String())
			if err != nil {
				t.Fatalf("Failed to dial: %v", err)
			}
			defer client.Close()

			if _, err := client.Write([]byte("ping")); err != nil {
				t.Fatalf("Failed to write: %v", err)
			}

			select {
			case msg := <-received:
				if msg != "ping" {
					t.Fatalf("Expected %q, got %q", "ping", msg)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("Timeout waiting for server read")
			}

			client.SetReadDeadline(time.Now().Add(5 * time.Second))
			reply, err := io.ReadAll(client)
			if err != nil {
				t.Fatalf("Failed to read reply: %v", err)
			}
			if string(reply) != "pong:ping" {
				t.Errorf("Expected %q, got %q", "pong:ping", reply)
			}
		})
	}
}

func TestListener_Engines_CloseWakesAccept(t *testing.T) {
	for _, engine := range Engines {
		t.Run(string(engine), func(t *testing.T) {
			l := listenOrSkip(t, engine, loopback)

			result := make(chan error, 1)
			go func() {
				_, err := l.Accept()
				result <- err
			}()

			time.Sleep(50 * time.Millisecond)
			Release(l)

			select {
			case err := <-result:
				if !errors.IsTransport(err, errors.TransportErrorListenerClosed) {
					t.Errorf("Expected TransportErrorListenerClosed, got %v", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("Accept did not return after Close")
			}
		})
	}
}

func TestListener_Engines_PeerClosed(t *testing.T) {
	for _, engine := range Engines {
		t.Run(string(engine), func(t *testing.T) {
			l := listenOrSkip(t, engine, loopback)
			defer Release(l)

			client, err := net.Dial("tcp", l.Addr().String())
			if err != nil {
				t.Fatalf("Failed to dial: %v", err)
			}
			client.Close()

			conn, err := l.Accept()
			if err != nil {
				t.Fatalf("Failed to accept: %v", err)
			}
			defer conn.Close()

			buf := make([]byte, 1024)
			_, err = conn.Read(buf)
			if !errors.IsTransport(err, errors.TransportErrorConnectionClosed) {
				t.Errorf("Expected TransportErrorConnectionClosed, got %v", err)
			}
			if !stderrors.Is(err, io.EOF) {
				t.Errorf("Expected end of stream to wrap io.EOF, got %v", err)
			}
		})
	}
}

func TestListener_Engines_LargeWrite(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789abcdef"), 64*1024)

	for _, engine := range Engines {
		t.Run(string(engine), func(t *testing.T) {
			l := listenOrSkip(t, engine, loopback)
			defer Release(l)

			written := make(chan error, 1)
			go func() {
				conn, err := l.Accept()
				if err != nil {
					written <- err
					return
				}
				defer conn.Close()

				buf := make([]byte, 1024)
				if _, err := conn.Read(buf); err != nil {
					written <- err
					return
				}
				n, err := conn.Write(payload)
				if err == nil && n != len(payload) {
					err = fmt.Errorf("short write: %d of %d", n, len(payload))
				}
				written <- err
			}()

			client, err := net.Dial("tcp", l.Addr().String())
			if err != nil {
				t.Fatalf("Failed to dial: %v", err)
			}
			defer client.Close()

			if _, err := client.Write([]byte("GET / HTTP/1.1")); err != nil {
				t.Fatalf("Failed to write: %v", err)
			}

			client.SetReadDeadline(time.Now().Add(10 * time.Second))
			got, err := io.ReadAll(client)
			if err != nil {
				t.Fatalf("Failed to read payload: %v", err)
			}
			if err := <-written; err != nil {
				t.Fatalf("Server write failed: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("Expected %d bytes, got %d", len(payload), len(got))
			}
		})
	}
}

func TestCompletion(t *testing.T) {
	tests := []struct {
		name    string
		res     int
		err     error
		want    int
		wantErr error
	}{
		{name: "bytes", res: 42, want: 42},
		{name: "end of stream", res: 0, want: 0},
		{name: "reset", res: -int(unix.ECONNRESET), wantErr: unix.ECONNRESET},
		{name: "broken pipe", res: -int(unix.EPIPE), wantErr: unix.EPIPE},
		{name: "not completed", res: 7, err: io.ErrUnexpectedEOF, wantErr: io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := completion(tt.res, tt.err)
			if tt.wantErr != nil {
				if !stderrors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if n != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, n)
			}
		})
	}
}
