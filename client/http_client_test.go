package client

import (
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/nczempin/httpd-go-uring/errors"
	"github.com/nczempin/httpd-go-uring/transport"
)

// setupTestServer creates a one-shot server that runs handler and closes
func setupTestServer(t *testing.T, handler func(net.Conn)) (string, int, func()) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}

	addr := listener.Addr().(*net.TCPAddr)

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}()

	cleanup := func() {
		listener.Close()
	}

	return addr.IP.String(), addr.Port, cleanup
}

func TestHttpClient_Get_LFFraming(t *testing.T) {
	requests := make(chan string, 1)
	host, port, cleanup := setupTestServer(t, func(conn net.Conn) {
		buf := make([]byte, 1024)
		n, _ := conn.Read(buf)
		requests <- string(buf[:n])
		conn.Write([]byte("HTTP/1.1 200 OK\nContent-Type: text/html\nContent-Length: 2\n\nhi"))
	})
	defer cleanup()

	client := NewHttpClient(transport.NewTcpTransport())
	resp, err := client.Get(host, port, "/index.html")
	if err != nil {
		t.Fatalf("GET request failed: %v", err)
	}

	if got := <-requests; !strings.HasPrefix(got, "GET /index.html HTTP/1.1\r\n") {
		t.Errorf("Unexpected request line in %q", got)
	}

	if resp.StatusCode != 200 || resp.StatusMessage != "OK" {
		t.Errorf("Expected 200 OK, got %d %s", resp.StatusCode, resp.StatusMessage)
	}
	if ct, _ := resp.Header("content-type"); ct != "text/html" {
		t.Errorf("Expected text/html, got %q", ct)
	}
	if string(resp.Body) != "hi" {
		t.Errorf("Expected body %q, got %q", "hi", resp.Body)
	}
}

func TestHttpClient_Get_CRLFFraming(t *testing.T) {
	responseBody := "Hello, World!"
	response := fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Length: %d\r\n\r\n%s", len(responseBody), responseBody)

	host, port, cleanup := setupTestServer(t, func(conn net.Conn) {
		buf := make([]byte, 1024)
		conn.Read(buf)
		conn.Write([]byte(response))
	})
	defer cleanup()

	resp, err := NewHttpClient(transport.NewTcpTransport()).Get(host, port, "/test")
	if err != nil {
		t.Fatalf("GET request failed: %v", err)
	}

	if string(resp.Body) != responseBody {
		t.Errorf("Expected body %q, got %q", responseBody, resp.Body)
	}
}

func TestHttpClient_Get_EmptyPath(t *testing.T) {
	_, err := NewHttpClient(transport.NewTcpTransport()).Get("127.0.0.1", 1, "")
	if !errors.IsType(err, errors.ErrorRequest) {
		t.Errorf("Expected request error, got %v", err)
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantStatus int
		wantBody   string
	}{
		{name: "not found", raw: "HTTP/1.1 404 NOT FOUND\nContent-Type: text/plain\nContent-Length: 0\n\n", wantStatus: 404},
		{name: "no blank line", raw: "HTTP/1.1 400 BAD REQUEST\nContent-Type: text/plain\nContent-Length: 0\n", wantStatus: 400},
		{name: "body with blank lines", raw: "HTTP/1.1 200 OK\nContent-Length: 5\n\na\n\nb\n", wantStatus: 200, wantBody: "a\n\nb\n"},
		{name: "crlf body with blank lines", raw: "HTTP/1.1 200 OK\r\nContent-Length: 6\r\n\r\nx\n\ny\r\n", wantStatus: 200, wantBody: "x\n\ny\r\n"},
		{name: "no content length", raw: "HTTP/1.1 200 OK\r\n\r\nrest", wantStatus: 200, wantBody: "rest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponse([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseResponse failed: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if string(resp.Body) != tt.wantBody {
				t.Errorf("Expected body %q, got %q", tt.wantBody, resp.Body)
			}
		})
	}
}

func TestParseResponse_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":      "",
		"garbage":    "hello\n\n",
		"bad code":   "HTTP/1.1 abc OK\n\n",
		"short body": "HTTP/1.1 200 OK\nContent-Length: 10\n\nabc",
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseResponse([]byte(raw)); !errors.IsType(err, errors.ErrorRequest) {
				t.Errorf("Expected request error, got %v", err)
			}
		})
	}
}
