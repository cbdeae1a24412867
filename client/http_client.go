// Package client is a small HTTP/1.1 client for one-shot GET requests
// against servers that close the connection after each response.
package client

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/nczempin/httpd-go-uring/errors"
	"github.com/nczempin/httpd-go-uring/transport"
)

// HttpHeader represents an HTTP header key-value pair
type HttpHeader struct {
	Key   string
	Value string
}

// HttpResponse represents a parsed response
type HttpResponse struct {
	StatusCode    int
	StatusMessage string
	Headers       []HttpHeader
	Body          []byte
	ContentLength int
}

// Header returns the first header value matching key case-insensitively
func (r *HttpResponse) Header(key string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Key, key) {
			return h.Value, true
		}
	}
	return "", false
}

// HttpClient performs requests over a Transport
type HttpClient struct {
	transport transport.Transport
	buffer    []byte
}

// NewHttpClient creates a new HTTP client with the given transport
func NewHttpClient(t transport.Transport) *HttpClient {
	return &HttpClient{
		transport: t,
		buffer:    make([]byte, 0, 1024),
	}
}

// Get connects, sends "GET path HTTP/1.1", reads until the server closes
// the connection and parses what arrived
func (c *HttpClient) Get(host string, port int, path string) (*HttpResponse, error) {
	if path == "" {
		return nil, errors.NewRequestError(errors.RequestErrorMissingPath, "empty path", nil)
	}

	if err := c.transport.Connect(host, port); err != nil {
		return nil, err
	}
	defer c.transport.Close()

	request := fmt.Sprintf("GET %s HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n", path, host)
	if _, err := c.transport.Write([]byte(request)); err != nil {
		return nil, err
	}

	if err := c.readFullResponse(); err != nil {
		return nil, err
	}

	return ParseResponse(c.buffer)
}

// readFullResponse reads into the buffer until the peer closes
func (c *HttpClient) readFullResponse() error {
	c.buffer = c.buffer[:0]
	readBuf := make([]byte, 4096)

	for {
		n, err := c.transport.Read(readBuf)
		c.buffer = append(c.buffer, readBuf[:n]...)
		if err != nil {
			if errors.IsTransport(err, errors.TransportErrorConnectionClosed) {
				return nil
			}
			return err
		}
	}
}

// headerEnd finds the blank line ending the header block, accepting either
// LF or CRLF framing. It returns the header length and the separator length.
func headerEnd(buf []byte) (int, int) {
	lf := bytes.Index(buf, []byte("\n\n"))
	crlf := bytes.Index(buf, []byte("\r\n\r\n"))

	switch {
	case lf < 0 && crlf < 0:
		return -1, 0
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return crlf, 4
	default:
		return lf, 2
	}
}

// ParseResponse parses a complete response held in buf
func ParseResponse(buf []byte) (*HttpResponse, error) {
	end, sepLen := headerEnd(buf)
	if end < 0 {
		// A bodiless response may end right after its last header line
		trimmed := bytes.TrimRight(buf, "\r\n")
		if len(trimmed) == 0 {
			return nil, errors.NewRequestError(errors.RequestErrorInvalidStatusLine, "empty response", nil)
		}
		end, sepLen = len(trimmed), len(buf)-len(trimmed)
	}

	headersBlock := buf[:end]
	body := buf[end+sepLen:]

	// Split into status line and rest of headers
	parts := bytes.SplitN(headersBlock, []byte("\n"), 2)
	statusLine := bytes.TrimSuffix(parts[0], []byte("\r"))

	// Parse status line: "HTTP/1.1 200 OK"
	statusParts := bytes.SplitN(statusLine, []byte(" "), 3)
	if len(statusParts) < 2 || !bytes.HasPrefix(statusParts[0], []byte("HTTP/")) {
		return nil, errors.NewRequestError(
			errors.RequestErrorInvalidStatusLine,
			fmt.Sprintf("invalid status line %q", statusLine),
			nil,
		)
	}

	statusCode, err := strconv.Atoi(string(statusParts[1]))
	if err != nil {
		return nil, errors.NewRequestError(
			errors.RequestErrorInvalidStatusLine,
			fmt.Sprintf("invalid status code: %s", statusParts[1]),
			err,
		)
	}

	resp := &HttpResponse{
		StatusCode:    statusCode,
		ContentLength: -1,
	}
	if len(statusParts) >= 3 {
		resp.StatusMessage = string(statusParts[2])
	}

	// Parse headers
	if len(parts) > 1 {
		for _, line := range bytes.Split(parts[1], []byte("\n")) {
			line = bytes.TrimSuffix(line, []byte("\r"))
			if len(line) == 0 {
				break
			}

			headerParts := bytes.SplitN(line, []byte(":"), 2)
			if len(headerParts) == 2 {
				resp.Headers = append(resp.Headers, HttpHeader{
					Key:   string(headerParts[0]),
					Value: strings.TrimSpace(string(headerParts[1])),
				})
			}
		}
	}

	if v, ok := resp.Header("Content-Length"); ok {
		if length, err := strconv.Atoi(v); err == nil {
			resp.ContentLength = length
		}
	}

	if resp.ContentLength >= 0 {
		if len(body) < resp.ContentLength {
			return nil, errors.NewRequestError(
				errors.RequestErrorIncompleteResponse,
				"connection closed before complete response received",
				nil,
			)
		}
		body = body[:resp.ContentLength]
	}

	resp.Body = make([]byte, len(body))
	copy(resp.Body, body)

	return resp, nil
}
