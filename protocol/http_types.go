package protocol

import "fmt"

// MaxRequestSize is the capacity of the single read taken from a connection
const MaxRequestSize = 1024

// Status is an HTTP status code with the reason phrase written on the wire
type Status struct {
	Code   int
	Reason string
}

var (
	StatusOK         = Status{Code: 200, Reason: "OK"}
	StatusBadRequest = Status{Code: 400, Reason: "BAD REQUEST"}
	StatusNotFound   = Status{Code: 404, Reason: "NOT FOUND"}
)

// String renders the status line without the trailing newline
func (s Status) String() string {
	return fmt.Sprintf("HTTP/1.1 %d %s", s.Code, s.Reason)
}

const (
	ContentTypeHTML  = "text/html"
	ContentTypePlain = "text/plain"
	ContentTypeOctet = "application/octet-stream"
)

// HttpRequest is the part of a request line the server acts on
type HttpRequest struct {
	Path string
}

// HttpResponse is a complete response ready to be framed
type HttpResponse struct {
	Status      Status
	ContentType string
	Body        []byte
}
