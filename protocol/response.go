package protocol

import (
	"strconv"

	"github.com/nczempin/httpd-go-uring/resolver"
)

// Header lines are separated by a bare LF, not CRLF. Existing clients of
// this server depend on that framing.
const lineEnd = "\n"

// Bytes frames the response: status line, Content-Type, Content-Length,
// a blank line, then the body verbatim.
func (r *HttpResponse) Bytes() []byte {
	length := strconv.Itoa(len(r.Body))

	buf := make([]byte, 0, 64+len(r.ContentType)+len(r.Body))
	buf = append(buf, r.Status.String()...)
	buf = append(buf, lineEnd...)
	buf = append(buf, "Content-Type: "...)
	buf = append(buf, r.ContentType...)
	buf = append(buf, lineEnd...)
	buf = append(buf, "Content-Length: "...)
	buf = append(buf, length...)
	buf = append(buf, lineEnd...)
	buf = append(buf, lineEnd...)
	buf = append(buf, r.Body...)
	return buf
}

// BuildResponse maps a resolution outcome to its response
func BuildResponse(res *resolver.Resolution) *HttpResponse {
	switch res.Kind {
	case resolver.KindDirectory:
		return &HttpResponse{
			Status:      StatusOK,
			ContentType: ContentTypeHTML,
			Body:        res.Body,
		}
	case resolver.KindFile:
		return &HttpResponse{
			Status:      StatusOK,
			ContentType: res.ContentType,
			Body:        res.Body,
		}
	default:
		return NotFound()
	}
}

// NotFound is the empty 404 response
func NotFound() *HttpResponse {
	return &HttpResponse{
		Status:      StatusNotFound,
		ContentType: ContentTypePlain,
	}
}

// BadRequest is the empty 400 response
func BadRequest() *HttpResponse {
	return &HttpResponse{
		Status:      StatusBadRequest,
		ContentType: ContentTypePlain,
	}
}
