package protocol

import (
	"testing"

	"github.com/nczempin/httpd-go-uring/resolver"
)

func TestBuildResponse_File(t *testing.T) {
	res := &resolver.Resolution{
		Kind:        resolver.KindFile,
		Body:        []byte("hi"),
		ContentType: "text/html",
	}

	got := string(BuildResponse(res).Bytes())
	want := "HTTP/1.1 200 OK\nContent-Type: text/html\nContent-Length: 2\n\nhi"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestBuildResponse_Directory(t *testing.T) {
	body := resolver.RenderListing([]string{"./a"})
	res := &resolver.Resolution{
		Kind:    resolver.KindDirectory,
		Entries: []string{"./a"},
		Body:    body,
	}

	resp := BuildResponse(res)
	if resp.Status != StatusOK {
		t.Errorf("Expected 200, got %v", resp.Status)
	}
	if resp.ContentType != ContentTypeHTML {
		t.Errorf("Expected %q, got %q", ContentTypeHTML, resp.ContentType)
	}

	got := string(resp.Bytes())
	want := "HTTP/1.1 200 OK\nContent-Type: text/html\nContent-Length: 106\n\n" + string(body)
	if len(body) != 106 {
		t.Fatalf("Listing length changed: %d", len(body))
	}
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestBuildResponse_NotFound(t *testing.T) {
	got := string(BuildResponse(&resolver.Resolution{Kind: resolver.KindNotFound}).Bytes())
	want := "HTTP/1.1 404 NOT FOUND\nContent-Type: text/plain\nContent-Length: 0\n\n"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestBadRequest_Bytes(t *testing.T) {
	got := string(BadRequest().Bytes())
	want := "HTTP/1.1 400 BAD REQUEST\nContent-Type: text/plain\nContent-Length: 0\n\n"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestHttpResponse_Bytes_BinaryBody(t *testing.T) {
	body := []byte{0x00, 0xff, '\n', '\r'}
	resp := &HttpResponse{Status: StatusOK, ContentType: ContentTypeOctet, Body: body}

	got := resp.Bytes()
	header := "HTTP/1.1 200 OK\nContent-Type: application/octet-stream\nContent-Length: 4\n\n"
	if string(got[:len(header)]) != header {
		t.Errorf("Expected header %q, got %q", header, got[:len(header)])
	}
	if string(got[len(header):]) != string(body) {
		t.Errorf("Expected body %v, got %v", body, got[len(header):])
	}
}
