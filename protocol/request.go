package protocol

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/nczempin/httpd-go-uring/errors"
)

const methodGet = "GET"

// pathOffset is where the path starts: the method plus one delimiter byte
const pathOffset = len(methodGet) + 1

// DecodeRequest validates that raw is UTF-8 and returns it as text.
// Bytes cut in the middle of a character at the end of the buffer are
// treated as invalid, exactly like any other malformed sequence.
func DecodeRequest(raw []byte) (string, error) {
	out, _, err := transform.Bytes(encoding.UTF8Validator, raw)
	if err != nil {
		return "", errors.NewRequestError(errors.RequestErrorInvalidUtf8, "request is not valid UTF-8", err)
	}
	return string(out), nil
}

// ParseRequest extracts the request path from the request line in text.
//
// Only the "GET" prefix is checked. The path is everything from the fifth
// byte up to the next space; no URL decoding or query stripping is done.
func ParseRequest(text string) (*HttpRequest, error) {
	if !strings.HasPrefix(text, methodGet) {
		return nil, errors.NewRequestError(errors.RequestErrorUnsupportedMethod, "request does not start with GET", nil)
	}

	if len(text) < pathOffset || (len(text) > pathOffset && !utf8.RuneStart(text[pathOffset])) {
		return nil, errors.NewRequestError(errors.RequestErrorMissingPath, "request line too short", nil)
	}

	rest := text[pathOffset:]
	end := strings.IndexByte(rest, ' ')
	if end < 0 {
		return nil, errors.NewRequestError(errors.RequestErrorMissingPath, "no space after request path", nil)
	}

	return &HttpRequest{Path: rest[:end]}, nil
}
