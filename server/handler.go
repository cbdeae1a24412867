package server

import (
	"github.com/sirupsen/logrus"

	"github.com/nczempin/httpd-go-uring/protocol"
	"github.com/nczempin/httpd-go-uring/resolver"
)

// Handler turns the bytes of one request into the bytes of its response
type Handler struct {
	resolver *resolver.Resolver
	log      *logrus.Entry
}

// NewHandler creates a handler resolving paths with r
func NewHandler(r *resolver.Resolver, log *logrus.Entry) *Handler {
	return &Handler{
		resolver: r,
		log:      log,
	}
}

// Handle parses raw, resolves the path and builds the response.
//
// It returns nil when raw is not valid UTF-8: such connections are closed
// without any response. A decodable but malformed request line gets a 400.
func (h *Handler) Handle(raw []byte) []byte {
	text, err := protocol.DecodeRequest(raw)
	if err != nil {
		h.log.WithError(err).Debug("dropping connection")
		return nil
	}

	req, err := protocol.ParseRequest(text)
	if err != nil {
		h.log.WithError(err).Debug("bad request")
		return protocol.BadRequest().Bytes()
	}

	res := h.resolver.Resolve(req.Path)
	resp := protocol.BuildResponse(res)

	entry := h.log.WithFields(logrus.Fields{
		"path":   req.Path,
		"kind":   res.Kind.String(),
		"status": resp.Status.Code,
		"bytes":  len(resp.Body),
	})
	if res.Err != nil {
		entry = entry.WithError(res.Err)
	}
	entry.Debug("request")

	return resp.Bytes()
}
