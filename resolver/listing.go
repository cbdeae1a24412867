package resolver

import (
	"mime"
	"path/filepath"
	"strings"
)

// RenderListing wraps one anchor per entry in a bare HTML document. The
// entry path is used verbatim for both the href and the link text.
func RenderListing(entries []string) []byte {
	var links strings.Builder
	for _, e := range entries {
		links.WriteString("<a href='")
		links.WriteString(e)
		links.WriteString("'>")
		links.WriteString(e)
		links.WriteString("</a><br/>")
	}

	var doc strings.Builder
	doc.WriteString("\n        <html>\n        <body>\n        ")
	doc.WriteString(links.String())
	doc.WriteString("\n        </body>\n        </html>\n        ")
	return []byte(doc.String())
}

// ContentTypeFor guesses a MIME essence from the extension of name alone.
// Parameters such as charset are dropped.
func ContentTypeFor(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return "application/octet-stream"
	}

	t := mime.TypeByExtension(ext)
	if t == "" {
		return "application/octet-stream"
	}

	essence, _, err := mime.ParseMediaType(t)
	if err != nil {
		return "application/octet-stream"
	}
	return essence
}

// RegisterTypes adds extension to MIME type mappings, e.g. ".md" -> "text/markdown"
func RegisterTypes(types map[string]string) error {
	for ext, typ := range types {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if err := mime.AddExtensionType(ext, typ); err != nil {
			return err
		}
	}
	return nil
}
