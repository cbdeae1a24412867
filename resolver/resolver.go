// Package resolver maps request paths onto the file system.
package resolver

import (
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/nczempin/httpd-go-uring/errors"
)

// Kind tags the outcome of a resolution
type Kind int

const (
	KindNotFound Kind = iota
	KindDirectory
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	default:
		return "not-found"
	}
}

// Resolution is the result of resolving one request path. It is built
// fresh for every request and never cached.
type Resolution struct {
	Kind Kind
	// Entries holds the listed paths for KindDirectory, in listing order
	Entries []string
	// Body is the rendered listing or the file contents
	Body []byte
	// ContentType is the guessed MIME essence for KindFile
	ContentType string
	// Err explains a KindNotFound outcome
	Err error
}

// Resolver resolves request paths relative to Root
type Resolver struct {
	Root        string
	SortEntries bool
}

// New creates a resolver serving root. An empty root means the working directory.
func New(root string, sortEntries bool) *Resolver {
	if root == "" {
		root = "."
	}
	return &Resolver{
		Root:        root,
		SortEntries: sortEntries,
	}
}

// Resolve decides whether urlPath denotes the root, a directory or a file.
//
// The first character of urlPath is dropped to get a relative path. No
// traversal sanitization is applied: ".." segments and absolute paths
// (from a leading "//") reach the file system as given.
func (r *Resolver) Resolve(urlPath string) *Resolution {
	if urlPath == "/" {
		return r.ResolveDirectory(".")
	}

	rel := stripFirst(urlPath)
	if rel == "" {
		return notFound(errors.NewResourceError(errors.ResourceErrorNotFound, "empty path", nil))
	}

	if info, err := os.Stat(r.fsPath(rel)); err == nil && info.IsDir() {
		return r.ResolveDirectory(rel)
	}
	return r.ResolveFile(rel)
}

// ResolveDirectory lists the immediate entries of rel. Entry paths are
// request-relative (rel joined with the entry name), never root-prefixed.
func (r *Resolver) ResolveDirectory(rel string) *Resolution {
	dir, err := os.Open(r.fsPath(rel))
	if err != nil {
		return notFound(errors.NewResourceError(errors.ResourceErrorNotFound, "cannot open directory "+rel, err))
	}
	defer dir.Close()

	// ReadDir on the handle keeps the order the file system yields.
	// A partial result is still listed.
	dirEntries, err := dir.ReadDir(-1)
	if err != nil && len(dirEntries) == 0 {
		return notFound(errors.NewResourceError(errors.ResourceErrorNotReadable, "cannot read directory "+rel, err))
	}

	entries := make([]string, 0, len(dirEntries))
	for _, de := range dirEntries {
		entries = append(entries, joinEntry(rel, de.Name()))
	}
	if r.SortEntries {
		sort.Strings(entries)
	}

	return &Resolution{
		Kind:    KindDirectory,
		Entries: entries,
		Body:    RenderListing(entries),
	}
}

// ResolveFile reads rel fully into memory
func (r *Resolver) ResolveFile(rel string) *Resolution {
	full := r.fsPath(rel)

	info, err := os.Stat(full)
	if err != nil {
		return notFound(errors.NewResourceError(errors.ResourceErrorNotFound, "cannot stat "+rel, err))
	}
	if !info.Mode().IsRegular() {
		return notFound(errors.NewResourceError(errors.ResourceErrorNotRegular, rel+" is not a regular file", nil))
	}

	content, err := os.ReadFile(full)
	if err != nil {
		return notFound(errors.NewResourceError(errors.ResourceErrorNotReadable, "cannot read "+rel, err))
	}

	return &Resolution{
		Kind:        KindFile,
		Body:        content,
		ContentType: ContentTypeFor(rel),
	}
}

// fsPath prefixes rel with Root without cleaning it, so "..", "." and a
// trailing "/" are left for the kernel to resolve
func (r *Resolver) fsPath(rel string) string {
	if strings.HasPrefix(rel, "/") || r.Root == "." {
		return rel
	}
	return strings.TrimSuffix(r.Root, "/") + "/" + rel
}

func notFound(err error) *Resolution {
	return &Resolution{Kind: KindNotFound, Err: err}
}

// stripFirst drops the leading character, normally the "/"
func stripFirst(p string) string {
	if p == "" {
		return ""
	}
	_, size := utf8.DecodeRuneInString(p)
	return p[size:]
}

func joinEntry(dir, name string) string {
	if strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + "/" + name
}
