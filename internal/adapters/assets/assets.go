// Package assets serves the browser UI bundled into the binary.
package assets

import (
	"embed"
	"io/fs"
	"mime"
	"os"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

//go:embed www
var embedded embed.FS

const (
	IndexPage    = "index.html"
	LeaderPage   = "leader.html"
	NotFoundPage = "404.html"
)

// Store looks up assets by request path.
type Store struct {
	files fs.FS
}

// New serves from dir when set, otherwise from the embedded bundle.
func New(dir string) *Store {
	if dir != "" {
		return &Store{files: os.DirFS(dir)}
	}
	sub, err := fs.Sub(embedded, "www")
	if err != nil {
		panic(err)
	}
	return &Store{files: sub}
}

// Name maps a request path to a cleaned asset name: "/" is the index
// page and leading slashes are dropped.
func Name(reqPath string) string {
	name := path.Clean(strings.TrimLeft(reqPath, "/"))
	if name == "." || name == "" {
		return IndexPage
	}
	return name
}

// Get returns the asset bytes and content type.
func (s *Store) Get(name string) ([]byte, string, bool) {
	name = path.Clean(name)
	if !fs.ValidPath(name) || name == "." {
		return nil, "", false
	}
	data, err := fs.ReadFile(s.files, name)
	if err != nil {
		return nil, "", false
	}
	return data, ContentType(name, data), true
}

// NotFound is the fixed not-found page.
func (s *Store) NotFound() []byte {
	if data, err := fs.ReadFile(s.files, NotFoundPage); err == nil {
		return data
	}
	data, _ := fs.ReadFile(embedded, "www/"+NotFoundPage)
	return data
}

// ContentType guesses from the extension first and sniffs the content
// when the extension is unknown.
func ContentType(name string, data []byte) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return mimetype.Detect(data).String()
}
