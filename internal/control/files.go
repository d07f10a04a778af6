package control

import (
	"context"

	"github.com/1ureka/nexremote/internal/protocol"
)

// Files browses the host filesystem.
type Files struct{ c Conn }

func NewFiles(c Conn) *Files { return &Files{c: c} }

// List returns the entries of a directory; an empty path lists the roots.
func (f *Files) List(ctx context.Context, path string) (protocol.FileListing, error) {
	return requestAs(ctx, f.c, protocol.FileExplorer{Action: "list", Path: path},
		func(l protocol.FileListing) bool { return l.Action == "list" })
}

func (f *Files) Search(ctx context.Context, path, query string) (protocol.FileListing, error) {
	return requestAs(ctx, f.c, protocol.FileExplorer{Action: "search", Path: path, Query: query},
		func(l protocol.FileListing) bool { return l.Action == "search" && l.Query == query })
}

// Open opens path with its default application on the host.
func (f *Files) Open(ctx context.Context, path string) (protocol.FileResult, error) {
	return f.result(ctx, "open", path, "file_opened", "folder_opened")
}

func (f *Files) Properties(ctx context.Context, path string) (protocol.FileResult, error) {
	return f.result(ctx, "properties", path, "properties")
}

// CopyPath copies path to the host clipboard.
func (f *Files) CopyPath(ctx context.Context, path string) (protocol.FileResult, error) {
	return f.result(ctx, "copy_path", path, "path_copied")
}

func (f *Files) result(ctx context.Context, action, path string, replies ...string) (protocol.FileResult, error) {
	return requestAs(ctx, f.c, protocol.FileExplorer{Action: action, Path: path},
		func(r protocol.FileResult) bool {
			if r.Path != path {
				return false
			}
			for _, a := range replies {
				if r.Action == a {
					return true
				}
			}
			return false
		})
}
