package ports

import "context"

// ComposeDirPort finds the metadata files of a compose on disk or
// behind a URL.
type ComposeDirPort interface {
	// Root returns the compose directory holding "metadata".
	Root(ctx context.Context, composePath string) (string, error)
	// Find returns the first candidate below root that exists.
	Find(ctx context.Context, root string, candidates ...string) (string, error)
}
