package source

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("source document not found")

// Ref addresses one file in a repository. An empty Ref means the default
// branch.
type Ref struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Path  string `json:"path"`
	Ref   string `json:"ref,omitempty"`
}

func (r Ref) String() string {
	s := fmt.Sprintf("%s/%s/%s", r.Owner, r.Repo, r.Path)
	if r.Ref != "" {
		s += "@" + r.Ref
	}
	return s
}

type Document struct {
	Path    string `json:"path"`
	SHA     string `json:"sha,omitempty"`
	Content string `json:"content"`
}

// DocumentSource fetches prompt documents from a remote store.
type DocumentSource interface {
	Fetch(ctx context.Context, ref Ref) (Document, error)
}
