package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"

	portsource "github.com/alanyang/promptkit/internal/port/source"
)

var _ portsource.DocumentSource = (*Source)(nil)

// Source reads prompt documents through the GitHub contents API.
type Source struct {
	gh *github.Client
}

// NewSource builds a client authenticated with token. An empty token gives
// an anonymous client, which GitHub rate-limits heavily.
func NewSource(token string) *Source {
	httpClient := http.DefaultClient
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	return &Source{gh: github.NewClient(httpClient)}
}

// WithBaseURL points the client at another API root, such as GitHub
// Enterprise.
func (s *Source) WithBaseURL(raw string) (*Source, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	s.gh.BaseURL = u
	return s, nil
}

func (s *Source) Fetch(ctx context.Context, ref portsource.Ref) (portsource.Document, error) {
	if ref.Owner == "" || ref.Repo == "" || ref.Path == "" {
		return portsource.Document{}, fmt.Errorf("incomplete reference %q", ref.String())
	}

	var opts *github.RepositoryContentGetOptions
	if ref.Ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: ref.Ref}
	}

	file, dir, resp, err := s.gh.Repositories.GetContents(ctx, ref.Owner, ref.Repo, ref.Path, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return portsource.Document{}, portsource.ErrNotFound
		}
		return portsource.Document{}, fmt.Errorf("get contents: %w", err)
	}
	if file == nil {
		if dir != nil {
			return portsource.Document{}, fmt.Errorf("%s is a directory", ref.Path)
		}
		return portsource.Document{}, errors.New("empty contents response")
	}

	content, err := file.GetContent()
	if err != nil {
		return portsource.Document{}, fmt.Errorf("decode contents: %w", err)
	}
	return portsource.Document{
		Path:    file.GetPath(),
		SHA:     file.GetSHA(),
		Content: content,
	}, nil
}
