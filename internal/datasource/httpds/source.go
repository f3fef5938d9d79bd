package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// Source serves one relation file from a URL.
type Source struct {
	c    *Client
	name string
	url  string
}

// NewSource returns a Source for relation name at rawURL.
func NewSource(c *Client, name, rawURL string) *Source {
	return &Source{c: c, name: name, url: rawURL}
}

// RelationURL joins base with the file name for relation name. tables
// optionally overrides the file stem.
func RelationURL(base, name string, tables map[string]string) (string, error) {
	stem := name
	if t, ok := tables[name]; ok && t != "" {
		stem = t
	}
	if path.Ext(stem) == "" {
		stem += ".csv"
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("httpds: parse base url: %w", err)
	}
	return u.JoinPath(stem).String(), nil
}

// Name implements datasource.Source.
func (s *Source) Name() string { return s.name }

// URL returns the resolved relation URL.
func (s *Source) URL() string { return s.url }

// Open GETs the relation file. Any status other than 200 is an error.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.c.Get(ctx, s.url, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("httpds: GET %s: unexpected status %d", s.url, resp.StatusCode)
	}
	return resp.Body, nil
}

// Stamp returns the server validators (ETag, Last-Modified, Content-Length)
// for the relation file. It returns "" when the server rejects HEAD (405,
// 501) or sends no ETag and no Last-Modified, so callers hash the content
// instead.
func (s *Source) Stamp(ctx context.Context) (string, error) {
	resp, err := s.c.Head(ctx, s.url)
	if err != nil {
		return "", err
	}
	_ = resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusMethodNotAllowed, http.StatusNotImplemented:
		return "", nil
	default:
		return "", fmt.Errorf("httpds: HEAD %s: unexpected status %d", s.url, resp.StatusCode)
	}
	etag := resp.Header.Get("ETag")
	lm := resp.Header.Get("Last-Modified")
	if etag == "" && lm == "" {
		return "", nil
	}
	return strings.Join([]string{etag, lm, resp.Header.Get("Content-Length")}, "|"), nil
}
