package webdav

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/sheetshim/pkg/domain/model"
	"github.com/m-mizutani/sheetshim/pkg/domain/types"
)

// Connection is a Client bound to the credentials of one session
type Connection struct {
	client  *Client
	session *model.Session
}

// Search sends a SEARCH request with body to the search endpoint
func (c *Connection) Search(ctx context.Context, body []byte) ([]byte, error) {
	return c.do(ctx, MethodSearch, SearchEndpoint, body, "application/xml")
}

// Download fetches the file at path, which is relative to the backend root
func (c *Connection) Download(ctx context.Context, path string) (*model.RemoteFile, error) {
	data, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	return &model.RemoteFile{
		Path: path,
		Data: data,
	}, nil
}

func (c *Connection) do(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.client.timeout)
	defer cancel()

	url := c.client.baseURL + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage request",
			goerr.T(types.ErrTagUpstreamUnavailable),
			goerr.V("method", method),
			goerr.V("path", path))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.authenticate(req)

	resp, err := c.client.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "storage request failed",
			goerr.T(types.ErrTagUpstreamUnavailable),
			goerr.V("method", method),
			goerr.V("path", path))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, goerr.New("unexpected storage response status",
			goerr.T(types.ErrTagUpstreamUnavailable),
			goerr.V("method", method),
			goerr.V("path", path),
			goerr.V("status", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read storage response body",
			goerr.T(types.ErrTagUpstreamUnavailable),
			goerr.V("method", method),
			goerr.V("path", path))
	}

	return data, nil
}

func (c *Connection) authenticate(req *http.Request) {
	if c.session == nil {
		return
	}

	if h := c.session.AppAPI; h != nil {
		req.Header.Set(HeaderAAVersion, h.AAVersion)
		req.Header.Set(HeaderExAppID, h.ExAppID)
		req.Header.Set(HeaderExAppVersion, h.ExAppVersion)
		req.Header.Set(HeaderAuthorization, h.Authorization)
		if h.RequestID != "" {
			req.Header.Set(HeaderRequestID, h.RequestID)
		}
		return
	}

	if c.session.Password != "" {
		req.SetBasicAuth(c.session.UserID, c.session.Password)
	}
}
