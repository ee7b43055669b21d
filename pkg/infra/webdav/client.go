package webdav

import (
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/sheetshim/pkg/domain/interfaces"
	"github.com/m-mizutani/sheetshim/pkg/domain/model"
)

const (
	// SearchEndpoint is the collection that answers SEARCH requests
	SearchEndpoint = "/remote.php/dav/"

	// MethodSearch is the WebDAV SEARCH verb (RFC 5323)
	MethodSearch = "SEARCH"

	defaultTimeout = 30 * time.Second
	maxRedirects   = 10
)

// AppAPI header names, forwarded verbatim to the storage backend
const (
	HeaderAAVersion     = "AA-VERSION"
	HeaderExAppID       = "EX-APP-ID"
	HeaderExAppVersion  = "EX-APP-VERSION"
	HeaderAuthorization = "AUTHORIZATION-APP-API"
	HeaderRequestID     = "AA-REQUEST-ID"
)

// Client talks to a Nextcloud compatible WebDAV backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// Option is a functional option for Client configuration
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds every request made by the client. Zero or negative keeps the default.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewClient creates a client for the backend at baseURL (e.g. "https://cloud.example.com")
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, goerr.New("storage base URL is required")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, goerr.New("storage base URL must be http or https", goerr.V("base_url", baseURL))
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(),
		timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func newHTTPClient() *http.Client {
	return &http.Client{CheckRedirect: checkRedirect}
}

// checkRedirect follows redirects only within the host of the original request. AppAPI
// headers are copied onto every redirected request.
func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return goerr.New("too many redirects", goerr.V("count", len(via)))
	}
	if req.URL.Host != via[0].URL.Host {
		return goerr.New("redirect to another host refused",
			goerr.V("from", via[0].URL.Host),
			goerr.V("to", req.URL.Host))
	}
	return nil
}

// Connect returns a connection authenticating as session
func (c *Client) Connect(session *model.Session) interfaces.StorageConnection {
	return &Connection{
		client:  c,
		session: session,
	}
}
