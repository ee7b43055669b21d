package webdav_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/sheetshim/pkg/domain/model"
	"github.com/m-mizutani/sheetshim/pkg/domain/types"
	"github.com/m-mizutani/sheetshim/pkg/infra/webdav"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{name: "https URL", baseURL: "https://cloud.example.com", wantErr: false},
		{name: "http URL with trailing slash", baseURL: "http://localhost:8080/", wantErr: false},
		{name: "empty URL", baseURL: "", wantErr: true},
		{name: "missing scheme", baseURL: "cloud.example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := webdav.NewClient(tt.baseURL)
			if tt.wantErr {
				gt.Error(t, err)
				return
			}
			gt.NoError(t, err)
			gt.NotNil(t, client)
		})
	}
}

func TestConnection_Search(t *testing.T) {
	var (
		gotMethod      string
		gotPath        string
		gotContentType string
		gotBody        string
		gotHeaders     http.Header
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotHeaders = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.WriteHeader(http.StatusMultiStatus)
		_, _ = w.Write([]byte(`<d:multistatus xmlns:d="DAV:"/>`))
	}))
	defer server.Close()

	client, err := webdav.NewClient(server.URL)
	gt.NoError(t, err)

	conn := client.Connect(&model.Session{
		UserID: "alice",
		AppAPI: &model.AppAPIHeaders{
			AAVersion:     "2.0.0",
			ExAppID:       "sheetshim",
			ExAppVersion:  "1.0.0",
			Authorization: "YWxpY2U6c2VjcmV0",
			RequestID:     "req-1",
		},
	})

	resp, err := conn.Search(context.Background(), []byte("<query/>"))
	gt.NoError(t, err)
	gt.Equal(t, string(resp), `<d:multistatus xmlns:d="DAV:"/>`)

	gt.Equal(t, gotMethod, "SEARCH")
	gt.Equal(t, gotPath, "/remote.php/dav/")
	gt.Equal(t, gotContentType, "application/xml")
	gt.Equal(t, gotBody, "<query/>")
	gt.Equal(t, gotHeaders.Get(webdav.HeaderAAVersion), "2.0.0")
	gt.Equal(t, gotHeaders.Get(webdav.HeaderExAppID), "sheetshim")
	gt.Equal(t, gotHeaders.Get(webdav.HeaderExAppVersion), "1.0.0")
	gt.Equal(t, gotHeaders.Get(webdav.HeaderAuthorization), "YWxpY2U6c2VjcmV0")
	gt.Equal(t, gotHeaders.Get(webdav.HeaderRequestID), "req-1")
}

func TestConnection_Search_Status(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "service unavailable", status: http.StatusServiceUnavailable},
		{name: "unauthorized", status: http.StatusUnauthorized},
		{name: "method not allowed", status: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`<d:multistatus xmlns:d="DAV:"><d:href>/a.xlsx</d:href></d:multistatus>`))
			}))
			defer server.Close()

			client, err := webdav.NewClient(server.URL)
			gt.NoError(t, err)

			resp, err := client.Connect(&model.Session{UserID: "alice"}).Search(context.Background(), []byte("<query/>"))
			gt.Error(t, err)
			gt.Equal(t, len(resp), 0)
			gt.True(t, goerr.HasTag(err, types.ErrTagUpstreamUnavailable))
		})
	}
}

func TestConnection_Redirect(t *testing.T) {
	appSession := &model.Session{
		UserID: "alice",
		AppAPI: &model.AppAPIHeaders{
			AAVersion:     "2.0.0",
			ExAppID:       "sheetshim",
			ExAppVersion:  "1.0.0",
			Authorization: "YWxpY2U6c2VjcmV0",
			RequestID:     "req-1",
		},
	}

	t.Run("redirect to another host is refused", func(t *testing.T) {
		var leaked []string
		other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			leaked = append(leaked, r.Header.Get(webdav.HeaderAuthorization))
			_, _ = w.Write([]byte("stolen"))
		}))
		defer other.Close()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, other.URL+r.URL.Path, http.StatusFound)
		}))
		defer server.Close()

		client, err := webdav.NewClient(server.URL)
		gt.NoError(t, err)

		_, err = client.Connect(appSession).Download(context.Background(), "/remote.php/dav/files/alice/a.xlsx")
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, types.ErrTagUpstreamUnavailable))
		gt.A(t, leaked).Length(0)
	})

	t.Run("redirect on the same host is followed", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/old.xlsx" {
				http.Redirect(w, r, "/new.xlsx", http.StatusMovedPermanently)
				return
			}
			gotAuth = r.Header.Get(webdav.HeaderAuthorization)
			_, _ = w.Write([]byte("xlsx bytes"))
		}))
		defer server.Close()

		client, err := webdav.NewClient(server.URL)
		gt.NoError(t, err)

		file, err := client.Connect(appSession).Download(context.Background(), "/old.xlsx")
		gt.NoError(t, err)
		gt.Equal(t, string(file.Data), "xlsx bytes")
		gt.Equal(t, gotAuth, "YWxpY2U6c2VjcmV0")
	})

	t.Run("redirect loop stops", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, r.URL.Path, http.StatusFound)
		}))
		defer server.Close()

		client, err := webdav.NewClient(server.URL)
		gt.NoError(t, err)

		_, err = client.Connect(appSession).Download(context.Background(), "/loop.xlsx")
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, types.ErrTagUpstreamUnavailable))
	})
}

func TestConnection_Download(t *testing.T) {
	t.Run("basic auth and path", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != "alice" || pass != "app-password" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if r.Method != http.MethodGet || r.URL.Path != "/remote.php/dav/files/alice/report.xlsx" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte("xlsx bytes"))
		}))
		defer server.Close()

		client, err := webdav.NewClient(server.URL)
		gt.NoError(t, err)

		conn := client.Connect(&model.Session{UserID: "alice", Password: "app-password"})
		file, err := conn.Download(context.Background(), "/remote.php/dav/files/alice/report.xlsx")
		gt.NoError(t, err)
		gt.Equal(t, file.Path, "/remote.php/dav/files/alice/report.xlsx")
		gt.Equal(t, string(file.Data), "xlsx bytes")
	})

	t.Run("non-2xx status is upstream unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("<error/>"))
		}))
		defer server.Close()

		client, err := webdav.NewClient(server.URL)
		gt.NoError(t, err)

		_, err = client.Connect(&model.Session{UserID: "alice"}).Download(context.Background(), "/x.xlsx")
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, types.ErrTagUpstreamUnavailable))
	})

	t.Run("transport failure is upstream unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		client, err := webdav.NewClient(url)
		gt.NoError(t, err)

		_, err = client.Connect(&model.Session{UserID: "alice"}).Download(context.Background(), "/x.xlsx")
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, types.ErrTagUpstreamUnavailable))
	})

	t.Run("stalled backend is cut off by timeout", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		client, err := webdav.NewClient(server.URL, webdav.WithTimeout(50*time.Millisecond))
		gt.NoError(t, err)

		start := time.Now()
		_, err = client.Connect(&model.Session{UserID: "alice"}).Download(context.Background(), "/x.xlsx")
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, types.ErrTagUpstreamUnavailable))
		gt.True(t, time.Since(start) < 5*time.Second)
	})

	t.Run("caller cancellation aborts the request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		client, err := webdav.NewClient(server.URL)
		gt.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = client.Connect(&model.Session{UserID: "alice"}).Download(ctx, "/x.xlsx")
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, types.ErrTagUpstreamUnavailable))
	})
}
