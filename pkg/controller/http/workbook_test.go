package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	controller "github.com/m-mizutani/sheetshim/pkg/controller/http"
	"github.com/m-mizutani/sheetshim/pkg/domain/interfaces"
	"github.com/m-mizutani/sheetshim/pkg/domain/model"
	"github.com/m-mizutani/sheetshim/pkg/domain/types"
	"github.com/m-mizutani/sheetshim/pkg/infra/webdav"
	"github.com/m-mizutani/sheetshim/pkg/infra/xlsx"
	"github.com/m-mizutani/sheetshim/pkg/usecase"
	"github.com/xuri/excelize/v2"
)

// MockWorkbookUseCase is a mock implementation of WorkbookUseCase
type MockWorkbookUseCase struct {
	renderFunc func(ctx context.Context, session *model.Session, fileID int64) ([]byte, error)

	sessions []*model.Session
	fileIDs  []int64
}

func (m *MockWorkbookUseCase) Render(ctx context.Context, session *model.Session, fileID int64) ([]byte, error) {
	m.sessions = append(m.sessions, session)
	m.fileIDs = append(m.fileIDs, fileID)
	if m.renderFunc != nil {
		return m.renderFunc(ctx, session, fileID)
	}
	return []byte("{}"), nil
}

func (m *MockWorkbookUseCase) Resolve(ctx context.Context, conn interfaces.StorageConnection, query model.SearchQuery) (*model.SearchResult, error) {
	return nil, goerr.New("not implemented")
}

func (m *MockWorkbookUseCase) Convert(ctx context.Context, conn interfaces.StorageConnection, result *model.SearchResult) ([]byte, error) {
	return nil, goerr.New("not implemented")
}

func newWorkbookRequest(path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for name, values := range appHeaders(encodeAuth("alice:app-secret")) {
		req.Header[name] = values
	}
	return req
}

func TestWorkbookHandler_Success(t *testing.T) {
	mock := &MockWorkbookUseCase{
		renderFunc: func(ctx context.Context, session *model.Session, fileID int64) ([]byte, error) {
			return []byte(`{"name":"report"}`), nil
		},
	}
	server, err := controller.NewServer(context.Background(), mock)
	gt.NoError(t, err)

	w := httptest.NewRecorder()
	server.Handler.ServeHTTP(w, newWorkbookRequest("/api/webdav/42"))

	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, w.Header().Get("Content-Type"), "application/octet-stream")
	gt.Equal(t, w.Header().Get("Content-Length"), "17")
	gt.Equal(t, w.Header().Get("Cache-Control"), "no-store")
	gt.Equal(t, w.Body.String(), `{"name":"report"}`)

	gt.A(t, mock.fileIDs).Length(1)
	gt.Equal(t, mock.fileIDs[0], int64(42))
	gt.Equal(t, mock.sessions[0].UserID, "alice")
	gt.Equal(t, mock.sessions[0].AppAPI.RequestID, "req-42")
}

func TestWorkbookHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "not found",
			err:        goerr.New("href not found", goerr.T(types.ErrTagNotFound)),
			wantStatus: http.StatusNotFound,
			wantError:  "file not found",
		},
		{
			name:       "upstream unavailable",
			err:        goerr.New("connection refused", goerr.T(types.ErrTagUpstreamUnavailable)),
			wantStatus: http.StatusInternalServerError,
			wantError:  "failed to render workbook",
		},
		{
			name:       "malformed upstream response",
			err:        goerr.New("syntax error", goerr.T(types.ErrTagMalformedResponse)),
			wantStatus: http.StatusInternalServerError,
			wantError:  "failed to render workbook",
		},
		{
			name:       "decode failure",
			err:        goerr.New("zip: not a valid zip file", goerr.T(types.ErrTagDecodeFailure)),
			wantStatus: http.StatusInternalServerError,
			wantError:  "failed to render workbook",
		},
		{
			name:       "untagged local failure",
			err:        goerr.New("user scope is not representable in XML"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "failed to render workbook",
		},
		{
			name:       "invalid request",
			err:        goerr.New("no user", goerr.T(types.ErrTagInvalidRequest)),
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockWorkbookUseCase{
				renderFunc: func(ctx context.Context, session *model.Session, fileID int64) ([]byte, error) {
					return nil, tt.err
				},
			}
			server, err := controller.NewServer(context.Background(), mock)
			gt.NoError(t, err)

			w := httptest.NewRecorder()
			server.Handler.ServeHTTP(w, newWorkbookRequest("/api/webdav/7"))

			gt.Equal(t, w.Code, tt.wantStatus)

			var body map[string]string
			gt.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			gt.Equal(t, body["error"], tt.wantError)
		})
	}
}

func TestWorkbookHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		request func() *http.Request
	}{
		{
			name:    "file id is not a number",
			request: func() *http.Request { return newWorkbookRequest("/api/webdav/abc") },
		},
		{
			name:    "file id overflows",
			request: func() *http.Request { return newWorkbookRequest("/api/webdav/99999999999999999999") },
		},
		{
			name: "app context headers missing",
			request: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/api/webdav/42", nil)
			},
		},
		{
			name: "authorization cannot be decoded",
			request: func() *http.Request {
				req := newWorkbookRequest("/api/webdav/42")
				req.Header.Set("AUTHORIZATION-APP-API", "***")
				return req
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockWorkbookUseCase{}
			server, err := controller.NewServer(context.Background(), mock)
			gt.NoError(t, err)

			w := httptest.NewRecorder()
			server.Handler.ServeHTTP(w, tt.request())

			gt.Equal(t, w.Code, http.StatusBadRequest)
			gt.A(t, mock.fileIDs).Length(0)
		})
	}
}

func TestWorkbookHandler_EndToEnd(t *testing.T) {
	f := excelize.NewFile()
	gt.NoError(t, f.SetCellValue("Sheet1", "A1", "Budget"))
	gt.NoError(t, f.SetCellValue("Sheet1", "B1", 300))
	buf, err := f.WriteToBuffer()
	gt.NoError(t, err)
	gt.NoError(t, f.Close())

	var searchHeaders http.Header
	var searchBody string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "SEARCH" && r.URL.Path == "/remote.php/dav/":
			searchHeaders = r.Header.Clone()
			body, _ := io.ReadAll(r.Body)
			searchBody = string(body)
			w.WriteHeader(http.StatusMultiStatus)
			_, _ = io.WriteString(w, `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:"><d:response>
<d:href>/remote.php/dav/files/alice/budget.xlsx</d:href>
<d:propstat><d:prop><d:displayname>budget.xlsx</d:displayname></d:prop></d:propstat>
</d:response></d:multistatus>`)
		case r.Method == http.MethodGet && r.URL.Path == "/remote.php/dav/files/alice/budget.xlsx":
			_, _ = w.Write(buf.Bytes())
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer backend.Close()

	client, err := webdav.NewClient(backend.URL)
	gt.NoError(t, err)
	uc := usecase.NewWorkbook(client, xlsx.NewDecoder())

	server, err := controller.NewServer(context.Background(), uc)
	gt.NoError(t, err)

	w := httptest.NewRecorder()
	server.Handler.ServeHTTP(w, newWorkbookRequest("/api/webdav/1234"))

	gt.Equal(t, w.Code, http.StatusOK)

	// AppAPI headers are forwarded to the backend as received
	gt.Equal(t, searchHeaders.Get("EX-APP-ID"), "sheetshim")
	gt.Equal(t, searchHeaders.Get("AA-REQUEST-ID"), "req-42")
	gt.Equal(t, searchHeaders.Get("AUTHORIZATION-APP-API"), encodeAuth("alice:app-secret"))
	gt.True(t, strings.Contains(searchBody, "<d:literal>1234</d:literal>"))
	gt.True(t, strings.Contains(searchBody, "<d:href>/files/alice</d:href>"))

	var wb model.Workbook
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &wb))
	gt.Equal(t, wb.Name, "budget")
	gt.A(t, wb.Sheets).Length(1)
	gt.Equal(t, wb.Sheets[0].Cells[0].Value, "Budget")
}

func TestWorkbookHandler_EndToEnd_NotFound(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMultiStatus)
		_, _ = io.WriteString(w, `<d:multistatus xmlns:d="DAV:"/>`)
	}))
	defer backend.Close()

	client, err := webdav.NewClient(backend.URL)
	gt.NoError(t, err)
	server, err := controller.NewServer(context.Background(), usecase.NewWorkbook(client, xlsx.NewDecoder()))
	gt.NoError(t, err)

	w := httptest.NewRecorder()
	server.Handler.ServeHTTP(w, newWorkbookRequest("/api/webdav/5"))

	gt.Equal(t, w.Code, http.StatusNotFound)
}
