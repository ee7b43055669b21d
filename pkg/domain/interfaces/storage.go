package interfaces

import (
	"context"

	"github.com/m-mizutani/sheetshim/pkg/domain/model"
)

// StorageClient opens authenticated connections to the file-storage backend. One client
// is shared by every pipeline run.
type StorageClient interface {
	// Connect returns a connection that authenticates as session
	Connect(session *model.Session) StorageConnection
}

// StorageConnection is an authenticated channel to the storage backend for one pipeline run.
type StorageConnection interface {
	// Search sends a property-search document and returns the raw response body
	Search(ctx context.Context, body []byte) ([]byte, error)

	// Download fetches the file at a server-relative path
	Download(ctx context.Context, path string) (*model.RemoteFile, error)
}

// SpreadsheetDecoder turns raw workbook bytes into a Workbook.
type SpreadsheetDecoder interface {
	Load(ctx context.Context, data []byte, name, locale, timezone string) (*model.Workbook, error)
}
