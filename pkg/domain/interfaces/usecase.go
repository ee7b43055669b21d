package interfaces

import (
	"context"

	"github.com/m-mizutani/sheetshim/pkg/domain/model"
)

// WorkbookUseCase resolves, downloads and converts spreadsheet files
type WorkbookUseCase interface {
	// Render runs the whole pipeline for fileID on behalf of session and returns the serialized workbook
	Render(ctx context.Context, session *model.Session, fileID int64) ([]byte, error)

	// Resolve looks up the download path and display name of a file
	Resolve(ctx context.Context, conn StorageConnection, query model.SearchQuery) (*model.SearchResult, error)

	// Convert downloads a resolved file and converts it into a serialized workbook
	Convert(ctx context.Context, conn StorageConnection, result *model.SearchResult) ([]byte, error)
}
