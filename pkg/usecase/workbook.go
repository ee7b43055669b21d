package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/sheetshim/pkg/domain/interfaces"
	"github.com/m-mizutani/sheetshim/pkg/domain/model"
	"github.com/m-mizutani/sheetshim/pkg/domain/types"
)

type workbookUseCase struct {
	storage interfaces.StorageClient
	decoder interfaces.SpreadsheetDecoder
}

// NewWorkbook creates a new instance of WorkbookUseCase
func NewWorkbook(storage interfaces.StorageClient, decoder interfaces.SpreadsheetDecoder) interfaces.WorkbookUseCase {
	return &workbookUseCase{
		storage: storage,
		decoder: decoder,
	}
}

// Render resolves fileID in the session user's file tree, downloads it and converts it.
// Any failure aborts the run; there is no partial result.
func (uc *workbookUseCase) Render(ctx context.Context, session *model.Session, fileID int64) ([]byte, error) {
	if session == nil || session.UserID == "" {
		return nil, goerr.New("session has no user", goerr.T(types.ErrTagInvalidRequest))
	}

	logger := ctxlog.From(ctx).With("run_id", uuid.NewString(), "file_id", fileID)
	ctx = ctxlog.With(ctx, logger)

	conn := uc.storage.Connect(session)

	result, err := uc.Resolve(ctx, conn, model.SearchQuery{
		FileID:    fileID,
		UserScope: session.UserID,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Resolved file",
		"path", result.DownloadPath,
		"display_name", result.DisplayName,
	)

	return uc.Convert(ctx, conn, result)
}
