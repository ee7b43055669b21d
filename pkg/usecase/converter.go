package usecase

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/sheetshim/pkg/domain/interfaces"
	"github.com/m-mizutani/sheetshim/pkg/domain/model"
	"github.com/m-mizutani/sheetshim/pkg/domain/types"
)

// Convert downloads the resolved file over conn and converts it into a serialized
// workbook. Decoding is not retried.
func (uc *workbookUseCase) Convert(ctx context.Context, conn interfaces.StorageConnection, result *model.SearchResult) ([]byte, error) {
	logger := ctxlog.From(ctx)

	file, err := conn.Download(ctx, result.DownloadPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to download spreadsheet",
			goerr.T(types.ErrTagUpstreamUnavailable),
			goerr.V("stage", "download"),
			goerr.V("path", result.DownloadPath))
	}

	logger.Debug("Downloaded spreadsheet",
		"path", file.Path,
		"size_bytes", len(file.Data),
	)

	name := model.WorkbookName(result.DisplayName)

	wb, err := uc.decoder.Load(ctx, file.Data, name, model.DefaultLocale, model.DefaultTimezone)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode spreadsheet",
			goerr.T(types.ErrTagDecodeFailure),
			goerr.V("stage", "decode"),
			goerr.V("path", result.DownloadPath),
			goerr.V("name", name))
	}

	m, err := model.NewWorkbookModel(wb)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build workbook model",
			goerr.T(types.ErrTagDecodeFailure),
			goerr.V("stage", "model"),
			goerr.V("name", name))
	}

	data, err := m.Bytes()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to serialize workbook",
			goerr.T(types.ErrTagDecodeFailure),
			goerr.V("stage", "serialize"),
			goerr.V("name", name))
	}

	logger.Debug("Converted spreadsheet",
		"name", m.Name(),
		"sheets", len(m.SheetNames()),
		"cells", m.CellCount(),
		"output_bytes", len(data),
	)

	return data, nil
}
