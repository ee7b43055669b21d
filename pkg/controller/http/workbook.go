package http

import (
	"net/http"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/sheetshim/pkg/domain/interfaces"
	"github.com/m-mizutani/sheetshim/pkg/domain/types"
	"github.com/oapi-codegen/runtime"
)

// WorkbookHandler serves converted spreadsheets
type WorkbookHandler struct {
	workbookUC interfaces.WorkbookUseCase
}

// NewWorkbookHandler creates a new WorkbookHandler
func NewWorkbookHandler(workbookUC interfaces.WorkbookUseCase) *WorkbookHandler {
	return &WorkbookHandler{
		workbookUC: workbookUC,
	}
}

// Handle resolves the file given by the fileId path parameter and returns it as a
// serialized workbook
func (h *WorkbookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.From(ctx)

	var fileID int64
	if err := runtime.BindStyledParameterWithOptions("simple", "fileId", chi.URLParam(r, "fileId"), &fileID,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		}); err != nil {
		logger.Warn("Invalid file id", "error", err)
		writeError(w, goerr.Wrap(err, "invalid file id", goerr.T(types.ErrTagInvalidRequest)), http.StatusBadRequest)
		return
	}

	session, ok := SessionFromContext(ctx)
	if !ok {
		writeError(w, goerr.New("missing app context", goerr.T(types.ErrTagInvalidRequest)), http.StatusBadRequest)
		return
	}

	data, err := h.workbookUC.Render(ctx, session, fileID)
	if err != nil {
		status, message := errorResponse(err)
		logger.Error("Failed to render workbook",
			"error", err,
			"file_id", fileID,
			"status", status,
		)
		if status >= http.StatusInternalServerError {
			if hub := sentry.GetHubFromContext(ctx); hub != nil {
				hub.CaptureException(err)
			}
		}
		writeError(w, goerr.New(message), status)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Error("Failed to write workbook response", "error", err)
	}
}

// errorResponse maps a pipeline error to the status and message returned to the caller.
// The cause stays in the logs.
func errorResponse(err error) (int, string) {
	switch {
	case goerr.HasTag(err, types.ErrTagInvalidRequest):
		return http.StatusBadRequest, "invalid request"
	case goerr.HasTag(err, types.ErrTagNotFound):
		return http.StatusNotFound, "file not found"
	default:
		return http.StatusInternalServerError, "failed to render workbook"
	}
}
