package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/sheetshim/pkg/domain/model"
	"github.com/m-mizutani/sheetshim/pkg/domain/types"
	"github.com/m-mizutani/sheetshim/pkg/infra/webdav"
)

// LoggingMiddleware returns a middleware that logs HTTP requests and puts a request
// scoped logger into the request context
func LoggingMiddleware(ctx context.Context) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			logger := ctxlog.From(ctx).With("request_id", middleware.GetReqID(r.Context()))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("HTTP request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}()

			next.ServeHTTP(ww, r.WithContext(ctxlog.With(r.Context(), logger)))
		})
	}
}

// NoStoreMiddleware disables caching of every response
func NoStoreMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

type sessionCtxKey struct{}

// AppContextMiddleware validates the AppAPI headers of the request and stores the
// resulting session in the request context. Requests without a complete, decodable
// context are rejected with 400.
func AppContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := ParseAppContext(r.Header)
		if err != nil {
			ctxlog.From(r.Context()).Warn("Invalid app context", "error", err)
			writeError(w, err, http.StatusBadRequest)
			return
		}

		ctx := context.WithValue(r.Context(), sessionCtxKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionFromContext returns the session stored by AppContextMiddleware
func SessionFromContext(ctx context.Context) (*model.Session, bool) {
	session, ok := ctx.Value(sessionCtxKey{}).(*model.Session)
	return session, ok
}

// ParseAppContext builds a session from AppAPI request headers. The authorization
// header is URL-safe base64 of "userId:secret".
func ParseAppContext(h http.Header) (*model.Session, error) {
	required := []string{
		webdav.HeaderAAVersion,
		webdav.HeaderExAppID,
		webdav.HeaderExAppVersion,
		webdav.HeaderAuthorization,
		webdav.HeaderRequestID,
	}
	for _, name := range required {
		if h.Get(name) == "" {
			return nil, goerr.New("missing app context header",
				goerr.T(types.ErrTagInvalidRequest),
				goerr.V("header", name))
		}
	}

	auth := h.Get(webdav.HeaderAuthorization)
	decoded, err := base64.URLEncoding.DecodeString(auth)
	if err != nil {
		return nil, goerr.Wrap(err, "authorization header is not base64",
			goerr.T(types.ErrTagInvalidRequest))
	}

	userID, secret, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return nil, goerr.New("authorization header has no user separator",
			goerr.T(types.ErrTagInvalidRequest))
	}

	return &model.Session{
		UserID: userID,
		Secret: secret,
		AppAPI: &model.AppAPIHeaders{
			AAVersion:     h.Get(webdav.HeaderAAVersion),
			ExAppID:       h.Get(webdav.HeaderExAppID),
			ExAppVersion:  h.Get(webdav.HeaderExAppVersion),
			Authorization: auth,
			RequestID:     h.Get(webdav.HeaderRequestID),
		},
	}, nil
}

// writeError writes an error response
func writeError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
	}); err != nil {
		// Can't get context here, so use background context
		ctxlog.From(context.Background()).Error("Failed to encode error response", "error", err)
	}
}
