package httpmw

import (
	"net/http"

	"github.com/pagedesk/pagedesk/internal/log"
	"github.com/pagedesk/pagedesk/internal/xerrors"
)

// Recover converts a handler panic into a 500 response and an error log
// entry. onPanic (optional) is called for metrics. The panic never
// propagates past this middleware.
func Recover(l log.Logger, onPanic func()) func(http.Handler) http.Handler {
	if l == nil {
		l = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if onPanic != nil {
					onPanic()
				}

				var err error
				if e, ok := rec.(error); ok {
					err = xerrors.WithStack(e)
				} else {
					err = xerrors.Newf("panic: %v", rec)
				}

				l.Error(r.Context(), err, "httpserver panic recovered",
					"method", r.Method,
					"path", r.URL.Path,
				)

				// Best effort: if the handler already wrote headers this
				// will be a no-op and the connection is torn down anyway.
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
