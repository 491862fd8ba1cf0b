package httpmw

import (
	"net/http"

	"github.com/commonshub/commonshub-web/internal/log"
	"github.com/commonshub/commonshub-web/internal/xerrors"
)

// PanicCounter receives a count of recovered handler panics.
type PanicCounter interface {
	IncHttpPanic()
}

// Recover turns handler panics into 500 responses. The panic value and a
// stack are logged through the context logger; the client gets a generic
// body. http.ErrAbortHandler passes through so the server can kill the
// connection the standard way.
func Recover(counter PanicCounter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				if counter != nil {
					counter.IncHttpPanic()
				}
				err := xerrors.Newf("panic: %v", rec)
				log.FromContext(r.Context()).Error(r.Context(), err, "http handler panicked",
					"url.path", r.URL.Path,
				)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
