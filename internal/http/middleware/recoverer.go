package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/aanand-mishra/records-api/internal/utils/response"
)

// Recoverer turns a panic into a logged 500 carrying the usual error
// envelope. http.ErrAbortHandler is re-panicked so net/http can abort
// the connection.
//
// It must run after Logger so the panic is logged with the request fields.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			GetLogger(r.Context()).Error().
				Str("panic", fmt.Sprint(rec)).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if r.Header.Get("Connection") != "Upgrade" {
				response.WriteJSON(w, http.StatusInternalServerError, response.Internal())
			}
		}()

		next.ServeHTTP(w, r)
	})
}
