package resource

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/records-api/internal/audit"
	"github.com/aanand-mishra/records-api/internal/http/middleware"
	"github.com/aanand-mishra/records-api/internal/storage/sqlerr"
	"github.com/aanand-mishra/records-api/internal/types"
	"github.com/aanand-mishra/records-api/internal/utils/response"
)

// Validate is shared by every handler. A *validator.Validate caches struct
// metadata and is safe for concurrent use.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their wire names ("first_name", "Email"), not Go names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// ErrInvalidID is the 400 body for a non-integer path identifier.
var ErrInvalidID = errors.New("invalid id: must be an integer")

// ParseID reads an integer path parameter, answering 400 when it is not one.
func ParseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(ErrInvalidID))
		return 0, false
	}
	return id, true
}

// DecodeJSON decodes the request body into v and validates it. On failure
// it writes the 400 response and returns false.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, v *T) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("request body is empty")))
		return false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return false
	}

	return ValidateStruct(w, v)
}

// ValidateStruct runs Validate on v, writing the 400 response on failure.
func ValidateStruct(w http.ResponseWriter, v any) bool {
	err := Validate.Struct(v)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(verrs))
		return false
	}
	response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
	return false
}

// WriteStorageError answers a failed statement. Constraint violations are
// reported to the client; anything else is logged and becomes a bare 500.
func WriteStorageError(w http.ResponseWriter, r *http.Request, err error) {
	log := middleware.GetLogger(r.Context())

	if e := sqlerr.Translate(err); e != nil {
		log.Warn().Err(err).Int("status", e.Status).Msg("constraint violation")
		response.WriteJSON(w, e.Status, response.Error(e.Message))
		return
	}

	log.Error().Err(err).Msg("database error")
	response.WriteJSON(w, http.StatusInternalServerError, response.Internal())
}

// Record sends an audit event for a successful write. A failing recorder
// is logged; the write has already happened and the response stands.
func Record(r *http.Request, rec audit.Recorder, name, action string, id int64, result types.Result) {
	event := audit.Event{
		Resource:     name,
		Action:       action,
		RecordID:     id,
		AffectedRows: result.AffectedRows,
		RequestID:    middleware.GetRequestID(r.Context()),
		At:           time.Now().UTC(),
	}
	if err := rec.Record(r.Context(), event); err != nil {
		log := middleware.GetLogger(r.Context())
		log.Warn().Err(err).Str("resource", name).Str("action", action).Msg("audit event dropped")
	}
}
