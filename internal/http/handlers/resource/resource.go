// Package resource is the generic CRUD handler shared by every table that
// supports list/get/create/update/delete.
//
// HANDLER PATTERN (CLOSURE / FACTORY, GENERALISED):
// ───────────────────────────────────────────────────────────────
// Each method on Resource is a factory. It runs ONCE when the route is
// registered and returns the http.HandlerFunc that runs on EVERY request:
//
//	r.Get("/get-students", students.GetList())
//
// What differs between tables is data, not code: the statement names,
// how a request body maps onto positional SQL arguments, and whether a
// missing row is a 404. That data is a Definition.
package resource

import (
	"net/http"

	"github.com/aanand-mishra/records-api/internal/audit"
	"github.com/aanand-mishra/records-api/internal/http/middleware"
	"github.com/aanand-mishra/records-api/internal/storage"
	"github.com/aanand-mishra/records-api/internal/utils/response"
)

// Definition describes one table. T is the request body of create/update.
type Definition[T any] struct {
	// Name is the plural resource name used in logs and audit events.
	Name string
	// Label is the singular used in messages: "Student created".
	Label string

	List, Get, Create, Update, Delete storage.Statement

	// Args binds a validated body to the positional arguments of the
	// Create statement. Update receives the same arguments followed by id.
	Args func(T) []any

	// CheckExistence turns an empty get or a zero-row update/delete into
	// 404, and makes get return a single object instead of an array.
	CheckExistence bool
}

// Resource binds a Definition to its dependencies.
type Resource[T any] struct {
	def   Definition[T]
	store storage.Storage
	audit audit.Recorder
}

// New returns the handlers for def. A nil recorder discards audit events.
func New[T any](def Definition[T], store storage.Storage, rec audit.Recorder) *Resource[T] {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Resource[T]{def: def, store: store, audit: rec}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles the "list all" route.
//
// Success response (200 OK), an empty table gives "data": []:
//
//	{ "status": "ok", "data": [ {...}, {...} ] }
//
// ─────────────────────────────────────────────────────────────────────────────
func (res *Resource[T]) GetList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.GetLogger(r.Context())
		log.Debug().Str("resource", res.def.Name).Msg("listing records")

		rows, err := res.store.Query(r.Context(), res.def.List)
		if err != nil {
			WriteStorageError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.OK("", rows))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles the "get one" route. {id} must be an integer.
//
// Existence-checked resources answer a single object or 404:
//
//	{ "status": "ok", "data": { "student_id": 1, ... } }
//
// The others answer the raw result set, possibly empty:
//
//	{ "status": "ok", "data": [ { "id": 1, ... } ] }
//
// ─────────────────────────────────────────────────────────────────────────────
func (res *Resource[T]) GetByID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := ParseID(w, r, "id")
		if !ok {
			return
		}

		log := middleware.GetLogger(r.Context())
		log.Debug().Str("resource", res.def.Name).Int64("id", id).Msg("getting record")

		rows, err := res.store.Query(r.Context(), res.def.Get, id)
		if err != nil {
			WriteStorageError(w, r, err)
			return
		}

		if !res.def.CheckExistence {
			response.WriteJSON(w, http.StatusOK, response.OK("", rows))
			return
		}

		if len(rows) == 0 {
			response.WriteJSON(w, http.StatusNotFound, response.Error(res.def.Label+" not found"))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.OK("", rows[0]))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Create handles the "add" route.
//
// Success response (201 Created):
//
//	{ "status": "ok", "message": "Student created", "data": { "insertId": 7, "affectedRows": 1 } }
//
// Error responses:
//
//	400 Bad Request : empty body, malformed JSON, failed validation,
//	                   unknown foreign key, missing column
//	409 Conflict    : duplicate unique key
//	500 Internal    : any other database error
//
// ─────────────────────────────────────────────────────────────────────────────
func (res *Resource[T]) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body T
		if !DecodeJSON(w, r, &body) {
			return
		}

		result, err := res.store.Exec(r.Context(), res.def.Create, res.def.Args(body)...)
		if err != nil {
			WriteStorageError(w, r, err)
			return
		}

		log := middleware.GetLogger(r.Context())
		log.Info().Str("resource", res.def.Name).Int64("id", result.InsertID).Msg("record created")
		Record(r, res.audit, res.def.Name, audit.ActionCreate, result.InsertID, result)

		response.WriteJSON(w, http.StatusCreated, response.OK(res.def.Label+" created", result))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles the "update" route: every column is replaced, so the body
// follows the same rules as Create.
// ─────────────────────────────────────────────────────────────────────────────
func (res *Resource[T]) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := ParseID(w, r, "id")
		if !ok {
			return
		}

		var body T
		if !DecodeJSON(w, r, &body) {
			return
		}

		args := append(res.def.Args(body), id)
		result, err := res.store.Exec(r.Context(), res.def.Update, args...)
		if err != nil {
			WriteStorageError(w, r, err)
			return
		}

		if res.def.CheckExistence && result.AffectedRows == 0 {
			response.WriteJSON(w, http.StatusNotFound, response.Error(res.def.Label+" not found"))
			return
		}

		log := middleware.GetLogger(r.Context())
		log.Info().Str("resource", res.def.Name).Int64("id", id).Msg("record updated")
		Record(r, res.audit, res.def.Name, audit.ActionUpdate, id, result)

		response.WriteJSON(w, http.StatusOK, response.OK(res.def.Label+" updated", result))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles the "delete" route.
//
// A missing row is 404 for existence-checked resources; otherwise it is a
// success with "affectedRows": 0.
// ─────────────────────────────────────────────────────────────────────────────
func (res *Resource[T]) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := ParseID(w, r, "id")
		if !ok {
			return
		}

		result, err := res.store.Exec(r.Context(), res.def.Delete, id)
		if err != nil {
			WriteStorageError(w, r, err)
			return
		}

		if res.def.CheckExistence && result.AffectedRows == 0 {
			response.WriteJSON(w, http.StatusNotFound, response.Error(res.def.Label+" not found"))
			return
		}

		log := middleware.GetLogger(r.Context())
		log.Info().Str("resource", res.def.Name).Int64("id", id).Int64("affected_rows", result.AffectedRows).Msg("record deleted")
		if result.AffectedRows > 0 {
			Record(r, res.audit, res.def.Name, audit.ActionDelete, id, result)
		}

		response.WriteJSON(w, http.StatusOK, response.OK(res.def.Label+" deleted", result))
	}
}

// ReadOnly builds a handler that runs one parameterless read statement and
// returns every row. Used for listings and reports.
func ReadOnly(store storage.Storage, stmt storage.Statement) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := store.Query(r.Context(), stmt)
		if err != nil {
			WriteStorageError(w, r, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.OK("", rows))
	}
}
