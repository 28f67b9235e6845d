// Package account contains the registration, login and user lookup
// handlers backed by tbl_registration.
//
// PASSWORDS:
// ──────────
// By default passwords are stored as bcrypt hashes and login fetches the
// row by email, then compares the hash in Go. Legacy tables holding
// plaintext passwords can set Options.PlaintextPasswords, which stores
// the password verbatim and matches email and password in SQL.
//
// Login never issues a token or a session; it only answers whether the
// credentials match, with the stored row on success.
package account

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/aanand-mishra/records-api/internal/audit"
	"github.com/aanand-mishra/records-api/internal/http/handlers/resource"
	"github.com/aanand-mishra/records-api/internal/http/middleware"
	"github.com/aanand-mishra/records-api/internal/storage"
	"github.com/aanand-mishra/records-api/internal/types"
	"github.com/aanand-mishra/records-api/internal/utils/response"
)

const (
	passwordColumn = "Password"
	imageColumn    = "IMG"

	// multipartOverhead is the room left for the text fields of the
	// registration form on top of the image itself.
	multipartOverhead = 1 << 20
)

// ImageStore mirrors registration images outside the database.
type ImageStore interface {
	PutImage(ctx context.Context, registrationID int64, data []byte, contentType string) error
	GetImage(ctx context.Context, registrationID int64) ([]byte, string, error)
}

// LoginLimiter throttles logins per email. Allow counts the attempt it
// admits; Reset clears the count after a successful login.
type LoginLimiter interface {
	Allow(ctx context.Context, email string) (bool, error)
	Reset(ctx context.Context, email string) error
}

// dummyHash is compared against when no row matches the email, so an
// unknown email costs the same as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("records-api"), bcrypt.DefaultCost)

var compareHash = bcrypt.CompareHashAndPassword

// Options configures the handlers. Images, Limiter and Audit may be nil.
type Options struct {
	PlaintextPasswords bool
	MaxImageBytes      int64
	Images             ImageStore
	Limiter            LoginLimiter
	Audit              audit.Recorder
}

// Handler groups the account endpoints around one set of dependencies.
type Handler struct {
	store storage.Storage
	opts  Options
}

func New(store storage.Storage, opts Options) *Handler {
	if opts.Audit == nil {
		opts.Audit = audit.Nop{}
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = 5 << 20
	}
	return &Handler{store: store, opts: opts}
}

// ─────────────────────────────────────────────────────────────────────────────
// Register handles POST /api/register (multipart/form-data).
//
// Form fields: Email, Password, TPN, BTN, TIN, BAD, NUM, plus an "image"
// file. The file is buffered in memory and stored in the IMG column.
//
// Success response (201 Created):
//
//	{ "status": "ok", "message": "Registration successful", "data": { "registrationId": 12 } }
//
// Error responses:
//
//	400 Bad Request : not multipart, validation failure, missing or non-image file
//	409 Conflict    : email already registered
//	413 Too Large   : image over the configured limit
//	500 Internal    : database error
//
// ─────────────────────────────────────────────────────────────────────────────
func (h *Handler) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.GetLogger(r.Context())

		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxImageBytes+multipartOverhead)
		if err := r.ParseMultipartForm(h.opts.MaxImageBytes + multipartOverhead); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.WriteJSON(w, http.StatusRequestEntityTooLarge,
					response.Error("request body is too large"))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(fmt.Errorf("invalid multipart form: %w", err)))
			return
		}

		reg := types.Registration{
			Email:    r.FormValue("Email"),
			Password: r.FormValue("Password"),
			TPN:      r.FormValue("TPN"),
			BTN:      r.FormValue("BTN"),
			TIN:      r.FormValue("TIN"),
			BAD:      r.FormValue("BAD"),
			NUM:      r.FormValue("NUM"),
		}
		if !resource.ValidateStruct(w, &reg) {
			return
		}

		img, contentType, ok := h.readImage(w, r)
		if !ok {
			return
		}

		password := reg.Password
		if !h.opts.PlaintextPasswords {
			hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
			if err != nil {
				log.Error().Err(err).Msg("hashing password")
				response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
				return
			}
			password = string(hash)
		}

		result, err := h.store.Exec(r.Context(), storage.RegistrationCreate,
			reg.Email, password, reg.TPN, reg.BTN, reg.TIN, reg.BAD, reg.NUM, img)
		if err != nil {
			resource.WriteStorageError(w, r, err)
			return
		}

		if h.opts.Images != nil {
			if err := h.opts.Images.PutImage(r.Context(), result.InsertID, img, contentType); err != nil {
				log.Warn().Err(err).Int64("id", result.InsertID).Msg("image mirror failed")
			}
		}

		log.Info().Int64("id", result.InsertID).Str("content_type", contentType).Msg("registration created")
		resource.Record(r, h.opts.Audit, "registrations", audit.ActionCreate, result.InsertID, result)

		response.WriteJSON(w, http.StatusCreated, response.OK("Registration successful",
			types.RegistrationResult{RegistrationID: result.InsertID}))
	}
}

// readImage reads the "image" part and checks its bytes are an image.
func (h *Handler) readImage(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	file, header, err := r.FormFile("image")
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.Error("image file is required"))
		return nil, "", false
	}
	defer file.Close()

	if header.Size > h.opts.MaxImageBytes {
		response.WriteJSON(w, http.StatusRequestEntityTooLarge,
			response.Error(fmt.Sprintf("image exceeds %d bytes", h.opts.MaxImageBytes)))
		return nil, "", false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return nil, "", false
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		response.WriteJSON(w, http.StatusBadRequest,
			response.Error("image must be an image file, got "+mt.String()))
		return nil, "", false
	}

	return data, mt.String(), true
}

// ─────────────────────────────────────────────────────────────────────────────
// Login handles POST /api/login.
//
// Request body (JSON):
//
//	{ "Email": "ada@example.com", "Password": "secret1" }
//
// Success response (200 OK), the registration row without its password:
//
//	{ "status": "ok", "message": "Login successful", "data": { "id": 1, "Email": ... } }
//
// Error responses:
//
//	401 Unauthorized     : no row matches the credentials
//	429 Too Many Requests: too many attempts for this email
//
// ─────────────────────────────────────────────────────────────────────────────
func (h *Handler) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.GetLogger(r.Context())

		var creds types.Login
		if !resource.DecodeJSON(w, r, &creds) {
			return
		}

		if h.opts.Limiter != nil {
			allowed, err := h.opts.Limiter.Allow(r.Context(), creds.Email)
			if err != nil {
				// A throttle outage lets the attempt through.
				log.Warn().Err(err).Msg("login throttle unavailable")
			} else if !allowed {
				response.WriteJSON(w, http.StatusTooManyRequests,
					response.Error("Too many failed login attempts, try again later"))
				return
			}
		}

		row, err := h.authenticate(r.Context(), creds)
		if err != nil {
			resource.WriteStorageError(w, r, err)
			return
		}

		if row == nil {
			log.Info().Msg("login rejected")
			response.WriteJSON(w, http.StatusUnauthorized, response.Error("Invalid email or password"))
			return
		}

		if h.opts.Limiter != nil {
			if err := h.opts.Limiter.Reset(r.Context(), creds.Email); err != nil {
				log.Warn().Err(err).Msg("resetting login throttle")
			}
		}

		response.WriteJSON(w, http.StatusOK, response.OK("Login successful", withoutPassword(row)))
	}
}

// authenticate returns the matching row, or nil when the credentials do
// not match.
func (h *Handler) authenticate(ctx context.Context, creds types.Login) (types.Row, error) {
	if h.opts.PlaintextPasswords {
		rows, err := h.store.Query(ctx, storage.RegistrationByCredential, creds.Email, creds.Password)
		if err != nil || len(rows) == 0 {
			return nil, err
		}
		return rows[0], nil
	}

	rows, err := h.store.Query(ctx, storage.RegistrationByEmail, creds.Email)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		_ = compareHash(dummyHash, []byte(creds.Password))
		return nil, nil
	}

	hash, _ := rows[0][passwordColumn].(string)
	if compareHash([]byte(hash), []byte(creds.Password)) != nil {
		return nil, nil
	}
	return rows[0], nil
}

// ─────────────────────────────────────────────────────────────────────────────
// GetUser handles GET /api/user/{email}/{tpn}.
//
// Success response (200 OK): the first matching row without its password.
// Error responses: 400 for a malformed escape, 404 when nothing matches.
//
// chi hands back the raw segment when the path is percent-encoded
// ("ada%40example.com"), so both params are unescaped here.
// ─────────────────────────────────────────────────────────────────────────────
func (h *Handler) GetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, err := url.PathUnescape(chi.URLParam(r, "email"))
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.Error("invalid email in path"))
			return
		}
		tpn, err := url.PathUnescape(chi.URLParam(r, "tpn"))
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.Error("invalid tpn in path"))
			return
		}

		rows, err := h.store.Query(r.Context(), storage.RegistrationByEmailTPN, email, tpn)
		if err != nil {
			resource.WriteStorageError(w, r, err)
			return
		}

		if len(rows) == 0 {
			response.WriteJSON(w, http.StatusNotFound, response.Error("User not found"))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.OK("", withoutPassword(rows[0])))
	}
}

// GetImage handles GET /api/register/{id}/image and writes the raw image.
// The object store is tried first when configured; the IMG column is the
// fallback and the source of truth.
func (h *Handler) GetImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := resource.ParseID(w, r, "id")
		if !ok {
			return
		}
		log := middleware.GetLogger(r.Context())

		if h.opts.Images != nil {
			data, contentType, err := h.opts.Images.GetImage(r.Context(), id)
			if err == nil {
				writeImage(w, data, contentType)
				return
			}
			if !errors.Is(err, storage.ErrNotFound) {
				log.Warn().Err(err).Int64("id", id).Msg("object store read failed, using column")
			}
		}

		rows, err := h.store.Query(r.Context(), storage.RegistrationImage, id)
		if err != nil {
			resource.WriteStorageError(w, r, err)
			return
		}

		var data []byte
		if len(rows) > 0 {
			switch v := rows[0][imageColumn].(type) {
			case []byte:
				data = v
			case string:
				data = []byte(v)
			}
		}
		if len(data) == 0 {
			response.WriteJSON(w, http.StatusNotFound, response.Error("Image not found"))
			return
		}

		writeImage(w, data, mimetype.Detect(data).String())
	}
}

func writeImage(w http.ResponseWriter, data []byte, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, bytes.NewReader(data))
}

func withoutPassword(row types.Row) types.Row {
	out := make(types.Row, len(row))
	for k, v := range row {
		if k != passwordColumn {
			out[k] = v
		}
	}
	return out
}
