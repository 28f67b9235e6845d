package account

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aanand-mishra/records-api/internal/storage"
	"github.com/aanand-mishra/records-api/internal/storage/storagetest"
	"github.com/aanand-mishra/records-api/internal/types"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R', 0, 0, 0, 1, 0, 0, 0, 1, 8, 6, 0, 0, 0}

type fakeImages struct {
	mu   sync.Mutex
	data map[int64][]byte
	ct   map[int64]string
}

func newFakeImages() *fakeImages {
	return &fakeImages{data: map[int64][]byte{}, ct: map[int64]string{}}
}

func (f *fakeImages) PutImage(_ context.Context, id int64, data []byte, ct string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[id], f.ct[id] = data, ct
	return nil
}

func (f *fakeImages) GetImage(_ context.Context, id int64) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.data[id]
	if !ok {
		return nil, "", storage.ErrNotFound
	}
	return d, f.ct[id], nil
}

type fakeLimiter struct {
	allow            bool
	attempts, resets int
}

func (l *fakeLimiter) Allow(context.Context, string) (bool, error) { l.attempts++; return l.allow, nil }
func (l *fakeLimiter) Reset(context.Context, string) error         { l.resets++; return nil }

func router(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/register", h.Register())
	r.Post("/api/login", h.Login())
	r.Get("/api/user/{email}/{tpn}", h.GetUser())
	r.Get("/api/register/{id}/image", h.GetImage())
	return r
}

func multipartBody(t *testing.T, fields map[string]string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "avatar.png")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func regFields() map[string]string {
	return map[string]string{
		"Email": "ada@example.com", "Password": "secret1",
		"TPN": "T1", "BTN": "B1", "TIN": "I1", "BAD": "1 Main St", "NUM": "555",
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestRegisterHashesPasswordAndStoresImage(t *testing.T) {
	store := storagetest.New().Result(storage.RegistrationCreate, types.Result{InsertID: 12, AffectedRows: 1})
	images := newFakeImages()
	h := New(store, Options{Images: images})

	body, ct := multipartBody(t, regFields(), pngHeader)
	req := httptest.NewRequest(http.MethodPost, "/api/register", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	got := decode(t, rec)
	assert.Equal(t, "Registration successful", got["message"])
	assert.Equal(t, map[string]any{"registrationId": float64(12)}, got["data"])

	call, ok := store.Last(storage.RegistrationCreate)
	require.True(t, ok)
	require.Len(t, call.Args, 8)
	assert.Equal(t, "ada@example.com", call.Args[0])
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(call.Args[1].(string)), []byte("secret1")))
	assert.Equal(t, []any{"T1", "B1", "I1", "1 Main St", "555"}, call.Args[2:7])
	assert.Equal(t, pngHeader, call.Args[7])

	assert.Equal(t, pngHeader, images.data[12])
	assert.Equal(t, "image/png", images.ct[12])
}

func TestRegisterPlaintext(t *testing.T) {
	store := storagetest.New().Result(storage.RegistrationCreate, types.Result{InsertID: 1, AffectedRows: 1})
	h := New(store, Options{PlaintextPasswords: true})

	body, ct := multipartBody(t, regFields(), pngHeader)
	req := httptest.NewRequest(http.MethodPost, "/api/register", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	call, _ := store.Last(storage.RegistrationCreate)
	assert.Equal(t, "secret1", call.Args[1])
}

func TestRegisterRejects(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		image  []byte
		status int
		want   string
	}{
		{"missing image", regFields(), nil, http.StatusBadRequest, "image file is required"},
		{"not an image", regFields(), []byte("just some text"), http.StatusBadRequest, "image must be an image file, got text/plain"},
		{"bad email", map[string]string{"Email": "nope", "Password": "secret1"}, pngHeader, http.StatusBadRequest, "field Email must be a valid email address"},
		{"image too large", regFields(), append(append([]byte{}, pngHeader...), make([]byte, 64)...), http.StatusRequestEntityTooLarge, "image exceeds 32 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storagetest.New()
			h := New(store, Options{MaxImageBytes: 32})

			body, ct := multipartBody(t, tt.fields, tt.image)
			req := httptest.NewRequest(http.MethodPost, "/api/register", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			router(h).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, decode(t, rec)["error"], tt.want)
			assert.Empty(t, store.Calls())
		})
	}
}

func TestRegisterRequiresMultipart(t *testing.T) {
	h := New(storagetest.New(), Options{})
	req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(`{"Email":"a"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func hashed(t *testing.T, pw string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(b)
}

func login(h *Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router(h).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body)))
	return rec
}

func TestLogin(t *testing.T) {
	store := storagetest.New().Rows(storage.RegistrationByEmail, types.Row{
		"id": int64(1), "Email": "ada@example.com", "Password": hashed(t, "secret1"), "TPN": "T1",
	})
	limiter := &fakeLimiter{allow: true}
	h := New(store, Options{Limiter: limiter})

	rec := login(h, `{"Email":"ada@example.com","Password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.Equal(t, "Login successful", got["message"])
	data := got["data"].(map[string]any)
	assert.Equal(t, "ada@example.com", data["Email"])
	assert.NotContains(t, data, "Password")
	assert.Equal(t, 1, limiter.resets)

	rec = login(h, `{"Email":"ada@example.com","Password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	got = decode(t, rec)
	assert.Equal(t, "Invalid email or password", got["error"])
	assert.NotContains(t, got, "data")
	assert.Equal(t, 2, limiter.attempts)
	assert.Equal(t, 1, limiter.resets, "a failed login keeps its count")
}

func TestLoginUnknownEmailStillComparesHash(t *testing.T) {
	var compared [][]byte
	orig := compareHash
	compareHash = func(hash, pw []byte) error {
		compared = append(compared, hash)
		return orig(hash, pw)
	}
	t.Cleanup(func() { compareHash = orig })

	h := New(storagetest.New(), Options{})
	rec := login(h, `{"Email":"nobody@example.com","Password":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.Len(t, compared, 1)
	assert.Equal(t, dummyHash, compared[0])
}

func TestLoginThrottled(t *testing.T) {
	store := storagetest.New()
	h := New(store, Options{Limiter: &fakeLimiter{allow: false}})

	rec := login(h, `{"Email":"ada@example.com","Password":"secret1"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Empty(t, store.Calls())
}

func TestLoginPlaintextMatchesInSQL(t *testing.T) {
	store := storagetest.New().Rows(storage.RegistrationByCredential, types.Row{
		"id": int64(1), "Email": "ada@example.com", "Password": "secret1",
	})
	h := New(store, Options{PlaintextPasswords: true})

	rec := login(h, `{"Email":"ada@example.com","Password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	call, ok := store.Last(storage.RegistrationByCredential)
	require.True(t, ok)
	assert.Equal(t, []any{"ada@example.com", "secret1"}, call.Args)
	_, usedEmailOnly := store.Last(storage.RegistrationByEmail)
	assert.False(t, usedEmailOnly)
}

func TestLoginValidation(t *testing.T) {
	h := New(storagetest.New(), Options{})
	rec := login(h, `{"Email":"ada@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "field Password is required", decode(t, rec)["error"])
}

func TestGetUser(t *testing.T) {
	store := storagetest.New()
	h := New(store, Options{})

	rec := httptest.NewRecorder()
	router(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/user/ada@example.com/T1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decode(t, rec)["error"])

	store.Rows(storage.RegistrationByEmailTPN, types.Row{"id": int64(1), "Email": "ada@example.com", "Password": "x", "TPN": "T1"})
	rec = httptest.NewRecorder()
	router(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/user/ada@example.com/T1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "T1", data["TPN"])
	assert.NotContains(t, data, "Password")

	call, _ := store.Last(storage.RegistrationByEmailTPN)
	assert.Equal(t, []any{"ada@example.com", "T1"}, call.Args)
}

func TestGetUserUnescapesPathParams(t *testing.T) {
	tests := []struct {
		path  string
		email string
		tpn   string
	}{
		{"/api/user/ada%40example.com/T1", "ada@example.com", "T1"},
		{"/api/user/ada%2Bx%40example.com/T1", "ada+x@example.com", "T1"},
		{"/api/user/ada@example.com/T%201", "ada@example.com", "T 1"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			store := storagetest.New().Rows(storage.RegistrationByEmailTPN, types.Row{"id": int64(1), "Email": tt.email})
			h := New(store, Options{})

			rec := httptest.NewRecorder()
			router(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			call, ok := store.Last(storage.RegistrationByEmailTPN)
			require.True(t, ok)
			assert.Equal(t, []any{tt.email, tt.tpn}, call.Args)
		})
	}
}

func TestGetImage(t *testing.T) {
	store := storagetest.New()
	images := newFakeImages()
	h := New(store, Options{Images: images})

	rec := httptest.NewRecorder()
	router(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/register/5/image", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	store.Rows(storage.RegistrationImage, types.Row{"IMG": pngHeader})
	rec = httptest.NewRecorder()
	router(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/register/5/image", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, pngHeader, rec.Body.Bytes())

	images.data[6], images.ct[6] = []byte("GIF89a"), "image/gif"
	rec = httptest.NewRecorder()
	router(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/register/6/image", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/gif", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	router(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/register/abc/image", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUserRejectsMalformedEscape(t *testing.T) {
	store := storagetest.New()
	h := New(store, Options{})

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("email", "ada%zz")
	rctx.URLParams.Add("tpn", "T1")
	req := httptest.NewRequest(http.MethodGet, "/api/user/x/T1", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.GetUser()(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid email in path", decode(t, rec)["error"])
	assert.Empty(t, store.Calls())
}
