package resource_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/records-api/internal/audit"
	"github.com/aanand-mishra/records-api/internal/http/handlers/employee"
	"github.com/aanand-mishra/records-api/internal/http/handlers/post"
	"github.com/aanand-mishra/records-api/internal/http/handlers/student"
	"github.com/aanand-mishra/records-api/internal/storage"
	"github.com/aanand-mishra/records-api/internal/storage/storagetest"
	"github.com/aanand-mishra/records-api/internal/types"
)

type recorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recorder) Record(_ context.Context, e audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newRouter(store storage.Storage, rec audit.Recorder) http.Handler {
	posts := post.New(store, rec)
	students := student.New(store, rec)
	employees := employee.New(store, rec)

	r := chi.NewRouter()
	r.Get("/posts", posts.GetList())
	r.Get("/posts/{id}", posts.GetByID())
	r.Post("/posts", posts.Create())
	r.Put("/posts/{id}", posts.Update())
	r.Delete("/posts/{id}", posts.Delete())

	r.Get("/get-students", students.GetList())
	r.Get("/get-student/{id}", students.GetByID())
	r.Post("/add-student", students.Create())
	r.Put("/update-student/{id}", students.Update())
	r.Delete("/delete-student/{id}", students.Delete())

	r.Get("/get-employees", employees.GetList())
	r.Post("/add-employee", employees.Create())
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

const validStudent = `{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","date_of_birth":"1815-12-10","dept_id":1}`

func TestGetListReturnsRows(t *testing.T) {
	store := storagetest.New().Rows(storage.PostList,
		types.Row{"id": int64(1), "title": "A", "content": "B"},
	)
	h := newRouter(store, nil)

	rec, env := do(t, h, http.MethodGet, "/posts", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", env.Status)
	assert.JSONEq(t, `[{"id":1,"title":"A","content":"B"}]`, string(env.Data))
}

func TestGetListEmptyIsArray(t *testing.T) {
	h := newRouter(storagetest.New(), nil)

	_, env := do(t, h, http.MethodGet, "/get-students", "")
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestPostGetMissingIsEmptyArray(t *testing.T) {
	h := newRouter(storagetest.New(), nil)

	rec, env := do(t, h, http.MethodGet, "/posts/42", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestStudentGetByID(t *testing.T) {
	store := storagetest.New().Rows(storage.StudentGet,
		types.Row{"student_id": int64(3), "first_name": "Ada"},
	)
	h := newRouter(store, nil)

	rec, env := do(t, h, http.MethodGet, "/get-student/3", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"student_id":3,"first_name":"Ada"}`, string(env.Data))

	call, ok := store.Last(storage.StudentGet)
	require.True(t, ok)
	assert.Equal(t, []any{int64(3)}, call.Args)
}

func TestStudentGetMissingIs404(t *testing.T) {
	h := newRouter(storagetest.New(), nil)

	rec, env := do(t, h, http.MethodGet, "/get-student/3", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "Student not found", env.Error)
}

func TestNonIntegerIDIsRejectedBeforeQuery(t *testing.T) {
	store := storagetest.New()
	h := newRouter(store, nil)

	for _, path := range []string{"/posts/abc", "/get-student/1.5", "/delete-student/x"} {
		method := http.MethodGet
		if strings.HasPrefix(path, "/delete") {
			method = http.MethodDelete
		}
		rec, env := do(t, h, method, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "invalid id: must be an integer", env.Error)
	}
	assert.Empty(t, store.Calls())
}

func TestCreatePost(t *testing.T) {
	store := storagetest.New().Result(storage.PostCreate, types.Result{InsertID: 7, AffectedRows: 1})
	rec := &recorder{}
	h := newRouter(store, rec)

	res, env := do(t, h, http.MethodPost, "/posts", `{"title":"A","content":"B"}`)
	assert.Equal(t, http.StatusCreated, res.Code)
	assert.Equal(t, "Post created", env.Message)
	assert.JSONEq(t, `{"insertId":7,"affectedRows":1}`, string(env.Data))

	call, _ := store.Last(storage.PostCreate)
	assert.Equal(t, []any{"A", "B"}, call.Args)

	require.Len(t, rec.events, 1)
	assert.Equal(t, "posts", rec.events[0].Resource)
	assert.Equal(t, audit.ActionCreate, rec.events[0].Action)
	assert.Equal(t, int64(7), rec.events[0].RecordID)
}

func TestCreateStudentBindsColumnOrder(t *testing.T) {
	store := storagetest.New().Result(storage.StudentCreate, types.Result{InsertID: 1, AffectedRows: 1})
	h := newRouter(store, nil)

	res, _ := do(t, h, http.MethodPost, "/add-student", validStudent)
	require.Equal(t, http.StatusCreated, res.Code)

	call, _ := store.Last(storage.StudentCreate)
	assert.Equal(t, []any{"Ada", "Lovelace", "ada@example.com", "1815-12-10", int64(1)}, call.Args)
}

func TestCreateRejectsBadBodies(t *testing.T) {
	store := storagetest.New()
	h := newRouter(store, nil)

	tests := []struct {
		name string
		path string
		body string
		want string
	}{
		{"empty body", "/posts", "", "request body is empty"},
		{"missing title", "/posts", `{"content":"B"}`, "field title is required"},
		{"bad date", "/add-student", `{"first_name":"Ada","last_name":"L","email":"ada@example.com","date_of_birth":"10/12/1815","dept_id":1}`, "field date_of_birth must be a date in YYYY-MM-DD form"},
		{"bad email", "/add-employee", `{"first_name":"A","last_name":"B","email":"nope","job_title":"Dev","hire_date":"2020-01-01","salary":1,"dept_id":1}`, "field email must be a valid email address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, env.Error)
		})
	}

	_, env := do(t, h, http.MethodPost, "/posts", `{"title":`)
	assert.NotEmpty(t, env.Error)
	assert.Empty(t, store.Calls())
}

func TestUpdateAppendsID(t *testing.T) {
	store := storagetest.New().Result(storage.StudentUpdate, types.Result{AffectedRows: 1})
	h := newRouter(store, nil)

	rec, env := do(t, h, http.MethodPut, "/update-student/9", validStudent)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Student updated", env.Message)

	call, _ := store.Last(storage.StudentUpdate)
	assert.Equal(t, []any{"Ada", "Lovelace", "ada@example.com", "1815-12-10", int64(1), int64(9)}, call.Args)
}

func TestZeroAffectedRows(t *testing.T) {
	h := newRouter(storagetest.New(), nil)

	rec, env := do(t, h, http.MethodPut, "/update-student/9", validStudent)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Student not found", env.Error)

	rec, _ = do(t, h, http.MethodDelete, "/delete-student/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = do(t, h, http.MethodDelete, "/posts/9", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", env.Status)
	assert.JSONEq(t, `{"insertId":0,"affectedRows":0}`, string(env.Data))

	rec, _ = do(t, h, http.MethodPut, "/posts/9", `{"title":"A","content":"B"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDatabaseErrorsAreHidden(t *testing.T) {
	store := storagetest.New().Fail(storage.PostList, errors.New("dial tcp 10.0.0.5:3306: connection refused"))
	h := newRouter(store, nil)

	rec, env := do(t, h, http.MethodGet, "/posts", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", env.Error)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestConstraintErrorsAreTranslated(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ada@example.com' for key 'student.email'"}
	store := storagetest.New().Fail(storage.StudentCreate, dup)
	rec := &recorder{}
	h := newRouter(store, rec)

	res, env := do(t, h, http.MethodPost, "/add-student", validStudent)
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "A Student with this Email already exists", env.Error)
	assert.Empty(t, rec.events)
}

func TestConcurrentRequestsDoNotInterfere(t *testing.T) {
	store := storagetest.New().
		Rows(storage.PostGet, types.Row{"id": int64(1), "title": "A"}).
		Rows(storage.StudentGet, types.Row{"student_id": int64(2), "first_name": "Ada"})
	h := newRouter(store, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts/1", nil))
			if !strings.Contains(rec.Body.String(), `"title":"A"`) {
				errs <- fmt.Errorf("posts: %s", rec.Body.String())
			}
		}()
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/get-student/2", nil))
			if !strings.Contains(rec.Body.String(), `"first_name":"Ada"`) {
				errs <- fmt.Errorf("students: %s", rec.Body.String())
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
