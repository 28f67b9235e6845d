// Package router assembles every route of the service on a chi router.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aanand-mishra/records-api/internal/audit"
	"github.com/aanand-mishra/records-api/internal/http/handlers/account"
	"github.com/aanand-mishra/records-api/internal/http/handlers/blog"
	"github.com/aanand-mishra/records-api/internal/http/handlers/employee"
	"github.com/aanand-mishra/records-api/internal/http/handlers/health"
	"github.com/aanand-mishra/records-api/internal/http/handlers/post"
	"github.com/aanand-mishra/records-api/internal/http/handlers/report"
	"github.com/aanand-mishra/records-api/internal/http/handlers/student"
	"github.com/aanand-mishra/records-api/internal/http/middleware"
	"github.com/aanand-mishra/records-api/internal/storage"
	"github.com/aanand-mishra/records-api/internal/utils/response"
)

// Deps is everything the routes need. Only Store and Logger are required.
type Deps struct {
	Env            string
	Logger         zerolog.Logger
	Store          storage.Storage
	Audit          audit.Recorder
	Account        account.Options
	AllowedOrigins []string
	// HealthChecks are pinged by /health in addition to the database.
	HealthChecks []health.Check
}

// New builds the HTTP handler.
//
// Route table:
//
//	GET    /health
//	GET    /api/v1/posts               POST /api/v1/posts
//	GET    /api/v1/posts/{id}          PUT  /api/v1/posts/{id}   DELETE /api/v1/posts/{id}
//	GET    /api/blogs
//	POST   /api/register               GET  /api/register/{id}/image
//	POST   /api/login                  GET  /api/user/{email}/{tpn}
//	GET    /api/get-students           GET  /api/get-student/{id}
//	POST   /api/add-student            PUT  /api/update-student/{id}   DELETE /api/delete-student/{id}
//	GET    /api/get-employees          GET  /api/get-employee/{id}
//	POST   /api/add-employee           PUT  /api/update-employee/{id}  DELETE /api/delete-employee/{id}
//	GET    /api/get-departments        GET  /api/get-professors
//	GET    /api/professor-departments  GET  /api/student-departments
func New(d Deps) http.Handler {
	if d.Audit == nil {
		d.Audit = audit.Nop{}
	}
	if d.Account.Audit == nil {
		d.Account.Audit = d.Audit
	}
	if len(d.AllowedOrigins) == 0 {
		d.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusNotFound, response.Error("Route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusMethodNotAllowed, response.Error("Method not allowed"))
	})

	checks := append([]health.Check{{Name: "database", Pinger: d.Store, Required: true}}, d.HealthChecks...)
	r.Get("/health", health.CheckHealth(d.Env, 5*time.Second, checks...))

	posts := post.New(d.Store, d.Audit)
	students := student.New(d.Store, d.Audit)
	employees := employee.New(d.Store, d.Audit)
	accounts := account.New(d.Store, d.Account)

	r.Route("/api", func(r chi.Router) {
		r.Route("/v1/posts", func(r chi.Router) {
			r.Get("/", posts.GetList())
			r.Post("/", posts.Create())
			r.Get("/{id}", posts.GetByID())
			r.Put("/{id}", posts.Update())
			r.Delete("/{id}", posts.Delete())
		})

		r.Get("/blogs", blog.GetList(d.Store))

		r.Post("/register", accounts.Register())
		r.Get("/register/{id}/image", accounts.GetImage())
		r.Post("/login", accounts.Login())
		r.Get("/user/{email}/{tpn}", accounts.GetUser())

		r.Get("/get-students", students.GetList())
		r.Get("/get-student/{id}", students.GetByID())
		r.Post("/add-student", students.Create())
		r.Put("/update-student/{id}", students.Update())
		r.Delete("/delete-student/{id}", students.Delete())

		r.Get("/get-employees", employees.GetList())
		r.Get("/get-employee/{id}", employees.GetByID())
		r.Post("/add-employee", employees.Create())
		r.Put("/update-employee/{id}", employees.Update())
		r.Delete("/delete-employee/{id}", employees.Delete())

		r.Get("/get-departments", report.Departments(d.Store))
		r.Get("/get-professors", report.Professors(d.Store))
		r.Get("/professor-departments", report.ProfessorDepartments(d.Store))
		r.Get("/student-departments", report.StudentDepartments(d.Store))
	})

	return r
}
