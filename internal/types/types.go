// Package types holds the shared data structures used across the
// application. Keeping them in one place prevents import cycles:
// handlers, storage and utils can all import types without depending
// on each other.
//
// Rows read from the database are NOT typed: a Row is whatever columns
// the statement selected, forwarded to the client unchanged. Only request
// payloads are typed, so the validator can check them before a statement
// runs.
package types

// Row is one result-set row, keyed by column name (or alias).
type Row map[string]any

// Result reports the outcome of a mutating statement, named after the
// fields of the MySQL OK packet clients already expect.
type Result struct {
	InsertID     int64 `json:"insertId"`
	AffectedRows int64 `json:"affectedRows"`
}

// Post is the body of POST/PUT /api/v1/posts.
type Post struct {
	Title   string `json:"title"   validate:"required,max=255"`
	Content string `json:"content" validate:"required"`
}

// Registration is the multipart form of POST /api/register, minus the
// image file which is read separately. Field names keep the column
// spelling of tbl_registration.
type Registration struct {
	Email    string `form:"Email"    validate:"required,email"`
	Password string `form:"Password" validate:"required,min=6"`
	TPN      string `form:"TPN"`
	BTN      string `form:"BTN"`
	TIN      string `form:"TIN"`
	BAD      string `form:"BAD"`
	NUM      string `form:"NUM"`
}

// RegistrationResult is returned after a successful registration.
type RegistrationResult struct {
	RegistrationID int64 `json:"registrationId"`
}

// Login is the JSON body of POST /api/login.
type Login struct {
	Email    string `json:"Email"    validate:"required"`
	Password string `json:"Password" validate:"required"`
}

// Student is the body of the add-student / update-student endpoints.
// Dates travel as YYYY-MM-DD strings, the form MySQL DATE columns accept.
type Student struct {
	FirstName   string `json:"first_name"    validate:"required,max=100"`
	LastName    string `json:"last_name"     validate:"required,max=100"`
	Email       string `json:"email"         validate:"required,email"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	DeptID      int64  `json:"dept_id"       validate:"required,gt=0"`
}

// Employee is the body of the add-employee / update-employee endpoints.
type Employee struct {
	FirstName string  `json:"first_name" validate:"required,max=100"`
	LastName  string  `json:"last_name"  validate:"required,max=100"`
	Email     string  `json:"email"      validate:"required,email"`
	JobTitle  string  `json:"job_title"  validate:"required,max=100"`
	HireDate  string  `json:"hire_date"  validate:"required,datetime=2006-01-02"`
	Salary    float64 `json:"salary"     validate:"gte=0"`
	DeptID    int64   `json:"dept_id"    validate:"required,gt=0"`
}
