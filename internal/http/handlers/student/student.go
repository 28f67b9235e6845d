// Package student wires the student table into the generic CRUD handlers.
//
// Students are existence-checked: get-student returns one object, and a
// missing id on get, update or delete is a 404.
package student

import (
	"github.com/aanand-mishra/records-api/internal/audit"
	"github.com/aanand-mishra/records-api/internal/http/handlers/resource"
	"github.com/aanand-mishra/records-api/internal/storage"
	"github.com/aanand-mishra/records-api/internal/types"
)

var Definition = resource.Definition[types.Student]{
	Name:   "students",
	Label:  "Student",
	List:   storage.StudentList,
	Get:    storage.StudentGet,
	Create: storage.StudentCreate,
	Update: storage.StudentUpdate,
	Delete: storage.StudentDelete,
	// The order of the returned slice must match the ? order in the SQL:
	//   first_name, last_name, email, date_of_birth, dept_id
	Args: func(s types.Student) []any {
		return []any{s.FirstName, s.LastName, s.Email, s.DateOfBirth, s.DeptID}
	},
	CheckExistence: true,
}

func New(store storage.Storage, rec audit.Recorder) *resource.Resource[types.Student] {
	return resource.New(Definition, store, rec)
}
