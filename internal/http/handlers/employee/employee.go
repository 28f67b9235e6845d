// Package employee wires the employee table into the generic CRUD handlers.
package employee

import (
	"github.com/aanand-mishra/records-api/internal/audit"
	"github.com/aanand-mishra/records-api/internal/http/handlers/resource"
	"github.com/aanand-mishra/records-api/internal/storage"
	"github.com/aanand-mishra/records-api/internal/types"
)

var Definition = resource.Definition[types.Employee]{
	Name:   "employees",
	Label:  "Employee",
	List:   storage.EmployeeList,
	Get:    storage.EmployeeGet,
	Create: storage.EmployeeCreate,
	Update: storage.EmployeeUpdate,
	Delete: storage.EmployeeDelete,
	// Column order of employee: first_name, last_name, email, job_title,
	// hire_date, salary, dept_id.
	Args: func(e types.Employee) []any {
		return []any{e.FirstName, e.LastName, e.Email, e.JobTitle, e.HireDate, e.Salary, e.DeptID}
	},
	CheckExistence: true,
}

func New(store storage.Storage, rec audit.Recorder) *resource.Resource[types.Employee] {
	return resource.New(Definition, store, rec)
}
