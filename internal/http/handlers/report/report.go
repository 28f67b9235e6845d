// Package report serves the read-only academic listings and the two
// analytical joins over department.
//
// Full names and YYYY/MM/DD dates are produced by the SQL itself; rows
// are forwarded unchanged.
package report

import (
	"net/http"

	"github.com/aanand-mishra/records-api/internal/http/handlers/resource"
	"github.com/aanand-mishra/records-api/internal/storage"
)

// Departments handles GET /api/get-departments.
func Departments(store storage.Storage) http.HandlerFunc {
	return resource.ReadOnly(store, storage.DepartmentList)
}

// Professors handles GET /api/get-professors.
func Professors(store storage.Storage) http.HandlerFunc {
	return resource.ReadOnly(store, storage.ProfessorList)
}

// ProfessorDepartments handles GET /api/professor-departments:
// professor_id, full_name, dept_name, hire_date.
func ProfessorDepartments(store storage.Storage) http.HandlerFunc {
	return resource.ReadOnly(store, storage.ReportProfessorDepartments)
}

// StudentDepartments handles GET /api/student-departments:
// student_id, full_name, email, dept_name, date_of_birth.
func StudentDepartments(store storage.Storage) http.HandlerFunc {
	return resource.ReadOnly(store, storage.ReportStudentDepartments)
}
