package storage

// Statement names one resource+operation pair.
type Statement string

// Dialect selects the SQL flavour of a statement table.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite3"
)

const (
	PostList   Statement = "posts.list"
	PostGet    Statement = "posts.get"
	PostCreate Statement = "posts.create"
	PostUpdate Statement = "posts.update"
	PostDelete Statement = "posts.delete"

	BlogList Statement = "blogs.list"

	RegistrationCreate       Statement = "registrations.create"
	RegistrationByEmail      Statement = "registrations.by_email"
	RegistrationByCredential Statement = "registrations.by_credentials"
	RegistrationByEmailTPN   Statement = "registrations.by_email_tpn"
	RegistrationImage        Statement = "registrations.image"

	StudentList   Statement = "students.list"
	StudentGet    Statement = "students.get"
	StudentCreate Statement = "students.create"
	StudentUpdate Statement = "students.update"
	StudentDelete Statement = "students.delete"

	EmployeeList   Statement = "employees.list"
	EmployeeGet    Statement = "employees.get"
	EmployeeCreate Statement = "employees.create"
	EmployeeUpdate Statement = "employees.update"
	EmployeeDelete Statement = "employees.delete"

	DepartmentList Statement = "departments.list"
	ProfessorList  Statement = "professors.list"

	ReportProfessorDepartments Statement = "reports.professor_departments"
	ReportStudentDepartments   Statement = "reports.student_departments"
)

// inserts are the statements that generate a key.
var inserts = map[Statement]bool{
	PostCreate:         true,
	RegistrationCreate: true,
	StudentCreate:      true,
	EmployeeCreate:     true,
}

// Inserts reports whether stmt generates a key worth reporting.
func (s Statement) Inserts() bool { return inserts[s] }

// common holds the statements both dialects accept verbatim. Placeholders
// are positional "?" in both.
var common = map[Statement]string{
	PostList:   "SELECT * FROM posts",
	PostGet:    "SELECT * FROM posts WHERE id = ?",
	PostCreate: "INSERT INTO posts (title, content) VALUES (?, ?)",
	PostUpdate: "UPDATE posts SET title = ?, content = ? WHERE id = ?",
	PostDelete: "DELETE FROM posts WHERE id = ?",

	BlogList: "SELECT image, id, description, subImage1, subImage2, subImage3, subImage4, learnMoreLink FROM tbl_blog",

	RegistrationCreate:       "INSERT INTO tbl_registration (Email, Password, TPN, BTN, TIN, BAD, NUM, IMG) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
	RegistrationByEmail:      "SELECT * FROM tbl_registration WHERE Email = ?",
	RegistrationByCredential: "SELECT * FROM tbl_registration WHERE Email = ? AND Password = ?",
	RegistrationByEmailTPN:   "SELECT * FROM tbl_registration WHERE Email = ? AND TPN = ?",
	RegistrationImage:        "SELECT IMG FROM tbl_registration WHERE id = ?",

	StudentList:   "SELECT student_id, first_name, last_name, email, date_of_birth, dept_id FROM student ORDER BY student_id",
	StudentGet:    "SELECT student_id, first_name, last_name, email, date_of_birth, dept_id FROM student WHERE student_id = ?",
	StudentCreate: "INSERT INTO student (first_name, last_name, email, date_of_birth, dept_id) VALUES (?, ?, ?, ?, ?)",
	StudentUpdate: "UPDATE student SET first_name = ?, last_name = ?, email = ?, date_of_birth = ?, dept_id = ? WHERE student_id = ?",
	StudentDelete: "DELETE FROM student WHERE student_id = ?",

	EmployeeList:   "SELECT employee_id, first_name, last_name, email, job_title, hire_date, salary, dept_id FROM employee ORDER BY employee_id",
	EmployeeGet:    "SELECT employee_id, first_name, last_name, email, job_title, hire_date, salary, dept_id FROM employee WHERE employee_id = ?",
	EmployeeCreate: "INSERT INTO employee (first_name, last_name, email, job_title, hire_date, salary, dept_id) VALUES (?, ?, ?, ?, ?, ?, ?)",
	EmployeeUpdate: "UPDATE employee SET first_name = ?, last_name = ?, email = ?, job_title = ?, hire_date = ?, salary = ?, dept_id = ? WHERE employee_id = ?",
	EmployeeDelete: "DELETE FROM employee WHERE employee_id = ?",

	DepartmentList: "SELECT dept_id, dept_name, building FROM department ORDER BY dept_name",
	ProfessorList:  "SELECT professor_id, first_name, last_name, email, hire_date, dept_id FROM professor ORDER BY professor_id",
}

// overrides hold the statements whose string concatenation or date
// formatting differs per dialect. The database does the formatting;
// rows come back already shaped for the client.
var overrides = map[Dialect]map[Statement]string{
	MySQL: {
		ReportProfessorDepartments: `SELECT p.professor_id, CONCAT(p.first_name, ' ', p.last_name) AS full_name, d.dept_name, DATE_FORMAT(p.hire_date, '%Y/%m/%d') AS hire_date
FROM professor p JOIN department d ON d.dept_id = p.dept_id
ORDER BY d.dept_name, full_name`,
		ReportStudentDepartments: `SELECT s.student_id, CONCAT(s.first_name, ' ', s.last_name) AS full_name, s.email, d.dept_name, DATE_FORMAT(s.date_of_birth, '%Y/%m/%d') AS date_of_birth
FROM student s JOIN department d ON d.dept_id = s.dept_id
ORDER BY d.dept_name, full_name`,
	},
	SQLite: {
		ReportProfessorDepartments: `SELECT p.professor_id, p.first_name || ' ' || p.last_name AS full_name, d.dept_name, strftime('%Y/%m/%d', p.hire_date) AS hire_date
FROM professor p JOIN department d ON d.dept_id = p.dept_id
ORDER BY d.dept_name, full_name`,
		ReportStudentDepartments: `SELECT s.student_id, s.first_name || ' ' || s.last_name AS full_name, s.email, d.dept_name, strftime('%Y/%m/%d', s.date_of_birth) AS date_of_birth
FROM student s JOIN department d ON d.dept_id = s.dept_id
ORDER BY d.dept_name, full_name`,
	},
}

// SQL returns the text of stmt in dialect d.
func (d Dialect) SQL(stmt Statement) (string, bool) {
	if q, ok := overrides[d][stmt]; ok {
		return q, true
	}
	if _, known := overrides[d]; !known {
		return "", false
	}
	q, ok := common[stmt]
	return q, ok
}

// Statements lists every statement name known to any dialect.
func Statements() []Statement {
	seen := make(map[Statement]struct{}, len(common))
	out := make([]Statement, 0, len(common)+2)
	for s := range common {
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, table := range overrides {
		for s := range table {
			if _, ok := seen[s]; !ok {
				seen[s] = struct{}{}
				out = append(out, s)
			}
		}
	}
	return out
}
