// Package sqlerr turns driver errors into client-facing errors.
//
// Only constraint violations are translated: the driver tells us precisely
// what the client did wrong (a duplicate email, an unknown department), so
// the client can be told too. Every other driver error stays internal and
// the caller answers 500 without leaking the driver text.
package sqlerr

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Code is a driver-independent constraint category.
type Code int

const (
	Other Code = iota
	UniqueViolation
	ForeignKeyViolation
	NotNullViolation
	CheckViolation
)

// MySQL server error numbers.
const (
	mysqlDupEntry        = 1062
	mysqlBadNull         = 1048
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
	mysqlCheckViolated   = 3819
)

// Error is a translated constraint violation.
type Error struct {
	Code    Code
	Status  int
	Message string
	Table   string
	Column  string

	driverErr error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.driverErr }

var (
	// MySQL 8: "Duplicate entry 'a@b.c' for key 'student.email'"
	mysqlKeyRe = regexp.MustCompile(`for key '(?:([^'.]+)\.)?([^']+)'`)
	// "Column 'first_name' cannot be null"
	mysqlColumnRe = regexp.MustCompile(`Column '([^']+)'`)
	// "... CONSTRAINT `fk_student_department` FOREIGN KEY (`dept_id`) ..."
	mysqlFKRe = regexp.MustCompile("\\(`[^`]*`\\.`([^`]+)`, CONSTRAINT `[^`]+` FOREIGN KEY \\(`([^`]+)`\\)")
	// SQLite: "UNIQUE constraint failed: student.email"
	sqliteColumnRe = regexp.MustCompile(`constraint failed: (?:(\w+)\.)?(\w+)`)
)

// Translate returns the constraint violation carried by err, or nil when
// err is not one.
func Translate(err error) *Error {
	if err == nil {
		return nil
	}

	var already *Error
	if errors.As(err, &already) {
		return already
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return fromMySQL(myErr)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return fromSQLite(liteErr)
	}

	return nil
}

func fromMySQL(src *mysql.MySQLError) *Error {
	e := &Error{driverErr: src}

	switch src.Number {
	case mysqlDupEntry:
		e.Code = UniqueViolation
		if m := mysqlKeyRe.FindStringSubmatch(src.Message); m != nil {
			e.Table, e.Column = m[1], m[2]
		}
	case mysqlBadNull:
		e.Code = NotNullViolation
		if m := mysqlColumnRe.FindStringSubmatch(src.Message); m != nil {
			e.Column = m[1]
		}
	case mysqlRowIsReferenced, mysqlNoReferencedRow:
		e.Code = ForeignKeyViolation
		if m := mysqlFKRe.FindStringSubmatch(src.Message); m != nil {
			e.Table, e.Column = m[1], m[2]
		}
		if src.Number == mysqlRowIsReferenced {
			e.Status = http.StatusConflict
			e.Message = "The record is still referenced by other records"
			return e
		}
	case mysqlCheckViolated:
		e.Code = CheckViolation
	default:
		return nil
	}

	e.finish()
	return e
}

func fromSQLite(src sqlite3.Error) *Error {
	if src.Code != sqlite3.ErrConstraint {
		return nil
	}

	e := &Error{driverErr: src}
	switch src.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		e.Code = UniqueViolation
	case sqlite3.ErrConstraintForeignKey:
		e.Code = ForeignKeyViolation
	case sqlite3.ErrConstraintNotNull:
		e.Code = NotNullViolation
	case sqlite3.ErrConstraintCheck:
		e.Code = CheckViolation
	default:
		return nil
	}

	if e.Code == UniqueViolation || e.Code == NotNullViolation {
		if m := sqliteColumnRe.FindStringSubmatch(src.Error()); m != nil {
			e.Table, e.Column = m[1], m[2]
		}
	}

	e.finish()
	return e
}

func (e *Error) finish() {
	switch e.Code {
	case UniqueViolation:
		e.Status = http.StatusConflict
		field := humanize(e.Column)
		if field == "" {
			field = "identifier"
		}
		e.Message = fmt.Sprintf("A %s with this %s already exists", entityName(e.Table), field)
	case ForeignKeyViolation:
		e.Status = http.StatusBadRequest
		e.Message = fmt.Sprintf("The referenced %s does not exist", referencedName(e.Column))
	case NotNullViolation:
		e.Status = http.StatusBadRequest
		field := humanize(e.Column)
		if field == "" {
			field = "field"
		}
		e.Message = fmt.Sprintf("The %s is required", field)
	case CheckViolation:
		e.Status = http.StatusBadRequest
		e.Message = "One or more values do not meet required conditions"
	}
}

// entityName maps a table to a readable singular: "tbl_registration" → "Registration".
func entityName(table string) string {
	table = strings.TrimPrefix(table, "tbl_")
	if table == "" {
		return "record"
	}
	return humanize(strings.TrimSuffix(table, "s"))
}

// referencedName uses the foreign key column: "dept_id" → "Dept".
func referencedName(column string) string {
	lower := strings.ToLower(column)
	if !strings.HasSuffix(lower, "_id") {
		return "record"
	}
	return humanize(strings.TrimSuffix(lower, "_id"))
}

// humanize turns snake_case into Title Case: "first_name" → "First Name".
func humanize(text string) string {
	if text == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(text, "_", " "))
}
