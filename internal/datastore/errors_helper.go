package datastore

import (
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/platewatch/internal/errors"
)

// MySQL server error numbers for constraint failures.
const (
	mysqlErrDupEntry        = 1062
	mysqlErrRowIsReferenced = 1451
	mysqlErrNoReferencedRow = 1452
)

// dbError creates a database error with the operation and optional context
// pairs attached.
func dbError(err error, operation string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// writeError categorizes a failed insert or delete. Unique and foreign key
// violations become conflict errors, anything else a database error.
func writeError(err error, operation, key string, value any) error {
	conflict := conflictType(err)
	if conflict == "" {
		return dbError(err, operation, key, value)
	}

	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryConflict).
		Priority(errors.PriorityLow).
		Context("operation", operation).
		Context("conflict_type", conflict).
		Context(key, value).
		Build()
}

// conflictType returns "unique" or "foreign_key" for constraint violations
// and "" for other errors. Translated GORM errors are checked first, then
// raw MySQL errors, then the messages of drivers that do not translate.
func conflictType(err error) string {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return "unique"
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return "foreign_key"
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlErrDupEntry:
			return "unique"
		case mysqlErrRowIsReferenced, mysqlErrNoReferencedRow:
			return "foreign_key"
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"),
		strings.Contains(msg, "duplicate entry"),
		strings.Contains(msg, "duplicate key"):
		return "unique"
	case strings.Contains(msg, "foreign key constraint"),
		strings.Contains(msg, "violates foreign key"):
		return "foreign_key"
	}
	return ""
}

// validationError creates a validation error for rejected input.
func validationError(message, field string, value any) error {
	return errors.Newf("%s", message).
		Component("datastore").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", fmt.Sprintf("%v", value)).
		Build()
}

// notFoundError reports a missing row. Plate searches return it for
// unregistered plates, so it is kept at low priority.
func notFoundError(resource string, identifier any) error {
	return errors.Newf("%s not found", resource).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Priority(errors.PriorityLow).
		Context("resource", resource).
		Context("identifier", fmt.Sprintf("%v", identifier)).
		Build()
}

func errNotOpen(operation string) error {
	return errors.Newf("database connection is not initialized").
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}
