package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeNotNullViolation    = "23502"
	codeCheckViolation      = "23514"
	codeNumericOutOfRange   = "22003"
	codeSerialization       = "40001"
	codeDeadlock            = "40P01"
	codeLockNotAvailable    = "55P03"
)

func ClassifyError(err error) ErrorClass {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	switch pqCode(err) {
	case codeSerialization:
		return ErrorClassSerialization
	case codeDeadlock:
		return ErrorClassDeadlock
	case codeLockNotAvailable:
		return ErrorClassTransient
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

func IsUniqueViolation(err error) bool {
	return pqCode(err) == codeUniqueViolation
}

func IsForeignKeyViolation(err error) bool {
	return pqCode(err) == codeForeignKeyViolation
}

func IsConstraintViolation(err error) bool {
	switch pqCode(err) {
	case codeUniqueViolation, codeForeignKeyViolation, codeNotNullViolation, codeCheckViolation,
		codeNumericOutOfRange:
		return true
	}
	return false
}

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderNotPending  = errors.New("order is not pending")
	ErrDuplicateEmail   = errors.New("email already registered")
	ErrReferenced       = errors.New("row is referenced by other records")
	ErrConstraint       = errors.New("value violates a table constraint")
)
