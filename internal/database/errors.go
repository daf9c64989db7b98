package database

import (
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
	codeSerialization       = "40001"
	codeDeadlock            = "40P01"
	codeLockNotAvailable    = "55P03"
)

func ClassifyError(err error) ErrorClass {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeSerialization:
			return ErrorClassSerialization
		case codeDeadlock:
			return ErrorClassDeadlock
		case codeLockNotAvailable:
			return ErrorClassTransient
		}
	}
	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

func IsUniqueViolation(err error) bool { return hasCode(err, codeUniqueViolation) }

func IsForeignKeyViolation(err error) bool { return hasCode(err, codeForeignKeyViolation) }

func IsCheckViolation(err error) bool {
	return hasCode(err, codeCheckViolation) || hasCode(err, codeNotNullViolation)
}

// ConstraintName returns the violated constraint, or "" for non-constraint errors.
func ConstraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

var (
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrWarehouseNotFound   = errors.New("warehouse not found")
	ErrPortNotFound        = errors.New("port not found")
	ErrProductTypeNotFound = errors.New("product type not found")
	ErrShipmentNotFound    = errors.New("shipment not found")
	ErrUserNotFound        = errors.New("user not found")

	ErrTrackingCodeTaken = errors.New("tracking code already in use")
	ErrUsernameTaken     = errors.New("username already in use")
	ErrEmailTaken        = errors.New("email already in use")
	ErrProductTypeTaken  = errors.New("product type name already in use")
	ErrStillReferenced   = errors.New("referenced by active shipments")
	ErrDanglingReference = errors.New("referenced row does not exist")
	ErrVersionConflict   = errors.New("row was modified concurrently")
)
