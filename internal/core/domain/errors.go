package domain

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrorKind groups domain errors by how callers should react to them
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindForbidden  ErrorKind = "forbidden"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindTransient  ErrorKind = "transient"
)

// Error is a domain error with a stable machine-readable code
type Error struct {
	Code    string
	Kind    ErrorKind
	Message string
	wraps   *Error
}

func (e *Error) Error() string {
	return e.Message
}

// Is lets a more specific error match the broader one it refines,
// e.g. ErrInsufficientBalance is also ErrInvalidAmount.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	for cur := e; cur != nil; cur = cur.wraps {
		if cur == t {
			return true
		}
	}
	return false
}

func newError(code string, kind ErrorKind, message string) *Error {
	return &Error{Code: code, Kind: kind, Message: message}
}

// Validation / state errors
var (
	ErrInvalidTicketState           = newError("INVALID_TICKET_STATE", KindValidation, "invalid ticket state for this action")
	ErrInvalidAmount                = newError("INVALID_AMOUNT", KindValidation, "invalid amount")
	ErrInsufficientBalance          = &Error{Code: "INSUFFICIENT_BALANCE", Kind: KindValidation, Message: "insufficient point balance", wraps: ErrInvalidAmount}
	ErrRoomCapacityExceeded         = newError("ROOM_CAPACITY_EXCEEDED", KindValidation, "room is already full")
	ErrRoomAlreadyEmpty             = newError("ROOM_ALREADY_EMPTY", KindValidation, "room has no occupants")
	ErrInvalidRoomStayState         = newError("INVALID_ROOM_STAY_STATE", KindValidation, "invalid room stay state for this action")
	ErrInvalidPointTransactionState = newError("INVALID_POINT_TRANSACTION_STATE", KindValidation, "point transaction is already finalized")
	ErrInactiveResource             = newError("INACTIVE_RESOURCE", KindValidation, "resource is not active")
	ErrInvalidInput                 = newError("INVALID_INPUT", KindValidation, "invalid input")
)

// Forbidden errors
var (
	ErrForbiddenRoomAccess = newError("FORBIDDEN_ROOM_ACCESS", KindForbidden, "you are not staying in this room")
	ErrForbiddenTicket     = newError("FORBIDDEN_TICKET", KindForbidden, "ticket belongs to another user")
	ErrForbiddenRoomStay   = newError("FORBIDDEN_ROOM_STAY", KindForbidden, "room stay belongs to another user")
)

// Not found errors
var (
	ErrNotFoundTicket     = newError("NOT_FOUND_TICKET", KindNotFound, "ticket not found")
	ErrNotFoundRoom       = newError("NOT_FOUND_ROOM", KindNotFound, "room not found")
	ErrNotFoundGuestHouse = newError("NOT_FOUND_GUEST_HOUSE", KindNotFound, "guest house not found")
	ErrNotFoundUser       = newError("NOT_FOUND_USER", KindNotFound, "user not found")
	ErrNotFoundCity       = newError("NOT_FOUND_CITY", KindNotFound, "city not found")
	ErrNotFoundVehicle    = newError("NOT_FOUND_VEHICLE", KindNotFound, "vehicle not found")
	ErrNotFoundRoomStay   = newError("NOT_FOUND_ROOM_STAY", KindNotFound, "room stay not found")
)

// Conflict errors
var (
	ErrDuplicatedReward = newError("DUPLICATED_REWARD", KindConflict, "reward already granted")
	ErrDuplicatedDiary  = newError("DUPLICATED_DIARY", KindConflict, "diary already written for this stay")
)

// Transient errors
var (
	ErrLockTimeout = newError("LOCK_TIMEOUT", KindTransient, "timed out waiting for lock")
)

// AsError returns the domain error carried by err, if any
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CodeOf returns the domain code of err or "INTERNAL_ERROR"
func CodeOf(err error) string {
	if de, ok := AsError(err); ok {
		return de.Code
	}
	return "INTERNAL_ERROR"
}

// MySQL error numbers that are worth retrying
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
	mysqlServerGone      = 2006
	mysqlServerLost      = 2013
)

// IsTransient reports whether err is worth retrying.
// Domain business errors are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if de, ok := AsError(err); ok {
		return de.Kind == KindTransient
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlLockWaitTimeout, mysqlDeadlock, mysqlServerGone, mysqlServerLost:
			return true
		}
	}
	return false
}

// Wrap annotates err with context while keeping it matchable
func Wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
