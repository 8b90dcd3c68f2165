package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the ledger can report.
type ErrorKind int

const (
	KindStorageFailure ErrorKind = iota
	KindInvalidAmount
	KindAccountNotFound
	KindSenderNotFound
	KindReceiverNotFound
	KindSameAccount
	KindInsufficientFunds
	KindAccountAlreadyExists
	KindPageOutOfRange
	KindInvalidCurrency
	KindUserAlreadyExists
	KindUserNotFound
	KindInvalidCredentials
)

var kindNames = map[ErrorKind]string{
	KindStorageFailure:       "StorageFailure",
	KindInvalidAmount:        "InvalidAmount",
	KindAccountNotFound:      "AccountNotFound",
	KindSenderNotFound:       "SenderNotFound",
	KindReceiverNotFound:     "ReceiverNotFound",
	KindSameAccount:          "SameAccount",
	KindInsufficientFunds:    "InsufficientFunds",
	KindAccountAlreadyExists: "AccountAlreadyExists",
	KindPageOutOfRange:       "PageOutOfRange",
	KindInvalidCurrency:      "InvalidCurrency",
	KindUserAlreadyExists:    "UserAlreadyExists",
	KindUserNotFound:         "UserNotFound",
	KindInvalidCredentials:   "InvalidCredentials",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a classified ledger error. Two Errors match under errors.Is when their kinds match.
type Error struct {
	Kind ErrorKind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidAmount        = &Error{Kind: KindInvalidAmount, Msg: "amount must be a positive integer"}
	ErrBalanceOverflow      = &Error{Kind: KindInvalidAmount, Msg: "amount would overflow the balance"}
	ErrAccountNotFound      = &Error{Kind: KindAccountNotFound, Msg: "account not found"}
	ErrSenderNotFound       = &Error{Kind: KindSenderNotFound, Msg: "sender account not found"}
	ErrReceiverNotFound     = &Error{Kind: KindReceiverNotFound, Msg: "receiver account not found"}
	ErrSameAccount          = &Error{Kind: KindSameAccount, Msg: "cannot transfer to same account"}
	ErrInsufficientFunds    = &Error{Kind: KindInsufficientFunds, Msg: "insufficient funds"}
	ErrAccountAlreadyExists = &Error{Kind: KindAccountAlreadyExists, Msg: "account already exists for owner"}
	ErrPageOutOfRange       = &Error{Kind: KindPageOutOfRange, Msg: "page exceeds total pages"}
	ErrInvalidCurrency      = &Error{Kind: KindInvalidCurrency, Msg: "invalid currency code"}
	ErrStorageFailure       = &Error{Kind: KindStorageFailure, Msg: "storage failure"}
	ErrUserAlreadyExists    = &Error{Kind: KindUserAlreadyExists, Msg: "user already exists"}
	ErrUserNotFound         = &Error{Kind: KindUserNotFound, Msg: "user not found"}
	ErrInvalidCredentials   = &Error{Kind: KindInvalidCredentials, Msg: "invalid credentials"}
)

// StorageFailure wraps a backend error. Classified errors pass through unchanged.
func StorageFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: KindStorageFailure, Op: op, Msg: "storage failure", Err: err}
}

// KindOf reports the kind of err. Unclassified errors are storage failures.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindStorageFailure
}
