package approval

import (
	"errors"
	"fmt"
)

// 存储层返回的哨兵错误，由 Coordinator 在边界处转换为 *Error
var (
	ErrFormNotFound      = errors.New("form not found")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrDuplicateApproval = errors.New("duplicate approval")
	ErrInvalidTransition = errors.New("document is not pending")
)

// ErrorKind 审批失败分类
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindPermission
	KindPrecondition
	KindConfiguration
	KindPersistence
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPermission:
		return "permission"
	case KindPrecondition:
		return "precondition"
	case KindConfiguration:
		return "configuration"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error 审批失败，Message 直接返回给调用方
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf 返回错误分类，非 *Error 视为未知错误
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MessageOf 返回可以展示给调用方的错误信息
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
