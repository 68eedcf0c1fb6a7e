package apperr

import (
	"errors"
	"net/http"
)

// Kind - 정규화된 실패 종류
type Kind string

const (
	KindValidation          Kind = "ValidationError"
	KindConfiguration       Kind = "ConfigurationError"
	KindContentRejected     Kind = "ContentRejected"
	KindProviderUnavailable Kind = "ProviderUnavailable"
	KindNoOutput            Kind = "NoOutputProduced"
	KindProvider            Kind = "ProviderError"
)

// Error - 사용자에게 보여줄 메시지와 원인 에러를 함께 담는 에러
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New - 원인 없는 에러 생성
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap - 원인 에러를 감싸서 생성
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation - 잘못된 클라이언트 입력
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// KindOf - 체인 안의 *Error 종류 반환 (없으면 ProviderError 취급)
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindProvider
}

// Is - err 체인에 주어진 종류가 있는지
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus - 종류별 HTTP 상태 코드
func HTTPStatus(kind Kind) int {
	if kind == KindValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
