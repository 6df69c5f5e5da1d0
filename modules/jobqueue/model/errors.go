package model

import "errors"

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrJobAlreadyTerminal = errors.New("job already finished; cannot cancel")
)

type ErrorCode string

const (
	CodeJobNotFound        ErrorCode = "JOB_NOT_FOUND"
	CodeJobAlreadyTerminal ErrorCode = "JOB_ALREADY_TERMINAL"
	CodeInternalError      ErrorCode = "INTERNAL_ERROR"
)

func GetErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrJobNotFound):
		return CodeJobNotFound
	case errors.Is(err, ErrJobAlreadyTerminal):
		return CodeJobAlreadyTerminal
	default:
		return CodeInternalError
	}
}

func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
