package model

import "errors"

var (
	ErrRuleNotFound   = errors.New("submission rule not found")
	ErrRuleIDConflict = errors.New("submission rule id already exists")
)

type ErrorCode string

const (
	CodeRuleNotFound   ErrorCode = "RULE_NOT_FOUND"
	CodeRuleIDConflict ErrorCode = "RULE_ID_CONFLICT"
	CodeInternalError  ErrorCode = "INTERNAL_ERROR"
)

func GetErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrRuleNotFound):
		return CodeRuleNotFound
	case errors.Is(err, ErrRuleIDConflict):
		return CodeRuleIDConflict
	default:
		return CodeInternalError
	}
}
