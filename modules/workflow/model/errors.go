package model

import "errors"

var (
	ErrPlanNotFound           = errors.New("plan not found")
	ErrPlanAlreadySealed      = errors.New("plan_id already exists; plans are immutable once sealed")
	ErrDecisionPackNotFound   = errors.New("decision pack not found")
	ErrPresetNotFound         = errors.New("preset not found")
	ErrApplyNotDevMode        = errors.New("apply is only permitted when the process is running in development/operator mode")
	ErrApplyMissingHeader     = errors.New("apply requires the X-USE-REAL-UPLOADER: 1 header")
	ErrApplyOverHardCap       = errors.New("max_uploads exceeds the configured hard cap")
	ErrApplyItemNotAutoUpload = errors.New("one or more requested items are not in AUTO_UPLOAD decision")
	ErrApplyItemNotInPlan     = errors.New("one or more requested items are not present in the plan")
)

type ErrorCode string

const (
	CodePlanNotFound           ErrorCode = "PLAN_NOT_FOUND"
	CodePlanAlreadySealed      ErrorCode = "PLAN_ALREADY_SEALED"
	CodeDecisionPackNotFound   ErrorCode = "DECISION_PACK_NOT_FOUND"
	CodePresetNotFound         ErrorCode = "PRESET_NOT_FOUND"
	CodeApplyNotDevMode        ErrorCode = "APPLY_NOT_DEV_MODE"
	CodeApplyMissingHeader     ErrorCode = "APPLY_MISSING_HEADER"
	CodeApplyOverHardCap       ErrorCode = "APPLY_OVER_HARD_CAP"
	CodeApplyItemNotAutoUpload ErrorCode = "APPLY_ITEM_NOT_AUTO_UPLOAD"
	CodeApplyItemNotInPlan    ErrorCode = "APPLY_ITEM_NOT_IN_PLAN"
	CodeInternalError          ErrorCode = "INTERNAL_ERROR"
)

func GetErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrPlanNotFound):
		return CodePlanNotFound
	case errors.Is(err, ErrPlanAlreadySealed):
		return CodePlanAlreadySealed
	case errors.Is(err, ErrDecisionPackNotFound):
		return CodeDecisionPackNotFound
	case errors.Is(err, ErrPresetNotFound):
		return CodePresetNotFound
	case errors.Is(err, ErrApplyNotDevMode):
		return CodeApplyNotDevMode
	case errors.Is(err, ErrApplyMissingHeader):
		return CodeApplyMissingHeader
	case errors.Is(err, ErrApplyOverHardCap):
		return CodeApplyOverHardCap
	case errors.Is(err, ErrApplyItemNotAutoUpload):
		return CodeApplyItemNotAutoUpload
	case errors.Is(err, ErrApplyItemNotInPlan):
		return CodeApplyItemNotInPlan
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
