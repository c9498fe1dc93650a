package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// ErrLimitExceeded 请求的计算量超过配置上限，同时匹配 domain.ErrInvalidParameter
var ErrLimitExceeded = fmt.Errorf("%w: request exceeds configured limit", domain.ErrInvalidParameter)

// 错误码
const (
	CodeInvalidParameter   = "INVALID_PARAMETER"
	CodeNumericInstability = "NUMERIC_INSTABILITY"
	CodeNotFound           = "NOT_FOUND"
	CodeCanceled           = "CANCELED"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorCode 将错误归类为对外错误码
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrInvalidParameter),
		errors.Is(err, domain.ErrInvalidOptionType),
		errors.Is(err, domain.ErrInvalidExerciseStyle):
		return CodeInvalidParameter
	case errors.Is(err, domain.ErrNumericInstability):
		return CodeNumericInstability
	case errors.Is(err, domain.ErrNoConvergence):
		return CodeNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	default:
		return CodeInternal
	}
}

func limitExceeded(name string, got, limit int) error {
	return fmt.Errorf("%w: %s=%d exceeds %d", ErrLimitExceeded, name, got, limit)
}
