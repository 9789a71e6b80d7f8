package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"abtest/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestGetCode_ClassifiesDomainSentinels(t *testing.T) {
	assert.Equal(t, CodeDataShape, GetCode(core.NewMissingColumnError("Control", "Payments")))
	assert.Equal(t, CodeInsufficientData, GetCode(fmt.Errorf("wrapped: %w", core.ErrInsufficientData)))
	assert.Equal(t, CodeInvalidInput, GetCode(core.NewParameterError("alpha", 2)))
	assert.Equal(t, CodeDomainError, GetCode(core.NewEmptyTrialSetError("gross_conversion")))
	assert.Equal(t, CodeInternalError, GetCode(stderrors.New("boom")))
}

func TestWrap_KeepsCauseAndCode(t *testing.T) {
	err := Wrap(core.NewDataShapeError("bad row"), "failed to load observations")

	assert.True(t, IsAppError(err))
	assert.Equal(t, CodeDataShape, GetCode(err))
	assert.ErrorIs(t, err, core.ErrDataShape)
	assert.Contains(t, err.Error(), "failed to load observations: ")
	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestWithCode_Overrides(t *testing.T) {
	err := WithCode(CodeDatabaseError, stderrors.New("connection refused"))
	assert.Equal(t, CodeDatabaseError, GetCode(err))
	assert.Equal(t, 4, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 2, ExitCode(ConfigInvalid("alpha must be in (0,1)")))
	assert.Equal(t, 3, ExitCode(core.ErrDuplicateDate))
	assert.Equal(t, 5, ExitCode(InvariantFailure([]string{"pageviews"})))
	assert.Equal(t, 1, ExitCode(InternalError("unexpected")))
}
