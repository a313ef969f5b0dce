package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cexlabs/hypervisor/internal/logger"
)

func TestError_Status(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, BadInput("bad").Status())
	require.Equal(t, http.StatusUnauthorized, Unauthorized("nope").Status())
	require.Equal(t, http.StatusPaymentRequired, PaymentRequired("pay up").Status())
	require.Equal(t, http.StatusInternalServerError, Internal("boom", nil).Status())
}

func TestError_LogErrorCarriesCodeAndCause(t *testing.T) {
	cause := errors.New("underlying failure")

	logErr := Internal("derive session key", cause).LogError()
	require.Equal(t, logger.ErrCodeInternal, logErr.Code)
	require.Equal(t, "derive session key", logErr.Message)
	require.Equal(t, cause, logErr.Cause)

	require.Equal(t, logger.ErrCodeInvalidInput, BadInput("bad hex").LogError().Code)
	require.Equal(t, logger.ErrCodeUnauthorized, Unauthorized("no session").LogError().Code)
	require.Equal(t, logger.ErrCodePaymentRequired, PaymentRequired("quote").LogError().Code)
}

func TestAs_WrapsForeignErrorsAsInternal(t *testing.T) {
	foreign := errors.New("not ours")
	wrapped := As(foreign)
	require.Equal(t, KindInternal, wrapped.Kind)
	require.Equal(t, foreign, wrapped.Unwrap())
}
