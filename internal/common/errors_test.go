package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestNewKindErrorChain(t *testing.T) {
	cause := errors.New("pq: connection reset")
	err := fmt.Errorf("commit: %w", NewKindError(KindPersistenceFailure, "could not save record", cause))

	assert.Equal(t, KindPersistenceFailure, KindOf(err))
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "could not save record", PublicMessage(err))
	assert.False(t, IsSoftFailure(err))
}

func TestSoftFailures(t *testing.T) {
	assert.True(t, IsSoftFailure(NewKindError(KindNoVehicleMatch, "no match", nil)))
	assert.True(t, IsSoftFailure(NewKindError(KindAmbiguousVehicleMatch, "ambiguous", nil)))
	assert.False(t, IsSoftFailure(errors.New("plain")))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, "internal error", PublicMessage(errors.New("secret driver detail")))
}

func TestTransportMapping(t *testing.T) {
	assert.Equal(t, http.StatusUnsupportedMediaType, HTTPStatus(KindUnsupportedInput))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(KindAmbiguousVehicleMatch))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindPersistenceFailure))

	err := GRPCError(NewKindError(KindUnsupportedInput, "file too large", nil))
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.InvalidArgument, st.Code())
	assert.Equal(t, "file too large", st.Message())

	assert.NoError(t, GRPCError(nil))
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("vin", "1HGCM82633A123456", Required, VIN).
		Field("year", 2019, ModelYear).
		Field("status", "Parked", OneOf("Active", "Retired")).
		Field("mileage", int64(-1), NonNegative)

	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 2)
	assert.ErrorIs(t, v.Error(), ErrValidation)
}
