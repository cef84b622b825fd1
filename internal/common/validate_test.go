package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func recoverErr(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(error)
		}
	}()
	fn()
	return nil
}

func TestMustIdentify(t *testing.T) {
	require.NotPanics(t, func() { MustIdentify("shots", "abc") })

	err := recoverErr(func() { MustIdentify("", "abc") })
	require.True(t, errors.Is(err, ErrValidation))

	err = recoverErr(func() { MustIdentify("shots", "") })
	require.True(t, errors.Is(err, ErrValidation))
	require.Contains(t, err.Error(), "shots")
}
