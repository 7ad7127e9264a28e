package errtrack

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisabledIsNoop(t *testing.T) {
	assert.NoError(t, Init("", "test", "dev", nil))

	assert.NotPanics(t, func() {
		CaptureError(nil, nil)
		CaptureError(errors.New("boom"), map[string]string{"component": "test"})
		Flush()
	})
}

func TestInvalidDSN(t *testing.T) {
	assert.Error(t, Init("not a dsn", "test", "dev", nil))
}
