package globalvar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpolate(t *testing.T) {
	vars := []Variable{
		{Name: "SCALR_FARM_NAME", Value: "web"},
		{Name: "SCALR_SERVER_INDEX", Value: "3"},
	}

	assert.Equal(t, "web-3", Interpolate("{SCALR_FARM_NAME}-{SCALR_SERVER_INDEX}", vars))
	assert.Equal(t, "static", Interpolate("static", vars))
	assert.Equal(t, "{UNKNOWN}", Interpolate("{UNKNOWN}", vars))
	assert.Equal(t, "", Interpolate("", vars))
	assert.Equal(t, "{SCALR_FARM_NAME}", Interpolate("{SCALR_FARM_NAME}", nil))
}

func TestInterpolateRepeatedToken(t *testing.T) {
	vars := []Variable{{Name: "X", Value: "1"}}
	assert.Equal(t, "1 and 1", Interpolate("{X} and {X}", vars))
}
