package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckVersionCompatible_ExactMatchAcceptsEitherVPrefix(t *testing.T) {
	assert.NoError(t, CheckVersionCompatible(EngineVersion))
	assert.NoError(t, CheckVersionCompatible("0.1.0"))
}

func TestCheckVersionCompatible_RejectsMismatch(t *testing.T) {
	assert.Error(t, CheckVersionCompatible("v9.9.9"))
}

func TestCheckVersionCompatible_RejectsInvalidSemver(t *testing.T) {
	assert.Error(t, CheckVersionCompatible("not-a-version"))
}
