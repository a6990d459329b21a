package apperr

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad limit %d", -1)))
	assert.Equal(t, KindNotFound, KindOf(NotFound("campaign %s", "c1")))
	assert.Equal(t, KindConfiguration, KindOf(Configuration("missing api key")))
	assert.Equal(t, Kind(""), KindOf(eris.New("untagged")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := eris.Wrap(NotFound("run %s", "r1"), "load run")
	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
	assert.Contains(t, err.Error(), "run r1")
}
