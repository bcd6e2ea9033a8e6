package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamesAreOrdered(t *testing.T) {
	assert.Equal(t, []string{"0001_init.sql"}, Names())
}
