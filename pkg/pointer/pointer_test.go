package pointer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringHelpers(t *testing.T) {
	assert.Nil(t, StringCopy(nil))
	assert.Nil(t, StringIfValid(false, "value"))
	assert.Equal(t, "value", *StringIfValid(true, "value"))
	assert.Equal(t, "default", *StringOrDefault(nil, "default"))

	original := String("value")
	copied := StringCopy(original)
	assert.Equal(t, *original, *copied)
	assert.False(t, original == copied)
}

func TestInt64(t *testing.T) {
	assert.EqualValues(t, 42, *Int64(42))
}
