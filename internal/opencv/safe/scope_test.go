package safe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestScopeClosesTrackedMats(t *testing.T) {
	scope := NewScope()
	a := scope.Track(gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC1))
	scope.NewMat()

	require.Equal(t, 2, scope.Len())
	require.False(t, a.Empty())

	scope.Close()
	assert.Equal(t, 0, scope.Len())

	scope.Close()
}

func TestValidateDimensions(t *testing.T) {
	assert.NoError(t, ValidateDimensions(1, 1))
	assert.Error(t, ValidateDimensions(0, 10))
	assert.Error(t, ValidateDimensions(10, -1))
	assert.Error(t, ValidateDimensions(maxDimension+1, 10))
}

func TestValidateShape(t *testing.T) {
	scope := NewScope()
	defer scope.Close()

	mat := scope.Track(gocv.NewMatWithSize(3, 5, gocv.MatTypeCV8UC3))

	assert.NoError(t, ValidateShape(mat, 3, 5, 3, "test"))
	assert.Error(t, ValidateShape(mat, 5, 3, 3, "test"))
	assert.Error(t, ValidateShape(mat, 3, 5, 1, "test"))
	assert.Error(t, ValidateMatForOperation(scope.NewMat(), "empty"))
	assert.Error(t, ValidateMatForOperation(nil, "nil"))
}
