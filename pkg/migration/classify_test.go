package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyErrorMissingObject(t *testing.T) {
	errType, obj := ClassifyError(`Object 'MYDB.MYSCHEMA.MYTABLE' does not exist or not authorized.`)
	assert.Equal(t, "missing_object", errType)
	assert.Equal(t, "MYDB.MYSCHEMA.MYTABLE", obj)
}

func TestClassifyErrorTableDoesNotExist(t *testing.T) {
	errType, obj := ClassifyError(`SQL compilation error: Table 'CUSTOMERS' does not exist`)
	assert.Equal(t, "missing_object", errType)
	assert.Equal(t, "CUSTOMERS", obj)
}

func TestClassifyErrorGenericExecutionError(t *testing.T) {
	errType, obj := ClassifyError("Syntax error near 'SELEC'")
	assert.Equal(t, "execution_error", errType)
	assert.Empty(t, obj)
}

func TestClassifyErrorMissingObjectNoExtractableName(t *testing.T) {
	errType, _ := ClassifyError("schema does not exist in this database")
	assert.Equal(t, "missing_object", errType)
}
