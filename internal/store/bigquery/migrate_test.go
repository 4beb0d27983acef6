package bigquery

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestTableSchemasCoverEveryTable(t *testing.T) {
	schemas := tableSchemas()

	wantTables := []string{
		externalTable, ledgerTable, matchesTable, debtServiceTable,
		categoriesTable, budgetsTable, potsTable, goalsTable, actionsTable,
	}
	require.Len(t, schemas, len(wantTables))
	for _, name := range wantTables {
		schema, ok := schemas[name]
		require.True(t, ok, "missing schema for %s", name)
		assert.NotEmpty(t, schema, "empty schema for %s", name)
	}
}

func TestExternalSchemaFields(t *testing.T) {
	names := make(map[string]bool)
	for _, f := range externalSchema {
		names[f.Name] = true
	}
	for _, want := range []string{"owner_id", "external_id", "source", "amount_minor", "loaded_ts"} {
		assert.True(t, names[want], "external schema missing %s", want)
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&googleapi.Error{Code: http.StatusNotFound}))
	assert.False(t, isNotFound(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isNotFound(assert.AnError))
	assert.False(t, isNotFound(nil))
}
