package sqsdispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderSchema = `{
	"type": "object",
	"required": ["orderId"],
	"properties": {
		"orderId": {"type": "string"},
		"qty": {"type": "integer", "minimum": 1}
	}
}`

func records(t *testing.T, bodies ...string) []Record {
	t.Helper()
	out := make([]Record, len(bodies))
	for i, body := range bodies {
		rec, err := Parse(message(string(rune('a'+i)), body, ""))
		require.NoError(t, err)
		out[i] = rec
	}
	return out
}

func TestSchemaValidate(t *testing.T) {
	single := MustCompileSchema("order.json", orderSchema)
	array, err := CompileArraySchema("orders.json", orderSchema)
	require.NoError(t, err)

	t.Run("valid bodies pass", func(t *testing.T) {
		recs := records(t, `{"orderId": "o-1", "qty": 2}`, `{"orderId": "o-2"}`)

		assert.NoError(t, single.Validate(recs))
		assert.NoError(t, array.Validate(recs))
	})

	t.Run("single schema names the offending record", func(t *testing.T) {
		recs := records(t, `{"orderId": "o-1"}`, `{"qty": 0}`)

		err := single.Validate(recs)

		var verr *SchemaValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"b"}, verr.MessageIDs)
		assert.ErrorIs(t, err, ErrSchemaViolation)
	})

	t.Run("array schema rejects the whole list", func(t *testing.T) {
		recs := records(t, `{"orderId": "o-1"}`, `{"orderId": 7}`)

		err := array.Validate(recs)

		var verr *SchemaValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"a", "b"}, verr.MessageIDs)
		assert.Contains(t, err.Error(), "item 1")
	})

	t.Run("nil schema and empty input pass", func(t *testing.T) {
		var s *Schema

		assert.NoError(t, s.Validate(records(t, `{"qty": 0}`)))
		assert.NoError(t, single.Validate(nil))
	})
}

func TestCompileSchema(t *testing.T) {
	t.Run("reports kind", func(t *testing.T) {
		s := MustCompileSchema("order.json", orderSchema)
		a, err := CompileArraySchema("orders.json", orderSchema)
		require.NoError(t, err)

		assert.False(t, s.IsArray())
		assert.True(t, a.IsArray())
	})

	t.Run("rejects invalid source", func(t *testing.T) {
		_, err := CompileSchema("broken.json", `{"type": `)

		assert.Error(t, err)
	})

	t.Run("must compile panics", func(t *testing.T) {
		assert.Panics(t, func() {
			MustCompileSchema("broken.json", `{"type": 12}`)
		})
	})
}
