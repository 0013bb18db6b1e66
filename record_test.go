package sqsdispatch

import (
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("decodes body and keeps other fields", func(t *testing.T) {
		msg := message("m-1", ` {"orderId": 12345678901234567890, "b": "x"} `, "acme")
		msg.Attributes = map[string]string{"ApproximateReceiveCount": "1"}

		rec, err := Parse(msg)

		require.NoError(t, err)
		assert.Equal(t, "m-1", rec.MessageID)
		assert.Equal(t, "rh-m-1", rec.ReceiptHandle)
		assert.Equal(t, msg.EventSourceARN, rec.SourceID)
		assert.Equal(t, msg.MessageAttributes, rec.Attributes)
		assert.Equal(t, msg.Attributes, rec.SystemAttributes)
		assert.JSONEq(t, `{"orderId": 12345678901234567890, "b": "x"}`, string(rec.Body))
	})

	t.Run("keeps large numbers intact", func(t *testing.T) {
		rec, err := Parse(message("m-1", `{"n":12345678901234567890}`, ""))

		require.NoError(t, err)
		assert.Equal(t, `{"n":12345678901234567890}`, string(rec.Body))
	})

	t.Run("accepts non-object JSON", func(t *testing.T) {
		rec, err := Parse(message("m-1", `[1,2]`, ""))

		require.NoError(t, err)
		assert.Equal(t, `[1,2]`, string(rec.Body))
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		_, err := Parse(message("m-2", `{"orderId":`, ""))

		var merr *MalformedBodyError
		require.ErrorAs(t, err, &merr)
		assert.Equal(t, "m-2", merr.MessageID)
		assert.True(t, errors.Is(err, ErrMalformedBody))
	})

	t.Run("rejects empty body", func(t *testing.T) {
		_, err := Parse(message("m-3", "", ""))

		assert.ErrorIs(t, err, ErrMalformedBody)
	})
}

func TestRecordDecode(t *testing.T) {
	rec, err := Parse(message("m-1", `{"orderId": "o-1", "qty": 2}`, ""))
	require.NoError(t, err)

	var order struct {
		OrderID string `json:"orderId"`
		Qty     int    `json:"qty"`
	}
	require.NoError(t, rec.Decode(&order))
	assert.Equal(t, "o-1", order.OrderID)
	assert.Equal(t, 2, order.Qty)
}

func TestTenantCode(t *testing.T) {
	acme := "acme"
	empty := ""

	tests := []struct {
		name   string
		attrs  map[string]events.SQSMessageAttribute
		want   string
		wantOK bool
	}{
		{"present", map[string]events.SQSMessageAttribute{DefaultTenantAttribute: {StringValue: &acme}}, "acme", true},
		{"missing attribute", map[string]events.SQSMessageAttribute{"other": {StringValue: &acme}}, "", false},
		{"nil map", nil, "", false},
		{"no string value", map[string]events.SQSMessageAttribute{DefaultTenantAttribute: {BinaryValue: []byte("x")}}, "", false},
		{"empty string value", map[string]events.SQSMessageAttribute{DefaultTenantAttribute: {StringValue: &empty}}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TenantCode(tt.attrs, DefaultTenantAttribute)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
