package sqsdispatch

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	jsoniter "github.com/json-iterator/go"
)

// DefaultTenantAttribute is the message attribute carrying the tenant code.
const DefaultTenantAttribute = "tenant-code"

var bodyCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// Record is an SQS message whose body has been decoded.
//
// Body always holds valid JSON. When the original body referenced content in
// object storage, Body holds the fetched content instead of the reference.
type Record struct {
	MessageID        string
	ReceiptHandle    string
	SourceID         string
	Attributes       map[string]events.SQSMessageAttribute
	SystemAttributes map[string]string
	Body             json.RawMessage
}

// Decode unmarshals the body into v.
func (r Record) Decode(v any) error {
	return bodyCodec.Unmarshal(r.Body, v)
}

// Delivery pairs a record with its per-message logger for batch processing.
type Delivery struct {
	Record
	Logger *slog.Logger
}

// Parse decodes the message body. All other fields are copied unchanged.
func Parse(msg events.SQSMessage) (Record, error) {
	body, err := decodeBody(msg.MessageId, []byte(msg.Body))
	if err != nil {
		return Record{}, err
	}
	return Record{
		MessageID:        msg.MessageId,
		ReceiptHandle:    msg.ReceiptHandle,
		SourceID:         msg.EventSourceARN,
		Attributes:       msg.MessageAttributes,
		SystemAttributes: msg.Attributes,
		Body:             body,
	}, nil
}

// decodeBody decodes raw to prove it is a single well-formed JSON value, then
// keeps the original bytes so numbers and key order survive untouched.
func decodeBody(messageID string, raw []byte) (json.RawMessage, error) {
	var v any
	if err := bodyCodec.Unmarshal(raw, &v); err != nil {
		return nil, &MalformedBodyError{MessageID: messageID, Err: err}
	}
	return json.RawMessage(bytes.TrimSpace(raw)), nil
}

// TenantCode returns the string value of the named attribute. It reports false
// when the attribute is missing or carries no string value.
func TenantCode(attrs map[string]events.SQSMessageAttribute, name string) (string, bool) {
	attr, ok := attrs[name]
	if !ok || attr.StringValue == nil || *attr.StringValue == "" {
		return "", false
	}
	return *attr.StringValue, true
}
