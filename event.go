package sqsdispatch

import (
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/tidwall/gjson"
)

var requiredRecordFields = And(StringFields("messageId"), HasFields("body"))

// decodeEvent checks the overall shape of a raw SQS event and decodes it.
func decodeEvent(raw []byte) (events.SQSEvent, error) {
	if !gjson.ValidBytes(raw) {
		return events.SQSEvent{}, &InvalidEventError{Reason: ErrInvalidJSON.Error()}
	}
	records := gjson.GetBytes(raw, "Records")
	if !records.IsArray() {
		return events.SQSEvent{}, &InvalidEventError{Reason: "Records must be an array"}
	}

	var reason string
	index := 0
	records.ForEach(func(_, rec gjson.Result) bool {
		reason = checkRecordShape(rec)
		if reason != "" {
			reason = fmt.Sprintf("record %d: %s", index, reason)
			return false
		}
		index++
		return true
	})
	if reason != "" {
		return events.SQSEvent{}, &InvalidEventError{Reason: reason}
	}

	var event events.SQSEvent
	if err := bodyCodec.Unmarshal(raw, &event); err != nil {
		return events.SQSEvent{}, &InvalidEventError{Reason: err.Error()}
	}
	return event, nil
}

func checkRecordShape(rec gjson.Result) string {
	if !rec.IsObject() {
		return "not an object"
	}
	view := jsonView{root: rec}
	if !requiredRecordFields.Match(view) {
		return "messageId and body are required"
	}
	if _, ok := view.GetString("body"); !ok {
		return "body must be a string"
	}
	if attrs := rec.Get("messageAttributes"); attrs.Exists() && attrs.Type != gjson.Null && !attrs.IsObject() {
		return "messageAttributes must be an object"
	}
	for _, name := range []string{"receiptHandle", "eventSourceARN"} {
		if f := rec.Get(name); f.Exists() && f.Type != gjson.String {
			return name + " must be a string"
		}
	}
	return ""
}

// checkEvent validates an event that was already decoded by the caller.
func checkEvent(event events.SQSEvent) error {
	for i, msg := range event.Records {
		if msg.MessageId == "" {
			return &InvalidEventError{Reason: fmt.Sprintf("record %d: messageId is required", i)}
		}
	}
	return nil
}
