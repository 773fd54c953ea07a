package protocol

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// FailureRecord - packet published to the error queue when a handler fails
type FailureRecord struct {
	ExceptionType string `json:"exception_type"`
	ErrorMessage  string `json:"error_message"`
}

// NewFailureRecord captures the concrete type name and the message of err.
func NewFailureRecord(err error) *FailureRecord {
	return &FailureRecord{
		ExceptionType: TypeName(err),
		ErrorMessage:  err.Error(),
	}
}

// TypeName returns the bare type name of v: no pointer, no package path.
// Unnamed types fall back to their %T representation.
func TypeName(v interface{}) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "nil"
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() == "" {
		return fmt.Sprintf("%T", v)
	}
	return t.Name()
}

// JSON - convert struct to json
func (r *FailureRecord) JSON() (string, error) {
	bin, err := json.Marshal(r)
	return string(bin), err
}

// FromJSON - convert json to struct
func (r *FailureRecord) FromJSON(jsonString string) error {
	return json.Unmarshal([]byte(jsonString), r)
}

// String representation
func (r *FailureRecord) String() string {
	return fmt.Sprintf("exception_type=%s error_message=%s", r.ExceptionType, r.ErrorMessage)
}
