package logging

import "time"

// Field is one structured key/value pair. Values are passed to zap
// with zap.Any, so any JSON-encodable value works.
type Field struct {
	Key   string
	Value any
}

func Any(key string, value any) Field { return Field{Key: key, Value: value} }
func StringField(key, value string) Field { return Field{Key: key, Value: value} }
func IntField(key string, value int) Field { return Field{Key: key, Value: value} }
func DurationField(key string, d time.Duration) Field { return Field{Key: key, Value: d} }

// ErrorField records err under "error". A nil error logs "<nil>".
func ErrorField(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: "<nil>"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Keys shared by the client and the workflows so log queries can
// join on them.
const (
	KeyKind     = "kind"
	KeyTaskID   = "task_id"
	KeyWorkflow = "workflow"
	KeyAttempt  = "attempt"
)

func KindField(kind string) Field { return StringField(KeyKind, kind) }
func TaskIDField(id string) Field { return StringField(KeyTaskID, id) }
func WorkflowField(name string) Field { return StringField(KeyWorkflow, name) }
func AttemptField(n int) Field { return IntField(KeyAttempt, n) }
