package instrumentation

// Cardinality management helpers for metrics.
//
// Tool names come from model output, so a model that invents tool names would
// otherwise create an unbounded number of label values.

// UnknownToolLabel is the label value used for tool names that are not registered.
const UnknownToolLabel = "unknown"

// ToolLabel returns name when known reports it as a registered tool and
// UnknownToolLabel otherwise.
//
// Example:
//
//	ToolLabel("list_events", registry.Has)     // "list_events"
//	ToolLabel("book_flight", registry.Has)     // "unknown"
func ToolLabel(name string, known func(string) bool) string {
	if name == "" || known == nil || !known(name) {
		return UnknownToolLabel
	}
	return name
}

// Operation types for Google API metrics.
// Status, OAuth, and Service constants are defined in config.go.
const (
	OperationList   = "list"
	OperationGet    = "get"
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)
