package updates

import "fmt"

// Operation names one update operator.
type Operation int

const (
	Create Operation = iota
	ReplaceAll
	ReplaceAllOrCreate
	Append
	AppendOrCreate
	AppendWithDuplication
	Remove
	RemoveField
	Clear
	Substitute
	Set
	SetFieldNull
	ReplaceSingleton
	ReplaceSubset
)

var operationNames = [...]string{
	Create:                "CREATE",
	ReplaceAll:            "REPLACE_ALL",
	ReplaceAllOrCreate:    "REPLACE_ALL_OR_CREATE",
	Append:                "APPEND",
	AppendOrCreate:        "APPEND_OR_CREATE",
	AppendWithDuplication: "APPEND_WITH_DUPLICATION",
	Remove:                "REMOVE",
	RemoveField:           "REMOVE_FIELD",
	Clear:                 "CLEAR",
	Substitute:            "SUBSTITUTE",
	Set:                   "SET",
	SetFieldNull:          "SET_FIELD_NULL",
	ReplaceSingleton:      "REPLACE_SINGLETON",
	ReplaceSubset:         "REPLACE_SUBSET",
}

func (o Operation) String() string {
	if o < 0 || int(o) >= len(operationNames) {
		return fmt.Sprintf("Operation(%d)", int(o))
	}
	return operationNames[o]
}

// ParseOperation maps a name such as "APPEND_OR_CREATE" to its Operation.
func ParseOperation(name string) (Operation, error) {
	for i, n := range operationNames {
		if n == name {
			return Operation(i), nil
		}
	}
	return 0, fmt.Errorf("unknown update operation %q", name)
}

// Upsert reports whether the operation creates the record when it is missing.
func (o Operation) Upsert() bool {
	return o == AppendOrCreate || o == ReplaceAllOrCreate
}

// SkipsRead reports whether the new value does not depend on the stored one,
// so the current value need not be decoded or type-checked.
func (o Operation) SkipsRead() bool {
	return o == RemoveField || o == ReplaceAll
}

// SingleField reports whether the operation acts on one list field.
func (o Operation) SingleField() bool {
	return o != RemoveField && o != ReplaceSubset
}

// Update is an operator with its operands.
type Update struct {
	Op Operation
	// Values are the new values.
	Values List
	// OldValues pair with Values for Substitute.
	OldValues List
	// Index is the zero-based position for Set.
	Index int
	// Document is merged by ReplaceSubset.
	Document map[string]any
}

// With is shorthand for an Update carrying only new values.
func With(op Operation, values ...any) Update {
	return Update{Op: op, Values: List(values)}
}
