package entitygraph

import (
	"fmt"
	"strings"
)

// UserInputError reports a caller mistake: a referenced node or edge does
// not exist, or an input variant was not recognized. It is surfaced
// immediately and never retried.
type UserInputError struct {
	Op  string
	Msg string
}

func (e *UserInputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

// IsUserInputError reports whether err is a UserInputError
func IsUserInputError(err error) bool {
	_, ok := err.(*UserInputError)
	return ok
}

func missingNodeError(op string, names ...string) error {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = fmt.Sprintf("%q", name)
	}
	noun := "node"
	if len(names) > 1 {
		noun = "nodes"
	}
	return &UserInputError{
		Op:  op,
		Msg: fmt.Sprintf("%s %s not found in graph", noun, strings.Join(quoted, ", ")),
	}
}

func missingEdgeError(op, source, target string) error {
	return &UserInputError{
		Op:  op,
		Msg: fmt.Sprintf("no edge exists between %q and %q", source, target),
	}
}
