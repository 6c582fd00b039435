// Package debugger instruments the execution goroutine: breakpoints,
// watchpoints, Lua condition scripts, the trace log of retired instructions and
// the memory access heat map. It plugs into the machine as a machine.Debugger
// and is driven by DEBUG_* requests.
package debugger

import (
	"fmt"
	"strings"
)

// Condition compares a live value against a reference value
type Condition uint8

const (
	CondAny Condition = iota
	CondEQ
	CondLT
	CondGT
	CondLE
	CondGE
	CondNE

	totalConditions
)

var conditionNames = [totalConditions]string{"ANY", "==", "<", ">", "<=", ">=", "!="}
var conditionAliases = map[string]Condition{
	"ANY": CondAny, "EQ": CondEQ, "LT": CondLT, "GT": CondGT, "LE": CondLE, "GE": CondGE, "NE": CondNE,
}

func (c Condition) String() string {
	if c < totalConditions {
		return conditionNames[c]
	}
	return fmt.Sprintf("Condition(%d)", uint8(c))
}

func (c Condition) Valid() bool {
	return c < totalConditions
}

// Parses a condition either as an operator ("==") or a name ("EQ")
func ParseCondition(text string) (Condition, error) {
	text = strings.ToUpper(strings.TrimSpace(text))
	if c, ok := conditionAliases[text]; ok {
		return c, nil
	}
	for c, name := range conditionNames {
		if name == text {
			return Condition(c), nil
		}
	}
	return CondAny, fmt.Errorf("unknown condition '%s'", text)
}

// Compares value against reference. CondAny always holds.
func (c Condition) Holds(value, reference uint64) bool {
	switch c {
	case CondAny:
		return true
	case CondEQ:
		return value == reference
	case CondLT:
		return value < reference
	case CondGT:
		return value > reference
	case CondLE:
		return value <= reference
	case CondGE:
		return value >= reference
	case CondNE:
		return value != reference
	}
	return false
}
