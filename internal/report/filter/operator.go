// Package filter narrows report rows through a fixed sequence of optional stages.
package filter

import "strings"

type Operator string

const (
	OpNone    Operator = "NONE"
	OpEq      Operator = "="
	OpLt      Operator = "<"
	OpGt      Operator = ">"
	OpLte     Operator = "<="
	OpGte     Operator = ">="
	OpBetween Operator = "BETWEEN"
)

// ParseOperator accepts the operator spellings used by report forms.
// EXACT and an empty value both mean equality.
func ParseOperator(raw string) (Operator, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "=", "EXACT":
		return OpEq, true
	case "NONE":
		return OpNone, true
	case "<":
		return OpLt, true
	case ">":
		return OpGt, true
	case "<=":
		return OpLte, true
	case ">=":
		return OpGte, true
	case "BETWEEN":
		return OpBetween, true
	}
	return "", false
}

// correct swaps between equality and BETWEEN when the supplied operands only
// fit the other one. It reports false when the operands cannot be used.
func correct(op Operator, hasValue, hasRange bool) (Operator, bool) {
	switch {
	case op == OpEq && !hasValue && hasRange:
		op = OpBetween
	case op == OpBetween && !hasRange && hasValue:
		op = OpEq
	}
	if op == OpBetween {
		return op, hasRange
	}
	return op, hasValue
}

// compare applies a single-operand operator to a three-way comparison result.
func compare(op Operator, c int) bool {
	switch op {
	case OpEq:
		return c == 0
	case OpLt:
		return c < 0
	case OpGt:
		return c > 0
	case OpLte:
		return c <= 0
	case OpGte:
		return c >= 0
	}
	return false
}
