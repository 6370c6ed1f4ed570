package query

// Operator combines the documents matched by two consecutive phrases.
type Operator uint8

// The numeric values are stable and exchanged as codes by callers.
const (
	And Operator = 1
	Or  Operator = 2
	Not Operator = 3
)

// OperatorAt returns ops[i], or And when i is out of range.
func OperatorAt(ops []Operator, i int) Operator {
	if i < 0 || i >= len(ops) {
		return And
	}

	switch ops[i] {
	case Or, Not:
		return ops[i]
	default:
		return And
	}
}

// String returns the query syntax keyword of the operator.
func (o Operator) String() string {
	switch o {
	case Or:
		return "OR"
	case Not:
		return "NOT"
	default:
		return "AND"
	}
}

func parseOperator(s string) Operator {
	switch s {
	case "OR":
		return Or
	case "NOT":
		return Not
	default:
		return And
	}
}
