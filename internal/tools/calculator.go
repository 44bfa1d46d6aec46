// Package tools implements the auxiliary tools the conversation engine can
// invoke: arithmetic, stock quote lookup and web search. Malformed input
// comes back as a *ValidationError value, never a panic; the engine folds
// tool errors into the conversation and continues.
package tools

import "fmt"

// ValidationError reports malformed tool input (bad symbol, unsupported
// operator). It is a structured result, not a fault.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// CalcResult echoes the operands alongside the result, matching the shape
// the model is prompted to expect.
type CalcResult struct {
	First    float64 `json:"first_num"`
	Second   float64 `json:"second_num"`
	Operator string  `json:"operator"`
	Result   float64 `json:"result"`
}

// Calculate performs a basic arithmetic operation on two numbers.
// Supported operators: add, sub, mul, div. Division by zero is a
// *ValidationError, not a fault.
func Calculate(first, second float64, operator string) (CalcResult, error) {
	var result float64
	switch operator {
	case "add":
		result = first + second
	case "sub":
		result = first - second
	case "mul":
		result = first * second
	case "div":
		if second == 0 {
			return CalcResult{}, &ValidationError{Msg: "divide by zero is not possible"}
		}
		result = first / second
	default:
		return CalcResult{}, &ValidationError{Msg: fmt.Sprintf("unsupported operation: %s", operator)}
	}
	return CalcResult{First: first, Second: second, Operator: operator, Result: result}, nil
}
