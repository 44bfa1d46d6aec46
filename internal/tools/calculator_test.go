package tools

import (
	"errors"
	"testing"
)

func TestCalculate(t *testing.T) {
	cases := []struct {
		name     string
		first    float64
		second   float64
		operator string
		want     float64
	}{
		{"add", 2, 2, "add", 4},
		{"sub", 10, 3, "sub", 7},
		{"mul", 6, 7, "mul", 42},
		{"div", 9, 3, "div", 3},
		{"div fractional", 1, 4, "div", 0.25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Calculate(tc.first, tc.second, tc.operator)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Result != tc.want {
				t.Fatalf("Calculate(%v, %v, %q) = %v, want %v", tc.first, tc.second, tc.operator, res.Result, tc.want)
			}
			if res.Operator != tc.operator || res.First != tc.first || res.Second != tc.second {
				t.Fatalf("result does not echo inputs: %+v", res)
			}
		})
	}
}

func TestCalculateDivideByZero(t *testing.T) {
	_, err := Calculate(1, 0, "div")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCalculateUnsupportedOperator(t *testing.T) {
	_, err := Calculate(1, 2, "pow")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
