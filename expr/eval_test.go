package expr

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func TestEvaluate_Arithmetic(t *testing.T) {
	tests := []struct {
		input string
		want  Value
	}{
		{"2+3*5", IntValue(17)},
		{"2**10", IntValue(1024)},
		{"7//2", IntValue(3)},
		{"7%2", IntValue(1)},
		{"-(3+4)", IntValue(-7)},
		{"1+2", IntValue(3)},
		{"10-4", IntValue(6)},
		{"6*7", IntValue(42)},
		{"1/2", FloatValue(0.5)},
		{"4/2", FloatValue(2)},
		{"2**3**2", IntValue(512)},
		{"-2**2", IntValue(4)},
		{"2**-1", FloatValue(0.5)},
		{"(2+3)*5", IntValue(25)},
		{"2.5*2", FloatValue(5)},
		{"1e3+1", FloatValue(1001)},
		{"--5", IntValue(5)},
		{"  2 + 2  ", IntValue(4)},
		// Floored semantics for // and %: results take the divisor's sign.
		{"-7//2", IntValue(-4)},
		{"-7%2", IntValue(1)},
		{"7%-2", IntValue(-1)},
		{"7.5//2", FloatValue(3)},
		{"7.5%2", FloatValue(1.5)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Evaluate(tt.input)
			if err != nil {
				t.Fatalf("Evaluate(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestEvaluate_Rejects(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"1/0",
		"1//0",
		"1%0",
		"1.0/0",
		"0**-1",
		"2**9223372036854775807",
		"9223372036854775807+1",
		"-9223372036854775807-2",
		"9223372036854775807*2",
		"1e308*10",
		"__import__('os').system('ls')",
		"print(1)",
		"1+x",
		"'a'*3",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Evaluate(input)
			if err == nil {
				t.Fatalf("Evaluate(%q) succeeded, want error", input)
			}
			var evalErr *EvalError
			if !errors.As(err, &evalErr) {
				t.Fatalf("Evaluate(%q) error = %T, want *EvalError", input, err)
			}
			if evalErr.Input != input {
				t.Errorf("EvalError.Input = %q, want %q", evalErr.Input, input)
			}
		})
	}
}

func TestEvaluate_ValueRendering(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2+3*5", "17"},
		{"1/2", "0.5"},
		{"4/2", "2"},
		{"-(3+4)", "-7"},
		{"2**0.5", "1.4142135623730951"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Evaluate(tt.input)
			if err != nil {
				t.Fatalf("Evaluate(%q) failed: %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("Evaluate(%q).String() = %q, want %q", tt.input, got.String(), tt.want)
			}
		})
	}
}

func TestEvaluate_IntOverflowIsRejected(t *testing.T) {
	_, err := Evaluate("-(-9223372036854775807-1)")
	if err == nil {
		t.Fatal("negating MinInt64 succeeded, want error")
	}
}

func TestEvaluate_FloatPromotion(t *testing.T) {
	got, err := Evaluate("3/2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsFloat() {
		t.Errorf("3/2 should promote to float, got %s", got)
	}
	if math.Abs(got.Float()-1.5) > 1e-15 {
		t.Errorf("3/2 = %v, want 1.5", got.Float())
	}

	got, err = Evaluate("3+2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IsFloat() {
		t.Errorf("3+2 should stay integral, got %s", got)
	}
}

func TestEvaluate_ConcurrentCalls(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got, err := Evaluate("2+3*5")
				if err != nil || got != IntValue(17) {
					t.Errorf("Evaluate = %v, %v", got, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
