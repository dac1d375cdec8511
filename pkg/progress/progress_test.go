package progress

import "testing"

func TestDerive(t *testing.T) {
	tests := []struct {
		name     string
		input    Input
		expected State
	}{
		{
			name:     "Empty wizard",
			input:    Input{},
			expected: State{NextStep: StepNone, Progress: 0},
		},
		{
			name:  "Configuration only",
			input: Input{Items: []Item{{Amount: 1000}}},
			expected: State{
				ConfigurationComplete: true,
				NextStep:              StepFinancing,
				Progress:              33,
			},
		},
		{
			name: "Everything complete",
			input: Input{
				Items:       []Item{{Amount: 1000}, {Amount: 250}},
				CreditLines: []CreditLine{{Rate: 45, TermMonths: 12}},
				Income:      500000,
			},
			expected: State{
				ConfigurationComplete: true,
				FinancingComplete:     true,
				ResultsReady:          true,
				NextStep:              StepNone,
				Progress:              100,
			},
		},
		{
			name: "Financing without income",
			input: Input{
				Items:       []Item{{Amount: 1000}},
				CreditLines: []CreditLine{{Rate: 45, TermMonths: 12}},
			},
			expected: State{
				ConfigurationComplete: true,
				FinancingComplete:     true,
				NextStep:              StepResults,
				Progress:              66,
			},
		},
		{
			name: "Item without amount",
			input: Input{
				Items: []Item{{Amount: 1000}, {Amount: 0}},
			},
			expected: State{NextStep: StepNone, Progress: 0},
		},
		{
			name: "Credit line without term",
			input: Input{
				Items:       []Item{{Amount: 1000}},
				CreditLines: []CreditLine{{Rate: 45, TermMonths: 12}, {Rate: 30}},
				Income:      1000,
			},
			expected: State{
				ConfigurationComplete: true,
				NextStep:              StepFinancing,
				Progress:              33,
			},
		},
		{
			name: "Financing without configuration",
			input: Input{
				CreditLines: []CreditLine{{Rate: 45, TermMonths: 12}},
				Income:      1000,
			},
			expected: State{
				FinancingComplete: true,
				ResultsReady:      true,
				NextStep:          StepNone,
				Progress:          67,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Derive(tt.input); got != tt.expected {
				t.Errorf("Derive() = %+v, expected %+v", got, tt.expected)
			}
		})
	}
}

func TestDeriveProgressOnlyFullWhenAllComplete(t *testing.T) {
	inputs := []Input{
		{Items: []Item{{Amount: 1}}, CreditLines: []CreditLine{{Rate: 1, TermMonths: 1}}},
		{CreditLines: []CreditLine{{Rate: 1, TermMonths: 1}}, Income: 1},
		{Items: []Item{{Amount: 1}}, Income: 1},
	}
	for _, input := range inputs {
		if got := Derive(input).Progress; got == 100 {
			t.Errorf("Derive(%+v).Progress = 100 with an incomplete stage", input)
		}
	}
}
