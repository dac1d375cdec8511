// Package progress derives the completion state of the simulator wizard.
package progress

import (
	"github.com/iwvelando/credit-simulator/pkg/constants"
	"github.com/iwvelando/credit-simulator/pkg/mathutil"
)

// Step identifies a wizard stage. The empty Step means nothing is pending.
type Step string

// Wizard stages that can be pending.
const (
	StepNone      Step = ""
	StepFinancing Step = constants.StepFinancing
	StepResults   Step = constants.StepResults
)

// Item is a selected purchase in the configuration stage.
type Item struct {
	Amount float64 `json:"amount"`
}

// CreditLine is a financing option in the financing stage. Rate is a percent.
type CreditLine struct {
	Rate       float64 `json:"rate"`
	TermMonths int     `json:"termMonths"`
}

// Input is the current wizard input.
type Input struct {
	Items       []Item       `json:"items"`
	CreditLines []CreditLine `json:"creditLines"`
	Income      float64      `json:"income"`
}

// State is the derived wizard progress.
type State struct {
	ConfigurationComplete bool `json:"configurationComplete"`
	FinancingComplete     bool `json:"financingComplete"`
	ResultsReady          bool `json:"resultsReady"`
	NextStep              Step `json:"nextStep,omitempty"`
	Progress              int  `json:"progress"`
}

// Derive computes the wizard state from input.
func Derive(input Input) State {
	var state State

	state.ConfigurationComplete = len(input.Items) > 0
	for _, item := range input.Items {
		if !mathutil.IsPositive(item.Amount) {
			state.ConfigurationComplete = false
			break
		}
	}

	state.FinancingComplete = len(input.CreditLines) > 0
	for _, line := range input.CreditLines {
		if !mathutil.IsPositive(line.Rate) || line.TermMonths <= 0 {
			state.FinancingComplete = false
			break
		}
	}

	state.ResultsReady = state.FinancingComplete && mathutil.IsPositive(input.Income)

	switch {
	case state.ConfigurationComplete && !state.FinancingComplete:
		state.NextStep = StepFinancing
	case state.FinancingComplete && !state.ResultsReady:
		state.NextStep = StepResults
	}

	if state.ConfigurationComplete {
		state.Progress += constants.ConfigurationWeight
	}
	if state.FinancingComplete {
		state.Progress += constants.FinancingWeight
	}
	if state.ResultsReady {
		state.Progress += constants.ResultsWeight
	}
	return state
}
