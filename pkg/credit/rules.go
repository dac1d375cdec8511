package credit

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// costLimit bounds the work a single eligibility expression may do.
const costLimit = 100000

// RuleEngine compiles and evaluates product eligibility expressions written
// in CEL. Expressions see two variables, applicant and product, both maps
// keyed by the JSON field names of FormData and Product.
type RuleEngine struct {
	env      *cel.Env
	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewRuleEngine creates a rule engine.
func NewRuleEngine() (*RuleEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("applicant", cel.DynType),
		cel.Variable("product", cel.DynType),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &RuleEngine{env: env, programs: make(map[string]cel.Program)}, nil
}

// Compile checks an expression and caches its program.
func (r *RuleEngine) Compile(expression string) (cel.Program, error) {
	r.mu.RLock()
	prog, ok := r.programs[expression]
	r.mu.RUnlock()
	if ok {
		return prog, nil
	}

	ast, issues := r.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prog, err := r.env.Program(ast, cel.CostLimit(costLimit))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}

	r.mu.Lock()
	r.programs[expression] = prog
	r.mu.Unlock()
	return prog, nil
}

// Eligible evaluates expression for an applicant and product. Non-boolean
// results count as not eligible.
func (r *RuleEngine) Eligible(expression string, profile FormData, product Product) (bool, error) {
	prog, err := r.Compile(expression)
	if err != nil {
		return false, err
	}

	out, _, err := prog.Eval(map[string]any{
		"applicant": applicantFacts(profile),
		"product":   productFacts(product),
	})
	if err != nil {
		return false, fmt.Errorf("evaluation error: %w", err)
	}
	matched, ok := out.Value().(bool)
	return ok && matched, nil
}

func applicantFacts(profile FormData) map[string]any {
	facts := map[string]any{
		"productType":      profile.ProductType,
		"amount":           profile.Amount,
		"monthlyIncome":    profile.MonthlyIncome,
		"age":              int64(profile.Age),
		"employmentMonths": int64(profile.EmploymentMonths),
		"termMonths":       int64(profile.TermMonths),
		"appraisalValue":   profile.AppraisalValue,
	}
	if profile.ExpectedInflation != nil {
		facts["expectedInflation"] = *profile.ExpectedInflation
	}
	return facts
}

func productFacts(product Product) map[string]any {
	return map[string]any{
		"id":                 product.ID,
		"denomination":       product.Denomination,
		"family":             product.Family,
		"institutionCode":    product.InstitutionCode,
		"minIncome":          product.MinIncome,
		"maxPaymentToIncome": product.MaxPaymentToIncome,
		"maxTea":             product.MaxTEA,
		"maxCft":             product.MaxCFT,
		"maxAmount":          product.MaxAmount,
		"maxTermMonths":      int64(product.MaxTermMonths),
		"maxAge":             int64(product.MaxAge),
		"maxLtv":             product.MaxLTV,
	}
}
