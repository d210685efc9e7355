package catalog

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
)

const ruleCostLimit = 10000

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("has_age", cel.BoolType),
		cel.Variable("age", cel.IntType),
		cel.Variable("diagnosis_code", cel.StringType),
		cel.Variable("support_level", cel.StringType),
		cel.Variable("school_type", cel.StringType),
	)
}

func compileRule(env *cel.Env, expr string) (cel.Program, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile eligibility: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("eligibility must evaluate to bool, got %s", ast.OutputType())
	}
	prog, err := env.Program(ast, cel.CostLimit(ruleCostLimit))
	if err != nil {
		return nil, fmt.Errorf("program eligibility: %w", err)
	}
	return prog, nil
}

func ruleInput(facts domain.ReportFacts) map[string]any {
	age, known := facts.KnownAge()
	school := string(facts.Normalized().SchoolType)
	return map[string]any{
		"has_age":        known,
		"age":            int64(age),
		"diagnosis_code": facts.DiagnosisCode,
		"support_level":  facts.SupportLevel,
		"school_type":    school,
	}
}

// evalRule treats evaluation errors and non-boolean results as eligible.
func evalRule(prog cel.Program, facts domain.ReportFacts) bool {
	out, _, err := prog.Eval(ruleInput(facts))
	if err != nil {
		return true
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return true
	}
	return matched
}
