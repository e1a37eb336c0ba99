// Package rules provides the CEL-Go based applicability predicates of rate rules.
package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/tables"
)

// Engine compiles and evaluates rate rule predicates.
// Programs are cached by expression and shared across goroutines.
type Engine struct {
	mu       sync.RWMutex
	env      *cel.Env
	programs map[string]cel.Program
}

// NewEngine creates a new predicate engine.
func NewEngine() (*Engine, error) {
	// Create CEL environment with shipment variables
	env, err := cel.NewEnv(
		cel.Variable("shipment", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("party", cel.StringType),
		cel.Variable("revenue", cel.DoubleType),
		cel.Variable("declared_value", cel.DoubleType),
		cel.Variable("mode", cel.StringType),
		cel.Variable("international", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Compile validates an expression and caches its program.
func (e *Engine) Compile(expr string) error {
	_, err := e.program(expr)
	return err
}

// CompileTables compiles every predicate of a commission table up front.
func (e *Engine) CompileTables(c *tables.Commission) error {
	for entity, byCategory := range c.Rates {
		for category, rule := range byCategory {
			if rule.When == "" {
				continue
			}
			if err := e.Compile(rule.When); err != nil {
				return fmt.Errorf("rate %s/%s: %w", entity, category, err)
			}
		}
	}
	return nil
}

// Applies reports whether a rule applies to a shipment for a party.
// Rules without a predicate always apply.
func (e *Engine) Applies(s *domain.Shipment, party domain.CommissionType, rule tables.RateRule) (bool, error) {
	if rule.When == "" {
		return true, nil
	}

	prg, err := e.program(rule.When)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(Activation(s, party))
	if err != nil {
		return false, fmt.Errorf("evaluation error: %w", err)
	}

	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("predicate %q returned %v, want bool", rule.When, out.Type())
	}
	return bool(b), nil
}

// Compiled returns the number of cached programs.
func (e *Engine) Compiled() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.programs)
}

// Activation builds the CEL variables for a shipment.
func Activation(s *domain.Shipment, party domain.CommissionType) map[string]any {
	dangerous, _ := s.HasDangerousItems()
	return map[string]any{
		"shipment": map[string]any{
			"id":                    s.ID,
			"tracking_number":       s.TrackingNumber,
			"account_id":            s.AccountID,
			"status":                string(s.Status),
			"mode":                  string(s.Mode),
			"origin_country":        s.OriginCountry,
			"destination_country":   s.DestinationCountry,
			"declared_value":        domain.Value(s.DeclaredValue),
			"insurance_value":       domain.Value(s.InsuranceValue),
			"revenue":               s.Revenue(),
			"agent_id":              s.AgentID,
			"origin_branch_id":      s.OriginBranchID,
			"destination_branch_id": s.DestinationBranchID,
			"broker_id":             s.BrokerID,
			"dangerous_goods":       dangerous,
			"items":                 int64(len(s.Items)),
		},
		"party":          string(party),
		"revenue":        s.Revenue(),
		"declared_value": domain.Value(s.DeclaredValue),
		"mode":           string(s.Mode),
		"international":  s.International(),
	}
}

func (e *Engine) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if prg, ok := e.programs[expr]; ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile predicate %q: %w", expr, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("predicate %q must return bool, got %v", expr, ast.OutputType())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for predicate %q: %w", expr, err)
	}

	e.programs[expr] = prg
	return prg, nil
}
