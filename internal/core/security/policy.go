// Package security evaluates per-operation authorization rules written as
// CEL expressions against the caller's claims. Rules are compiled once at
// startup; evaluation is a cheap map lookup plus program run, so it sits
// comfortably in the request path.
package security

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"melowms/internal/core/apperror"
	appctx "melowms/internal/core/context"
)

// Rule is one named authorization expression. The expression sees three
// variables: `user` (map with id, company, branch, roles, superAdmin),
// `company` and `branch` (the scope the request targets).
type Rule struct {
	Op   string
	Expr string
}

// DefaultRules returns the platform rule set. Every rule grants super
// admins unconditionally; everything else is scoped to the caller's own
// company, and writes additionally to the caller's own branch.
func DefaultRules() []Rule {
	const (
		sameCompany = `user.superAdmin || user.company == company`
		sameBranch  = `user.superAdmin || (user.company == company && user.branch == branch)`
		manager     = `user.superAdmin || (user.company == company && 'manager' in user.roles)`
	)
	return []Rule{
		{"catalogs.read", sameCompany},
		{"catalogs.write", manager},
		{"inventory.read", sameCompany},
		{"stats.read", sameCompany},
		{"transfers.read", sameCompany},
		{"transfers.create", sameBranch},
		{"transfers.accept", sameBranch},
		{"transfers.reject", sameBranch},
		{"transfers.restock", sameBranch},
		{"sales.read", sameCompany},
		{"sales.write", sameBranch},
		{"purchases.read", sameCompany},
		{"purchases.write", sameBranch},
		{"expenses.read", sameCompany},
		{"expenses.write", sameBranch},
		{"expenses.approve", manager},
		{"users.register", manager},
		{"audit.read", manager},
	}
}

// Engine holds the compiled rule programs. Unknown operations are denied.
type Engine struct {
	programs map[string]cel.Program
}

// NewEngine compiles the rule set. A rule that fails to compile or does
// not produce a bool is a startup error, not a runtime one.
func NewEngine(rules []Rule) (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("user", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("company", cel.StringType),
		cel.Variable("branch", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	programs := make(map[string]cel.Program, len(rules))
	for _, r := range rules {
		ast, issues := env.Compile(r.Expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("compile rule %q: %w", r.Op, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("rule %q does not evaluate to bool", r.Op)
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("program rule %q: %w", r.Op, err)
		}
		programs[r.Op] = prg
	}
	return &Engine{programs: programs}, nil
}

// Authorize checks whether the context's user may perform op against the
// given company/branch scope.
func (e *Engine) Authorize(ctx context.Context, op, companyID, branchID string) error {
	user := appctx.GetUser(ctx)
	if user == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	prg, ok := e.programs[op]
	if !ok {
		return apperror.NewForbidden("operation not permitted")
	}

	roles := user.Roles
	if roles == nil {
		roles = []string{}
	}
	out, _, err := prg.Eval(map[string]any{
		"user": map[string]any{
			"id":         user.UserID,
			"company":    user.CompanyID,
			"branch":     user.BranchID,
			"roles":      roles,
			"superAdmin": user.IsSuperAdmin,
		},
		"company": companyID,
		"branch":  branchID,
	})
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("evaluate rule %q: %w", op, err))
	}

	if allowed, ok := out.Value().(bool); !ok || !allowed {
		return apperror.NewForbidden("operation not permitted")
	}
	return nil
}
