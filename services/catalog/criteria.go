package catalog

import (
	"fmt"

	"engagement-controlplane/pkg/celengine"

	"go.uber.org/zap"
)

// Facts is the read-only view of a member's profile that criteria are
// evaluated against. ActionCounts is derived from the point ledger.
type Facts struct {
	Level          int
	CurrentPoints  int64
	LifetimePoints int64
	ActionCounts   map[string]int64
}

// CriterionProgress is the evaluation result of a single criterion.
// Progress is a fraction in [0,1]; expression criteria report 0 or 1.
type CriterionProgress struct {
	Type      CriterionType `json:"type"`
	ActionID  string        `json:"action_id,omitempty"`
	Required  int64         `json:"required"`
	Current   int64         `json:"current"`
	Progress  float64       `json:"progress"`
	Completed bool          `json:"completed"`
}

// Evaluate computes the fractional progress and completion of one
// criterion against the given facts.
func (cr Criterion) Evaluate(f Facts) CriterionProgress {
	switch cr.Type {
	case CriterionActionCount:
		current := f.ActionCounts[cr.ActionID]
		return CriterionProgress{
			Type:      cr.Type,
			ActionID:  cr.ActionID,
			Required:  cr.Count,
			Current:   current,
			Progress:  fraction(current, cr.Count),
			Completed: current >= cr.Count,
		}
	case CriterionLevelAtLeast:
		return CriterionProgress{
			Type:      cr.Type,
			Required:  int64(cr.Level),
			Current:   int64(f.Level),
			Progress:  fraction(int64(f.Level), int64(cr.Level)),
			Completed: f.Level >= cr.Level,
		}
	case CriterionPointsAtLeast:
		return CriterionProgress{
			Type:      cr.Type,
			Required:  cr.Points,
			Current:   f.LifetimePoints,
			Progress:  fraction(f.LifetimePoints, cr.Points),
			Completed: f.LifetimePoints >= cr.Points,
		}
	case CriterionExpression:
		ok := evaluateExpression(cr.Expression, f)
		progress := 0.0
		if ok {
			progress = 1.0
		}
		return CriterionProgress{
			Type:      cr.Type,
			Required:  1,
			Current:   int64(progress),
			Progress:  progress,
			Completed: ok,
		}
	default:
		return CriterionProgress{Type: cr.Type}
	}
}

// Satisfied reports whether the criterion is met.
func (cr Criterion) Satisfied(f Facts) bool {
	return cr.Evaluate(f).Completed
}

// AllSatisfied is the conjunction used by achievement unlock and
// challenge completion.
func AllSatisfied(criteria []Criterion, f Facts) bool {
	for _, cr := range criteria {
		if !cr.Satisfied(f) {
			return false
		}
	}
	return true
}

func fraction(current, required int64) float64 {
	if required <= 0 {
		return 0
	}
	p := float64(current) / float64(required)
	if p > 1 {
		return 1
	}
	return p
}

func expressionAttrs(f Facts) map[string]interface{} {
	counts := make(map[string]interface{}, len(f.ActionCounts))
	for k, v := range f.ActionCounts {
		counts[k] = v
	}
	return map[string]interface{}{
		"level":           f.Level,
		"current_points":  f.CurrentPoints,
		"lifetime_points": f.LifetimePoints,
		"action_counts":   counts,
	}
}

func evaluateExpression(expr string, f Facts) bool {
	attrs := expressionAttrs(f)
	env, err := celengine.GetOrBuildEnv("criterion_facts", attrs)
	if err != nil {
		zap.L().Error("failed to build criterion CEL env", zap.Error(err))
		return false
	}

	ok, err := celengine.Evaluate(env, expr, attrs)
	if err != nil {
		zap.L().Warn("criterion expression failed, treating as unmet",
			zap.String("expression", expr), zap.Error(err))
		return false
	}
	return ok
}

// ValidateExpression checks an expression criterion at catalog load time.
func ValidateExpression(expr string) error {
	attrs := expressionAttrs(Facts{ActionCounts: map[string]int64{}})
	env, err := celengine.GetOrBuildEnv("criterion_facts", attrs)
	if err != nil {
		return fmt.Errorf("failed to build CEL env: %w", err)
	}
	return celengine.ValidateExpression(env, expr)
}
