package domain

// TermResolver re-resolves a terminology term reference during
// reconciliation. Implementations fail with NotFoundError when the term no
// longer resolves in the requested status.
type TermResolver interface {
	ResolveTerm(view RuleView, termUID string) error
}

// UnitResolver checks that a referenced unit definition exists.
type UnitResolver interface {
	ResolveUnit(view RuleView, unitUID string) error
}

// IntegrityChecker is an entity-specific referential check invoked for every
// selection the reconciliation plan creates or edits. The engine itself is
// generic over these checks; each selection kind's repository supplies its
// own implementations.
type IntegrityChecker interface {
	CheckSelection(view RuleView, studyUID string, sel Selection, current []Selection) error
}

// TermResolverFunc adapts a function to the TermResolver interface.
type TermResolverFunc func(view RuleView, termUID string) error

// ResolveTerm invokes the wrapped function.
func (f TermResolverFunc) ResolveTerm(view RuleView, termUID string) error {
	return f(view, termUID)
}

// UnitResolverFunc adapts a function to the UnitResolver interface.
type UnitResolverFunc func(view RuleView, unitUID string) error

// ResolveUnit invokes the wrapped function.
func (f UnitResolverFunc) ResolveUnit(view RuleView, unitUID string) error {
	return f(view, unitUID)
}

// DependentResolver supplies the instances that reference a template
// concept, for cascading lifecycle transitions.
type DependentResolver interface {
	Dependents(conceptUID string) ([]string, error)
}

// DependentResolverFunc adapts a function to the DependentResolver interface.
type DependentResolverFunc func(conceptUID string) ([]string, error)

// Dependents invokes the wrapped function.
func (f DependentResolverFunc) Dependents(conceptUID string) ([]string, error) {
	return f(conceptUID)
}
