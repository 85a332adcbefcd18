package models

// ValidationResult accumulates business-rule violations. Errors invalidate,
// warnings are informational.
type ValidationResult struct {
	IsValid  bool
	Errors   []string
	Warnings []string
}
