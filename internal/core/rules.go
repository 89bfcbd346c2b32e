package core

import "notations/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewTreeIntegrityRule())
	engine.Register(NewSheetHygieneRule())
	return engine
}
