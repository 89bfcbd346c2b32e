package core

import (
	"context"
	"fmt"
	"math"
	"strings"

	"notations/pkg/domain"
)

// NewSheetHygieneRule returns the default in-transaction rule enforcing sheet
// content constraints: no empty or duplicate tags, finite non-negative margins.
func NewSheetHygieneRule() domain.Rule {
	return sheetHygieneRule{}
}

type sheetHygieneRule struct{}

func (sheetHygieneRule) Name() string { return "sheet_hygiene" }

func (sheetHygieneRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	block := func(sheetID, format string, args ...any) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "sheet_hygiene",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf(format, args...),
			Kind:     domain.KindSheet,
			NodeID:   sheetID,
		})
	}

	for _, sheet := range view.ListSheets() {
		keys := make(map[string]struct{}, len(sheet.Tags))
		for _, tag := range sheet.Tags {
			if strings.TrimSpace(tag) == "" {
				block(sheet.ID, "sheet %s carries an empty tag", sheet.ID)
				continue
			}
			key := domain.TagKey(tag)
			if _, dup := keys[key]; dup {
				block(sheet.ID, "sheet %s carries duplicate tag %q", sheet.ID, tag)
				continue
			}
			keys[key] = struct{}{}
		}

		for _, inset := range []struct {
			name  string
			value float64
		}{
			{"top", sheet.Margins.Top},
			{"right", sheet.Margins.Right},
			{"bottom", sheet.Margins.Bottom},
			{"left", sheet.Margins.Left},
		} {
			if math.IsNaN(inset.value) || math.IsInf(inset.value, 0) || inset.value < 0 {
				block(sheet.ID, "sheet %s has invalid %s margin %v", sheet.ID, inset.name, inset.value)
			}
		}
	}

	return res, nil
}
