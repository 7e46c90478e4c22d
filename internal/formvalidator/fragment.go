// Package formvalidator implements spec component H: extracting the five
// lead-qualification fields from free text, merging them against an
// existing fragment, and reporting completeness.
package formvalidator

import "github.com/startfranchiseid/chatbot-leads-startfranchise/pkg/shared/stringutil"

// Fragment mirrors leadstore.FormFragment's field subset without importing
// leadstore, which sits above this package in the dependency graph.
type Fragment struct {
	Biodata      string
	SourceInfo   string
	BusinessType string
	Budget       string
	StartPlan    string
}

// fieldOrder fixes the order missing[] and explain_missing enumerate in,
// matching spec §3's field list.
var fieldOrder = []struct {
	name string
	get  func(Fragment) string
}{
	{"biodata", func(f Fragment) string { return f.Biodata }},
	{"source_info", func(f Fragment) string { return f.SourceInfo }},
	{"business_type", func(f Fragment) string { return f.BusinessType }},
	{"budget", func(f Fragment) string { return f.Budget }},
	{"start_plan", func(f Fragment) string { return f.StartPlan }},
}

// Missing lists the fields that are still empty, in the fixed field order.
func (f Fragment) Missing() []string {
	var missing []string
	for _, fld := range fieldOrder {
		if fld.get(f) == "" {
			missing = append(missing, fld.name)
		}
	}
	return missing
}

// Valid reports whether all five fields are non-empty.
func (f Fragment) Valid() bool {
	return len(f.Missing()) == 0
}

// Result is the outcome of Validate.
type Result struct {
	Valid   bool
	Merged  Fragment
	Missing []string
}

// Validate implements spec §4.H validate: merges existing and partial with
// partial taking precedence on non-empty values, field-wise.
func Validate(partial, existing Fragment) Result {
	merged := Fragment{
		Biodata:      stringutil.MergeNonEmpty(existing.Biodata, partial.Biodata),
		SourceInfo:   stringutil.MergeNonEmpty(existing.SourceInfo, partial.SourceInfo),
		BusinessType: stringutil.MergeNonEmpty(existing.BusinessType, partial.BusinessType),
		Budget:       stringutil.MergeNonEmpty(existing.Budget, partial.Budget),
		StartPlan:    stringutil.MergeNonEmpty(existing.StartPlan, partial.StartPlan),
	}
	return Result{Valid: merged.Valid(), Merged: merged, Missing: merged.Missing()}
}

var missingLabels = map[string]string{
	"biodata":       "Nama & domisili",
	"source_info":   "Info sumber (dari mana Anda tahu kami)",
	"business_type": "Jenis bisnis",
	"budget":        "Budget / modal",
	"start_plan":    "Rencana mulai",
}

// ExplainMissing implements spec §4.H explain_missing: a user-visible
// checklist, or an empty string when nothing is missing.
func ExplainMissing(missing []string) string {
	if len(missing) == 0 {
		return ""
	}
	out := "Mohon lengkapi data berikut:"
	for _, m := range missing {
		label, ok := missingLabels[m]
		if !ok {
			label = m
		}
		out += "\n- " + label
	}
	return out
}
