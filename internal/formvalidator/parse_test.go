package formvalidator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_LabeledLines(t *testing.T) {
	text := "Nama, Domisili: Budi, Jakarta\nSumber info: Instagram\nJenis bisnis: F&B\nBudget: 100 juta\nRencana mulai: 3 bulan lagi"
	f := Parse(text)
	assert.Equal(t, "Budi, Jakarta", f.Biodata)
	assert.Equal(t, "Instagram", f.SourceInfo)
	assert.Equal(t, "F&B", f.BusinessType)
	assert.Equal(t, "100 juta", f.Budget)
	assert.Equal(t, "3 bulan lagi", f.StartPlan)
}

func TestParse_KeywordFallback(t *testing.T) {
	text := "Saya dapat info dari Instagram. Bisnis saya di bidang kuliner. Budget Rp 50 juta. Rencana mulai bulan depan."
	f := Parse(text)
	assert.Contains(t, f.SourceInfo, "Instagram")
	assert.Contains(t, f.BusinessType, "kuliner")
	assert.NotEmpty(t, f.Budget)
	assert.Contains(t, f.StartPlan, "bulan")
}

func TestIsFormSubmission(t *testing.T) {
	assert.True(t, IsFormSubmission("Nama: Budi\nDomisili: Jakarta"))
	assert.True(t, IsFormSubmission("Info dari instagram, budget modal 50 juta"))
	assert.False(t, IsFormSubmission("halo"))
}

func TestValidate_MergesAndReportsMissing(t *testing.T) {
	existing := Fragment{Biodata: "Budi, Jakarta"}
	partial := Fragment{SourceInfo: "Instagram"}
	result := Validate(partial, existing)
	assert.False(t, result.Valid)
	assert.Equal(t, "Budi, Jakarta", result.Merged.Biodata)
	assert.Equal(t, "Instagram", result.Merged.SourceInfo)
	assert.ElementsMatch(t, []string{"business_type", "budget", "start_plan"}, result.Missing)
}

func TestExplainMissing_Empty(t *testing.T) {
	assert.Equal(t, "", ExplainMissing(nil))
	assert.NotEmpty(t, ExplainMissing([]string{"budget"}))
}
