package formvalidator

import (
	"regexp"
	"strings"
)

type labeledField struct {
	name    string
	pattern *regexp.Regexp
}

// Label sets per spec §4.H pass 1. Patterns are line-anchored, case
// insensitive, of the form LABEL: VALUE.
var labeledFields = []labeledField{
	{"biodata", regexp.MustCompile(`(?im)^\s*(?:nama|biodata|domisili)[^:]*:\s*(.+)$`)},
	{"source_info", regexp.MustCompile(`(?im)^\s*(?:sumber|source|dari|info)[^:]*:\s*(.+)$`)},
	{"business_type", regexp.MustCompile(`(?im)^\s*(?:jenis bisnis|tipe bisnis|bisnis)[^:]*:\s*(.+)$`)},
	{"budget", regexp.MustCompile(`(?im)^\s*(?:budget|anggaran|modal|dana)[^:]*:\s*(.+)$`)},
	{"start_plan", regexp.MustCompile(`(?im)^\s*(?:kapan|mulai|start|timeline|rencana)[^:]*:\s*(.+)$`)},
}

var sourceKeywords = []string{
	"instagram", "facebook", "google", "tiktok", "youtube", "referral", "teman", "iklan", "ads", "website", "event",
}

var businessKeywords = []string{
	"fnb", "f&b", "retail", "service", "jasa", "makanan", "minuman", "food", "beverage", "fashion", "kuliner",
}

var startPlanKeywords = []string{
	"bulan", "month", "minggu", "week", "tahun", "year", "segera", "asap", "immediately", "q1", "q2", "q3", "q4",
}

var budgetPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)rp\.?\s*[\d.,]+\s*(?:juta|jt|million|m)\b`),
	regexp.MustCompile(`(?i)rp\.?\s*[\d.,]+\s*(?:milyar|miliar|billion|b)\b`),
	regexp.MustCompile(`(?i)rp\.?\s*[\d.,]+`),
}

var sentenceSplit = regexp.MustCompile(`[.!?\n]`)

func sentenceContaining(text string, idx int) string {
	start := idx
	for start > 0 && !sentenceSplit.MatchString(string(text[start-1])) {
		start--
	}
	end := idx
	for end < len(text) && !sentenceSplit.MatchString(string(text[end])) {
		end++
	}
	return strings.TrimSpace(text[start:end])
}

func firstKeywordSentence(text string, keywords []string) string {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if idx := strings.Index(lower, kw); idx >= 0 {
			return sentenceContaining(text, idx)
		}
	}
	return ""
}

// Parse implements spec §4.H parse: a line-anchored label pass, then a
// keyword fallback for any field still empty.
func Parse(text string) Fragment {
	var f Fragment
	values := map[string]string{}

	for _, lf := range labeledFields {
		if m := lf.pattern.FindStringSubmatch(text); m != nil {
			v := strings.TrimSpace(m[1])
			if v != "" {
				values[lf.name] = v
			}
		}
	}

	if _, ok := values["source_info"]; !ok {
		if s := firstKeywordSentence(text, sourceKeywords); s != "" {
			values["source_info"] = s
		}
	}
	if _, ok := values["business_type"]; !ok {
		if s := firstKeywordSentence(text, businessKeywords); s != "" {
			values["business_type"] = s
		}
	}
	if _, ok := values["budget"]; !ok {
		for _, pat := range budgetPatterns {
			if m := pat.FindString(text); m != "" {
				values["budget"] = strings.TrimSpace(m)
				break
			}
		}
	}
	if _, ok := values["start_plan"]; !ok {
		if s := firstKeywordSentence(text, startPlanKeywords); s != "" {
			values["start_plan"] = s
		}
	}

	f.Biodata = values["biodata"]
	f.SourceInfo = values["source_info"]
	f.BusinessType = values["business_type"]
	f.Budget = values["budget"]
	f.StartPlan = values["start_plan"]
	return f
}

// IsFormSubmission implements spec §4.H is_form_submission.
func IsFormSubmission(text string) bool {
	for _, lf := range labeledFields {
		if lf.pattern.MatchString(text) {
			return true
		}
	}
	lower := strings.ToLower(text)
	hits := 0
	all := append(append(append([]string{}, sourceKeywords...), businessKeywords...), startPlanKeywords...)
	// The field label words count as form keywords too (the same set
	// parser.DetectIntent uses).
	all = append(all, "biodata", "nama", "domisili", "sumber", "source", "jenis bisnis", "tipe bisnis",
		"bisnis", "budget", "anggaran", "modal", "dana", "kapan", "mulai", "start", "timeline", "rencana")
	for _, kw := range all {
		if strings.Contains(lower, kw) {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	return false
}
