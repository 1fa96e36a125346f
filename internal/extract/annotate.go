package extract

import (
	"regexp"
	"strings"
)

var (
	macroHeader    = regexp.MustCompile(`(?i)(ESTIMATED MACRONUTRIENTS|MACRONUTRIENTS|NUTRITIONAL INFORMATION)`)
	macroEnd       = regexp.MustCompile(`(?i)(NUTRITIONAL STRENGTHS|STRENGTHS|AREAS FOR IMPROVEMENT)`)
	strengthHeader = regexp.MustCompile(`(?i)(NUTRITIONAL STRENGTHS|STRENGTHS|HEALTH BENEFITS)`)
	strengthEnd    = regexp.MustCompile(`(?i)(AREAS FOR IMPROVEMENT|IMPROVEMENTS|QUICK TIPS)`)
	bulletPrefix   = regexp.MustCompile(`^\s*(-|•)\s*`)

	sectionNutrients = []struct {
		key string
		re  *regexp.Regexp
	}{
		{"calories", regexp.MustCompile(`(?i)calories\s*:.*?\d+`)},
		{"protein", regexp.MustCompile(`(?i)protein\s*:.*?\d+\s*g`)},
		{"carbs", regexp.MustCompile(`(?i)(carbs|carbohydrates)\s*:.*?\d+\s*g`)},
		{"fat", regexp.MustCompile(`(?i)fat\s*:.*?\d+\s*g`)},
		{"fiber", regexp.MustCompile(`(?i)fiber\s*:.*?\d+\s*g`)},
	}

	looseNutrients = []struct {
		key string
		re  *regexp.Regexp
	}{
		{"calories", regexp.MustCompile(`\d+\s*(calories|kcal)`)},
		{"protein", regexp.MustCompile(`(?i)\d+\s*g\s*(of\s*)?protein`)},
		{"carbs", regexp.MustCompile(`(?i)\d+\s*g\s*(of\s*)?carbs`)},
		{"fat", regexp.MustCompile(`(?i)\d+\s*g\s*(of\s*)?fat`)},
		{"fiber", regexp.MustCompile(`(?i)\d+\s*g\s*(of\s*)?fiber`)},
	}
)

// Annotate pulls macronutrient figures and health-benefit bullets out of a
// free-text nutrition analysis. It is best effort: text it cannot make sense
// of yields empty results.
func Annotate(analysis string) (map[string]string, []string) {
	return nutrients(analysis), benefits(analysis)
}

func nutrients(analysis string) map[string]string {
	info := map[string]string{}

	if section, ok := section(analysis, macroHeader, macroEnd); ok {
		for _, n := range sectionNutrients {
			if m := n.re.FindString(section); m != "" {
				info[n.key] = strings.TrimSpace(m)
			}
		}
	}
	if len(info) > 0 {
		return info
	}

	for _, n := range looseNutrients {
		if m := n.re.FindString(analysis); m != "" {
			info[n.key] = strings.TrimSpace(m)
		}
	}
	return info
}

func benefits(analysis string) []string {
	out := []string{}
	section, ok := section(analysis, strengthHeader, strengthEnd)
	if !ok {
		return out
	}
	for _, line := range strings.Split(section, "\n") {
		if !bulletPrefix.MatchString(line) {
			continue
		}
		item := strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// section returns the text from the start header up to the next end header.
func section(s string, start, end *regexp.Regexp) (string, bool) {
	loc := start.FindStringIndex(s)
	if loc == nil {
		return "", false
	}
	rest := s[loc[0]:]
	// Skip the header itself so a header that also matches end does not
	// close the section immediately.
	if e := end.FindStringIndex(rest[loc[1]-loc[0]:]); e != nil {
		rest = rest[:loc[1]-loc[0]+e[0]]
	}
	return rest, true
}
