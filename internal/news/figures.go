package news

import (
	"regexp"
	"strings"
)

// A figure needs a currency prefix or a unit suffix; bare numbers such as
// years are ignored.
var figureRe = regexp.MustCompile(`(?i)(?:(?:US\$|\$|€|\bBs\.?)\s?\d[\d.,]*(?:\s?(?:mil millones|millones|millardos|billones|mil))?` +
	`|\d[\d.,]*\s?(?:%|por ciento|mil millones|millones|millardos|billones|barriles diarios|barriles|bpd|dólares|USD|euros|bolívares|toneladas|presos políticos))`)

// ExtractFigures returns distinct numeric mentions in order of appearance.
func ExtractFigures(text string, max int) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range figureRe.FindAllString(text, -1) {
		m = strings.TrimRight(strings.TrimSpace(m), ".,")
		key := strings.ToLower(m)
		if m == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}
