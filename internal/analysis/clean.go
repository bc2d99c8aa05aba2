package analysis

import (
	"regexp"
	"strings"
)

var (
	// "Estimados lectores," / "Hola a todos:" at the start of a line.
	salutationRe = regexp.MustCompile(`(?i)^(estimad[oa]s?|querid[oa]s?|hola|buen[oa]s (días|tardes|noches))\b[^,:.\n]*[,:.!]?\s*`)
	// "Claro," / "Por supuesto." openers.
	fillerRe = regexp.MustCompile(`(?i)^(claro|por supuesto|desde luego|con gusto|entendido)\s*[,.!:]\s*`)
	// "Aquí tienes el análisis solicitado:" style lead-ins.
	leadInRe = regexp.MustCompile(`(?i)^(aquí|aqui|a continuación|a continuacion)\s+(tienes|tiene|está|esta|se presenta|presento|te presento|le presento)\b[^:\n]*:\s*`)
	// Sign-offs; everything from here on is a signature.
	signOffRe  = regexp.MustCompile(`(?i)^(atentamente|saludos|un saludo|cordialmente|quedo atent[oa]|espero que (esto|este análisis|esta información) (te|le|les) (sea|resulte))`)
	blankRunRe = regexp.MustCompile(`\n{3,}`)
)

// Clean strips greeting and sign-off boilerplate and markdown bold markers
// from model output. Text between them is kept as is.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "**", "")

	var out []string
	leading := true
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if signOffRe.MatchString(trimmed) {
			break
		}
		if leading {
			if trimmed == "" {
				continue
			}
			for {
				stripped := salutationRe.ReplaceAllString(trimmed, "")
				stripped = fillerRe.ReplaceAllString(stripped, "")
				stripped = leadInRe.ReplaceAllString(stripped, "")
				stripped = strings.TrimSpace(stripped)
				if stripped == trimmed {
					break
				}
				trimmed = stripped
			}
			if trimmed == "" {
				continue
			}
			leading = false
			out = append(out, trimmed)
			continue
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}

	result := strings.Join(out, "\n")
	result = blankRunRe.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}
