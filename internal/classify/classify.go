package classify

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// General is the bucket for headlines no category claims.
const General = "General"

// Category is an editorial bucket: a search topic plus the keywords that
// identify its headlines.
type Category struct {
	Key      string   `yaml:"key" json:"key"`
	Label    string   `yaml:"label" json:"label"`
	Topic    string   `yaml:"topic" json:"topic"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// DefaultCategories returns the built-in table in matching order.
func DefaultCategories() []Category {
	return []Category{
		{
			Key:   "gobierno",
			Label: "Gobierno",
			Topic: "Venezuela gobierno",
			Keywords: []string{
				"gobierno", "maduro", "asamblea nacional", "cne", "elecciones", "oposición",
				"ministro", "canciller", "tsj", "sanciones", "diálogo", "negociación", "devoe",
			},
		},
		{
			Key:   "energia",
			Label: "Energía",
			Topic: "Venezuela petróleo gas",
			Keywords: []string{
				"pdvsa", "petróleo", "petrolera", "crudo", "gas", "barriles", "chevron",
				"repsol", "shell", "opep", "refinería", "licencia", "exportación de gas",
			},
		},
		{
			Key:   "economia",
			Label: "Economía",
			Topic: "Venezuela economía",
			Keywords: []string{
				"economía", "inflación", "bcv", "dólar", "bolívar", "pib", "tipo de cambio",
				"importaciones", "inversión", "fmi", "deuda", "bonos", "sector automotriz",
			},
		},
		{
			Key:   "ddhh",
			Label: "Derechos Humanos",
			Topic: "Venezuela derechos humanos",
			Keywords: []string{
				"ley de amnistía", "amnistía", "foro penal", "presos políticos", "excarcelación",
				"derechos humanos", "detenidos", "onu", "cidh", "liberación",
			},
		},
	}
}

type categoriesFile struct {
	Categories []Category `yaml:"categories"`
}

// LoadCategories reads a category table from YAML:
//
//	categories:
//	  - key: energia
//	    label: Energía
//	    topic: Venezuela petróleo
//	    keywords: [pdvsa, crudo]
func LoadCategories(path string) ([]Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f categoriesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("%s: no categories defined", path)
	}
	for i, c := range f.Categories {
		if c.Key == "" || c.Topic == "" {
			return nil, fmt.Errorf("%s: category %d needs key and topic", path, i+1)
		}
		if c.Label == "" {
			f.Categories[i].Label = c.Key
		}
	}
	return f.Categories, nil
}

// Classifier maps headline text to a category label. First match in table
// order wins.
type Classifier struct {
	categories []Category
}

func New(categories []Category) *Classifier {
	return &Classifier{categories: categories}
}

func (c *Classifier) Categories() []Category {
	return c.categories
}

// Classify returns the label of the first category whose keywords appear in
// title + body, or General.
func (c *Classifier) Classify(title, body string) string {
	text := strings.ToLower(title + " " + body)
	for _, cat := range c.categories {
		if containsAny(text, cat.Keywords) {
			return cat.Label
		}
	}
	return General
}

// Find returns the category with the given key or label (case-insensitive).
func (c *Classifier) Find(name string) (Category, bool) {
	name = strings.TrimSpace(name)
	for _, cat := range c.categories {
		if strings.EqualFold(cat.Key, name) || strings.EqualFold(cat.Label, name) {
			return cat, true
		}
	}
	return Category{}, false
}

var (
	wordReMu sync.Mutex
	wordRes  = map[string]*regexp.Regexp{}
)

// wordRe caches the boundary regexp for a short keyword.
func wordRe(k string) *regexp.Regexp {
	wordReMu.Lock()
	defer wordReMu.Unlock()
	re, ok := wordRes[k]
	if !ok {
		re = regexp.MustCompile(`(^|[^\p{L}\p{N}])` + regexp.QuoteMeta(k) + `($|[^\p{L}\p{N}])`)
		wordRes[k] = re
	}
	return re
}

// containsAny matches phrases and long words as substrings and short tokens
// (3 runes or fewer) as whole words, so "onu" does not hit "bonus" and "gas"
// does not hit "gastos".
func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}

		// Phrases -> substring match
		if strings.Contains(k, " ") {
			if strings.Contains(text, k) {
				return true
			}
			continue
		}

		// Short tokens -> whole word match. \b is ASCII-only in RE2, so
		// boundaries are spelled out with Unicode classes.
		if len([]rune(k)) <= 3 {
			if wordRe(k).MatchString(text) {
				return true
			}
			continue
		}

		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
