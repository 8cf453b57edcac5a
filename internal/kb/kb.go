// Package kb holds the static clinical knowledge base and the two lookups
// made against it: case matching and allergy-conflict detection.
package kb

import (
	"errors"
	"fmt"
	"os"
	"strings"

	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed cases.yaml
var defaultCases []byte

// ErrInvalidCase is returned when a case definition breaks one of its
// invariants.
var ErrInvalidCase = errors.New("invalid case definition")

// CaseDefinition is one immutable knowledge-base entry.
type CaseDefinition struct {
	Disease             string   `yaml:"disease" json:"disease"`
	Keywords            []string `yaml:"keywords" json:"keywords"`
	MinDays             int      `yaml:"min_days" json:"min_days"`
	MaxDays             int      `yaml:"max_days" json:"max_days"`
	Medicine            string   `yaml:"medicine" json:"medicine"`
	AllergyTriggers     []string `yaml:"allergy_conflicts" json:"allergy_conflicts"`
	AlternativeMedicine string   `yaml:"alternative_medicine" json:"alternative_medicine"`
	Dosage              string   `yaml:"dosage" json:"dosage"`
	TreatmentDays       int      `yaml:"med_days" json:"med_days"`
}

// Validate checks the invariants of a single entry.
func (c CaseDefinition) Validate() error {
	switch {
	case strings.TrimSpace(c.Disease) == "":
		return fmt.Errorf("%w: disease is required", ErrInvalidCase)
	case len(c.Keywords) == 0:
		return fmt.Errorf("%w: %s: at least one keyword is required", ErrInvalidCase, c.Disease)
	case len(c.AllergyTriggers) == 0:
		return fmt.Errorf("%w: %s: at least one allergy trigger is required", ErrInvalidCase, c.Disease)
	case c.MinDays < 0 || c.MinDays > c.MaxDays:
		return fmt.Errorf("%w: %s: day range %d..%d", ErrInvalidCase, c.Disease, c.MinDays, c.MaxDays)
	case c.Medicine == "" || c.AlternativeMedicine == "":
		return fmt.Errorf("%w: %s: medicine and alternative are required", ErrInvalidCase, c.Disease)
	case c.TreatmentDays <= 0:
		return fmt.Errorf("%w: %s: treatment days must be positive", ErrInvalidCase, c.Disease)
	}
	for _, k := range c.Keywords {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("%w: %s: empty keyword", ErrInvalidCase, c.Disease)
		}
	}
	for _, a := range c.AllergyTriggers {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("%w: %s: empty allergy trigger", ErrInvalidCase, c.Disease)
		}
	}
	return nil
}

// Covers reports whether days lies inside the inclusive duration range.
func (c CaseDefinition) Covers(days int) bool {
	return c.MinDays <= days && days <= c.MaxDays
}

// Triggered reports whether any keyword occurs in the symptom text.
func (c CaseDefinition) Triggered(symptoms string) bool {
	for _, k := range c.Keywords {
		if strings.Contains(symptoms, k) {
			return true
		}
	}
	return false
}

func (c CaseDefinition) clone() CaseDefinition {
	c.Keywords = append([]string(nil), c.Keywords...)
	c.AllergyTriggers = append([]string(nil), c.AllergyTriggers...)
	return c
}

// KnowledgeBase is an ordered, read-only list of case definitions.  Entry
// order is priority order.
type KnowledgeBase struct {
	cases []CaseDefinition
}

type document struct {
	Cases []CaseDefinition `yaml:"cases"`
}

// Default returns the knowledge base compiled into the binary.
func Default() (*KnowledgeBase, error) {
	return Parse(defaultCases)
}

// Load reads a knowledge base from a YAML file.
func Load(path string) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML knowledge base document.
func Parse(data []byte) (*KnowledgeBase, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode knowledge base: %w", err)
	}
	return New(doc.Cases...)
}

// New builds a knowledge base from cases, keeping their order.  Keywords and
// allergy triggers are lowercased so they compare against normalized text.
func New(cases ...CaseDefinition) (*KnowledgeBase, error) {
	if len(cases) == 0 {
		return nil, fmt.Errorf("%w: knowledge base is empty", ErrInvalidCase)
	}
	kb := &KnowledgeBase{cases: make([]CaseDefinition, 0, len(cases))}
	for i, c := range cases {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}
		c = c.clone()
		for j := range c.Keywords {
			c.Keywords[j] = strings.ToLower(strings.TrimSpace(c.Keywords[j]))
		}
		for j := range c.AllergyTriggers {
			c.AllergyTriggers[j] = strings.ToLower(strings.TrimSpace(c.AllergyTriggers[j]))
		}
		kb.cases = append(kb.cases, c)
	}
	return kb, nil
}

// Len returns the number of entries.
func (k *KnowledgeBase) Len() int { return len(k.cases) }

// Entries returns a copy of the entries in priority order.
func (k *KnowledgeBase) Entries() []CaseDefinition {
	out := make([]CaseDefinition, len(k.cases))
	for i, c := range k.cases {
		out[i] = c.clone()
	}
	return out
}

// Match returns the first entry, in knowledge-base order, whose keywords
// occur in the normalized symptom text and whose range contains days.  A
// later entry is never preferred over an earlier one, even when it shares
// more keywords with the text.
func (k *KnowledgeBase) Match(symptoms string, days int) (CaseDefinition, bool) {
	for _, c := range k.cases {
		if c.Triggered(symptoms) && c.Covers(days) {
			return c.clone(), true
		}
	}
	return CaseDefinition{}, false
}

// HasAllergyConflict reports whether the allergy description mentions any
// ingredient that contraindicates the primary medicine of c.
func HasAllergyConflict(allergyText string, c CaseDefinition) bool {
	text := strings.ToLower(allergyText)
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, trigger := range c.AllergyTriggers {
		if trigger != "" && strings.Contains(text, strings.ToLower(trigger)) {
			return true
		}
	}
	return false
}
