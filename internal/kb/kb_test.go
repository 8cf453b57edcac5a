package kb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCase(disease string, keywords []string, minDays, maxDays int) CaseDefinition {
	return CaseDefinition{
		Disease:             disease,
		Keywords:            keywords,
		MinDays:             minDays,
		MaxDays:             maxDays,
		Medicine:            "Primary",
		AllergyTriggers:     []string{"paracetamol"},
		AlternativeMedicine: "Alternative",
		Dosage:              "Take 1 tablet.",
		TreatmentDays:       3,
	}
}

func TestDefault(t *testing.T) {
	kb, err := Default()
	require.NoError(t, err)
	require.GreaterOrEqual(t, kb.Len(), 2)

	entries := kb.Entries()
	assert.Equal(t, "viral fever", entries[0].Disease)
	assert.Equal(t, "fever with cold and cough", entries[1].Disease)
}

func TestMatch(t *testing.T) {
	kb, err := Default()
	require.NoError(t, err)

	tests := []struct {
		name     string
		symptoms string
		days     int
		want     string
		found    bool
	}{
		{"viral fever", "fever, weakness", 3, "viral fever", true},
		{"lower bound", "body pain", 2, "viral fever", true},
		{"fever outside first range falls through", "fever and cold and cough", 6, "fever with cold and cough", true},
		{"gap between ranges", "fever", 4, "", false},
		{"no keyword", "rash and dizziness", 4, "", false},
		{"keyword as substring", "feverish since monday", 3, "viral fever", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := kb.Match(tt.symptoms, tt.days)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got.Disease)
		})
	}
}

func TestMatch_FirstEntryWins(t *testing.T) {
	// The second entry shares more keywords with the text but is listed later.
	kb, err := New(
		testCase("generic", []string{"cough"}, 1, 10),
		testCase("specific", []string{"cough", "cold", "sneezing"}, 1, 10),
	)
	require.NoError(t, err)

	got, ok := kb.Match("cough, cold and sneezing", 2)
	require.True(t, ok)
	assert.Equal(t, "generic", got.Disease)
}

func TestEntries_ReturnsCopies(t *testing.T) {
	kb, err := Default()
	require.NoError(t, err)

	entries := kb.Entries()
	entries[0].Disease = "tampered"
	entries[0].Keywords[0] = "tampered"

	fresh := kb.Entries()
	assert.Equal(t, "viral fever", fresh[0].Disease)
	assert.Equal(t, "fever", fresh[0].Keywords[0])

	matched, ok := kb.Match("fever", 2)
	require.True(t, ok)
	matched.AllergyTriggers[0] = "tampered"
	again, _ := kb.Match("fever", 2)
	assert.Equal(t, "paracetamol", again.AllergyTriggers[0])
}

func TestNew_Validation(t *testing.T) {
	badRange := testCase("bad range", []string{"x"}, 5, 2)
	noKeywords := testCase("no keywords", nil, 1, 2)
	noTriggers := testCase("no triggers", []string{"x"}, 1, 2)
	noTriggers.AllergyTriggers = nil

	for _, c := range []CaseDefinition{badRange, noKeywords, noTriggers} {
		_, err := New(c)
		assert.ErrorIs(t, err, ErrInvalidCase, c.Disease)
	}

	_, err := New()
	assert.ErrorIs(t, err, ErrInvalidCase)
}

func TestNew_LowercasesTerms(t *testing.T) {
	c := testCase("mixed", []string{"  Fever "}, 1, 2)
	c.AllergyTriggers = []string{"Paracetamol"}
	kb, err := New(c)
	require.NoError(t, err)

	entry := kb.Entries()[0]
	assert.Equal(t, []string{"fever"}, entry.Keywords)
	assert.Equal(t, []string{"paracetamol"}, entry.AllergyTriggers)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.yaml")
	doc := `cases:
  - disease: sprain
    keywords: [ankle, twist]
    min_days: 0
    max_days: 4
    medicine: Volini gel
    allergy_conflicts: [diclofenac]
    alternative_medicine: Cold compress
    dosage: Apply twice a day.
    med_days: 4
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	kb, err := Load(path)
	require.NoError(t, err)
	got, ok := kb.Match("twisted my ankle", 1)
	require.True(t, ok)
	assert.Equal(t, "sprain", got.Disease)
	assert.Equal(t, 4, got.TreatmentDays)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestHasAllergyConflict(t *testing.T) {
	kb, err := Default()
	require.NoError(t, err)
	viral := kb.Entries()[0]

	tests := []struct {
		allergy string
		want    bool
	}{
		{"I am allergic to Paracetamol", true},
		{"allergic to paracetamol and ibuprofen", true},
		{"ACETAMINOPHEN", true},
		{"none", false},
		{"", false},
		{"penicillin", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HasAllergyConflict(tt.allergy, viral), tt.allergy)
	}

	assert.False(t, HasAllergyConflict("paracetamol", CaseDefinition{}))
}
