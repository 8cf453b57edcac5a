package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake-chatbot/internal/kb"
	"intake-chatbot/pkg"
)

type fakeDialog struct {
	said      []string
	questions []string
	answers   []string
}

func (d *fakeDialog) Say(text string) { d.said = append(d.said, text) }

func (d *fakeDialog) Ask(ctx context.Context, question string) (string, error) {
	d.questions = append(d.questions, question)
	if len(d.answers) == 0 {
		return "", io.EOF
	}
	a := d.answers[0]
	d.answers = d.answers[1:]
	return a, nil
}

func (d *fakeDialog) last() string {
	if len(d.said) == 0 {
		return ""
	}
	return d.said[len(d.said)-1]
}

type fakeDocs struct {
	issued []pkg.Prescription
	err    error
}

func (f *fakeDocs) Generate(ctx context.Context, p pkg.Prescription) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.issued = append(f.issued, p)
	return "/tmp/Prescription_" + p.PatientName + ".pdf", nil
}

type fakeRecorder struct {
	records []pkg.CaseRecord
	err     error
}

func (f *fakeRecorder) RecordCase(ctx context.Context, rec pkg.CaseRecord) error {
	f.records = append(f.records, rec)
	return f.err
}

type harness struct {
	agent    *Agent
	dialog   *fakeDialog
	docs     *fakeDocs
	llm      *fakeLLM
	recorder *fakeRecorder
	state    *pkg.ConversationState
}

var issuedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	knowledge, err := kb.Default()
	require.NoError(t, err)

	h := &harness{
		dialog:   &fakeDialog{},
		docs:     &fakeDocs{},
		llm:      &fakeLLM{reply: "Likely benign positional vertigo.\nRationale: dizziness with rash.\nMedicine: Betahistine 8mg"},
		recorder: &fakeRecorder{},
		state:    pkg.NewConversationState(),
	}
	h.agent = NewAgent(knowledge, NewEscalator(h.llm, time.Second, nil, nil), h.dialog, h.docs,
		WithSelector(FirstPhrase),
		WithRecorder(h.recorder),
		WithClock(func() time.Time { return issuedAt }),
	)
	return h
}

// run feeds utterances and returns the action of the last one.
func (h *harness) run(utterances ...string) Action {
	action := Continue
	for _, u := range utterances {
		action = h.agent.Handle(context.Background(), h.state, u)
	}
	return action
}

func assertReset(t *testing.T, st *pkg.ConversationState) {
	t.Helper()
	assert.Equal(t, pkg.StageGreeting, st.Stage)
	assert.Empty(t, st.SymptomText)
	assert.Nil(t, st.DurationDays)
	assert.Empty(t, st.AllergyText)
}

func TestHandle_StageTransitions(t *testing.T) {
	h := newHarness(t)

	h.run("Hello doctor")
	assert.Equal(t, pkg.StageCollectingSymptoms, h.state.Stage)
	assert.Equal(t, SymptomPrompts[0], h.dialog.last())

	h.run("  Fever, Weakness ")
	assert.Equal(t, pkg.StageCollectingDuration, h.state.Stage)
	assert.Equal(t, "fever, weakness", h.state.SymptomText)
	assert.Equal(t, DurationPrompts[0], h.dialog.last())

	h.run("3 days")
	assert.Equal(t, pkg.StageCollectingAllergy, h.state.Stage)
	require.NotNil(t, h.state.DurationDays)
	assert.Equal(t, 3, *h.state.DurationDays)
	assert.Equal(t, AllergyPrompts[0], h.dialog.last())
}

func TestHandle_MatchedSafe(t *testing.T) {
	h := newHarness(t)
	h.dialog.answers = []string{"no"}

	action := h.run("hi", "fever, weakness", "3 days", "none")

	assert.Equal(t, Continue, action)
	assert.Contains(t, h.dialog.said, "These findings suggest viral fever. Dolo 650 is appropriate.")
	assert.Contains(t, h.dialog.said, DeclinedAlright)
	assert.Equal(t, AssistFurther, h.dialog.last())
	assert.Equal(t, []string{PrescriptionOffer}, h.dialog.questions)
	assert.Empty(t, h.docs.issued)
	assert.Empty(t, h.llm.requests)
	assertReset(t, h.state)

	require.Len(t, h.recorder.records, 1)
	rec := h.recorder.records[0]
	assert.Equal(t, pkg.OutcomeMatchedSafe, rec.Outcome)
	assert.Equal(t, "Dolo 650", rec.Medicine)
	assert.Nil(t, rec.PrescriptionPath)
}

func TestHandle_MatchedWithSubstitution(t *testing.T) {
	h := newHarness(t)
	h.dialog.answers = []string{"yes", "Jane Doe"}

	h.run("hello", "fever and cold and cough", "six days", "allergic to abc-compound")

	require.Len(t, h.docs.issued, 1)
	p := h.docs.issued[0]
	assert.Equal(t, "Jane Doe", p.PatientName)
	assert.Equal(t, "fever with cold and cough", p.Diagnosis)
	assert.Equal(t, "Crocin 500", p.Medicine)
	assert.Equal(t, "Take 1 tablet every 8 hours after food.", p.Dosage)
	assert.Equal(t, 5, p.TreatmentDays)
	assert.Equal(t, 6, p.DurationDays)
	assert.Equal(t, "fever and cold and cough", p.Symptoms)
	assert.Equal(t, "allergic to abc-compound", p.Allergies)
	assert.Equal(t, pkg.ProvenanceKnowledgeBase, p.Provenance)
	assert.Equal(t, issuedAt, p.IssuedAt)
	assert.NotEmpty(t, p.CaseID)

	assert.Contains(t, h.dialog.said,
		"These findings suggest fever with cold and cough. Considering the allergy, Crocin 500 is appropriate instead of ABC Tablet.")
	assert.Contains(t, h.dialog.said, fmt.Sprintf(SafePrescriptionDone, "/tmp/Prescription_Jane Doe.pdf"))
	assertReset(t, h.state)

	require.Len(t, h.recorder.records, 1)
	rec := h.recorder.records[0]
	assert.Equal(t, pkg.OutcomeMatchedWithSubstitution, rec.Outcome)
	require.NotNil(t, rec.PrescriptionPath)
	assert.Equal(t, p.CaseID, rec.ID)
}

func TestHandle_Escalated(t *testing.T) {
	h := newHarness(t)
	h.dialog.answers = []string{"sure", "   "}

	h.run("hello", "rash and dizziness", "4 days", "none")

	require.Len(t, h.llm.requests, 1)
	req := h.llm.requests[0]
	assert.True(t, req.OneShot)
	assert.Contains(t, req.Prompt, "Symptoms: rash and dizziness\n")
	assert.Contains(t, req.Prompt, "Duration: 4 days\n")
	assert.Contains(t, req.Prompt, "Allergies: none\n")

	assert.Contains(t, h.dialog.said, Analyzing)
	assert.Contains(t, h.dialog.said, h.llm.reply)

	require.Len(t, h.docs.issued, 1)
	p := h.docs.issued[0]
	assert.Equal(t, DefaultPatientName, p.PatientName)
	assert.Equal(t, "Likely benign positional vertigo.", p.Diagnosis)
	assert.Equal(t, h.llm.reply, p.Medicine)
	assert.Equal(t, DefaultDosage, p.Dosage)
	assert.Equal(t, DefaultTreatmentDays, p.TreatmentDays)
	assert.Equal(t, pkg.ProvenanceLanguageModel, p.Provenance)
	assert.Contains(t, h.dialog.said, fmt.Sprintf(AIPrescriptionDone, "/tmp/Prescription_Patient.pdf"))
	assertReset(t, h.state)
}

func TestHandle_EscalationFailureDoesNotEndSession(t *testing.T) {
	h := newHarness(t)
	h.llm.err = errors.New("quota exceeded")

	action := h.run("hello", "rash and dizziness", "4 days", "none")

	assert.Equal(t, Continue, action)
	assert.Contains(t, h.dialog.said, AnalysisFailed)
	assert.Equal(t, AssistFurther, h.dialog.last())
	assert.Empty(t, h.dialog.questions)
	assert.Empty(t, h.recorder.records)
	assertReset(t, h.state)

	// the next case starts normally
	h.run("hello again")
	assert.Equal(t, pkg.StageCollectingSymptoms, h.state.Stage)
}

func TestHandle_CancelledDuringEscalation(t *testing.T) {
	h := newHarness(t)
	h.run("hello", "rash and dizziness", "4 days")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	action := h.agent.Handle(ctx, h.state, "none")

	assert.Equal(t, Interrupted, action)
	assert.Equal(t, Analyzing, h.dialog.last())
	assert.NotContains(t, h.dialog.said, AnalysisFailed)
	assert.NotContains(t, h.dialog.said, AssistFurther)
	assert.Empty(t, h.dialog.questions)
	assert.Empty(t, h.recorder.records)
	assertReset(t, h.state)
}

func TestHandle_PrescriptionFailure(t *testing.T) {
	h := newHarness(t)
	h.docs.err = errors.New("disk full")
	h.dialog.answers = []string{"yes", "Sam"}

	action := h.run("hello", "fever", "2 days", "none")

	assert.Equal(t, Continue, action)
	assert.Contains(t, h.dialog.said, PrescriptionFailed)
	assert.Equal(t, AssistFurther, h.dialog.last())
	assertReset(t, h.state)
}

func TestHandle_RecorderFailureIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.recorder.err = errors.New("connection refused")
	h.dialog.answers = []string{"no"}

	action := h.run("hello", "fever", "2 days", "none")
	assert.Equal(t, Continue, action)
	assert.Equal(t, AssistFurther, h.dialog.last())
}

func TestHandle_DurationReprompt(t *testing.T) {
	h := newHarness(t)
	h.run("hello", "fever")

	h.run("soon")
	assert.Equal(t, pkg.StageCollectingDuration, h.state.Stage)
	assert.Nil(t, h.state.DurationDays)
	assert.Equal(t, DurationReprompts[0], h.dialog.last())

	h.run("since yesterday")
	assert.Equal(t, pkg.StageCollectingAllergy, h.state.Stage)
	require.NotNil(t, h.state.DurationDays)
	assert.Equal(t, 1, *h.state.DurationDays)
}

func TestHandle_EmptyUtterance(t *testing.T) {
	tests := []struct {
		stage pkg.Stage
		want  string
	}{
		{pkg.StageGreeting, EmptySymptoms},
		{pkg.StageCollectingSymptoms, EmptySymptoms},
		{pkg.StageCollectingDuration, EmptyDuration},
		{pkg.StageCollectingAllergy, EmptyAllergy},
	}
	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			h := newHarness(t)
			h.state.Stage = tt.stage
			assert.Equal(t, Continue, h.run("   "))
			assert.Equal(t, tt.want, h.dialog.last())
			assert.Equal(t, tt.stage, h.state.Stage)
		})
	}
}

func TestHandle_ExitFromAnyStage(t *testing.T) {
	for _, stage := range []pkg.Stage{pkg.StageGreeting, pkg.StageCollectingDuration, pkg.StageCollectingAllergy} {
		h := newHarness(t)
		h.state.Stage = stage
		assert.Equal(t, End, h.run("Quit"), stage)
		assert.Equal(t, FarewellMessage, h.dialog.last())
	}
}

func TestHandle_UnknownStage(t *testing.T) {
	h := newHarness(t)
	h.state.Stage = pkg.Stage("bogus")

	assert.Equal(t, Continue, h.run("fever"))
	assert.Equal(t, NotUnderstood, h.dialog.last())
	assert.Equal(t, pkg.Stage("bogus"), h.state.Stage)
}

func TestHandle_InterruptedDuringOffer(t *testing.T) {
	h := newHarness(t)

	action := h.run("hello", "fever", "2 days", "none")

	assert.Equal(t, Interrupted, action)
	assert.Empty(t, h.docs.issued)
	assertReset(t, h.state)
}

func TestHandle_ConsecutiveCases(t *testing.T) {
	h := newHarness(t)
	h.dialog.answers = []string{"no", "no"}

	h.run("hello", "fever, weakness", "3 days", "none")
	h.run("one more thing", "headache", "two days", "caffeine")

	require.Len(t, h.recorder.records, 2)
	assert.Equal(t, "viral fever", h.recorder.records[0].Diagnosis)
	assert.Equal(t, "tension headache", h.recorder.records[1].Diagnosis)
	assert.Equal(t, pkg.OutcomeMatchedWithSubstitution, h.recorder.records[1].Outcome)
	assert.NotEqual(t, h.recorder.records[0].ID, h.recorder.records[1].ID)
	assertReset(t, h.state)
}

func TestResolve(t *testing.T) {
	h := newHarness(t)
	days := 3
	st := &pkg.ConversationState{
		Stage:        pkg.StageCollectingAllergy,
		SymptomText:  "high temperature and weakness",
		DurationDays: &days,
		AllergyText:  "i am allergic to paracetamol",
	}

	res, err := h.agent.Resolve(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, pkg.OutcomeMatchedWithSubstitution, res.Outcome)
	assert.Equal(t, "viral fever", res.DiagnosisLabel)
	assert.Equal(t, "Ibuprofen 200mg", res.ChosenMedicine)
	assert.Equal(t, 3, res.TreatmentDays)
	assert.Empty(t, h.llm.requests)
	assert.NotContains(t, h.dialog.said, Analyzing)
}

func TestResolve_Escalates(t *testing.T) {
	h := newHarness(t)
	days := 4
	st := &pkg.ConversationState{
		Stage:        pkg.StageCollectingAllergy,
		SymptomText:  "rash and dizziness",
		DurationDays: &days,
		AllergyText:  "none",
	}

	res, err := h.agent.Resolve(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, pkg.OutcomeEscalated, res.Outcome)
	assert.NotEmpty(t, res.CaseID)
	assert.Equal(t, []string{Analyzing}, h.dialog.said)
	require.Len(t, h.llm.requests, 1)
}
