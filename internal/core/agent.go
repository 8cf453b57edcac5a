package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"intake-chatbot/internal/kb"
	"intake-chatbot/internal/metrics"
	"intake-chatbot/pkg"
)

// Dialog is the line-based channel to the user.  Ask blocks until the user
// answers; it fails when input ends or the session is interrupted.
type Dialog interface {
	Say(text string)
	Ask(ctx context.Context, question string) (string, error)
}

// PrescriptionWriter persists a prescription and returns its location.
type PrescriptionWriter interface {
	Generate(ctx context.Context, p pkg.Prescription) (string, error)
}

// CaseRecorder stores the outcome of a resolved case.
type CaseRecorder interface {
	RecordCase(ctx context.Context, rec pkg.CaseRecord) error
}

// Action tells the session loop what to do after a turn.
type Action int

const (
	Continue Action = iota
	// End means the user asked to leave; the farewell is already said.
	End
	// Interrupted means input stopped in the middle of a turn.
	Interrupted
)

// Agent drives the intake dialogue.  It holds no per-case data: the caller
// owns the ConversationState and passes it into every turn.
type Agent struct {
	knowledge *kb.KnowledgeBase
	escalator *Escalator
	dialog    Dialog
	docs      PrescriptionWriter
	recorder  CaseRecorder

	pick    Selector
	now     func() time.Time
	newID   func() string
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures an Agent.
type Option func(*Agent)

// WithSelector replaces the random phrase selector.
func WithSelector(s Selector) Option { return func(a *Agent) { a.pick = s } }

// WithRecorder stores every resolved case.
func WithRecorder(r CaseRecorder) Option { return func(a *Agent) { a.recorder = r } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(a *Agent) { a.logger = l } }

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option { return func(a *Agent) { a.metrics = m } }

// WithClock overrides the issue date printed on prescriptions.
func WithClock(now func() time.Time) Option { return func(a *Agent) { a.now = now } }

// NewAgent wires the dialogue to its collaborators.
func NewAgent(knowledge *kb.KnowledgeBase, escalator *Escalator, dialog Dialog, docs PrescriptionWriter, opts ...Option) *Agent {
	a := &Agent{
		knowledge: knowledge,
		escalator: escalator,
		dialog:    dialog,
		docs:      docs,
		pick:      RandomPhrase,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Greet opens the session.
func (a *Agent) Greet() {
	a.dialog.Say(Banner)
	a.dialog.Say(FirstMessage)
}

// Handle processes one user utterance against st.
func (a *Agent) Handle(ctx context.Context, st *pkg.ConversationState, utterance string) Action {
	msg := strings.TrimSpace(utterance)
	if msg == "" {
		a.dialog.Say(emptyPrompt(st.Stage))
		return Continue
	}
	if IsExit(msg) {
		a.dialog.Say(FarewellMessage)
		return End
	}

	switch st.Stage {
	case pkg.StageGreeting:
		// The opening message only states the problem; symptoms come next.
		a.dialog.Say(a.pick(SymptomPrompts))
		st.Stage = pkg.StageCollectingSymptoms

	case pkg.StageCollectingSymptoms:
		st.SymptomText = Normalize(msg)
		a.dialog.Say(a.pick(DurationPrompts))
		st.Stage = pkg.StageCollectingDuration

	case pkg.StageCollectingDuration:
		days, ok := ExtractDuration(msg)
		if !ok {
			a.metrics.DurationReprompted()
			a.dialog.Say(a.pick(DurationReprompts))
			return Continue
		}
		st.DurationDays = &days
		a.dialog.Say(a.pick(AllergyPrompts))
		st.Stage = pkg.StageCollectingAllergy

	case pkg.StageCollectingAllergy:
		st.AllergyText = Normalize(msg)
		action := a.finishCase(ctx, st)
		st.Reset()
		if action != Continue {
			return action
		}
		a.dialog.Say(AssistFurther)

	default:
		a.dialog.Say(NotUnderstood)
	}
	return Continue
}

func emptyPrompt(stage pkg.Stage) string {
	switch stage {
	case pkg.StageCollectingDuration:
		return EmptyDuration
	case pkg.StageCollectingAllergy:
		return EmptyAllergy
	default:
		return EmptySymptoms
	}
}

// Resolve matches the collected case against the knowledge base and falls
// back to the language model on a miss, telling the user that the analysis
// is under way.
func (a *Agent) Resolve(ctx context.Context, st *pkg.ConversationState) (pkg.ResolutionResult, error) {
	entry, ok := a.knowledge.Match(st.SymptomText, derefDays(st))
	if !ok {
		return a.escalate(ctx, st)
	}
	return a.resolveMatched(st, entry), nil
}

func (a *Agent) escalate(ctx context.Context, st *pkg.ConversationState) (pkg.ResolutionResult, error) {
	a.dialog.Say(Analyzing)
	res, err := a.escalator.Escalate(ctx, st.SymptomText, derefDays(st), st.AllergyText)
	if err != nil {
		return pkg.ResolutionResult{}, err
	}
	res.CaseID = a.newID()
	return res, nil
}

func (a *Agent) resolveMatched(st *pkg.ConversationState, entry kb.CaseDefinition) pkg.ResolutionResult {
	res := pkg.ResolutionResult{
		CaseID:         a.newID(),
		Outcome:        pkg.OutcomeMatchedSafe,
		Provenance:     pkg.ProvenanceKnowledgeBase,
		DiagnosisLabel: entry.Disease,
		ChosenMedicine: entry.Medicine,
		Dosage:         entry.Dosage,
		TreatmentDays:  entry.TreatmentDays,
	}
	if kb.HasAllergyConflict(st.AllergyText, entry) {
		res.Outcome = pkg.OutcomeMatchedWithSubstitution
		res.ChosenMedicine = entry.AlternativeMedicine
		res.Summary = fmt.Sprintf(a.pick(SubstitutionLines), entry.Disease, entry.Medicine, entry.AlternativeMedicine)
	} else {
		res.Summary = fmt.Sprintf(a.pick(DiagnosisLines), entry.Disease, entry.Medicine)
	}
	return res
}

// finishCase resolves the case, reports it and offers a prescription.
func (a *Agent) finishCase(ctx context.Context, st *pkg.ConversationState) Action {
	res, err := a.Resolve(ctx, st)
	if err != nil && (ctx.Err() != nil || errors.Is(err, context.Canceled)) {
		// The session is going away; this is not a model outage.
		a.logger.Debug("case resolution interrupted", zap.Error(err))
		return Interrupted
	}
	if err != nil {
		a.metrics.EscalationFailed()
		a.logger.Error("case resolution failed",
			zap.String("symptoms", st.SymptomText),
			zap.Error(err))
		a.dialog.Say(AnalysisFailed)
		return Continue
	}

	a.metrics.CaseResolved(res.Outcome)
	a.logger.Info("case resolved",
		zap.String("case_id", res.CaseID),
		zap.String("outcome", string(res.Outcome)),
		zap.String("provenance", string(res.Provenance)),
		zap.String("diagnosis", res.DiagnosisLabel))
	a.dialog.Say(res.Summary)

	path, action := a.offerPrescription(ctx, st, res)
	a.record(ctx, st, res, path)
	return action
}

func (a *Agent) offerPrescription(ctx context.Context, st *pkg.ConversationState, res pkg.ResolutionResult) (*string, Action) {
	answer, err := a.dialog.Ask(ctx, PrescriptionOffer)
	if err != nil {
		return nil, Interrupted
	}
	if !IsConsent(answer) {
		if res.Outcome == pkg.OutcomeMatchedWithSubstitution {
			a.dialog.Say(DeclinedUnderstood)
		} else {
			a.dialog.Say(DeclinedAlright)
		}
		return nil, Continue
	}

	name, err := a.dialog.Ask(ctx, PatientNamePrompt)
	if err != nil {
		return nil, Interrupted
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultPatientName
	}

	p := pkg.Prescription{
		CaseID:        res.CaseID,
		PatientName:   name,
		Symptoms:      st.SymptomText,
		DurationDays:  derefDays(st),
		Allergies:     st.AllergyText,
		Diagnosis:     res.DiagnosisLabel,
		Medicine:      res.ChosenMedicine,
		Dosage:        res.Dosage,
		TreatmentDays: res.TreatmentDays,
		Provenance:    res.Provenance,
		IssuedAt:      a.now(),
	}
	path, err := a.docs.Generate(ctx, p)
	if err != nil {
		a.metrics.PrescriptionFailed()
		a.logger.Error("prescription generation failed",
			zap.String("case_id", res.CaseID),
			zap.Error(err))
		a.dialog.Say(PrescriptionFailed)
		return nil, Continue
	}

	a.metrics.PrescriptionIssued(res.Provenance)
	switch res.Outcome {
	case pkg.OutcomeMatchedWithSubstitution:
		a.dialog.Say(fmt.Sprintf(SafePrescriptionDone, path))
	case pkg.OutcomeEscalated:
		a.dialog.Say(fmt.Sprintf(AIPrescriptionDone, path))
	default:
		a.dialog.Say(fmt.Sprintf(PrescriptionReady, path))
	}
	return &path, Continue
}

func (a *Agent) record(ctx context.Context, st *pkg.ConversationState, res pkg.ResolutionResult, path *string) {
	if a.recorder == nil {
		return
	}
	err := a.recorder.RecordCase(ctx, pkg.CaseRecord{
		ID:               res.CaseID,
		Outcome:          res.Outcome,
		Provenance:       res.Provenance,
		Diagnosis:        res.DiagnosisLabel,
		Medicine:         res.ChosenMedicine,
		Symptoms:         st.SymptomText,
		DurationDays:     derefDays(st),
		Allergies:        st.AllergyText,
		PrescriptionPath: path,
		CreatedAt:        a.now(),
	})
	if err != nil {
		a.logger.Warn("failed to record case", zap.String("case_id", res.CaseID), zap.Error(err))
	}
}

func derefDays(st *pkg.ConversationState) int {
	if st.DurationDays == nil {
		return 0
	}
	return *st.DurationDays
}
