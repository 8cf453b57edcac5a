package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"intake-chatbot/internal/llm"
	"intake-chatbot/internal/metrics"
	"intake-chatbot/pkg"
)

// Escalator asks the language model for a clinical conclusion when the
// knowledge base has no matching case.
type Escalator struct {
	LLM     llm.Client
	Timeout time.Duration

	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewEscalator constructs an Escalator.  A zero timeout leaves the call
// bounded only by the caller's context.
func NewEscalator(client llm.Client, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Escalator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Escalator{LLM: client, Timeout: timeout, logger: logger, metrics: m}
}

// EscalationPrompt builds the one-shot prompt carrying the collected fields.
func EscalationPrompt(symptoms string, days int, allergies string) string {
	return EscalationInstruction +
		fmt.Sprintf("Symptoms: %s\n", symptoms) +
		fmt.Sprintf("Duration: %d days\n", days) +
		fmt.Sprintf("Allergies: %s\n", allergies)
}

// DiagnosisLabel takes the first line of a model reply as the diagnosis.
func DiagnosisLabel(reply string) string {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return DefaultDiagnosis
	}
	first, _, _ := strings.Cut(reply, "\n")
	return strings.TrimSpace(first)
}

// Escalate sends the case to the language model and packages the reply as
// a diagnosis-shaped result.  The reply has no structure, so the whole text
// stands in for the medicine and generic dosage defaults apply.
func (e *Escalator) Escalate(ctx context.Context, symptoms string, days int, allergies string) (pkg.ResolutionResult, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := e.LLM.Complete(ctx, llm.Request{
		System:  SystemInstruction,
		Prompt:  EscalationPrompt(symptoms, days, allergies),
		OneShot: true,
	})
	e.metrics.ObserveLLM(time.Since(start))
	if err != nil {
		return pkg.ResolutionResult{}, fmt.Errorf("escalate case: %w", err)
	}

	reply = strings.TrimSpace(reply)
	e.logger.Debug("escalation reply received",
		zap.Int("reply_len", len(reply)),
		zap.Duration("elapsed", time.Since(start)))

	return pkg.ResolutionResult{
		Outcome:        pkg.OutcomeEscalated,
		Provenance:     pkg.ProvenanceLanguageModel,
		DiagnosisLabel: DiagnosisLabel(reply),
		ChosenMedicine: reply,
		Dosage:         DefaultDosage,
		TreatmentDays:  DefaultTreatmentDays,
		Summary:        reply,
	}, nil
}
