package pkg

import "time"

// Stage is the position of a session inside the intake dialogue.
type Stage string

const (
	StageGreeting           Stage = "greeting"
	StageCollectingSymptoms Stage = "collecting_symptoms"
	StageCollectingDuration Stage = "collecting_duration"
	StageCollectingAllergy  Stage = "collecting_allergy"
)

// ConversationState is the working memory of the case currently being
// collected.  It is owned by a single session and passed explicitly into
// every turn; nothing else mutates it.
type ConversationState struct {
	Stage        Stage  `json:"stage"`
	SymptomText  string `json:"symptom_text"`
	DurationDays *int   `json:"duration_days,omitempty"`
	AllergyText  string `json:"allergy_text"`
}

// NewConversationState returns the state a session starts in.
func NewConversationState() *ConversationState {
	return &ConversationState{Stage: StageGreeting}
}

// Reset clears the collected fields and returns the session to the greeting
// stage so the next case starts from scratch.
func (s *ConversationState) Reset() {
	*s = ConversationState{Stage: StageGreeting}
}

// Outcome describes how a completed case was resolved.
type Outcome string

const (
	OutcomeMatchedSafe             Outcome = "matched_safe"
	OutcomeMatchedWithSubstitution Outcome = "matched_with_substitution"
	OutcomeEscalated               Outcome = "escalated"
)

// Provenance records where a diagnosis came from.  Language-model output is
// unstructured and lower confidence than a knowledge-base hit, and is always
// labelled as such.
type Provenance string

const (
	ProvenanceKnowledgeBase Provenance = "knowledge_base"
	ProvenanceLanguageModel Provenance = "language_model"
)

// ResolutionResult is produced once per completed case.
type ResolutionResult struct {
	CaseID         string     `json:"case_id"`
	Outcome        Outcome    `json:"outcome"`
	Provenance     Provenance `json:"provenance"`
	DiagnosisLabel string     `json:"diagnosis_label"`
	ChosenMedicine string     `json:"chosen_medicine"`
	Dosage         string     `json:"dosage_instructions"`
	TreatmentDays  int        `json:"treatment_days"`
	// Summary holds the raw model reply for escalated cases.
	Summary string `json:"summary,omitempty"`
}

// Prescription carries every field printed on a prescription document.
type Prescription struct {
	CaseID        string     `json:"case_id"`
	PatientName   string     `json:"patient_name"`
	Symptoms      string     `json:"symptoms"`
	DurationDays  int        `json:"duration_days"`
	Allergies     string     `json:"allergies"`
	Diagnosis     string     `json:"diagnosis"`
	Medicine      string     `json:"medicine"`
	Dosage        string     `json:"dosage_instructions"`
	TreatmentDays int        `json:"treatment_days"`
	Provenance    Provenance `json:"provenance"`
	IssuedAt      time.Time  `json:"issued_at"`
}

// FollowUpDate is the day the patient should be reviewed again.
func (p Prescription) FollowUpDate() time.Time {
	return p.IssuedAt.AddDate(0, 0, p.TreatmentDays)
}

// CaseRecord is the audit row stored for every resolved case.  It holds the
// outcome only, never the dialogue transcript.
type CaseRecord struct {
	ID               string     `json:"id"`
	Outcome          Outcome    `json:"outcome"`
	Provenance       Provenance `json:"provenance"`
	Diagnosis        string     `json:"diagnosis"`
	Medicine         string     `json:"medicine"`
	Symptoms         string     `json:"symptoms"`
	DurationDays     int        `json:"duration_days"`
	Allergies        string     `json:"allergies"`
	PrescriptionPath *string    `json:"prescription_path,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
