package core

// prompts.go defines the English prompts used by the intake dialogue and
// the escalation path.  Keeping them in one file makes them easy to tweak
// without touching the state machine.

const (
	// SystemInstruction is sent with every language-model call.  It sets a
	// clinical persona and keeps replies short.
	SystemInstruction = "You are a Doctor. Use a professional and clinical tone. " +
		"Ask one question at a time. First ask for symptoms, then duration, then allergies. " +
		"Keep responses short (1-3 lines). " +
		"Use the local medical knowledge base to suggest medicines. " +
		"If the user is allergic, avoid allergens and suggest alternatives. " +
		"If no match is found, analyze symptoms using concise clinical reasoning."

	// EscalationInstruction opens the one-shot prompt used when the
	// knowledge base has no matching case.  The model must not ask
	// follow-up questions because the dialogue has already moved on.
	EscalationInstruction = "You are a medical diagnosis system. Do NOT ask any follow-up questions. " +
		"Provide a short, professional conclusion in 2-3 lines: likely condition, one-line rationale, and a recommended medicine. "

	Banner          = "Medical Chatbot Activated. Type 'exit' to quit."
	FirstMessage    = "Hello. How can I assist you today?"
	FarewellMessage = "Thank you. Session closed."
	SessionEnded    = "Session ended."
	AssistFurther   = "How else may I assist you?"
	NotUnderstood   = "I did not understand that. Please describe symptoms, duration, or say 'exit' to quit."
	Analyzing       = "Analyzing medically..."
	AnalysisFailed  = "Unable to complete the analysis right now. Please try again later."

	EmptySymptoms = "Please describe the symptoms."
	EmptyDuration = "Please specify the duration in days."
	EmptyAllergy  = "Please specify allergies (or 'none')."

	PrescriptionOffer    = "Would you like a prescription for this? (yes/no): "
	PatientNamePrompt    = "Please enter the patient's name for the prescription: "
	PrescriptionFailed   = "Unable to generate the prescription right now."
	PrescriptionReady    = "Your prescription has been generated: %s"
	SafePrescriptionDone = "A safe prescription has been generated based on your allergy: %s"
	AIPrescriptionDone   = "Prescription generated: %s"
	DeclinedAlright      = "Alright. Let me know if you need anything else."
	DeclinedUnderstood   = "Understood. Let me know if you need anything else."

	// Fallbacks for escalated cases, where the reply carries no structure.
	DefaultDiagnosis     = "Clinical summary"
	DefaultDosage        = "Take medication as advised: follow the prescription instructions."
	DefaultTreatmentDays = 3

	// DefaultPatientName is printed when the user leaves the name blank.
	DefaultPatientName = "Patient"
)

var (
	SymptomPrompts = []string{
		"Please describe all symptoms clearly.",
		"Kindly list the symptoms you are experiencing.",
		"Tell me the symptoms you have noticed.",
	}

	DurationPrompts = []string{
		"How many days have these symptoms been present?",
		"Specify the duration in days.",
		"For how long have these symptoms continued?",
	}

	DurationReprompts = []string{
		"Mention the duration in days.",
		"Please specify the number of days.",
		"State for how many days this has been happening.",
	}

	AllergyPrompts = []string{
		"Do you have any known allergies?",
		"Please mention if you are allergic to any medicine or ingredient.",
		"Specify allergies, if any.",
	}

	// DiagnosisLines take the disease and the medicine.
	DiagnosisLines = []string{
		"These findings suggest %[1]s. %[2]s is appropriate.",
		"The symptoms and duration align with %[1]s. %[2]s may be used.",
		"This pattern matches %[1]s. %[2]s is suitable.",
		"This condition is indicative of %[1]s. %[2]s can be taken.",
		"Based on the provided details, %[1]s is likely. %[2]s is recommended.",
	}

	// SubstitutionLines take the disease, the avoided medicine and the
	// alternative.  Every line names the allergy as the reason.
	SubstitutionLines = []string{
		"These findings suggest %[1]s. Considering the allergy, %[3]s is appropriate instead of %[2]s.",
		"The symptoms align with %[1]s. To avoid an allergic conflict with %[2]s, %[3]s is suitable.",
		"This pattern matches %[1]s. Based on the provided allergy details, %[3]s is recommended in place of %[2]s.",
		"%[1]s is likely. Given the allergy profile, %[3]s is a safer option than %[2]s.",
	}
)
