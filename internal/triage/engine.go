package triage

import "context"

// Engine turns a symptom record into a final triage response. It holds no
// per-call state and is safe for concurrent use.
type Engine struct {
	coordinator *Coordinator
}

func NewEngine(inference InferenceService, opts ...CoordinatorOption) *Engine {
	return &Engine{coordinator: NewCoordinator(inference, opts...)}
}

// Evaluate computes the priority and diagnosis verdicts independently and
// assembles them. It blocks only on the inference call.
func (e *Engine) Evaluate(ctx context.Context, record SymptomRecord) Response {
	priority := EvaluatePriority(record)
	diagnosis := e.coordinator.Diagnose(ctx, record.Flatten(), record.Demographics)
	return Assemble(priority, diagnosis)
}

// Assemble nests the diagnosis under the priority verdict. The two are not
// reconciled: a RED priority may sit next to an insufficient-data diagnosis.
func Assemble(priority PriorityVerdict, diagnosis DiagnosisVerdict) Response {
	return Response{PriorityVerdict: priority, Diagnosis: diagnosis}
}
