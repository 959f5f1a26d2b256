package logging

const (
	// FieldComponent names the subsystem emitting the record.
	FieldComponent = "component"
	// FieldEventType is a stable machine-readable event name.
	FieldEventType = "event_type"
	// FieldErrorHint tells an operator what to do next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAlert flags anomalies that should stand out in structured logs.
	FieldAlert = "alert"
	// FieldDecisionType identifies which decision a record explains.
	FieldDecisionType  = "decision_type"
	FieldFilmID        = "film_id"
	FieldSourceID      = "source_id"
	FieldRunID         = "run_id"
	FieldCorrelationID = "correlation_id"
)
