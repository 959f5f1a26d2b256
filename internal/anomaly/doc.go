// Package anomaly decides whether a source's daily listing count looks healthy.
//
// Detector.Evaluate is pure: it compares one observed count with a Baseline
// using per-tier drop thresholds, a zero-output rule, and a spike rule.
// Baselines are recomputed separately from a HistorySource, and EvaluateAll
// runs both steps across many sources concurrently.
package anomaly
