package model

import "time"

// JobKind distinguishes ingestion jobs.
type JobKind string

// Job kinds.
const (
	// JobSubmit stores an evaluation whose criteria were supplied by the caller.
	JobSubmit JobKind = "submit"
	// JobGenerate asks the configured generator for criteria first.
	JobGenerate JobKind = "generate"
)

// Job is a unit of work for the ingestion workers.
type Job struct {
	JobID        string    // unique id, used for idempotency on submissions
	Kind         JobKind   // submit or generate
	PoliticianID string    // subject politician
	Evaluator    Evaluator // producing evaluator
	Version      string    // evaluator version, part of the upsert key
	Evaluation   *Evaluation
	ReceivedAt   time.Time
}
