package domain

import "time"

// StageLatency is the measured duration of one pipeline stage.
type StageLatency struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// LatencyBreakdown records per-stage and total durations for one run.
// Populated on success and on failure alike.
type LatencyBreakdown struct {
	Stages []StageLatency `json:"stages"`
	Total  time.Duration  `json:"total"`
}

// Answer is the final synthesized response for one Query.
// GroundingOK=false marks an answer that must be surfaced with a
// verify-independently disclaimer.
type Answer struct {
	Text        string           `json:"text"`
	GroundingOK bool             `json:"grounding_ok"`
	EvidenceIDs []string         `json:"evidence_ids"`
	Latency     LatencyBreakdown `json:"latency"`
}
