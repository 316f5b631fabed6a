package scan

import "github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"

// Evidence score heuristics, one per orchestrator. Ingestion sets the score
// programmatically; the admin surface may override it later.

// APIEvidence scores freshly scraped API data into the 40-70 band, rising
// with corroboration.
func APIEvidence(c model.Candidate) int {
	score := 40 + 10*len(c.Sources)
	if score > 70 {
		score = 70
	}
	return score
}

// MultiEvidence scores a multi-source candidate proportionally to how many
// providers corroborated it.
func MultiEvidence(c model.Candidate) int {
	score := 10 * len(c.Sources)
	if score > 100 {
		score = 100
	}
	return score
}

// AIEvidence trusts the model-reported confidence, clamped to 0-100 with a
// neutral default when the model reported nothing.
func AIEvidence(c model.Candidate) int {
	score := c.EvidenceScore
	if score == 0 {
		score = 60
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
