package clara

// ConfidenceStrategy combines retrieval strength and generation
// self-assessment into one answer confidence. The exact weighting is a
// tunable policy, so it is injected rather than hard-coded.
type ConfidenceStrategy interface {
	// Score derives a confidence in [0,1] from the top retrieved
	// relevance, the number of supporting chunks, and the model's
	// self-reported confidence (hasSelfReport is false when the model
	// did not provide one).
	Score(topRelevance float64, supportingChunks int, selfReported float64, hasSelfReport bool) float64
}

// WeightedConfidence is the default strategy: a weighted blend of top
// relevance, evidence coverage, and the self-report. Without a
// self-report its weight shifts onto relevance.
type WeightedConfidence struct {
	RelevanceWeight    float64
	CoverageWeight     float64
	SelfReportWeight   float64
	FullCoverageChunks int // chunk count treated as full coverage
}

func NewWeightedConfidence() *WeightedConfidence {
	return &WeightedConfidence{
		RelevanceWeight:    0.4,
		CoverageWeight:     0.2,
		SelfReportWeight:   0.4,
		FullCoverageChunks: 3,
	}
}

func (w *WeightedConfidence) Score(topRelevance float64, supportingChunks int, selfReported float64, hasSelfReport bool) float64 {
	if supportingChunks == 0 {
		return 0
	}

	coverage := float64(supportingChunks) / float64(w.FullCoverageChunks)
	if coverage > 1 {
		coverage = 1
	}

	relevanceWeight := w.RelevanceWeight
	selfWeight := w.SelfReportWeight
	if !hasSelfReport {
		relevanceWeight += selfWeight
		selfWeight = 0
	}

	score := relevanceWeight*clamp01(topRelevance) +
		w.CoverageWeight*coverage +
		selfWeight*clamp01(selfReported)

	total := relevanceWeight + w.CoverageWeight + selfWeight
	if total > 0 {
		score /= total
	}

	return clamp01(score)
}
