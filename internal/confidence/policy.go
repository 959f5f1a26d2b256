package confidence

// Policy holds the decision thresholds applied to an overall score.
type Policy struct {
	// AutoApplyThreshold is exceeded (strictly) for a match to be applied
	// without review.
	AutoApplyThreshold float64
	// ReviewFloor is exceeded (strictly) for a match to be queued for review
	// instead of rejected.
	ReviewFloor float64
}

// DefaultPolicy returns the production thresholds.
func DefaultPolicy() Policy {
	return Policy{
		AutoApplyThreshold: 0.8,
		ReviewFloor:        0.3,
	}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.AutoApplyThreshold <= 0 || p.AutoApplyThreshold >= 1 {
		p.AutoApplyThreshold = d.AutoApplyThreshold
	}
	if p.ReviewFloor < 0 || p.ReviewFloor >= p.AutoApplyThreshold {
		p.ReviewFloor = min(d.ReviewFloor, p.AutoApplyThreshold/2)
	}
	return p
}

// Decide maps an overall score to a decision.
func (p Policy) Decide(overall float64) Decision {
	p = p.normalized()
	switch {
	case overall > p.AutoApplyThreshold:
		return DecisionAutoApply
	case overall > p.ReviewFloor:
		return DecisionReview
	default:
		return DecisionReject
	}
}
