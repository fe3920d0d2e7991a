package analytics

const (
	lowScoreThreshold  = 50
	highScoreThreshold = 80
	longSessionMillis  = 30 * 60 * 1000
	manySessions       = 100
)

// Recommend applies the fixed advice rules in order. Each rule is evaluated
// on its own, so zero or more may fire.
func Recommend(score, avgSessionDuration float64, totalSessions int64) []Recommendation {
	recs := []Recommendation{}

	if score < lowScoreThreshold {
		recs = append(recs, Recommendation{
			Type:     "warning",
			Message:  "Your productivity score is below 50%. Consider reducing time on distracting websites.",
			Priority: "high",
		})
	}

	if avgSessionDuration > longSessionMillis {
		recs = append(recs, Recommendation{
			Type:     "info",
			Message:  "Your average session duration is quite long. Consider taking more frequent breaks.",
			Priority: "medium",
		})
	}

	if totalSessions > manySessions {
		recs = append(recs, Recommendation{
			Type:     "info",
			Message:  "You have many short sessions. Consider focusing on longer, uninterrupted work periods.",
			Priority: "medium",
		})
	}

	if score > highScoreThreshold {
		recs = append(recs, Recommendation{
			Type:     "success",
			Message:  "Great job! Your productivity score is excellent. Keep up the good work!",
			Priority: "low",
		})
	}

	return recs
}
