package exam

// ScoringPolicy turns a final session into a score out of totalMarks.
type ScoringPolicy interface {
	Score(s *Session, totalMarks int) int
}

// FixedPointsPolicy awards a flat number of points per answered question,
// capped at the total. Correctness is not considered.
type FixedPointsPolicy struct {
	PointsPerQuestion int
}

// Score implements ScoringPolicy.
func (p FixedPointsPolicy) Score(s *Session, totalMarks int) int {
	score := s.AnsweredCount() * p.PointsPerQuestion
	if score > totalMarks {
		return totalMarks
	}
	return score
}
