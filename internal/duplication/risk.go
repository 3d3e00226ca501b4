package duplication

import (
	"fmt"
	"strings"
)

// RiskLevel grades how harmful a duplication is likely to be.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return fmt.Sprintf("RiskLevel(%d)", int(r))
	}
}

func (r RiskLevel) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *RiskLevel) UnmarshalText(text []byte) error {
	for level := RiskLow; level <= RiskCritical; level++ {
		if level.String() == strings.ToLower(string(text)) {
			*r = level
			return nil
		}
	}
	return fmt.Errorf("unknown risk level %q", text)
}

// weight feeds the suggestion priority score.
func (r RiskLevel) weight() float64 {
	switch r {
	case RiskCritical:
		return 1000
	case RiskHigh:
		return 600
	case RiskMedium:
		return 300
	default:
		return 100
	}
}

// Priority is the urgency assigned to refactoring a duplication.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	for level := PriorityLow; level <= PriorityUrgent; level++ {
		if level.String() == strings.ToLower(string(text)) {
			*p = level
			return nil
		}
	}
	return fmt.Errorf("unknown priority %q", text)
}

// AssessRisk classifies a duplication from its size and similarity. Both
// inputs are monotonic: more lines or higher similarity never lowers the risk.
func AssessRisk(lineCount int, similarity float64) RiskLevel {
	switch {
	case lineCount >= 100 && similarity >= 0.95:
		return RiskCritical
	case lineCount >= 50 && similarity >= 0.85:
		return RiskHigh
	case lineCount >= 20 && similarity >= 0.75:
		return RiskMedium
	default:
		return RiskLow
	}
}

// AssessPriority derives the refactoring priority from the risk level and the
// number of copies.
func AssessPriority(risk RiskLevel, blockCount int) Priority {
	switch risk {
	case RiskCritical:
		return PriorityUrgent
	case RiskHigh:
		if blockCount >= 5 {
			return PriorityUrgent
		}
		return PriorityHigh
	case RiskMedium:
		if blockCount >= 8 {
			return PriorityHigh
		}
		return PriorityMedium
	default:
		if blockCount >= 5 {
			return PriorityMedium
		}
		return PriorityLow
	}
}
