package domain

import "github.com/shopspring/decimal"

// RiskLevel summarises a collection for the status bar.
type RiskLevel string

const (
	RiskMinimal RiskLevel = "MINIMAL"
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
)

// Stats aggregates a transaction collection.
type Stats struct {
	Total             int             `json:"total_transactions"`
	Suspicious        int             `json:"suspicious_transactions"`
	Critical          int             `json:"critical_transactions"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	AverageAmount     decimal.Decimal `json:"avg_amount"`
	AverageSuspicion  float64         `json:"avg_suspicion"`
	SuspiciousPercent float64         `json:"suspicious_rate"`
	CriticalPercent   float64         `json:"critical_rate"`
	Risk              RiskLevel       `json:"risk_level"`
}

// ComputeStats counts scores above 0.5 as suspicious and above 0.8 as critical.
func ComputeStats(txs []Transaction) Stats {
	s := Stats{Total: len(txs), TotalAmount: decimal.Zero, AverageAmount: decimal.Zero, Risk: RiskMinimal}
	if len(txs) == 0 {
		return s
	}

	var scoreSum float64
	for _, tx := range txs {
		s.TotalAmount = s.TotalAmount.Add(tx.Amount)
		scoreSum += tx.SuspicionScore
		if tx.SuspicionScore > SuspiciousThreshold {
			s.Suspicious++
		}
		if tx.SuspicionScore > CriticalThreshold {
			s.Critical++
		}
	}

	n := float64(len(txs))
	s.AverageAmount = s.TotalAmount.Div(decimal.NewFromInt(int64(len(txs)))).Round(2)
	s.AverageSuspicion = scoreSum / n
	s.SuspiciousPercent = float64(s.Suspicious) / n * 100
	s.CriticalPercent = float64(s.Critical) / n * 100
	s.Risk = riskFor(s)
	return s
}

func riskFor(s Stats) RiskLevel {
	switch {
	case s.Critical > 0:
		return RiskHigh
	case s.SuspiciousPercent > 25:
		return RiskMedium
	case s.SuspiciousPercent > 10:
		return RiskLow
	default:
		return RiskMinimal
	}
}
