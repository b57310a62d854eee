package processors

import (
	"fmt"

	"github.com/username/stockfolio/backend/src/models"
)

// LongTermThresholdDays is the holding period from which a lot counts as long-term.
// This is a policy constant of the tracker, not a jurisdiction's tax rule.
const LongTermThresholdDays = 365

// daysPerMonth is a flat month used for period labels. It is deliberately not calendar-accurate.
const daysPerMonth = 30

// HoldingPeriod describes how long a lot has been (or was) held.
type HoldingPeriod struct {
	Days       int    `json:"days"`
	Label      string `json:"label"`
	IsLongTerm bool   `json:"is_long_term"`
}

// Classify measures the holding period from buyDate to asOf. A buy date after asOf counts as zero days.
func Classify(buyDate, asOf models.Date) HoldingPeriod {
	days := asOf.DaysSince(buyDate)
	if days < 0 {
		days = 0
	}
	return HoldingPeriod{
		Days:       days,
		Label:      periodLabel(days),
		IsLongTerm: days >= LongTermThresholdDays,
	}
}

func periodLabel(days int) string {
	months := days / daysPerMonth
	years := days / LongTermThresholdDays
	switch {
	case years > 0:
		return fmt.Sprintf("%dy %dm", years, months%12)
	case months > 0:
		return fmt.Sprintf("%dm %dd", months, days%daysPerMonth)
	default:
		return fmt.Sprintf("%dd", days)
	}
}
