package services

import (
	"fmt"

	"github.com/brickvest/backend/internal/models"
)

// ShareCalculator converts between cents and shares for one project's
// pricing snapshot. It is pure: build it from a project row and discard it.
type ShareCalculator struct {
	SharePriceCents    int64
	TotalShares        int64
	SharesSold         int64
	MinInvestmentCents int64
	MaxInvestmentCents *int64
}

func NewShareCalculator(project *models.InvestmentProject) *ShareCalculator {
	return &ShareCalculator{
		SharePriceCents:    project.SharePriceCents,
		TotalShares:        project.TotalShares,
		SharesSold:         project.SharesSold,
		MinInvestmentCents: project.MinInvestmentCents,
		MaxInvestmentCents: project.MaxInvestmentCents,
	}
}

// SharesForAmount returns floor(amount / sharePrice). A zero share price
// should never reach here given project validation upstream; return 0
// rather than panic if it does.
func (c *ShareCalculator) SharesForAmount(amountCents int64) int64 {
	if c.SharePriceCents == 0 {
		return 0
	}
	return amountCents / c.SharePriceCents
}

func (c *ShareCalculator) CostForShares(shares int64) int64 {
	return shares * c.SharePriceCents
}

func (c *ShareCalculator) AvailableShares() int64 {
	return c.TotalShares - c.SharesSold
}

// ValidateAmount collects every violated constraint for amountCents. An
// empty slice means the amount is acceptable. Partial-share amounts are
// rejected outright, never rounded.
func (c *ShareCalculator) ValidateAmount(amountCents int64) []string {
	var reasons []string

	shares := c.SharesForAmount(amountCents)
	if c.CostForShares(shares) != amountCents {
		reasons = append(reasons, fmt.Sprintf("amount must be an exact multiple of the share price (%d cents)", c.SharePriceCents))
	}

	if amountCents < c.MinInvestmentCents {
		reasons = append(reasons, fmt.Sprintf("amount is below the minimum investment of %d cents", c.MinInvestmentCents))
	}

	if c.MaxInvestmentCents != nil && amountCents > *c.MaxInvestmentCents {
		reasons = append(reasons, fmt.Sprintf("amount exceeds the maximum investment of %d cents", *c.MaxInvestmentCents))
	}

	available := c.AvailableShares()
	if shares > available {
		reasons = append(reasons, fmt.Sprintf("requested %d shares but only %d are available", shares, available))
	}

	if available <= 0 {
		reasons = append(reasons, "project has no shares available")
	}

	return reasons
}
