package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brickvest/backend/internal/models"
)

func testProject(sharesSold int64) *models.InvestmentProject {
	return &models.InvestmentProject{
		ID:                 "project1",
		SharePriceCents:    10000,
		TotalShares:        100,
		SharesSold:         sharesSold,
		MinInvestmentCents: 10000,
	}
}

func TestShareCalculator_SharesForAmount(t *testing.T) {
	calc := NewShareCalculator(testProject(0))

	assert.Equal(t, int64(50), calc.SharesForAmount(500000))
	assert.Equal(t, int64(0), calc.SharesForAmount(9999))
	assert.Equal(t, int64(1), calc.SharesForAmount(19999)) // floor, never rounds up

	t.Run("zero share price", func(t *testing.T) {
		zeroPrice := testProject(0)
		zeroPrice.SharePriceCents = 0
		assert.Equal(t, int64(0), NewShareCalculator(zeroPrice).SharesForAmount(500000))
	})
}

func TestShareCalculator_CostForShares(t *testing.T) {
	calc := NewShareCalculator(testProject(0))
	assert.Equal(t, int64(500000), calc.CostForShares(50))
	assert.Equal(t, int64(0), calc.CostForShares(0))
}

func TestShareCalculator_AvailableShares(t *testing.T) {
	assert.Equal(t, int64(100), NewShareCalculator(testProject(0)).AvailableShares())
	assert.Equal(t, int64(50), NewShareCalculator(testProject(50)).AvailableShares())
	assert.Equal(t, int64(0), NewShareCalculator(testProject(100)).AvailableShares())
}

func TestShareCalculator_ValidateAmount(t *testing.T) {
	t.Run("acceptable amount", func(t *testing.T) {
		reasons := NewShareCalculator(testProject(0)).ValidateAmount(500000)
		assert.Empty(t, reasons)
	})

	t.Run("rejects partial shares outright", func(t *testing.T) {
		reasons := NewShareCalculator(testProject(0)).ValidateAmount(15000)
		assert.Len(t, reasons, 1)
		assert.Contains(t, reasons[0], "exact multiple")
	})

	t.Run("below minimum", func(t *testing.T) {
		project := testProject(0)
		project.MinInvestmentCents = 50000
		reasons := NewShareCalculator(project).ValidateAmount(10000)
		assert.Len(t, reasons, 1)
		assert.Contains(t, reasons[0], "minimum investment")
	})

	t.Run("above maximum", func(t *testing.T) {
		project := testProject(0)
		maxCents := int64(100000)
		project.MaxInvestmentCents = &maxCents
		reasons := NewShareCalculator(project).ValidateAmount(200000)
		assert.Len(t, reasons, 1)
		assert.Contains(t, reasons[0], "maximum investment")
	})

	t.Run("more shares than available", func(t *testing.T) {
		reasons := NewShareCalculator(testProject(50)).ValidateAmount(600000)
		assert.Len(t, reasons, 1)
		assert.Contains(t, reasons[0], "only 50 are available")
	})

	t.Run("sold out project", func(t *testing.T) {
		reasons := NewShareCalculator(testProject(100)).ValidateAmount(10000)
		assert.Contains(t, reasons, "project has no shares available")
	})

	t.Run("collects every violation at once", func(t *testing.T) {
		project := testProject(100)
		project.MinInvestmentCents = 20000
		reasons := NewShareCalculator(project).ValidateAmount(15000)
		// not a multiple, below minimum, over availability is implied by sold out
		assert.GreaterOrEqual(t, len(reasons), 3)
	})
}
