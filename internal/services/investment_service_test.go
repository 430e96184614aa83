package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const (
	fetchProjectQuery = "SELECT id, share_price_cents, total_shares, shares_sold, min_investment_cents, max_investment_cents, funding_start_date, funding_end_date, status, version FROM investment_projects WHERE id = \\$1"
	lockProjectQuery  = "SELECT id, share_price_cents, total_shares, shares_sold, min_investment_cents, max_investment_cents, funding_start_date, funding_end_date, status, version FROM investment_projects WHERE id = \\$1 FOR UPDATE"
)

func projectRows(sharesSold int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "share_price_cents", "total_shares", "shares_sold", "min_investment_cents", "max_investment_cents", "funding_start_date", "funding_end_date", "status", "version"}).
		AddRow("project1", 10000, 100, sharesSold, 10000, nil, time.Now().Add(-24*time.Hour), time.Now().Add(24*time.Hour), status, 1)
}

func expectWalletLookup(dbMock sqlmock.Sqlmock, walletID string, balance int64) {
	dbMock.ExpectQuery("SELECT id FROM wallets WHERE user_id = \\$1").
		WithArgs("user1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(walletID))
	dbMock.ExpectQuery("SELECT id, user_id, balance_cents, total_deposited_cents, total_withdrawn_cents, currency, version, created_at, updated_at FROM wallets WHERE id = \\$1").
		WithArgs(walletID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance_cents", "total_deposited_cents", "total_withdrawn_cents", "currency", "version", "created_at", "updated_at"}).
			AddRow(walletID, "user1", balance, balance, 0, "EUR", 1, time.Now(), time.Now()))
}

func TestInvestmentService_Settle(t *testing.T) {
	t.Run("successful settlement", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		sink := &MockAuditSink{}
		sink.On("LogTransaction", mock.Anything, "INVESTMENT", mock.Anything, "wallet1", int64(-500000), int64(500000), int64(0)).Once()

		service := NewInvestmentService(db, nil, NewWalletService(db, sink), sink)

		dbMock.ExpectQuery(fetchProjectQuery).
			WithArgs("project1").
			WillReturnRows(projectRows(0, "OPEN"))
		expectWalletLookup(dbMock, "wallet1", 500000)
		dbMock.ExpectQuery("SELECT kyc_status FROM users WHERE id = \\$1").
			WithArgs("user1").
			WillReturnRows(sqlmock.NewRows([]string{"kyc_status"}).AddRow("VERIFIED"))

		dbMock.ExpectBegin()
		dbMock.ExpectExec("INSERT INTO investments").
			WithArgs(sqlmock.AnyArg(), "user1", "project1", int64(500000), int64(50), "IN_PROGRESS", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		dbMock.ExpectQuery(lockWalletQuery).
			WithArgs("wallet1").
			WillReturnRows(walletRow("wallet1", 500000, 500000, 0, 1))
		dbMock.ExpectExec("INSERT INTO transactions").
			WithArgs("wallet1", sqlmock.AnyArg(), "INVESTMENT", int64(-500000), int64(0), "COMPLETE", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		dbMock.ExpectExec("UPDATE wallets").
			WithArgs(int64(0), int64(500000), int64(0), sqlmock.AnyArg(), "wallet1", 1).
			WillReturnResult(sqlmock.NewResult(1, 1))
		dbMock.ExpectQuery(lockProjectQuery).
			WithArgs("project1").
			WillReturnRows(projectRows(0, "OPEN"))
		dbMock.ExpectExec("UPDATE investment_projects").
			WithArgs(int64(50), "OPEN", sqlmock.AnyArg(), "project1", 1).
			WillReturnResult(sqlmock.NewResult(1, 1))
		dbMock.ExpectCommit()

		investment, err := service.Settle(context.Background(), "user1", "project1", 500000)
		assert.NoError(t, err)
		assert.Equal(t, int64(50), investment.SharesCount)
		assert.Equal(t, int64(500000), investment.AmountCents)
		assert.Equal(t, "IN_PROGRESS", investment.Status)
		assert.NoError(t, dbMock.ExpectationsWereMet())
		sink.AssertExpectations(t)
	})

	t.Run("oversell detected under lock is rejected", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewInvestmentService(db, nil, NewWalletService(db, &MockAuditSink{}), &MockAuditSink{})

		// The pre-lock snapshot still shows 60 available shares; a concurrent
		// settlement wins the project lock first and leaves only 50.
		dbMock.ExpectQuery(fetchProjectQuery).
			WithArgs("project1").
			WillReturnRows(projectRows(40, "OPEN"))
		expectWalletLookup(dbMock, "wallet1", 600000)
		dbMock.ExpectQuery("SELECT kyc_status FROM users WHERE id = \\$1").
			WithArgs("user1").
			WillReturnRows(sqlmock.NewRows([]string{"kyc_status"}).AddRow("VERIFIED"))

		dbMock.ExpectBegin()
		dbMock.ExpectExec("INSERT INTO investments").
			WillReturnResult(sqlmock.NewResult(1, 1))
		dbMock.ExpectQuery(lockWalletQuery).
			WithArgs("wallet1").
			WillReturnRows(walletRow("wallet1", 600000, 600000, 0, 1))
		dbMock.ExpectExec("INSERT INTO transactions").
			WillReturnResult(sqlmock.NewResult(1, 1))
		dbMock.ExpectExec("UPDATE wallets").
			WillReturnResult(sqlmock.NewResult(1, 1))
		dbMock.ExpectQuery(lockProjectQuery).
			WithArgs("project1").
			WillReturnRows(projectRows(50, "OPEN"))
		dbMock.ExpectRollback()

		_, err = service.Settle(context.Background(), "user1", "project1", 600000)
		assert.ErrorIs(t, err, ErrInsufficientShares)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("all precondition violations reported together", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewInvestmentService(db, nil, NewWalletService(db, &MockAuditSink{}), &MockAuditSink{})

		rows := sqlmock.NewRows([]string{"id", "share_price_cents", "total_shares", "shares_sold", "min_investment_cents", "max_investment_cents", "funding_start_date", "funding_end_date", "status", "version"}).
			AddRow("project1", 10000, 100, 0, 20000, nil, time.Now().Add(-48*time.Hour), time.Now().Add(-24*time.Hour), "CLOSED", 1)

		dbMock.ExpectQuery(fetchProjectQuery).
			WithArgs("project1").
			WillReturnRows(rows)
		expectWalletLookup(dbMock, "wallet1", 1000)
		dbMock.ExpectQuery("SELECT kyc_status FROM users WHERE id = \\$1").
			WithArgs("user1").
			WillReturnRows(sqlmock.NewRows([]string{"kyc_status"}).AddRow("PENDING"))

		_, err = service.Settle(context.Background(), "user1", "project1", 15000)
		ve, ok := AsValidationError(err)
		assert.True(t, ok)
		assert.Contains(t, ve.Reasons, "project is not open for investment")
		assert.Contains(t, ve.Reasons, "project funding window has closed")
		assert.Contains(t, ve.Reasons, "user KYC is not verified")
		assert.Contains(t, ve.Reasons, "wallet balance does not cover the investment amount")
		assert.GreaterOrEqual(t, len(ve.Reasons), 5) // plus the non-multiple amount
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("final purchase marks project fully funded", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		sink := &MockAuditSink{}
		sink.On("LogTransaction", mock.Anything, "INVESTMENT", mock.Anything, "wallet1", int64(-500000), int64(500000), int64(0)).Once()
		sink.On("LogProjectFunded", "project1", int64(100), int64(100)).Once()

		service := NewInvestmentService(db, nil, NewWalletService(db, sink), sink)

		dbMock.ExpectQuery(fetchProjectQuery).
			WithArgs("project1").
			WillReturnRows(projectRows(50, "OPEN"))
		expectWalletLookup(dbMock, "wallet1", 500000)
		dbMock.ExpectQuery("SELECT kyc_status FROM users WHERE id = \\$1").
			WithArgs("user1").
			WillReturnRows(sqlmock.NewRows([]string{"kyc_status"}).AddRow("VERIFIED"))

		dbMock.ExpectBegin()
		dbMock.ExpectExec("INSERT INTO investments").
			WillReturnResult(sqlmock.NewResult(1, 1))
		dbMock.ExpectQuery(lockWalletQuery).
			WithArgs("wallet1").
			WillReturnRows(walletRow("wallet1", 500000, 500000, 0, 1))
		dbMock.ExpectExec("INSERT INTO transactions").
			WillReturnResult(sqlmock.NewResult(1, 1))
		dbMock.ExpectExec("UPDATE wallets").
			WillReturnResult(sqlmock.NewResult(1, 1))
		dbMock.ExpectQuery(lockProjectQuery).
			WithArgs("project1").
			WillReturnRows(projectRows(50, "OPEN"))
		dbMock.ExpectExec("UPDATE investment_projects").
			WithArgs(int64(100), "FULLY_FUNDED", sqlmock.AnyArg(), "project1", 1).
			WillReturnResult(sqlmock.NewResult(1, 1))
		dbMock.ExpectCommit()

		investment, err := service.Settle(context.Background(), "user1", "project1", 500000)
		assert.NoError(t, err)
		assert.Equal(t, int64(50), investment.SharesCount)
		assert.NoError(t, dbMock.ExpectationsWereMet())
		sink.AssertExpectations(t)
	})
}
