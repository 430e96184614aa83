package services

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/brickvest/backend/internal/audit"
	"github.com/brickvest/backend/internal/models"
)

// WalletService is the ledger store. Every balance mutation locks the wallet
// row, appends exactly one immutable transaction row carrying the resulting
// balance, and updates the wallet, all inside a single database transaction.
type WalletService struct {
	db    *sql.DB
	audit audit.Sink
}

func NewWalletService(db *sql.DB, sink audit.Sink) *WalletService {
	if sink == nil {
		sink = audit.NewLogger()
	}
	return &WalletService{
		db:    db,
		audit: sink,
	}
}

// Deposit credits amountCents to the wallet as a standalone atomic unit.
func (s *WalletService) Deposit(ctx context.Context, walletID string, amountCents int64, reference string, actor audit.Context) (*models.WalletTransaction, error) {
	return s.mutate(ctx, walletID, amountCents, false, models.TransactionTypeDeposit, reference, actor)
}

// Withdraw debits amountCents from the wallet as a standalone atomic unit.
// Fails with ErrInsufficientFunds if the balance at lock time cannot cover it;
// a failed attempt leaves no transaction row.
func (s *WalletService) Withdraw(ctx context.Context, walletID string, amountCents int64, reference string, actor audit.Context) (*models.WalletTransaction, error) {
	return s.mutate(ctx, walletID, amountCents, true, models.TransactionTypeWithdrawal, reference, actor)
}

func (s *WalletService) mutate(ctx context.Context, walletID string, amountCents int64, debit bool, txType, reference string, actor audit.Context) (*models.WalletTransaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var entry *models.WalletTransaction
	var before int64
	if debit {
		entry, before, err = s.debitTx(tx, walletID, amountCents, txType, reference, nil)
	} else {
		entry, before, err = s.creditTx(tx, walletID, amountCents, txType, reference, nil)
	}
	if err != nil {
		s.audit.LogError(actor, reference, err)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.audit.LogError(actor, reference, err)
		return nil, err
	}

	s.audit.LogTransaction(actor, txType, reference, walletID, entry.AmountCents, before, entry.BalanceAfterCents)
	return entry, nil
}

// DebitTx removes amountCents from the wallet inside the caller's database
// transaction. The caller owns commit/rollback and audit notification; the
// returned entry carries the authoritative balance snapshot.
func (s *WalletService) DebitTx(tx *sql.Tx, walletID string, amountCents int64, txType, reference string, investmentID *string) (*models.WalletTransaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	entry, _, err := s.debitTx(tx, walletID, amountCents, txType, reference, investmentID)
	return entry, err
}

// CreditTx adds amountCents to the wallet inside the caller's database
// transaction.
func (s *WalletService) CreditTx(tx *sql.Tx, walletID string, amountCents int64, txType, reference string, investmentID *string) (*models.WalletTransaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	entry, _, err := s.creditTx(tx, walletID, amountCents, txType, reference, investmentID)
	return entry, err
}

func (s *WalletService) debitTx(tx *sql.Tx, walletID string, amountCents int64, txType, reference string, investmentID *string) (*models.WalletTransaction, int64, error) {
	wallet, err := s.lockWallet(tx, walletID)
	if err != nil {
		return nil, 0, err
	}

	if wallet.BalanceCents < amountCents {
		return nil, wallet.BalanceCents, ErrInsufficientFunds
	}

	newBalance := wallet.BalanceCents - amountCents
	entry, err := s.createTransaction(tx, wallet.ID, investmentID, txType, -amountCents, newBalance, reference)
	if err != nil {
		return nil, wallet.BalanceCents, err
	}

	totalWithdrawn := wallet.TotalWithdrawnCents
	if txType == models.TransactionTypeWithdrawal {
		totalWithdrawn += amountCents
	}

	if err := s.updateWalletBalance(tx, wallet.ID, newBalance, wallet.TotalDepositedCents, totalWithdrawn, wallet.Version); err != nil {
		return nil, wallet.BalanceCents, err
	}

	return entry, wallet.BalanceCents, nil
}

func (s *WalletService) creditTx(tx *sql.Tx, walletID string, amountCents int64, txType, reference string, investmentID *string) (*models.WalletTransaction, int64, error) {
	wallet, err := s.lockWallet(tx, walletID)
	if err != nil {
		return nil, 0, err
	}

	newBalance := wallet.BalanceCents + amountCents
	entry, err := s.createTransaction(tx, wallet.ID, investmentID, txType, amountCents, newBalance, reference)
	if err != nil {
		return nil, wallet.BalanceCents, err
	}

	totalDeposited := wallet.TotalDepositedCents
	if txType == models.TransactionTypeDeposit {
		totalDeposited += amountCents
	}

	if err := s.updateWalletBalance(tx, wallet.ID, newBalance, totalDeposited, wallet.TotalWithdrawnCents, wallet.Version); err != nil {
		return nil, wallet.BalanceCents, err
	}

	return entry, wallet.BalanceCents, nil
}

func (s *WalletService) lockWallet(tx *sql.Tx, walletID string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := tx.QueryRow(`
		SELECT id, user_id, balance_cents, total_deposited_cents, total_withdrawn_cents, currency, version, updated_at
		FROM wallets
		WHERE id = $1
		FOR UPDATE`, walletID).Scan(
		&wallet.ID, &wallet.UserID, &wallet.BalanceCents, &wallet.TotalDepositedCents,
		&wallet.TotalWithdrawnCents, &wallet.Currency, &wallet.Version, &wallet.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (s *WalletService) createTransaction(tx *sql.Tx, walletID string, investmentID *string, txType string, signedAmount, balanceAfter int64, reference string) (*models.WalletTransaction, error) {
	entry := &models.WalletTransaction{
		WalletID:          walletID,
		InvestmentID:      investmentID,
		TransactionType:   txType,
		AmountCents:       signedAmount,
		BalanceAfterCents: balanceAfter,
		Status:            "COMPLETE",
		Reference:         reference,
		CreatedAt:         time.Now(),
	}

	_, err := tx.Exec(`
		INSERT INTO transactions (wallet_id, investment_id, transaction_type, amount_cents, balance_after_cents, status, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.WalletID, entry.InvestmentID, entry.TransactionType, entry.AmountCents,
		entry.BalanceAfterCents, entry.Status, entry.Reference, entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *WalletService) updateWalletBalance(tx *sql.Tx, walletID string, newBalance, totalDeposited, totalWithdrawn int64, version int) error {
	result, err := tx.Exec(`
		UPDATE wallets
		SET balance_cents = $1, total_deposited_cents = $2, total_withdrawn_cents = $3, version = version + 1, updated_at = $4
		WHERE id = $5 AND version = $6`,
		newBalance, totalDeposited, totalWithdrawn, time.Now(), walletID, version)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		log.Printf("[WALLET] Optimistic lock failed for wallet %s", walletID)
		return ErrConcurrencyConflict
	}

	return nil
}

// GetWallet fetches a wallet without locking it.
func (s *WalletService) GetWallet(ctx context.Context, walletID string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, balance_cents, total_deposited_cents, total_withdrawn_cents, currency, version, created_at, updated_at
		FROM wallets
		WHERE id = $1`, walletID).Scan(
		&wallet.ID, &wallet.UserID, &wallet.BalanceCents, &wallet.TotalDepositedCents,
		&wallet.TotalWithdrawnCents, &wallet.Currency, &wallet.Version, &wallet.CreatedAt, &wallet.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// GetWalletByUser fetches the wallet owned by userID.
func (s *WalletService) GetWalletByUser(ctx context.Context, userID string) (*models.Wallet, error) {
	var walletID string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM wallets WHERE user_id = $1`, userID).Scan(&walletID)
	if err == sql.ErrNoRows {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.GetWallet(ctx, walletID)
}

// ListTransactions returns the newest ledger entries for a wallet.
func (s *WalletService) ListTransactions(ctx context.Context, walletID string, limit int) ([]models.WalletTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, wallet_id, investment_id, transaction_type, amount_cents, balance_after_cents, status, reference, created_at
		FROM transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, walletID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.WalletTransaction{}
	for rows.Next() {
		var entry models.WalletTransaction
		err := rows.Scan(&entry.ID, &entry.WalletID, &entry.InvestmentID, &entry.TransactionType,
			&entry.AmountCents, &entry.BalanceAfterCents, &entry.Status, &entry.Reference, &entry.CreatedAt)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, entry)
	}

	return transactions, rows.Err()
}
