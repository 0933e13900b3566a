package storage

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wallet-bot/internal/domain"
)

const (
	getWalletSQL = `SELECT owner_id, chain, address, secret_material, security_password, created_at
    FROM wallets
    WHERE owner_id = $1
      AND chain = $2;`

	upsertWalletSQL = `INSERT INTO wallets (
        owner_id, chain, address, secret_material
    ) VALUES (
        $1,$2,$3,$4
    )
    ON CONFLICT (owner_id, chain) DO UPDATE
    SET address         = EXCLUDED.address,
        secret_material = COALESCE(NULLIF(EXCLUDED.secret_material, ''), wallets.secret_material);`

	setSecurityPasswordSQL = `UPDATE wallets
    SET security_password = $3
    WHERE owner_id = $1
      AND chain = $2;`
)

// GetWallet loads a user's wallet for one chain.
func (s *Store) GetWallet(ctx context.Context, ownerID int64, chain domain.Chain) (domain.Wallet, error) {
	pool, err := s.getPool()
	if err != nil {
		return domain.Wallet{}, err
	}

	var (
		wallet   domain.Wallet
		chainRaw string
	)
	scanErr := pool.QueryRow(ctx, getWalletSQL, ownerID, string(chain)).Scan(
		&wallet.OwnerID,
		&chainRaw,
		&wallet.Address,
		&wallet.SecretMaterial,
		&wallet.SecurityPassword,
		&wallet.CreatedAt,
	)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return domain.Wallet{}, &domain.NotFoundError{Resource: "wallet", ID: string(chain)}
	}
	if scanErr != nil {
		return domain.Wallet{}, fmt.Errorf("get wallet: %w", scanErr)
	}
	wallet.Chain = domain.Chain(chainRaw)
	return wallet, nil
}

// UpsertWallet registers or replaces a user's wallet for one chain.
// Stored secret material survives a re-attach with an empty secret.
func (s *Store) UpsertWallet(ctx context.Context, wallet domain.Wallet) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, upsertWalletSQL,
		wallet.OwnerID,
		string(wallet.Chain),
		wallet.Address,
		wallet.SecretMaterial,
	); execErr != nil {
		return fmt.Errorf("upsert wallet: %w", execErr)
	}
	return nil
}

// SetSecurityPassword stores the reveal-protection secret for a wallet.
func (s *Store) SetSecurityPassword(ctx context.Context, ownerID int64, chain domain.Chain, password string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	tag, execErr := pool.Exec(ctx, setSecurityPasswordSQL, ownerID, string(chain), password)
	if execErr != nil {
		return fmt.Errorf("set security password: %w", execErr)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Resource: "wallet", ID: string(chain)}
	}
	return nil
}

// Secrets adapts the wallet table into the session package's secret-store
// collaborator.
type Secrets struct {
	wallets WalletStore
}

// NewSecrets builds a Secrets facade over a wallet store.
func NewSecrets(wallets WalletStore) *Secrets {
	return &Secrets{wallets: wallets}
}

// PasswordSet reports whether the wallet already has a security password.
func (s *Secrets) PasswordSet(ctx context.Context, ownerID int64, chain domain.Chain) (bool, error) {
	wallet, err := s.wallets.GetWallet(ctx, ownerID, chain)
	if err != nil {
		return false, err
	}
	return wallet.PasswordSet(), nil
}

// SetPassword stores the security password for a wallet.
func (s *Secrets) SetPassword(ctx context.Context, ownerID int64, chain domain.Chain, password string) error {
	return s.wallets.SetSecurityPassword(ctx, ownerID, chain, password)
}

// Compare checks a candidate password in constant time.
func (s *Secrets) Compare(ctx context.Context, ownerID int64, chain domain.Chain, candidate string) (bool, error) {
	wallet, err := s.wallets.GetWallet(ctx, ownerID, chain)
	if err != nil {
		return false, err
	}
	if !wallet.PasswordSet() {
		return false, &domain.StateError{Msg: "no security password configured"}
	}
	match := subtle.ConstantTimeCompare([]byte(*wallet.SecurityPassword), []byte(candidate)) == 1
	return match, nil
}

// Reveal returns the wallet's secret material. Callers gate this behind a
// successful Compare.
func (s *Secrets) Reveal(ctx context.Context, ownerID int64, chain domain.Chain) (string, error) {
	wallet, err := s.wallets.GetWallet(ctx, ownerID, chain)
	if err != nil {
		return "", err
	}
	return wallet.SecretMaterial, nil
}
