package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// Credentials returns the account id and password hash for username.
func (s *Store) Credentials(ctx context.Context, username string) (accountID int, hash []byte, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT id, password_hash FROM account WHERE username = ?`,
		username,
	).Scan(&accountID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, ErrNotFound
	}
	return accountID, hash, errors.Wrap(err, "select credentials")
}

func (s *Store) StoreToken(ctx context.Context, username, tokenID, refreshTokenID string, expiration time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token (username, token_id, refresh_token_id, expiration)
		VALUES (?, ?, ?, ?)`,
		username, tokenID, refreshTokenID, expiration,
	)
	return errors.Wrap(err, "insert token")
}

// ConsumeToken deletes a refresh token and returns its expiration, so that
// every refresh token can be used once.
func (s *Store) ConsumeToken(ctx context.Context, username, tokenID, refreshTokenID string) (expiration time.Time, err error) {
	err = s.db.QueryRowContext(ctx, `
		DELETE FROM token
		WHERE username = ?
			AND token_id = ?
			AND refresh_token_id = ?
		RETURNING expiration`,
		username, tokenID, refreshTokenID,
	).Scan(&expiration)
	if errors.Is(err, sql.ErrNoRows) {
		return expiration, ErrNotFound
	}
	return expiration, errors.Wrap(err, "delete token")
}
