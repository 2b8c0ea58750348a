package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/oauth"
	"golang.org/x/crypto/bcrypt"

	"github.com/mbolis/survey-intake/log"
)

// AccountIDClaim carries the numeric account id inside access tokens.
const AccountIDClaim = "account_id"

const refreshTokenTTL = 8760 * time.Hour

var errRefresh = errors.New("could not refresh")

type CredentialStore interface {
	Credentials(ctx context.Context, username string) (accountID int, hash []byte, err error)
	StoreToken(ctx context.Context, username, tokenID, refreshTokenID string, expiration time.Time) error
	ConsumeToken(ctx context.Context, username, tokenID, refreshTokenID string) (time.Time, error)
}

type credentialsVerifier struct {
	store CredentialStore
}

func CredentialsVerifier(store CredentialStore) oauth.CredentialsVerifier {
	return &credentialsVerifier{store}
}

func (cs *credentialsVerifier) ValidateUser(username string, password string, scope string, r *http.Request) error {
	_, hash, err := cs.store.Credentials(r.Context(), username)
	if err != nil {
		return err
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password))
}

func (cs *credentialsVerifier) StoreTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	return cs.store.StoreToken(context.Background(), credential, tokenID, refreshTokenID, time.Now().Add(refreshTokenTTL))
}

func (cs *credentialsVerifier) ValidateTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	expiration, err := cs.store.ConsumeToken(context.Background(), credential, tokenID, refreshTokenID)
	if err != nil {
		log.Debugf("auth.refresh: %s", err)
		return errRefresh
	}
	if expiration.Before(time.Now()) {
		return errRefresh
	}
	return nil
}

func (cs *credentialsVerifier) AddClaims(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	accountID, _, err := cs.store.Credentials(r.Context(), credential)
	if err != nil {
		return nil, err
	}
	return map[string]string{AccountIDClaim: strconv.Itoa(accountID)}, nil
}

func (*credentialsVerifier) AddProperties(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{}, nil
}

func (*credentialsVerifier) ValidateClient(clientID string, clientSecret string, scope string, r *http.Request) error {
	return errors.New("not supported")
}

func NewBearerServer(store CredentialStore, secret string, ttl time.Duration) *oauth.BearerServer {
	return oauth.NewBearerServer(secret, ttl, CredentialsVerifier(store), nil)
}
