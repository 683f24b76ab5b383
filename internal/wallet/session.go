// Package wallet wraps the external auth/wallet provider pair behind a single
// session object. Session state is the only shared mutable resource in the
// gateway and is mutated exclusively by the four operations defined here.
package wallet

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/paxr/paxr-gateway/internal/domain"
	"github.com/paxr/paxr-gateway/shared/logging"
)

// LoginResult is what the embedded-auth provider hands back after its flow.
// The SIWE message/signature pair proves control of the claimed address.
type LoginResult struct {
	Address   domain.Address
	Message   string
	Signature string
	Accounts  []domain.LinkedAccount
}

// AuthProvider drives the embedded-auth login flow
type AuthProvider interface {
	Login(ctx context.Context) (*LoginResult, error)
	Logout(ctx context.Context) error
}

// TxRequest is the raw send-transaction payload handed to the wallet
type TxRequest struct {
	To    domain.Address
	Data  []byte
	Value *big.Int
}

// WalletProvider is the lower-level wallet the signer lives in
type WalletProvider interface {
	ChainID(ctx context.Context) (int64, error)
	SwitchChain(ctx context.Context, chainID int64) error
	SendTransaction(ctx context.Context, from domain.Address, tx TxRequest) (string, error)
	Disconnect(ctx context.Context) error
}

// Session holds the connection state for the active signer
type Session struct {
	mu     sync.RWMutex
	auth   AuthProvider
	wallet WalletProvider
	logger *logging.Logger

	ready     bool
	connected bool
	sessionID string
	address   domain.Address
	chainID   int64
	linked    []domain.LinkedAccount
}

// NewSession wires the two providers. The session is ready as soon as both
// providers exist; readiness is distinct from being connected.
func NewSession(auth AuthProvider, wallet WalletProvider, logger *logging.Logger) *Session {
	return &Session{
		auth:   auth,
		wallet: wallet,
		logger: logger,
		ready:  auth != nil && wallet != nil,
	}
}

// IsReady reports provider readiness, synchronously
func (s *Session) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// IsConnected reports whether a signer session is established, synchronously
func (s *Session) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Address returns the actively selected signer, "" when disconnected
func (s *Session) Address() domain.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

// ChainID returns the active wallet chain, 0 when unknown
func (s *Session) ChainID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chainID
}

// SessionID identifies the current login session, "" when disconnected
func (s *Session) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// LinkedAccounts returns a copy of the accounts known to the session
func (s *Session) LinkedAccounts() []domain.LinkedAccount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.LinkedAccount, len(s.linked))
	copy(out, s.linked)
	return out
}

// Connect runs the embedded login flow and verifies the returned SIWE proof.
// Calling it while already connected is a no-op that keeps the session intact.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.RLock()
	if !s.ready {
		s.mu.RUnlock()
		return domain.ErrNotReady
	}
	if s.connected {
		s.mu.RUnlock()
		return nil
	}
	s.mu.RUnlock()

	result, err := s.auth.Login(ctx)
	if err != nil {
		return fmt.Errorf("login flow: %w", err)
	}

	verified, err := VerifySIWE(result.Message, result.Signature)
	if err != nil {
		return fmt.Errorf("verify login proof: %w", err)
	}
	if !strings.EqualFold(verified, result.Address) {
		return domain.ErrInvalidSignature
	}

	chainID, err := s.wallet.ChainID(ctx)
	if err != nil {
		// connection stands; the chain is re-queried on demand
		s.logger.WithError(err).Warn("chain id query failed after connect")
		chainID = 0
	}

	linked := result.Accounts
	if len(linked) == 0 {
		linked = []domain.LinkedAccount{{Address: result.Address, Type: "embedded"}}
	}

	s.mu.Lock()
	// connect may have raced; keep the first established session
	if !s.connected {
		s.connected = true
		s.sessionID = uuid.New().String()
		s.address = result.Address
		s.chainID = chainID
		s.linked = linked
	}
	s.mu.Unlock()

	s.logger.WithFields(map[string]interface{}{
		"address":  s.Address(),
		"chain_id": s.ChainID(),
	}).Info("wallet connected")
	return nil
}

// Disconnect tears down both the embedded-auth session and the wallet session.
// Either side already being down is not an error.
func (s *Session) Disconnect(ctx context.Context) error {
	if err := s.auth.Logout(ctx); err != nil {
		s.logger.WithError(err).Warn("auth logout failed")
	}
	if err := s.wallet.Disconnect(ctx); err != nil {
		s.logger.WithError(err).Warn("wallet disconnect failed")
	}

	s.mu.Lock()
	s.connected = false
	s.sessionID = ""
	s.address = ""
	s.chainID = 0
	s.linked = nil
	s.mu.Unlock()

	s.logger.Info("wallet disconnected")
	return nil
}

// SwitchNetwork asks the wallet to change chains and refreshes the cached
// chain id. Callers must re-check ChainID rather than assume success.
func (s *Session) SwitchNetwork(ctx context.Context, targetChainID int64) error {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	if !connected {
		return domain.ErrNotConnected
	}

	if err := s.wallet.SwitchChain(ctx, targetChainID); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSwitchRejected, err)
	}

	chainID, err := s.wallet.ChainID(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("chain id query failed after switch")
		return nil
	}

	s.mu.Lock()
	s.chainID = chainID
	s.mu.Unlock()
	return nil
}

// SwitchAccount re-points the signer to an already-linked account. A request
// for an unknown address is an error, never a new session.
func (s *Session) SwitchAccount(ctx context.Context, address domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return domain.ErrNotConnected
	}
	for _, acct := range s.linked {
		if strings.EqualFold(acct.Address, address) {
			s.address = acct.Address
			return nil
		}
	}
	return domain.ErrAccountNotLinked
}

// RefreshChainID re-queries the wallet and updates the cached chain id
func (s *Session) RefreshChainID(ctx context.Context) (int64, error) {
	chainID, err := s.wallet.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("chain id query: %w", err)
	}
	s.mu.Lock()
	s.chainID = chainID
	s.mu.Unlock()
	return chainID, nil
}

// Send hands a raw transaction to the wallet scoped to the currently selected
// signer. The signer is snapshotted under the lock so it cannot be substituted
// mid-call.
func (s *Session) Send(ctx context.Context, tx TxRequest) (string, error) {
	s.mu.RLock()
	from := s.address
	connected := s.connected
	s.mu.RUnlock()

	if !connected {
		return "", domain.ErrNotConnected
	}
	return s.wallet.SendTransaction(ctx, from, tx)
}
