// Package txsubmit encodes contract calls and submits them through the active
// wallet session. It returns the transaction hash as soon as the wallet
// accepts the submission; confirmation tracking is the caller's concern.
package txsubmit

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/paxr/paxr-gateway/internal/contracts"
	"github.com/paxr/paxr-gateway/internal/domain"
	"github.com/paxr/paxr-gateway/internal/wallet"
	"github.com/paxr/paxr-gateway/shared/config"
	"github.com/paxr/paxr-gateway/shared/logging"
	"github.com/paxr/paxr-gateway/shared/metrics"
)

// Request describes one contract write
type Request struct {
	// ABI defaults to the event contract ABI when nil
	ABI *abi.ABI
	// Contract defaults to the event contract when nil
	Contract *common.Address
	Function string
	Args     []interface{}
	// Value in base units, nil for non-payable calls
	Value *big.Int
}

// Service checks preconditions, encodes calldata and hands it to the session
type Service struct {
	session         *wallet.Session
	registry        *contracts.Registry
	expectedChainID int64
	settleDelay     time.Duration
	logger          *logging.Logger
	metrics         *metrics.Metrics
}

// Option configures a Service
type Option func(*Service)

// WithSettleDelay overrides the post-switch settle delay
func WithSettleDelay(d time.Duration) Option {
	return func(s *Service) { s.settleDelay = d }
}

// WithMetrics attaches submission instrumentation
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a submission service bound to one expected chain
func NewService(session *wallet.Session, registry *contracts.Registry, expectedChainID int64, logger *logging.Logger, opts ...Option) *Service {
	s := &Service{
		session:         session,
		registry:        registry,
		expectedChainID: expectedChainID,
		settleDelay:     500 * time.Millisecond,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewServiceFromConfig creates a submission service targeting the configured
// chain with the configured post-switch settle delay. Explicit options still
// override the config values.
func NewServiceFromConfig(session *wallet.Session, registry *contracts.Registry, cfg *config.GatewayConfig, logger *logging.Logger, opts ...Option) *Service {
	opts = append([]Option{WithSettleDelay(cfg.Chain.SwitchSettle)}, opts...)
	return NewService(session, registry, cfg.Chain.ChainID, logger, opts...)
}

// Submit validates preconditions in order, encodes the call and sends it.
// Every failure comes back as a *TxError; no raw provider error escapes.
func (s *Service) Submit(ctx context.Context, req Request) (string, *TxError) {
	if txErr := s.checkPreconditions(ctx); txErr != nil {
		s.count(req.Function, string(txErr.Category))
		return "", txErr
	}

	contractABI := req.ABI
	if contractABI == nil {
		contractABI = &s.registry.EventABI
	}

	data, err := contractABI.Pack(req.Function, req.Args...)
	if err != nil {
		txErr := &TxError{
			Category: CategoryUnknown,
			Message:  fmt.Sprintf("Could not encode the %s call.", req.Function),
			Err:      err,
		}
		s.count(req.Function, string(txErr.Category))
		return "", txErr
	}

	to := s.registry.EventAddr
	if req.Contract != nil {
		to = *req.Contract
	}

	hash, err := s.session.Send(ctx, wallet.TxRequest{
		To:    to.Hex(),
		Data:  data,
		Value: req.Value,
	})
	if err != nil {
		txErr := Classify(err)
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"function": req.Function,
			"category": txErr.Category,
		}).Warn("transaction submission failed")
		s.count(req.Function, string(txErr.Category))
		return "", txErr
	}

	s.logger.WithFields(map[string]interface{}{
		"function": req.Function,
		"tx_hash":  hash,
	}).Info("transaction submitted")
	s.count(req.Function, "ok")
	return hash, nil
}

// checkPreconditions enforces the ready -> connected -> chain order, each
// producing its own user-facing failure
func (s *Service) checkPreconditions(ctx context.Context) *TxError {
	if !s.session.IsReady() {
		return &TxError{
			Category: CategoryNotReady,
			Message:  "Wallet is still loading. Please try again in a moment.",
		}
	}
	if !s.session.IsConnected() {
		return &TxError{
			Category: CategoryNotConnected,
			Message:  "Please connect your wallet first.",
		}
	}

	if s.session.ChainID() == s.expectedChainID {
		return nil
	}

	// One automatic switch attempt, then re-check after a settle delay.
	// Submitting on the wrong chain is never acceptable.
	if err := s.session.SwitchNetwork(ctx, s.expectedChainID); err != nil {
		return &TxError{
			Category: CategoryWrongNetwork,
			Message:  fmt.Sprintf("Please switch your wallet to chain %d.", s.expectedChainID),
			Err:      fmt.Errorf("%w: %v", domain.ErrWrongNetwork, err),
		}
	}

	select {
	case <-ctx.Done():
		return &TxError{
			Category: CategoryUnknown,
			Message:  "Submission cancelled.",
			Err:      ctx.Err(),
		}
	case <-time.After(s.settleDelay):
	}

	chainID, err := s.session.RefreshChainID(ctx)
	if err != nil || chainID != s.expectedChainID {
		cause := error(domain.ErrWrongNetwork)
		if err != nil {
			cause = fmt.Errorf("%w: %v", domain.ErrWrongNetwork, err)
		}
		return &TxError{
			Category: CategoryWrongNetwork,
			Message:  fmt.Sprintf("Wrong network. Please switch your wallet to chain %d.", s.expectedChainID),
			Err:      cause,
		}
	}
	return nil
}

func (s *Service) count(function, outcome string) {
	if s.metrics != nil {
		s.metrics.TxSubmissionsTotal.WithLabelValues(function, outcome).Inc()
	}
}
