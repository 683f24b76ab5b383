package txsubmit

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	siwe "github.com/spruceid/siwe-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paxr/paxr-gateway/internal/contracts"
	"github.com/paxr/paxr-gateway/internal/domain"
	"github.com/paxr/paxr-gateway/internal/wallet"
	"github.com/paxr/paxr-gateway/shared/config"
	"github.com/paxr/paxr-gateway/shared/logging"
)

const expectedChain = int64(421614)

type stubAuth struct {
	result *wallet.LoginResult
}

func (s *stubAuth) Login(ctx context.Context) (*wallet.LoginResult, error) { return s.result, nil }
func (s *stubAuth) Logout(ctx context.Context) error                      { return nil }

type stubWallet struct {
	chainID       int64
	switchErr     error
	switchCalls   int
	switchedTo    int64
	sendErr       error
	hash          string
	sent          []wallet.TxRequest
	chainAfterSwp int64 // chain id reported after a successful switch
}

func (s *stubWallet) ChainID(ctx context.Context) (int64, error) { return s.chainID, nil }

func (s *stubWallet) SwitchChain(ctx context.Context, chainID int64) error {
	s.switchCalls++
	s.switchedTo = chainID
	if s.switchErr != nil {
		return s.switchErr
	}
	if s.chainAfterSwp != 0 {
		s.chainID = s.chainAfterSwp
	} else {
		s.chainID = chainID
	}
	return nil
}

func (s *stubWallet) SendTransaction(ctx context.Context, from domain.Address, tx wallet.TxRequest) (string, error) {
	s.sent = append(s.sent, tx)
	if s.sendErr != nil {
		return "", s.sendErr
	}
	return s.hash, nil
}

func (s *stubWallet) Disconnect(ctx context.Context) error { return nil }

func testLogger() *logging.Logger {
	return logging.NewLogger(&logging.Config{Level: logging.LevelError, Service: "test", Output: bytes.NewBuffer(nil)})
}

func testRegistry(t *testing.T) *contracts.Registry {
	t.Helper()
	registry, err := contracts.NewRegistry(config.DefaultEventAddr, config.DefaultTicketAddr, config.DefaultMarketAddr)
	require.NoError(t, err)
	return registry
}

func signedLogin(t *testing.T, key *ecdsa.PrivateKey) *wallet.LoginResult {
	t.Helper()

	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	msg, err := siwe.InitMessage("paxr.io", address, "https://paxr.io", siwe.GenerateNonce(), map[string]interface{}{
		"chainId": int(expectedChain),
	})
	require.NoError(t, err)

	message := msg.String()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[64] += 27

	return &wallet.LoginResult{Address: address, Message: message, Signature: hexutil.Encode(sig)}
}

// connectedSession builds a connected session whose wallet reports chainID
func connectedSession(t *testing.T, w *stubWallet) *wallet.Session {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	session := wallet.NewSession(&stubAuth{result: signedLogin(t, key)}, w, testLogger())
	require.NoError(t, session.Connect(context.Background()))
	return session
}

func newService(t *testing.T, w *stubWallet, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithSettleDelay(time.Millisecond)}, opts...)
	return NewService(connectedSession(t, w), testRegistry(t), expectedChain, testLogger(), opts...)
}

func TestSubmitReturnsHashImmediately(t *testing.T) {
	w := &stubWallet{chainID: expectedChain, hash: "0xdeadbeef"}
	service := newService(t, w)

	hash, txErr := service.Submit(context.Background(), Request{
		Function: "purchaseTicket",
		Args:     []interface{}{big.NewInt(1), big.NewInt(2)},
		Value:    big.NewInt(100),
	})
	require.Nil(t, txErr)
	assert.Equal(t, "0xdeadbeef", hash)
	require.Len(t, w.sent, 1)
	assert.Equal(t, big.NewInt(100), w.sent[0].Value)
	// calldata carries the purchaseTicket selector
	registry := testRegistry(t)
	assert.Equal(t, registry.EventABI.Methods["purchaseTicket"].ID, w.sent[0].Data[:4])
	assert.Equal(t, strings.ToLower(registry.EventAddr.Hex()), strings.ToLower(w.sent[0].To))
	assert.Zero(t, w.switchCalls)
}

func TestSubmitNotReady(t *testing.T) {
	session := wallet.NewSession(nil, nil, testLogger())
	service := NewService(session, testRegistry(t), expectedChain, testLogger())

	_, txErr := service.Submit(context.Background(), Request{Function: "purchaseTicket", Args: []interface{}{big.NewInt(1), big.NewInt(1)}})
	require.NotNil(t, txErr)
	assert.Equal(t, CategoryNotReady, txErr.Category)
}

func TestSubmitNotConnected(t *testing.T) {
	session := wallet.NewSession(&stubAuth{}, &stubWallet{}, testLogger())
	service := NewService(session, testRegistry(t), expectedChain, testLogger())

	_, txErr := service.Submit(context.Background(), Request{Function: "purchaseTicket", Args: []interface{}{big.NewInt(1), big.NewInt(1)}})
	require.NotNil(t, txErr)
	assert.Equal(t, CategoryNotConnected, txErr.Category)
}

func TestSubmitSwitchesNetworkOnce(t *testing.T) {
	w := &stubWallet{chainID: 1, hash: "0xabc"}
	service := newService(t, w)

	hash, txErr := service.Submit(context.Background(), Request{
		Function: "purchaseTicket",
		Args:     []interface{}{big.NewInt(1), big.NewInt(1)},
	})
	require.Nil(t, txErr)
	assert.Equal(t, "0xabc", hash)
	assert.Equal(t, 1, w.switchCalls)
	assert.Equal(t, expectedChain, w.switchedTo)
}

func TestSubmitSwitchRejected(t *testing.T) {
	w := &stubWallet{chainID: 1, switchErr: errors.New("user rejected the request")}
	service := newService(t, w)

	_, txErr := service.Submit(context.Background(), Request{
		Function: "purchaseTicket",
		Args:     []interface{}{big.NewInt(1), big.NewInt(1)},
	})
	require.NotNil(t, txErr)
	assert.Equal(t, CategoryWrongNetwork, txErr.Category)
	assert.ErrorIs(t, txErr, domain.ErrWrongNetwork)
	assert.Equal(t, 1, w.switchCalls)
	assert.Empty(t, w.sent)
}

func TestSubmitAbortsWhenChainStillWrong(t *testing.T) {
	// the wallet accepts the switch but stays on the wrong chain
	w := &stubWallet{chainID: 1, chainAfterSwp: 1}
	service := newService(t, w)

	_, txErr := service.Submit(context.Background(), Request{
		Function: "purchaseTicket",
		Args:     []interface{}{big.NewInt(1), big.NewInt(1)},
	})
	require.NotNil(t, txErr)
	assert.Equal(t, CategoryWrongNetwork, txErr.Category)
	assert.ErrorIs(t, txErr, domain.ErrWrongNetwork)
	assert.Equal(t, 1, w.switchCalls)
	assert.Empty(t, w.sent)
}

func TestNewServiceFromConfig(t *testing.T) {
	cfg := &config.GatewayConfig{
		Chain: config.ChainConfig{
			ChainID:      config.DefaultChainID,
			SwitchSettle: 42 * time.Millisecond,
		},
	}
	w := &stubWallet{chainID: config.DefaultChainID}
	service := NewServiceFromConfig(connectedSession(t, w), testRegistry(t), cfg, testLogger())

	assert.Equal(t, int64(config.DefaultChainID), service.expectedChainID)
	assert.Equal(t, 42*time.Millisecond, service.settleDelay)
}

func TestSubmitClassifiesSendFailure(t *testing.T) {
	w := &stubWallet{chainID: expectedChain, sendErr: errors.New("execution reverted: sold out")}
	service := newService(t, w)

	_, txErr := service.Submit(context.Background(), Request{
		Function: "purchaseTicket",
		Args:     []interface{}{big.NewInt(1), big.NewInt(1)},
	})
	require.NotNil(t, txErr)
	assert.Equal(t, CategoryReverted, txErr.Category)
	assert.Equal(t, "This event is sold out.", txErr.Message)
}

func TestSubmitBadArgsEncodeFailure(t *testing.T) {
	w := &stubWallet{chainID: expectedChain}
	service := newService(t, w)

	_, txErr := service.Submit(context.Background(), Request{
		Function: "purchaseTicket",
		Args:     []interface{}{"not a number"},
	})
	require.NotNil(t, txErr)
	assert.Equal(t, CategoryUnknown, txErr.Category)
	assert.Empty(t, w.sent)
}

func TestPurchaseTicketNativeValue(t *testing.T) {
	w := &stubWallet{chainID: expectedChain, hash: "0x1"}
	service := newService(t, w)

	price := big.NewInt(50000000000000000) // 0.05 ETH
	_, txErr := service.PurchaseTicket(context.Background(), 7, 2, price, domain.ZeroAddress)
	require.Nil(t, txErr)

	require.Len(t, w.sent, 1)
	assert.Equal(t, big.NewInt(100000000000000000), w.sent[0].Value)
}

func TestPurchaseTicketERC20NoValue(t *testing.T) {
	w := &stubWallet{chainID: expectedChain, hash: "0x1"}
	service := newService(t, w)

	_, txErr := service.PurchaseTicket(context.Background(), 7, 2,
		big.NewInt(50000000000000000), "0x6666666666666666666666666666666666666666")
	require.Nil(t, txErr)

	require.Len(t, w.sent, 1)
	assert.Nil(t, w.sent[0].Value)
}

func TestCreateEventDefaultsOptionalAmounts(t *testing.T) {
	w := &stubWallet{chainID: expectedChain, hash: "0x1"}
	service := newService(t, w)

	_, txErr := service.CreateEvent(context.Background(), CreateEventParams{
		Name:          "GopherCon",
		Description:   "Go conference",
		ImageURI:      "ipfs://QmImage",
		Location:      "Berlin",
		TicketPrice:   big.NewInt(50000000000000000),
		TotalTickets:  500,
		EventDate:     1767225600,
		SaleStartTime: 1764633600,
		SaleEndTime:   1767139200,
		PaymentToken:  domain.ZeroAddress,
	})
	require.Nil(t, txErr)
	require.Len(t, w.sent, 1)
	registry := testRegistry(t)
	assert.Equal(t, registry.EventABI.Methods["createEvent"].ID, w.sent[0].Data[:4])
}

func TestListAndBuyTicketTargetMarketplace(t *testing.T) {
	w := &stubWallet{chainID: expectedChain, hash: "0x1"}
	service := newService(t, w)
	registry := testRegistry(t)

	_, txErr := service.ListTicket(context.Background(), 12, big.NewInt(60000000000000000))
	require.Nil(t, txErr)

	price := big.NewInt(60000000000000000)
	_, txErr = service.BuyTicket(context.Background(), 12, price)
	require.Nil(t, txErr)

	require.Len(t, w.sent, 2)
	assert.Equal(t, strings.ToLower(registry.MarketplaceAddr.Hex()), strings.ToLower(w.sent[0].To))
	assert.Nil(t, w.sent[0].Value)
	assert.Equal(t, price, w.sent[1].Value)
}

func TestTransferTicketTargetsTicketContract(t *testing.T) {
	w := &stubWallet{chainID: expectedChain, hash: "0x1"}
	service := newService(t, w)
	registry := testRegistry(t)

	_, txErr := service.TransferTicket(context.Background(),
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222", 12)
	require.Nil(t, txErr)

	require.Len(t, w.sent, 1)
	assert.Equal(t, strings.ToLower(registry.TicketAddr.Hex()), strings.ToLower(w.sent[0].To))
	assert.Equal(t, registry.TicketABI.Methods["safeTransferFrom"].ID, w.sent[0].Data[:4])
}
