package domain

var (
	ErrNotConnected     = Error("wallet_not_connected")
	ErrNotReady         = Error("wallet_not_ready")
	ErrWrongNetwork     = Error("wrong_network")
	ErrAccountNotLinked = Error("account_not_linked")
	ErrSwitchRejected   = Error("network_switch_rejected")
	ErrInvalidSignature = Error("invalid_signature")
	ErrRPCUnreachable   = Error("rpc_unreachable")
)

type Error string

func (e Error) Error() string { return string(e) }
