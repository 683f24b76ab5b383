package txsubmit

import (
	"fmt"
	"strings"
)

// Category buckets a submission failure into a user-actionable kind
type Category string

const (
	CategoryNotReady          Category = "wallet_not_ready"
	CategoryNotConnected      Category = "wallet_not_connected"
	CategoryWrongNetwork      Category = "wrong_network"
	CategoryRejected          Category = "user_rejected"
	CategoryInsufficientFunds Category = "insufficient_funds"
	CategoryReverted          Category = "contract_reverted"
	CategoryUnknown           Category = "unknown"
)

// TxError is a classified submission failure with a user-facing message
type TxError struct {
	Category Category
	Message  string
	Err      error
}

func (e *TxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *TxError) Unwrap() error { return e.Err }

// knownReverts maps contract revert reasons to human explanations
var knownReverts = map[string]string{
	"sale not started":     "Ticket sales for this event have not started yet.",
	"sale ended":           "Ticket sales for this event have ended.",
	"sold out":             "This event is sold out.",
	"insufficient payment": "The payment amount does not cover the ticket price.",
	"event not active":     "This event is not active.",
	"resale not enabled":   "The organizer has disabled resale for this event.",
	"price exceeds max":    "The asking price exceeds the resale price cap.",
	"not ticket owner":     "Only the ticket owner can do that.",
	"ticket already used":  "This ticket has already been used.",
	"listing not active":   "This listing is no longer active.",
}

// Classify maps a provider failure to a TxError. No provider error passes
// through unclassified; anything unrecognized still reaches the user.
func Classify(err error) *TxError {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "user rejected") ||
		strings.Contains(msg, "user denied") ||
		strings.Contains(msg, "rejected the request"):
		return &TxError{
			Category: CategoryRejected,
			Message:  "Transaction was rejected in the wallet.",
			Err:      err,
		}
	case strings.Contains(msg, "insufficient funds"):
		return &TxError{
			Category: CategoryInsufficientFunds,
			Message:  "Insufficient funds to cover the transaction.",
			Err:      err,
		}
	}

	if reason, ok := revertReason(msg); ok {
		if explanation, known := knownReverts[reason]; known {
			return &TxError{
				Category: CategoryReverted,
				Message:  explanation,
				Err:      err,
			}
		}
		return &TxError{
			Category: CategoryReverted,
			Message:  fmt.Sprintf("The contract rejected the transaction: %s", reason),
			Err:      err,
		}
	}

	return &TxError{
		Category: CategoryUnknown,
		Message:  fmt.Sprintf("Transaction failed: %v", err),
		Err:      err,
	}
}

// revertReason pulls the reason string out of an "execution reverted" error
func revertReason(msg string) (string, bool) {
	for _, marker := range []string{"execution reverted:", "execution reverted", "revert:"} {
		idx := strings.Index(msg, marker)
		if idx < 0 {
			continue
		}
		reason := strings.TrimSpace(msg[idx+len(marker):])
		reason = strings.Trim(reason, `"'`)
		return reason, true
	}
	return "", false
}
