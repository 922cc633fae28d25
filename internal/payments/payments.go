// Package payments holds the payment-side domain types shared by the indexer
// and the storage adapters: settlement policy, payment records, and amount
// conversion from on-chain base units.
package payments

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SpeedPolicy determines how many confirmations an invoice requires before a
// payment counts as settled.
type SpeedPolicy string

const (
	HighSpeed      SpeedPolicy = "HighSpeed"
	MediumSpeed    SpeedPolicy = "MediumSpeed"
	LowMediumSpeed SpeedPolicy = "LowMediumSpeed"
	LowSpeed       SpeedPolicy = "LowSpeed"
)

// Status is the settlement state of a payment. Transitions are monotonic:
// once Settled, a payment never returns to Processing.
type Status string

const (
	StatusProcessing Status = "Processing"
	StatusSettled    Status = "Settled"
)

// Confirmed reports whether confirmationCount satisfies the policy's
// settlement threshold. Unrecognized policies never settle automatically.
func Confirmed(confirmationCount int64, policy SpeedPolicy) bool {
	switch policy {
	case HighSpeed:
		return confirmationCount >= 2
	case MediumSpeed:
		return confirmationCount >= 6
	case LowMediumSpeed:
		return confirmationCount >= 12
	case LowSpeed:
		return confirmationCount >= 20
	default:
		return false
	}
}

// StatusFor maps a confirmation count and speed policy to a payment status.
func StatusFor(confirmationCount int64, policy SpeedPolicy) Status {
	if Confirmed(confirmationCount, policy) {
		return StatusSettled
	}
	return StatusProcessing
}

// Details is the chain-specific blob embedded in a payment record.
type Details struct {
	From              string `json:"from"`
	To                string `json:"to"`
	TransactionID     string `json:"transactionId"`
	ConfirmationCount int64  `json:"confirmationCount"`
	BlockHeight       int64  `json:"blockHeight"`
}

// Payment is one observed token transfer credited to an invoice. ID is
// deterministic per transfer, making insertion idempotent.
type Payment struct {
	ID        string          `json:"id"`
	InvoiceID string          `json:"invoiceId"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	Details   Details         `json:"details"`
}

// PaymentID builds the deterministic `{txhash}-{logindex}` key for a
// transfer, with the 0x prefix stripped from the hash.
func PaymentID(txHash string, logIndex int64) string {
	return fmt.Sprintf("%s-%d", strings.TrimPrefix(strings.ToLower(txHash), "0x"), logIndex)
}

// AmountFromBaseUnits converts a raw token amount into its decimal value
// using the token's divisibility (e.g., 1500000 at divisibility 6 -> 1.5).
func AmountFromBaseUnits(raw *big.Int, divisibility int32) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -divisibility)
}
