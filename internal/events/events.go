// Package events provides the typed in-process publish/subscribe bus the
// gateway's components use to notify each other and the host: settings
// changes, daemon availability flips, new blocks, and payment activity. The
// bus is injected explicitly into every component that publishes or
// subscribes; there is no ambient global instance.
package events

// Kind discriminates event types on the bus.
type Kind string

const (
	KindSettingsChanged    Kind = "settings-changed"
	KindDaemonStateChanged Kind = "daemon-state-changed"
	KindNewBlock           Kind = "new-block"
	KindInvoiceNeedUpdate  Kind = "invoice-need-update"
	KindPaymentReceived    Kind = "payment-received"
)

// Event is implemented by every message published on the bus.
type Event interface {
	Kind() Kind
}

// SettingsChanged signals that server-level configuration was updated and
// dependent snapshots (config, RPC clients) must be rebuilt.
type SettingsChanged struct{}

func (SettingsChanged) Kind() Kind { return KindSettingsChanged }

// DaemonSummary is the node health snapshot carried by DaemonStateChanged,
// so subscribers need no dependency on the package producing it.
type DaemonSummary struct {
	ChainName        string
	RPCAvailable     bool
	Synced           bool
	Syncing          bool
	HighestBlock     int64
	CurrentBlock     int64
	LastScannedBlock int64
}

// DaemonStateChanged fires when a pair's overall availability (synced and
// RPC reachable) flips.
type DaemonStateChanged struct {
	ConfigKey string
	Available bool
	Summary   DaemonSummary
}

func (DaemonStateChanged) Kind() Kind { return KindDaemonStateChanged }

// NewBlock fires after the indexer commits its cursor past a block.
type NewBlock struct {
	ConfigKey string
	Height    int64
}

func (NewBlock) Kind() Kind { return KindNewBlock }

// InvoiceNeedUpdate asks the invoice lifecycle layer to recompute the given
// invoice's state.
type InvoiceNeedUpdate struct {
	InvoiceID string
}

func (InvoiceNeedUpdate) Kind() Kind { return KindInvoiceNeedUpdate }

// PaymentReceived fires exactly once per newly recorded payment.
type PaymentReceived struct {
	InvoiceID string
	PaymentID string
}

func (PaymentReceived) Kind() Kind { return KindPaymentReceived }
