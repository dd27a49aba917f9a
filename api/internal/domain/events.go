package domain

import (
	"context"
	"encoding/json"
	"mashub/pkg/utils"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EVENT_TOKEN_MINTED          EventType = "token_minted"
	EVENT_KYC_COMPLETED         EventType = "kyc_completed"
	EVENT_TRANSACTION_CONFIRMED EventType = "transaction_confirmed"
	EVENT_WALLET_CREATED        EventType = "wallet_created"
)

// Envelope is the body of an inbound MasChain webhook.
type Envelope struct {
	EventType       string          `json:"event_type" validate:"required"`
	TransactionHash string          `json:"transaction_hash,omitempty"`
	Timestamp       FlexString      `json:"timestamp,omitempty"`
	Data            json.RawMessage `json:"data,omitempty"`
}

// DataJSON returns the data object as stored on the webhook log, "{}" when absent.
func (e *Envelope) DataJSON() string {
	if utils.IsNull(e.Data) {
		return "{}"
	}
	return string(e.Data)
}

func (e *Envelope) TxHashPtr() *string {
	if e.TransactionHash == "" {
		return nil
	}
	h := e.TransactionHash
	return &h
}

// EventHandlers has one method per known event kind plus Unknown. A new
// event kind is added here first, so every handler set stops compiling
// until it handles it.
type EventHandlers interface {
	TokenMinted(ctx context.Context, e TokenMinted) bool
	KYCCompleted(ctx context.Context, e KYCCompleted) bool
	TransactionConfirmed(ctx context.Context, e TransactionConfirmed) bool
	WalletCreated(ctx context.Context, e WalletCreated) bool
	Unknown(ctx context.Context, e UnknownEvent) bool
}

type Event interface {
	Type() string
	Dispatch(ctx context.Context, h EventHandlers) bool
}

type TokenMinted struct {
	TxHash string
}

func (e TokenMinted) Type() string { return string(EVENT_TOKEN_MINTED) }
func (e TokenMinted) Dispatch(ctx context.Context, h EventHandlers) bool {
	return h.TokenMinted(ctx, e)
}

type KYCCompleted struct {
	WalletAddress string          `json:"wallet_address"`
	RiskScore     decimal.Decimal `json:"risk_score"`
	Verified      bool            `json:"verified"`

	DecodeErr error `json:"-"`
}

func (e KYCCompleted) Type() string { return string(EVENT_KYC_COMPLETED) }
func (e KYCCompleted) Dispatch(ctx context.Context, h EventHandlers) bool {
	return h.KYCCompleted(ctx, e)
}

type TransactionConfirmed struct {
	TxHash      string    `json:"-"`
	BlockNumber *Quantity `json:"block_number"`
	GasUsed     *Quantity `json:"gas_used"`

	DecodeErr error `json:"-"`
}

func (e TransactionConfirmed) Type() string { return string(EVENT_TRANSACTION_CONFIRMED) }
func (e TransactionConfirmed) Dispatch(ctx context.Context, h EventHandlers) bool {
	return h.TransactionConfirmed(ctx, e)
}

type WalletCreated struct {
	UserID        FlexString `json:"user_id"`
	WalletAddress string     `json:"wallet_address"`
	WalletType    string     `json:"wallet_type"`

	DecodeErr error `json:"-"`
}

func (e WalletCreated) Type() string { return string(EVENT_WALLET_CREATED) }
func (e WalletCreated) Dispatch(ctx context.Context, h EventHandlers) bool {
	return h.WalletCreated(ctx, e)
}

type UnknownEvent struct {
	EventType string
}

func (e UnknownEvent) Type() string { return e.EventType }
func (e UnknownEvent) Dispatch(ctx context.Context, h EventHandlers) bool {
	return h.Unknown(ctx, e)
}

// Event decodes the envelope into its typed variant. A data object that
// does not decode yields the zero event with DecodeErr set, which handlers
// treat as missing correlation fields.
func (e *Envelope) Event() Event {
	switch EventType(e.EventType) {
	case EVENT_TOKEN_MINTED:
		return TokenMinted{TxHash: e.TransactionHash}

	case EVENT_KYC_COMPLETED:
		var ev KYCCompleted
		if err := e.decodeData(&ev); err != nil {
			return KYCCompleted{DecodeErr: err}
		}
		return ev

	case EVENT_TRANSACTION_CONFIRMED:
		var ev TransactionConfirmed
		if err := e.decodeData(&ev); err != nil {
			return TransactionConfirmed{TxHash: e.TransactionHash, DecodeErr: err}
		}
		ev.TxHash = e.TransactionHash
		return ev

	case EVENT_WALLET_CREATED:
		var ev WalletCreated
		if err := e.decodeData(&ev); err != nil {
			return WalletCreated{DecodeErr: err}
		}
		return ev

	default:
		return UnknownEvent{EventType: e.EventType}
	}
}

func (e *Envelope) decodeData(v any) error {
	if utils.IsNull(e.Data) {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}
