// Package evm provides a typed client for Ethereum-compatible JSON-RPC nodes.
// Both Ethereum and Tron expose this API surface, so one client serves every
// supported chain. Failure classes from the underlying JSON-RPC transport are
// preserved so callers can pick a backoff policy per class.
package evm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/usdtgate/usdtgate/internal/pkg/transport/jsonrpc"
	"github.com/usdtgate/usdtgate/internal/pkg/types"
)

// transferEventTopic is keccak256("Transfer(address,address,uint256)"), the
// first topic of every ERC20/TRC20 transfer log.
const transferEventTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

// ErrBlockNotFound indicates the requested block is not yet present on the
// node, which is expected while waiting at the chain tip.
var ErrBlockNotFound = errors.New("block not found")

type (
	// Transaction is the subset of a raw transaction the gateway inspects.
	Transaction struct {
		Hash string `json:"hash"`
		From string `json:"from"`
		To   string `json:"to"`
	}

	// Block is a block with its full transaction objects.
	Block struct {
		Number       types.Hex     `json:"number"`
		Hash         string        `json:"hash"`
		Timestamp    types.Hex     `json:"timestamp"`
		Transactions []Transaction `json:"transactions"`
	}

	// SyncStatus reports whether the node is still importing blocks and, if
	// so, how far along it is.
	SyncStatus struct {
		Syncing      bool
		CurrentBlock int64
		HighestBlock int64
	}

	// Transfer is one decoded token transfer log entry.
	Transfer struct {
		From     string   // canonical 0x sender address
		To       string   // canonical 0x recipient address
		Value    *big.Int // raw token amount in base units
		TxHash   string
		LogIndex int64
	}
)

// Client issues typed calls against one JSON-RPC endpoint.
type Client struct {
	conn jsonrpc.Client
}

// NewClient wraps the given JSON-RPC connection.
func NewClient(conn jsonrpc.Client) *Client {
	return &Client{conn: conn}
}

// BlockNumber returns the latest block height known to the node.
func (c *Client) BlockNumber(ctx context.Context) (int64, error) {
	data, err := c.conn.Fetch(ctx, "eth_blockNumber")
	if err != nil {
		return 0, err
	}

	var height types.Hex
	if err := json.Unmarshal(data, &height); err != nil {
		return 0, err
	}

	return height.Int(), nil
}

// GetBlockByNumber retrieves the block at the given height with full
// transaction objects. A null result maps to ErrBlockNotFound.
func (c *Client) GetBlockByNumber(ctx context.Context, height int64) (Block, error) {
	data, err := c.conn.Fetch(ctx, "eth_getBlockByNumber", types.HexFromInt(height), true)
	if err != nil {
		if errors.Is(err, jsonrpc.ErrNullResult) {
			return Block{}, fmt.Errorf("%w: height %d", ErrBlockNotFound, height)
		}
		return Block{}, err
	}

	var block Block
	return block, json.Unmarshal(data, &block)
}

// Syncing reports the node's sync progress. A node that finished syncing
// answers with the JSON literal false.
func (c *Client) Syncing(ctx context.Context) (SyncStatus, error) {
	data, err := c.conn.Fetch(ctx, "eth_syncing")
	if err != nil {
		return SyncStatus{}, err
	}

	var syncing bool
	if err := json.Unmarshal(data, &syncing); err == nil {
		return SyncStatus{Syncing: syncing}, nil
	}

	var progress struct {
		CurrentBlock types.Hex `json:"currentBlock"`
		HighestBlock types.Hex `json:"highestBlock"`
	}
	if err := json.Unmarshal(data, &progress); err != nil {
		return SyncStatus{}, err
	}

	return SyncStatus{
		Syncing:      true,
		CurrentBlock: progress.CurrentBlock.Int(),
		HighestBlock: progress.HighestBlock.Int(),
	}, nil
}

// logEntry is a raw eth_getLogs entry.
type logEntry struct {
	Removed         bool      `json:"removed"`
	LogIndex        types.Hex `json:"logIndex"`
	TransactionHash string    `json:"transactionHash"`
	Topics          []string  `json:"topics"`
	Data            string    `json:"data"`
}

// TransferLogs fetches the token transfer logs emitted by contract in the
// given block, restricted to the provided recipient addresses (canonical 0x
// form). Logs flagged as removed by a reorg are skipped. An empty result is
// returned as an empty slice, not an error.
func (c *Client) TransferLogs(ctx context.Context, height int64, contract string, recipients []string) ([]Transfer, error) {
	toTopics := make([]string, len(recipients))
	for i, addr := range recipients {
		toTopics[i] = addressTopic(addr)
	}

	params := map[string]any{
		"fromBlock": types.HexFromInt(height),
		"toBlock":   types.HexFromInt(height),
		"address":   contract,
		"topics":    []any{transferEventTopic, nil, toTopics},
	}

	data, err := c.conn.Fetch(ctx, "eth_getLogs", params)
	if err != nil {
		if errors.Is(err, jsonrpc.ErrNullResult) {
			return []Transfer{}, nil
		}
		return nil, err
	}

	var entries []logEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	transfers := make([]Transfer, 0, len(entries))
	for _, entry := range entries {
		if entry.Removed || len(entry.Topics) < 3 {
			continue
		}

		value, err := parseQuantity(entry.Data)
		if err != nil {
			return nil, fmt.Errorf("malformed transfer amount %q: %w", entry.Data, err)
		}

		transfers = append(transfers, Transfer{
			From:     topicAddress(entry.Topics[1]),
			To:       topicAddress(entry.Topics[2]),
			Value:    value,
			TxHash:   entry.TransactionHash,
			LogIndex: entry.LogIndex.Int(),
		})
	}

	return transfers, nil
}

// balanceOfSelector is the first four bytes of keccak256("balanceOf(address)").
const balanceOfSelector = "0x70a08231"

// BalanceOf returns the token balance of holder (canonical 0x form) on the
// given contract, in base units.
func (c *Client) BalanceOf(ctx context.Context, contract, holder string) (*big.Int, error) {
	call := map[string]any{
		"to":   contract,
		"data": balanceOfSelector + strings.Repeat("0", 24) + strings.TrimPrefix(strings.ToLower(holder), "0x"),
	}

	data, err := c.conn.Fetch(ctx, "eth_call", call, "latest")
	if err != nil {
		return nil, err
	}

	var result string
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return parseQuantity(result)
}

// addressTopic pads a canonical 0x address to the 32-byte topic form.
func addressTopic(addr string) string {
	return "0x" + strings.Repeat("0", 24) + strings.TrimPrefix(strings.ToLower(addr), "0x")
}

// topicAddress extracts the canonical 0x address from a 32-byte topic.
func topicAddress(topic string) string {
	hex := strings.TrimPrefix(strings.ToLower(topic), "0x")
	if len(hex) > 40 {
		hex = hex[len(hex)-40:]
	}
	return "0x" + hex
}

// parseQuantity decodes a 0x-prefixed hexadecimal quantity of arbitrary
// width. An empty or all-zero payload decodes to zero.
func parseQuantity(s string) (*big.Int, error) {
	hex := strings.TrimPrefix(strings.ToLower(s), "0x")
	if hex == "" {
		return big.NewInt(0), nil
	}

	value, ok := new(big.Int).SetString(hex, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hexadecimal quantity %q", s)
	}

	return value, nil
}
