package evm

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/usdtgate/usdtgate/internal/pkg/transport/jsonrpc"
	"github.com/usdtgate/usdtgate/internal/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn implements jsonrpc.Client with a canned response per method.
type fakeConn struct {
	responses map[string]json.RawMessage
	errs      map[string]error
	calls     []fakeCall
}

type fakeCall struct {
	method string
	params []any
}

func (f *fakeConn) Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	f.calls = append(f.calls, fakeCall{method: method, params: params})
	if err := f.errs[method]; err != nil {
		return nil, err
	}
	return f.responses[method], nil
}

func TestBlockNumber(t *testing.T) {
	conn := &fakeConn{responses: map[string]json.RawMessage{
		"eth_blockNumber": json.RawMessage(`"0x4b7"`),
	}}

	height, err := NewClient(conn).BlockNumber(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(1207), height)
}

func TestGetBlockByNumber(t *testing.T) {
	t.Run("decodes the block with full transactions", func(t *testing.T) {
		conn := &fakeConn{responses: map[string]json.RawMessage{
			"eth_getBlockByNumber": json.RawMessage(`{
				"number": "0x10",
				"hash": "0xblockhash",
				"timestamp": "0x64",
				"transactions": [
					{"hash": "0xaaa", "from": "0x1", "to": "0x2"}
				]
			}`),
		}}

		block, err := NewClient(conn).GetBlockByNumber(t.Context(), 16)
		require.NoError(t, err)

		assert.Equal(t, int64(16), block.Number.Int())
		require.Len(t, block.Transactions, 1)
		assert.Equal(t, "0xaaa", block.Transactions[0].Hash)

		require.Len(t, conn.calls, 1)
		assert.Equal(t, []any{types.HexFromInt(16), true}, conn.calls[0].params)
	})

	t.Run("maps a null result to ErrBlockNotFound", func(t *testing.T) {
		conn := &fakeConn{errs: map[string]error{
			"eth_getBlockByNumber": jsonrpc.ErrNullResult,
		}}

		_, err := NewClient(conn).GetBlockByNumber(t.Context(), 99)
		assert.ErrorIs(t, err, ErrBlockNotFound)
	})

	t.Run("passes through other transport errors", func(t *testing.T) {
		conn := &fakeConn{errs: map[string]error{
			"eth_getBlockByNumber": jsonrpc.ErrRateLimited,
		}}

		_, err := NewClient(conn).GetBlockByNumber(t.Context(), 99)
		assert.ErrorIs(t, err, jsonrpc.ErrRateLimited)
	})
}

func TestSyncing(t *testing.T) {
	t.Run("false means fully synced", func(t *testing.T) {
		conn := &fakeConn{responses: map[string]json.RawMessage{
			"eth_syncing": json.RawMessage(`false`),
		}}

		status, err := NewClient(conn).Syncing(t.Context())
		require.NoError(t, err)
		assert.False(t, status.Syncing)
	})

	t.Run("progress object means still importing", func(t *testing.T) {
		conn := &fakeConn{responses: map[string]json.RawMessage{
			"eth_syncing": json.RawMessage(`{"currentBlock": "0x64", "highestBlock": "0xc8"}`),
		}}

		status, err := NewClient(conn).Syncing(t.Context())
		require.NoError(t, err)
		assert.True(t, status.Syncing)
		assert.Equal(t, int64(100), status.CurrentBlock)
		assert.Equal(t, int64(200), status.HighestBlock)
	})
}

func TestTransferLogs(t *testing.T) {
	t.Run("decodes transfer entries", func(t *testing.T) {
		conn := &fakeConn{responses: map[string]json.RawMessage{
			"eth_getLogs": json.RawMessage(`[
				{
					"removed": false,
					"logIndex": "0x2",
					"transactionHash": "0xdeadbeef",
					"topics": [
						"0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
						"0x00000000000000000000000042a1e39aefa49290f2b3f9ed688d7cecf86cd6e0",
						"0x000000000000000000000000a614f803b6fd780986a42c78ec9c7f77e6ded13c"
					],
					"data": "0x000000000000000000000000000000000000000000000000000000000016e360"
				}
			]`),
		}}

		transfers, err := NewClient(conn).TransferLogs(t.Context(), 100, "0xcontract", []string{"0xA614F803B6FD780986A42C78EC9C7F77E6DED13C"})
		require.NoError(t, err)
		require.Len(t, transfers, 1)

		got := transfers[0]
		assert.Equal(t, "0x42a1e39aefa49290f2b3f9ed688d7cecf86cd6e0", got.From)
		assert.Equal(t, "0xa614f803b6fd780986a42c78ec9c7f77e6ded13c", got.To)
		assert.Equal(t, big.NewInt(1_500_000), got.Value)
		assert.Equal(t, "0xdeadbeef", got.TxHash)
		assert.Equal(t, int64(2), got.LogIndex)
	})

	t.Run("skips entries removed by a reorg", func(t *testing.T) {
		conn := &fakeConn{responses: map[string]json.RawMessage{
			"eth_getLogs": json.RawMessage(`[
				{
					"removed": true,
					"logIndex": "0x0",
					"transactionHash": "0xgone",
					"topics": [
						"0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
						"0x0000000000000000000000000000000000000000000000000000000000000001",
						"0x0000000000000000000000000000000000000000000000000000000000000002"
					],
					"data": "0x01"
				}
			]`),
		}}

		transfers, err := NewClient(conn).TransferLogs(t.Context(), 100, "0xcontract", nil)
		require.NoError(t, err)
		assert.Empty(t, transfers)
	})

	t.Run("treats a null result as no transfers", func(t *testing.T) {
		conn := &fakeConn{errs: map[string]error{
			"eth_getLogs": jsonrpc.ErrNullResult,
		}}

		transfers, err := NewClient(conn).TransferLogs(t.Context(), 100, "0xcontract", nil)
		require.NoError(t, err)
		assert.Empty(t, transfers)
	})
}

func TestBalanceOf(t *testing.T) {
	conn := &fakeConn{responses: map[string]json.RawMessage{
		"eth_call": json.RawMessage(`"0x00000000000000000000000000000000000000000000000000000000000f4240"`),
	}}

	balance, err := NewClient(conn).BalanceOf(t.Context(), "0xcontract", "0x42a1e39aefa49290f2b3f9ed688d7cecf86cd6e0")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000), balance)

	require.Len(t, conn.calls, 1)
	call, ok := conn.calls[0].params[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "0x70a08231"+
		"000000000000000000000000"+
		"42a1e39aefa49290f2b3f9ed688d7cecf86cd6e0", call["data"])
}

func TestAddressTopic(t *testing.T) {
	assert.Equal(t,
		"0x00000000000000000000000042a1e39aefa49290f2b3f9ed688d7cecf86cd6e0",
		addressTopic("0x42A1E39AEFA49290F2B3F9ED688D7CECF86CD6E0"),
	)
}
