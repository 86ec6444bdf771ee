package contracts

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	contractAddr = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	accountAddr  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	otherAddr    = common.HexToAddress("0x00000000000000000000000000000000000000a2")
)

type sentTx struct {
	to       common.Address
	value    *big.Int
	calldata []byte
}

// fakeBackend answers read calls by function selector and records transactions.
type fakeBackend struct {
	results map[[4]byte][]any
	callErr error
	sent    []sentTx
	calls   [][]byte
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{results: map[[4]byte][]any{}}
}

func (f *fakeBackend) on(fn *w3.Func, returns ...any) {
	f.results[fn.Selector] = returns
}

func (f *fakeBackend) CallContract(_ context.Context, _ common.Address, calldata []byte) ([]byte, error) {
	f.calls = append(f.calls, calldata)
	if f.callErr != nil {
		return nil, f.callErr
	}

	var sel [4]byte
	copy(sel[:], calldata)

	returns, ok := f.results[sel]
	if !ok {
		return nil, errors.New("execution reverted")
	}

	return selectorReturns[sel].Pack(returns...)
}

func (f *fakeBackend) Transact(
	_ context.Context, to common.Address, value *big.Int, calldata []byte,
) (*types.Receipt, error) {
	f.sent = append(f.sent, sentTx{to: to, value: value, calldata: calldata})

	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: common.BytesToHash(calldata)}, nil
}

var selectorReturns = func() map[[4]byte]abi.Arguments {
	out := map[[4]byte]abi.Arguments{}
	for _, fn := range []*w3.Func{
		funcName, funcOwner, funcIsInitialized, funcGetDecimals, funcAllowance, funcBalanceOf,
		funcIsEntityExits, funcDelay, funcGracePeriod, funcQueuedTransactions,
	} {
		out[fn.Selector] = fn.Returns
	}

	return out
}()

func mustEncode(t *testing.T, fn *w3.Func, args ...any) []byte {
	t.Helper()

	b, err := fn.EncodeArgs(args...)
	require.NoError(t, err)

	return b
}

func TestOwnable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := newFakeBackend()
	backend.on(funcOwner, accountAddr)
	backend.on(funcName, "AdminContract")

	o := NewOwnable(contractAddr, backend)
	assert.Equal(t, contractAddr, o.Address())

	owner, err := o.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, accountAddr, owner)

	name, ok := o.Name(ctx)
	assert.True(t, ok)
	assert.Equal(t, "AdminContract", name)

	_, err = o.TransferOwnership(ctx, otherAddr)
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)
	assert.Equal(t, contractAddr, backend.sent[0].to)
	assert.Equal(t, mustEncode(t, funcTransferOwnership, otherAddr), backend.sent[0].calldata)
}

func TestNamed_NameIsOptional(t *testing.T) {
	t.Parallel()

	// no NAME() result configured: the fake reverts
	o := NewOwnable(contractAddr, newFakeBackend())

	name, ok := o.Name(context.Background())
	assert.False(t, ok)
	assert.Empty(t, name)
}

func TestBound_CallErrorsAreWrapped(t *testing.T) {
	t.Parallel()

	errRPC := errors.New("connection refused")
	backend := newFakeBackend()
	backend.callErr = errRPC

	_, err := NewOwnable(contractAddr, backend).Owner(context.Background())
	require.ErrorIs(t, err, errRPC)
	assert.ErrorContains(t, err, "owner()")
}

func TestAdminContract(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := newFakeBackend()
	backend.on(funcGetDecimals, big.NewInt(18))
	backend.on(funcIsInitialized, true)

	admin := NewAdminContract(contractAddr, backend)

	decimals, err := admin.GetDecimals(ctx, accountAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(18), decimals.Int64())
	assert.Equal(t, mustEncode(t, funcGetDecimals, accountAddr), backend.calls[0])

	initialized, err := admin.IsInitialized(ctx)
	require.NoError(t, err)
	assert.True(t, initialized)

	gas := new(big.Int).Mul(big.NewInt(30), big.NewInt(1e18))
	_, err = admin.AddNewCollateral(ctx, accountAddr, gas, 18, true)
	require.NoError(t, err)
	_, err = admin.SetInitialized(ctx)
	require.NoError(t, err)

	require.Len(t, backend.sent, 2)
	assert.Equal(t,
		mustEncode(t, funcAddNewCollateral, accountAddr, gas, big.NewInt(18), true),
		backend.sent[0].calldata,
	)
	assert.Equal(t, funcSetInitialized.Selector[:], backend.sent[1].calldata)
}

func TestERC20(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := newFakeBackend()
	backend.on(funcAllowance, big.NewInt(5))
	backend.on(funcBalanceOf, big.NewInt(1000))

	token := NewERC20(contractAddr, backend)

	allowance, err := token.Allowance(ctx, accountAddr, otherAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(5), allowance.Int64())

	balance, err := token.BalanceOf(ctx, accountAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance.Int64())

	_, err = token.Approve(ctx, otherAddr, big.NewInt(7))
	require.NoError(t, err)
	_, err = token.Transfer(ctx, otherAddr, balance)
	require.NoError(t, err)

	require.Len(t, backend.sent, 2)
	assert.Equal(t, mustEncode(t, funcApprove, otherAddr, big.NewInt(7)), backend.sent[0].calldata)
	assert.Equal(t, mustEncode(t, funcTransfer, otherAddr, big.NewInt(1000)), backend.sent[1].calldata)
}

func TestLockedGRVT(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := newFakeBackend()
	backend.on(funcIsEntityExits, false)

	locked := NewLockedGRVT(contractAddr, backend)

	exists, err := locked.IsEntityExists(ctx, accountAddr)
	require.NoError(t, err)
	assert.False(t, exists)

	amount := new(big.Int).Mul(big.NewInt(250), big.NewInt(1e18))
	_, err = locked.AddEntityVesting(ctx, accountAddr, amount)
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)
	assert.Equal(t, mustEncode(t, funcAddEntityVesting, accountAddr, amount), backend.sent[0].calldata)
}

func TestTimelock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := newFakeBackend()
	backend.on(funcDelay, big.NewInt(172800))
	backend.on(funcGracePeriod, big.NewInt(1209600))
	backend.on(funcQueuedTransactions, true)

	tl := NewTimelock(contractAddr, backend)

	delay, err := tl.Delay(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(172800), delay.Int64())

	grace, err := tl.GracePeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1209600), grace.Int64())

	id := common.HexToHash("0x01")
	queued, err := tl.QueuedTransactions(ctx, id)
	require.NoError(t, err)
	assert.True(t, queued)

	data := []byte{0x01, 0x02}
	eta := big.NewInt(1_700_000_000)
	value := big.NewInt(3)

	_, err = tl.QueueTransaction(ctx, otherAddr, new(big.Int), "setOracle(address,address,uint256,bool)", data, eta)
	require.NoError(t, err)
	_, err = tl.ExecuteTransaction(ctx, otherAddr, value, "setOracle(address,address,uint256,bool)", data, eta)
	require.NoError(t, err)

	require.Len(t, backend.sent, 2)
	assert.Equal(t,
		mustEncode(t, funcQueueTransaction, otherAddr, new(big.Int), "setOracle(address,address,uint256,bool)", data, eta),
		backend.sent[0].calldata,
	)
	assert.Nil(t, backend.sent[0].value)
	assert.Equal(t, value, backend.sent[1].value, "execute forwards the call value")
}
