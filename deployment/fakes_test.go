package deployment

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/gravita-protocol/gravita-deployments/state"
	"github.com/gravita-protocol/gravita-deployments/timelock"
)

var (
	deployerAddr = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	adminAddr    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	treasuryAddr = common.HexToAddress("0x00000000000000000000000000000000000000f1")

	wethAddr   = common.HexToAddress("0x0000000000000000000000000000000000000e01")
	wethOracle = common.HexToAddress("0x0000000000000000000000000000000000000e02")
	rethAddr   = common.HexToAddress("0x0000000000000000000000000000000000000e03")
	rethOracle = common.HexToAddress("0x0000000000000000000000000000000000000e04")
)

// fakeNetwork is the on-chain world of a test. It counts state-changing calls.
type fakeNetwork struct {
	mu      sync.Mutex
	now     uint64
	balance *big.Int
	sends   []string
	nonce   int
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{now: 1_700_000_000, balance: big.NewInt(1e18)}
}

func (n *fakeNetwork) send(what string) *types.Receipt {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nonce++
	n.sends = append(n.sends, what)
	n.balance.Sub(n.balance, big.NewInt(1000))

	return &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		TxHash: common.BigToHash(big.NewInt(int64(n.nonce))),
	}
}

func (n *fakeNetwork) Sends() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.sends...)
}

// fakeChain implements Chain.
type fakeChain struct {
	net      *fakeNetwork
	deployer common.Address
}

func (c fakeChain) Deployer() common.Address { return c.deployer }

func (c fakeChain) Balance(context.Context, common.Address) (*big.Int, error) {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	return new(big.Int).Set(c.net.balance), nil
}

func (c fakeChain) BlockTimestamp(context.Context) (uint64, error) {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	return c.net.now, nil
}

type fakeOwnable struct {
	net     *fakeNetwork
	addr    common.Address
	name    string
	owner   common.Address
	readErr error
}

func (o *fakeOwnable) Address() common.Address { return o.addr }

func (o *fakeOwnable) Name(context.Context) (string, bool) {
	return o.name, o.name != ""
}

func (o *fakeOwnable) Owner(context.Context) (common.Address, error) {
	return o.owner, o.readErr
}

func (o *fakeOwnable) TransferOwnership(_ context.Context, newOwner common.Address) (*types.Receipt, error) {
	o.owner = newOwner
	return o.net.send("transferOwnership:" + o.name), nil
}

type fakeInitializable struct {
	fakeOwnable
	initialized bool
}

func (i *fakeInitializable) IsInitialized(context.Context) (bool, error) {
	return i.initialized, i.readErr
}

func (i *fakeInitializable) SetInitialized(context.Context) (*types.Receipt, error) {
	i.initialized = true
	return i.net.send("setInitialized:" + i.name), nil
}

type fakeAdmin struct {
	fakeInitializable
	decimals map[common.Address]*big.Int
	addErr   error
}

func (a *fakeAdmin) GetDecimals(_ context.Context, collateral common.Address) (*big.Int, error) {
	if a.readErr != nil {
		return nil, a.readErr
	}
	if d, ok := a.decimals[collateral]; ok {
		return d, nil
	}

	return new(big.Int), nil
}

func (a *fakeAdmin) AddNewCollateral(
	_ context.Context, collateral common.Address, _ *big.Int, decimals uint64, _ bool,
) (*types.Receipt, error) {
	if a.addErr != nil {
		return nil, a.addErr
	}
	a.decimals[collateral] = new(big.Int).SetUint64(decimals)

	return a.net.send("addNewCollateral:" + collateral.Hex()), nil
}

type fakeTimelock struct {
	net     *fakeNetwork
	addr    common.Address
	delay   int64
	grace   int64
	queued  map[common.Hash]bool
	dropAll bool
}

func (t *fakeTimelock) Address() common.Address { return t.addr }

func (t *fakeTimelock) Delay(context.Context) (*big.Int, error) { return big.NewInt(t.delay), nil }

func (t *fakeTimelock) GracePeriod(context.Context) (*big.Int, error) { return big.NewInt(t.grace), nil }

func (t *fakeTimelock) QueuedTransactions(_ context.Context, id common.Hash) (bool, error) {
	return t.queued[id], nil
}

func (t *fakeTimelock) QueueTransaction(
	_ context.Context, target common.Address, value *big.Int, signature string, data []byte, eta *big.Int,
) (*types.Receipt, error) {
	id := timelock.Call{Target: target, Value: value, Signature: signature, Data: data, ETA: eta}.ID()
	if !t.dropAll {
		t.queued[id] = true
	}

	return t.net.send("queueTransaction:" + signature), nil
}

func (t *fakeTimelock) ExecuteTransaction(
	_ context.Context, target common.Address, value *big.Int, signature string, data []byte, eta *big.Int,
) (*types.Receipt, error) {
	id := timelock.Call{Target: target, Value: value, Signature: signature, Data: data, ETA: eta}.ID()
	if !t.queued[id] {
		return nil, errors.New("execution reverted: Transaction hasn't been queued")
	}
	delete(t.queued, id)

	return t.net.send("executeTransaction:" + signature), nil
}

type fakeToken struct {
	fakeOwnable
	allowances map[[2]common.Address]*big.Int
	balances   map[common.Address]*big.Int
}

func allowanceKey(owner, spender common.Address) [2]common.Address {
	return [2]common.Address{owner, spender}
}

func (t *fakeToken) Allowance(_ context.Context, owner, spender common.Address) (*big.Int, error) {
	if a, ok := t.allowances[allowanceKey(owner, spender)]; ok {
		return a, nil
	}

	return new(big.Int), nil
}

func (t *fakeToken) Approve(_ context.Context, spender common.Address, amount *big.Int) (*types.Receipt, error) {
	t.allowances[allowanceKey(deployerAddr, spender)] = amount
	return t.net.send("approve:" + spender.Hex()), nil
}

func (t *fakeToken) BalanceOf(_ context.Context, account common.Address) (*big.Int, error) {
	if b, ok := t.balances[account]; ok {
		return new(big.Int).Set(b), nil
	}

	return new(big.Int), nil
}

func (t *fakeToken) Transfer(_ context.Context, to common.Address, amount *big.Int) (*types.Receipt, error) {
	from := t.balances[deployerAddr]
	if from == nil || from.Cmp(amount) < 0 {
		return nil, errors.New("execution reverted: ERC20: transfer amount exceeds balance")
	}
	from.Sub(from, amount)
	if t.balances[to] == nil {
		t.balances[to] = new(big.Int)
	}
	t.balances[to].Add(t.balances[to], amount)

	return t.net.send("transfer:" + to.Hex()), nil
}

type fakeLedger struct {
	fakeOwnable
	entries map[common.Address]*big.Int
}

func (l *fakeLedger) IsEntityExists(_ context.Context, beneficiary common.Address) (bool, error) {
	_, ok := l.entries[beneficiary]
	return ok, nil
}

func (l *fakeLedger) AddEntityVesting(
	_ context.Context, beneficiary common.Address, amount *big.Int,
) (*types.Receipt, error) {
	l.entries[beneficiary] = amount
	return l.net.send("addEntityVesting:" + beneficiary.Hex()), nil
}

// fakeProtocol is a deployed Gravita protocol.
type fakeProtocol struct {
	net *fakeNetwork

	admin         *fakeAdmin
	debtToken     *fakeInitializable
	priceFeed     *fakeOwnable
	feeCollector  *fakeOwnable
	shortTimelock *fakeTimelock

	grvtToken         *fakeToken
	lockedGrvt        *fakeLedger
	grvtStaking       *fakeOwnable
	communityIssuance *fakeOwnable

	withGRVT   bool
	connects   int
	loadCalls  int
	loadedFrom []state.DeploymentState
}

func addr(n int64) common.Address {
	return common.BigToAddress(big.NewInt(0xc000 + n))
}

func newFakeProtocol(net *fakeNetwork) *fakeProtocol {
	ownable := func(n int64, name string) fakeOwnable {
		return fakeOwnable{net: net, addr: addr(n), name: name, owner: deployerAddr}
	}

	p := &fakeProtocol{net: net}
	p.admin = &fakeAdmin{
		fakeInitializable: fakeInitializable{fakeOwnable: ownable(1, "AdminContract")},
		decimals:          map[common.Address]*big.Int{},
	}
	p.debtToken = &fakeInitializable{fakeOwnable: ownable(2, "DebtToken")}
	feed := ownable(3, "PriceFeed")
	p.priceFeed = &feed
	fee := ownable(4, "FeeCollector")
	p.feeCollector = &fee
	p.shortTimelock = &fakeTimelock{
		net: net, addr: addr(5), delay: 172800, grace: 1209600, queued: map[common.Hash]bool{},
	}
	p.grvtToken = &fakeToken{
		fakeOwnable: ownable(6, "GRVT"),
		allowances:  map[[2]common.Address]*big.Int{},
		balances:    map[common.Address]*big.Int{deployerAddr: big.NewInt(1_000_000)},
	}
	p.lockedGrvt = &fakeLedger{fakeOwnable: ownable(7, "LockedGRVT"), entries: map[common.Address]*big.Int{}}
	staking := ownable(8, "GRVTStaking")
	p.grvtStaking = &staking
	issuance := ownable(9, "CommunityIssuance")
	p.communityIssuance = &issuance

	return p
}

func (p *fakeProtocol) core() CoreContracts {
	return CoreContracts{
		AdminContract: p.admin,
		DebtToken:     p.debtToken,
		PriceFeed:     p.priceFeed,
		ShortTimelock: p.shortTimelock,
		FeeCollector:  p.feeCollector,
		LockedGRVT:    p.lockedGrvt,
	}
}

func (p *fakeProtocol) grvt() GRVTContracts {
	return GRVTContracts{
		GRVTToken:         p.grvtToken,
		LockedGRVT:        p.lockedGrvt,
		GRVTStaking:       p.grvtStaking,
		CommunityIssuance: p.communityIssuance,
	}
}

func (p *fakeProtocol) LoadOrDeploy(_ context.Context, prior state.DeploymentState) (CoreContracts, error) {
	p.loadCalls++
	p.loadedFrom = append(p.loadedFrom, prior)

	return p.core(), nil
}

func (p *fakeProtocol) Connect(context.Context, CoreContracts, GRVTContracts, common.Address) error {
	p.connects++
	return nil
}

func (p *fakeProtocol) DeployPartially(context.Context, common.Address, state.DeploymentState) (GRVTContracts, error) {
	return GRVTContracts{GRVTToken: p.grvtToken, LockedGRVT: p.lockedGrvt}, nil
}

func (p *fakeProtocol) LoadGRVT(context.Context, state.DeploymentState) (GRVTContracts, error) {
	if !p.withGRVT {
		return GRVTContracts{}, fmt.Errorf("%w: %s", ErrContractMissing, NameGRVTToken)
	}

	return p.grvt(), nil
}
