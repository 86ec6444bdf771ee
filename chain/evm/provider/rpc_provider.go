package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/gravita-protocol/gravita-deployments/chain/evm"
	"github.com/gravita-protocol/gravita-deployments/chain/utils"
	"github.com/gravita-protocol/gravita-deployments/pkg/logger"
)

// RPCChainProviderConfig holds the configuration to initialize the RPCChainProvider.
type RPCChainProviderConfig struct {
	// Required: A generator for the deployer key. Use TransactorFromRaw to create a deployer
	// key from a private key.
	DeployerTransactorGen SignerGenerator
	// Required: The HTTP or WS URL of the EVM node.
	RPCURL string
	// Required: ConfirmFunctor generates the confirmation function for transactions. If in
	// doubt, use ConfirmFuncGeth.
	ConfirmFunctor ConfirmFunctor
	// Optional: Logger is the logger to use for the RPCChainProvider. If not provided, a default
	// logger will be used.
	Logger logger.Logger
}

// validate checks if the RPCChainProviderConfig is valid.
func (c RPCChainProviderConfig) validate() error {
	if c.DeployerTransactorGen == nil {
		return errors.New("deployer transactor generator is required")
	}
	if c.ConfirmFunctor == nil {
		return errors.New("confirm functor is required")
	}
	if c.RPCURL == "" {
		return errors.New("rpc url is required")
	}

	return nil
}

// RPCChainProvider provides a chain that connects to an EVM node via RPC.
type RPCChainProvider struct {
	selector uint64
	config   RPCChainProviderConfig

	chain *evm.Chain
}

// NewRPCChainProvider creates a new RPCChainProvider with the given selector and configuration.
func NewRPCChainProvider(
	selector uint64, config RPCChainProviderConfig,
) *RPCChainProvider {
	return &RPCChainProvider{
		selector: selector,
		config:   config,
	}
}

// Initialize dials the node, checks that it serves the chain the selector names and builds the
// deployer transactor and confirm function.
func (p *RPCChainProvider) Initialize(ctx context.Context) (evm.Chain, error) {
	if p.chain != nil {
		return *p.chain, nil // Already initialized
	}

	if p.config.Logger == nil {
		lggr, err := logger.New()
		if err != nil {
			return evm.Chain{}, fmt.Errorf("failed to create default logger: %w", err)
		}
		p.config.Logger = lggr
	}

	if err := p.config.validate(); err != nil {
		return evm.Chain{}, fmt.Errorf("failed to validate provider config: %w", err)
	}

	chainID, err := utils.EVMChainID(p.selector)
	if err != nil {
		return evm.Chain{}, err
	}

	deployerKey, err := p.config.DeployerTransactorGen.Generate(chainID)
	if err != nil {
		return evm.Chain{}, fmt.Errorf("failed to generate deployer key: %w", err)
	}

	client, err := ethclient.DialContext(ctx, p.config.RPCURL)
	if err != nil {
		return evm.Chain{}, fmt.Errorf("failed to dial rpc for selector %d: %w", p.selector, err)
	}

	remoteID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return evm.Chain{}, fmt.Errorf("failed to fetch chain id from rpc: %w", err)
	}
	if remoteID.Cmp(chainID) != 0 {
		client.Close()
		return evm.Chain{}, fmt.Errorf("rpc serves chain id %s, selector %d expects %s",
			remoteID, p.selector, chainID,
		)
	}

	confirmFunc, err := p.config.ConfirmFunctor.Generate(
		ctx, p.selector, client, deployerKey.From,
	)
	if err != nil {
		client.Close()
		return evm.Chain{}, fmt.Errorf("failed to generate confirm function: %w", err)
	}

	p.chain = &evm.Chain{
		Selector:    p.selector,
		Client:      client,
		DeployerKey: deployerKey,
		Confirm:     confirmFunc,
	}

	p.config.Logger.Infow("Connected to chain",
		"chain", p.chain.String(),
		"deployer", deployerKey.From.Hex(),
	)

	return *p.chain, nil
}

// Name returns the name of the RPCChainProvider.
func (*RPCChainProvider) Name() string {
	return "EVM RPC Chain Provider"
}

// ChainSelector returns the chain selector of the chain managed by this provider.
func (p *RPCChainProvider) ChainSelector() uint64 {
	return p.selector
}
