package provider

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignerGenerator generates geth's *bind.TransactOpts instances used to sign the deployer's
// transactions.
type SignerGenerator interface {
	Generate(chainID *big.Int) (*bind.TransactOpts, error)
	// Address returns the address of the identity the generator signs for.
	Address() (common.Address, error)
}

var (
	_ SignerGenerator = (*transactorFromRaw)(nil)
	_ SignerGenerator = (*transactorRandom)(nil)
)

// GeneratorOptions contains configuration options for the SignerGenerator.
type GeneratorOptions struct {
	gasLimit uint64
}

// GeneratorOption is a function that modifies GeneratorOptions.
type GeneratorOption func(*GeneratorOptions)

func WithGasLimit(gasLimit uint64) GeneratorOption {
	return func(opts *GeneratorOptions) {
		opts.gasLimit = gasLimit
	}
}

// TransactorFromRaw returns a generator which creates a transactor from a hex encoded private
// key. A leading 0x is accepted.
func TransactorFromRaw(privKey string, opts ...GeneratorOption) SignerGenerator {
	defaultOpts := &GeneratorOptions{
		gasLimit: 0,
	}
	for _, opt := range opts {
		opt(defaultOpts)
	}

	return &transactorFromRaw{
		privKey:  strings.TrimPrefix(strings.TrimSpace(privKey), "0x"),
		gasLimit: defaultOpts.gasLimit,
	}
}

type transactorFromRaw struct {
	privKey  string
	gasLimit uint64
}

// Generate parses the hex encoded private key and returns the bind transactor options.
func (g *transactorFromRaw) Generate(chainID *big.Int) (*bind.TransactOpts, error) {
	privKey, err := g.key()
	if err != nil {
		return nil, err
	}

	transactor, err := bind.NewKeyedTransactorWithChainID(privKey, chainID)
	if err != nil {
		return nil, err
	}
	if g.gasLimit > 0 {
		transactor.GasLimit = g.gasLimit
	}

	return transactor, nil
}

// Address derives the address of the private key.
func (g *transactorFromRaw) Address() (common.Address, error) {
	privKey, err := g.key()
	if err != nil {
		return common.Address{}, err
	}

	return crypto.PubkeyToAddress(privKey.PublicKey), nil
}

func (g *transactorFromRaw) key() (*ecdsa.PrivateKey, error) {
	privKey, err := crypto.HexToECDSA(g.privKey)
	if err != nil {
		return nil, fmt.Errorf("failed to convert private key to ECDSA: %w", err)
	}

	return privKey, nil
}

// TransactorRandom is a SignerGenerator that creates a transactor with a random private key.
// The key is generated on first use and reused afterwards.
func TransactorRandom() SignerGenerator {
	return &transactorRandom{}
}

type transactorRandom struct {
	privKey *ecdsa.PrivateKey
}

// Generate generates a random key and returns the bind transactor options.
func (g *transactorRandom) Generate(chainID *big.Int) (*bind.TransactOpts, error) {
	key, err := g.key()
	if err != nil {
		return nil, err
	}

	return bind.NewKeyedTransactorWithChainID(key, chainID)
}

// Address returns the address of the random key.
func (g *transactorRandom) Address() (common.Address, error) {
	key, err := g.key()
	if err != nil {
		return common.Address{}, err
	}

	return crypto.PubkeyToAddress(key.PublicKey), nil
}

func (g *transactorRandom) key() (*ecdsa.PrivateKey, error) {
	if g.privKey == nil {
		privKey, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate random private key: %w", err)
		}
		g.privKey = privKey
	}

	return g.privKey, nil
}
