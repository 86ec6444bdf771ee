// Package utils resolves chain selectors of the EVM networks the deployer targets.
package utils

import (
	"fmt"
	"math/big"

	chain_selectors "github.com/smartcontractkit/chain-selectors"
)

// ChainName returns the registered name of the EVM chain with the given selector. It returns
// false for unknown selectors and for selectors of other chain families.
func ChainName(cs uint64) (string, bool) {
	chain, ok := chain_selectors.ChainBySelector(cs)
	if !ok || chain.Name == "" {
		return "", false
	}

	return chain.Name, true
}

// EVMChainID returns the numeric chain ID of an EVM chain selector. Selectors from other chain
// families are rejected because the deployer only signs EVM transactions.
func EVMChainID(cs uint64) (*big.Int, error) {
	family, err := chain_selectors.GetSelectorFamily(cs)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain family from selector %d: %w", cs, err)
	}
	if family != chain_selectors.FamilyEVM {
		return nil, fmt.Errorf("chain selector %d belongs to family %s, expected %s",
			cs, family, chain_selectors.FamilyEVM)
	}

	id, err := chain_selectors.GetChainIDFromSelector(cs)
	if err != nil {
		return nil, err
	}

	chainID, ok := new(big.Int).SetString(id, 10)
	if !ok {
		return nil, fmt.Errorf("failed to convert chain ID %s to big.Int", id)
	}

	return chainID, nil
}

// SelectorFromEVMChainID returns the selector of the EVM chain with the given chain ID.
func SelectorFromEVMChainID(chainID uint64) (uint64, error) {
	selector, err := chain_selectors.SelectorFromChainId(chainID)
	if err != nil {
		return 0, fmt.Errorf("no EVM chain selector for chain ID %d: %w", chainID, err)
	}

	return selector, nil
}
