package deployment

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

var (
	// ErrDeployerMismatch is returned when the identity signing transactions is not the configured
	// deployer wallet.
	ErrDeployerMismatch = errors.New("deployer identity does not match the configured deployer wallet")
	// ErrZeroOwner is returned when an ownership transfer targets the zero address.
	ErrZeroOwner = errors.New("transferring ownership to the zero address")
	// ErrContractMissing is returned when a contract the pipeline needs has no known address.
	ErrContractMissing = errors.New("contract address is unknown")
	// ErrCallNotRecorded is returned when no timelock call is recorded under a state key.
	ErrCallNotRecorded = errors.New("timelock call is not recorded in the deployment state")
)

// withRevertData appends the revert data carried by an RPC error to its message. The original
// error stays in the chain.
func withRevertData(err error) error {
	var d rpc.DataError
	if errors.As(err, &d) && d.ErrorData() != nil {
		return fmt.Errorf("%w: %v", err, d.ErrorData())
	}

	return err
}

func missing(name string) error {
	return fmt.Errorf("%w: %s", ErrContractMissing, name)
}
