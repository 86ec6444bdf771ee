package operations

import (
	"context"

	"github.com/Masterminds/semver/v3"

	"github.com/gravita-protocol/gravita-deployments/pkg/logger"
)

// Bundle contains the dependencies required by the executor and is passed to every
// OperationHandler, Precondition and SequenceHandler.
// Use NewBundle to create a new Bundle.
type Bundle struct {
	Logger     logger.Logger
	GetContext func() context.Context
	reporter   Reporter
}

// NewBundle creates and returns a new Bundle.
func NewBundle(getContext func() context.Context, lggr logger.Logger, reporter Reporter) Bundle {
	return Bundle{
		Logger:     lggr,
		GetContext: getContext,
		reporter:   reporter,
	}
}

// Reporter returns the reporter the bundle records reports into.
func (b Bundle) Reporter() Reporter {
	return b.reporter
}

// OperationHandler is the function signature of an operation handler.
type OperationHandler[IN, OUT, DEP any] func(b Bundle, deps DEP, input IN) (output OUT, err error)

// Precondition reports whether the effect of an operation is already in place. When it returns
// true the handler is not called.
type Precondition[IN, DEP any] func(b Bundle, deps DEP, input IN) (satisfied bool, err error)

// Definition is the metadata for a sequence or an operation.
type Definition struct {
	ID          string          `json:"id"`
	Version     *semver.Version `json:"version"`
	Description string          `json:"description"`
}

// Operation is the building block of a deployment. Each operation should perform at most one
// side effect, e.g. send one transaction.
// Use NewOperation to create a new operation.
type Operation[IN, OUT, DEP any] struct {
	def          Definition
	handler      OperationHandler[IN, OUT, DEP]
	precondition Precondition[IN, DEP]
}

// ID returns the operation ID.
func (o *Operation[IN, OUT, DEP]) ID() string {
	return o.def.ID
}

// Version returns the operation semver version in string.
func (o *Operation[IN, OUT, DEP]) Version() string {
	return o.def.Version.String()
}

// Description returns the operation description.
func (o *Operation[IN, OUT, DEP]) Description() string {
	return o.def.Description
}

// Def returns the operation definition.
func (o *Operation[IN, OUT, DEP]) Def() Definition {
	return o.def
}

// Gated reports whether the operation has a precondition.
func (o *Operation[IN, OUT, DEP]) Gated() bool {
	return o.precondition != nil
}

// WithPrecondition returns a copy of the operation gated by p.
func (o *Operation[IN, OUT, DEP]) WithPrecondition(p Precondition[IN, DEP]) *Operation[IN, OUT, DEP] {
	return &Operation[IN, OUT, DEP]{
		def:          o.def,
		handler:      o.handler,
		precondition: p,
	}
}

// satisfied evaluates the precondition. Operations without one are never satisfied.
func (o *Operation[IN, OUT, DEP]) satisfied(b Bundle, deps DEP, input IN) (bool, error) {
	if o.precondition == nil {
		return false, nil
	}

	return o.precondition(b, deps, input)
}

// execute runs the operation by calling the OperationHandler.
func (o *Operation[IN, OUT, DEP]) execute(b Bundle, deps DEP, input IN) (output OUT, err error) {
	b.Logger.Infow("Executing operation",
		"id", o.def.ID, "version", o.def.Version, "description", o.def.Description)

	return o.handler(b, deps, input)
}

// NewOperation creates a new operation.
// Version can be created using semver.MustParse("1.0.0") or semver.New("1.0.0").
// Note: The handler should only perform maximum 1 side effect.
func NewOperation[IN, OUT, DEP any](
	id string, version *semver.Version, description string, handler OperationHandler[IN, OUT, DEP],
) *Operation[IN, OUT, DEP] {
	return &Operation[IN, OUT, DEP]{
		def: Definition{
			ID:          id,
			Version:     version,
			Description: description,
		},
		handler: handler,
	}
}

// EmptyInput is a placeholder for operations that do not require input.
type EmptyInput struct{}
