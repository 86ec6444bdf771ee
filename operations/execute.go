package operations

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gravita-protocol/gravita-deployments/pkg/logger"
)

var ErrNotSerializable = errors.New("data cannot be safely written to disk without data lost, " +
	"avoid type that can't be serialized")

// ExecuteOperation executes an operation with the given input and dependencies.
//
// If the operation has a Precondition, it is evaluated first. A satisfied precondition skips the
// handler and records a skipped report. An error from the precondition is returned as is, since
// it comes from a read that the caller must see.
//
// Errors returned by the handler are recorded in the report and returned unchanged, so callers
// can match them with errors.Is. There is no retry.
//
// Input & Output:
// The input and output must be JSON serializable. If the input is not serializable, it will return an error.
func ExecuteOperation[IN, OUT, DEP any](
	b Bundle,
	operation *Operation[IN, OUT, DEP],
	deps DEP,
	input IN,
) (Report[IN, OUT], error) {
	if !IsSerializable(b.Logger, input) {
		return Report[IN, OUT]{}, fmt.Errorf("operation %s input: %w", operation.def.ID, ErrNotSerializable)
	}

	satisfied, err := operation.satisfied(b, deps, input)
	if err != nil {
		return Report[IN, OUT]{}, fmt.Errorf("operation %s precondition: %w", operation.def.ID, err)
	}
	if satisfied {
		b.Logger.Infow("Operation already satisfied. Skipping", "id", operation.def.ID,
			"version", operation.def.Version, "description", operation.def.Description)

		report := NewSkippedReport[IN, OUT](operation.def, input)
		if err = b.reporter.AddReport(genericReport(report)); err != nil {
			return Report[IN, OUT]{}, err
		}

		return report, nil
	}

	output, opErr := operation.execute(b, deps, input)

	if opErr == nil && !IsSerializable(b.Logger, output) {
		return Report[IN, OUT]{}, fmt.Errorf("operation %s output: %w", operation.def.ID, ErrNotSerializable)
	}

	report := NewReport(operation.def, input, output, opErr)
	if err = b.reporter.AddReport(genericReport(report)); err != nil {
		return Report[IN, OUT]{}, err
	}

	return report, opErr
}

// ExecuteSequence runs a sequence. Operations the sequence runs through its bundle are recorded as
// its children, and the returned SequenceReport lists their reports followed by its own.
func ExecuteSequence[IN, OUT, DEP any](
	b Bundle, sequence *Sequence[IN, OUT, DEP], deps DEP, input IN,
) (SequenceReport[IN, OUT], error) {
	if !IsSerializable(b.Logger, input) {
		return SequenceReport[IN, OUT]{}, fmt.Errorf("sequence %s input: %w", sequence.def.ID, ErrNotSerializable)
	}

	b.Logger.Infow("Executing sequence", "id", sequence.def.ID,
		"version", sequence.def.Version, "description", sequence.def.Description)
	scoped := newScopedReporter(b.reporter)
	ret, seqErr := sequence.handler(Bundle{Logger: b.Logger, GetContext: b.GetContext, reporter: scoped}, deps, input)
	if errors.Is(seqErr, ErrNotSerializable) {
		return SequenceReport[IN, OUT]{}, seqErr
	}
	if seqErr == nil && !IsSerializable(b.Logger, ret) {
		return SequenceReport[IN, OUT]{}, fmt.Errorf("sequence %s output: %w", sequence.def.ID, ErrNotSerializable)
	}

	children := scoped.reports()
	childIDs := make([]string, 0, len(children))
	for _, rep := range children {
		childIDs = append(childIDs, rep.ID)
	}

	report := NewReport(sequence.def, input, ret, seqErr, childIDs...)
	if err := b.reporter.AddReport(genericReport(report)); err != nil {
		return SequenceReport[IN, OUT]{}, err
	}

	return SequenceReport[IN, OUT]{
		Report:           report,
		ExecutionReports: append(children, genericReport(report)),
	}, seqErr
}

// IsSerializable reports whether v can be marshaled to JSON, logging the reason when it cannot.
func IsSerializable(lggr logger.Logger, v any) bool {
	if _, err := json.Marshal(v); err != nil {
		lggr.Errorw("Value is not JSON serializable", "type", fmt.Sprintf("%T", v), "error", err)
		return false
	}

	return true
}
