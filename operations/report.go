package operations

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of an operation.
type Status string

const (
	StatusExecuted Status = "executed"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// Report records one run of an operation or sequence with its input and output. Reports are
// written to the --report file of a deployment, so every field is JSON serializable.
type Report[IN, OUT any] struct {
	ID        string       `json:"id"`
	Def       Definition   `json:"definition"`
	Output    OUT          `json:"output"`
	Input     IN           `json:"input"`
	Timestamp *time.Time   `json:"timestamp"`
	Err       *ReportError `json:"error"`
	// ChildOperationReports holds the IDs of the reports a sequence produced. Empty for
	// operations.
	ChildOperationReports []string `json:"childOperationReports"`
	// Skipped is set when the precondition was already satisfied and the handler did not run.
	Skipped bool `json:"skipped,omitempty"`
}

// Status returns the outcome recorded in the report.
func (r Report[IN, OUT]) Status() Status {
	switch {
	case r.Err != nil:
		return StatusFailed
	case r.Skipped:
		return StatusSkipped
	default:
		return StatusExecuted
	}
}

// IsSequence reports whether the report belongs to a sequence.
func (r Report[IN, OUT]) IsSequence() bool {
	return len(r.ChildOperationReports) > 0
}

// ToGenericReport converts the Report to a generic Report.
func (r Report[IN, OUT]) ToGenericReport() Report[any, any] {
	return genericReport(r)
}

// SequenceReport is the report of a sequence together with the reports of everything it ran.
type SequenceReport[IN, OUT any] struct {
	Report[IN, OUT]

	// ExecutionReports lists the reports produced while the sequence ran, followed by the
	// sequence's own report.
	ExecutionReports []Report[any, any]
}

// NewReport creates a report stamped with a fresh ID and the current time.
func NewReport[IN, OUT any](
	def Definition, input IN, output OUT, err error, childReportsID ...string,
) Report[IN, OUT] {
	now := time.Now()
	r := Report[IN, OUT]{
		ID:                    uuid.New().String(),
		Def:                   def,
		Output:                output,
		Input:                 input,
		Timestamp:             &now,
		ChildOperationReports: childReportsID,
	}
	if err != nil {
		r.Err = &ReportError{Message: err.Error()}
	}

	return r
}

// NewSkippedReport creates a report for an operation whose precondition was already satisfied.
func NewSkippedReport[IN, OUT any](def Definition, input IN) Report[IN, OUT] {
	r := NewReport(def, input, *new(OUT), nil)
	r.Skipped = true

	return r
}

// ReportError carries the message of a failed operation, since error values do not marshal to
// JSON.
type ReportError struct {
	Message string `json:"message"`
}

// Error implements the error interface.
func (o ReportError) Error() string {
	return o.Message
}

// Reporter collects the reports of a run.
type Reporter interface {
	AddReport(report Report[any, any]) error
	GetReports() ([]Report[any, any], error)
}

// MemoryReporter keeps reports in memory. It is safe for concurrent use.
type MemoryReporter struct {
	mu      sync.RWMutex
	reports []Report[any, any]
}

// NewMemoryReporter returns a MemoryReporter holding the given reports.
func NewMemoryReporter(reports ...Report[any, any]) *MemoryReporter {
	return &MemoryReporter{reports: slices.Clone(reports)}
}

// AddReport appends a report.
func (m *MemoryReporter) AddReport(report Report[any, any]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reports = append(m.reports, report)

	return nil
}

// GetReports returns a copy of the reports in the order they were added.
func (m *MemoryReporter) GetReports() ([]Report[any, any], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.reports), nil
}

// scopedReporter forwards reports to its parent and remembers the ones added through it, so a
// sequence knows which reports are its children.
type scopedReporter struct {
	Reporter

	mu    sync.Mutex
	added []Report[any, any]
}

func newScopedReporter(parent Reporter) *scopedReporter {
	return &scopedReporter{Reporter: parent}
}

func (s *scopedReporter) AddReport(report Report[any, any]) error {
	if err := s.Reporter.AddReport(report); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.added = append(s.added, report)

	return nil
}

func (s *scopedReporter) reports() []Report[any, any] {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.added)
}

func genericReport[IN, OUT any](r Report[IN, OUT]) Report[any, any] {
	return Report[any, any]{
		ID:                    r.ID,
		Def:                   r.Def,
		Output:                r.Output,
		Input:                 r.Input,
		Timestamp:             r.Timestamp,
		Err:                   r.Err,
		ChildOperationReports: r.ChildOperationReports,
		Skipped:               r.Skipped,
	}
}

// Summary counts the outcome of operation reports.
type Summary struct {
	Executed int `json:"executed"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Summarize counts the outcomes of operations. Sequence reports are not counted, their
// operations are.
func Summarize(reports []Report[any, any]) Summary {
	var s Summary
	for _, r := range reports {
		if r.IsSequence() {
			continue
		}
		switch r.Status() {
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		case StatusExecuted:
			s.Executed++
		}
	}

	return s
}
