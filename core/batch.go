package core

// BatchError records the failure of a single item in a batch.
type BatchError struct {
	Index int
	Err   error
}

func (e BatchError) Error() string { return e.Err.Error() }

// BatchReport summarizes a batch of independent writes. Items are attempted
// one by one; a failed item never rolls back the ones already applied.
type BatchReport struct {
	Attempted int
	Succeeded []int
	Failed    []BatchError
}

func (r BatchReport) SuccessCount() int { return len(r.Succeeded) }
func (r BatchReport) FailureCount() int { return len(r.Failed) }

// RunBatch attempts fn for every index in [0, n) and collects the outcome
// of each item. It never stops early and never rolls back.
func RunBatch(n int, fn func(i int) error) BatchReport {
	report := BatchReport{Attempted: n}
	for i := 0; i < n; i++ {
		if err := fn(i); err != nil {
			report.Failed = append(report.Failed, BatchError{Index: i, Err: err})
			continue
		}
		report.Succeeded = append(report.Succeeded, i)
	}
	return report
}
