package compactor

// The three ways a compaction run can fail. Each aborts the run and
// leaves the previously published compacted log untouched; retry
// policy belongs to the caller.

type ReadError struct {
	Err error
}

func (e ReadError) Error() string {
	return "compaction: raw log read failed: " + e.Err.Error()
}

func (e ReadError) Unwrap() error { return e.Err }

type WriteError struct {
	Err error
}

func (e WriteError) Error() string {
	return "compaction: compacted log write failed: " + e.Err.Error()
}

func (e WriteError) Unwrap() error { return e.Err }

// LogRetiredError reports an attempt to open a compacted log that was
// superseded and reclaimed after the caller loaded its pointer.
// Reloading the pointer yields the successor.
type LogRetiredError string

func (msg LogRetiredError) Error() string {
	return string(msg) + ": compacted log retired"
}

type PointerSwapError struct {
	Err error
}

func (e PointerSwapError) Error() string {
	return "compaction: pointer swap failed: " + e.Err.Error()
}

func (e PointerSwapError) Unwrap() error { return e.Err }
