package ledger

import "fmt"

type ShortReadError string

func (msg ShortReadError) Error() string {
	return errReport("%s: Unexpectedly short read", string(msg))
}

type ChecksumError string

func (msg ChecksumError) Error() string {
	return errReport("%s: Record checksum mismatch", string(msg))
}

type SegmentNotFoundError string

func (msg SegmentNotFoundError) Error() string {
	return errReport("%s: Referenced segment does not exist", string(msg))
}

type OffsetOutOfRangeError string

func (msg OffsetOutOfRangeError) Error() string {
	return errReport("%s: Offset is beyond the end of the log", string(msg))
}

type SegmentCreateError string

func (msg SegmentCreateError) Error() string {
	return errReport("%s: Error creating segment file", string(msg))
}

type AppendError string

func (msg AppendError) Error() string {
	return errReport("%s: Error appending to segment", string(msg))
}

func errReport(base, msg string) string {
	return fmt.Sprintf(base, msg)
}
