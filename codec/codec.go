// Package codec holds the pieces shared by the individual asset codecs: the
// error taxonomy, record-level warnings and progress reporting for bulk
// decodes.
//
// Errors returned from the codec packages wrap one of the sentinels below, so
// callers can test for the kind of failure with errors.Is.
package codec

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMalformedHeader means a signature, magic or mandatory structural
	// byte did not have the expected value.
	ErrMalformedHeader = errors.New("malformed header")
	// ErrUnexpectedEOF means the data ended before a length field said it
	// would.
	ErrUnexpectedEOF = errors.New("unexpected end of data")
	// ErrUnknownFlagByte means a DAT flag id is not in the flag table, so the
	// size of its payload cannot be known.
	ErrUnknownFlagByte = errors.New("unknown flag byte")
	// ErrInvalidVarint means a varint continuation sequence was not
	// terminated, or overflowed 64 bits.
	ErrInvalidVarint = errors.New("invalid varint")
	// ErrLZMADecodeFailure means neither of the LZMA decoding strategies
	// produced data.
	ErrLZMADecodeFailure = errors.New("lzma decode failure")
	// ErrUnsupportedSpriteIDWidth means the sprite id width mode does not
	// agree with the data.
	ErrUnsupportedSpriteIDWidth = errors.New("unsupported sprite id width")
)

// ProgressInterval is how many top-level records a bulk decoder processes
// between two calls to its Progress callback.
const ProgressInterval = 200

// Progress is invoked by bulk decoders with the number of records processed
// so far and the total number of records expected.
type Progress func(done, total int)

// Warning describes a single record that could not be decoded and was
// skipped. The rest of the catalog is still usable.
type Warning struct {
	Record string
	Err    error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Record, w.Err)
}

// Tracker reports progress at a bounded cadence and checks for cancellation
// between records.
type Tracker struct {
	ctx      context.Context
	progress Progress
	total    int
	done     int
}

// NewTracker creates a tracker for total records. Both ctx and progress may
// be nil.
func NewTracker(ctx context.Context, progress Progress, total int) *Tracker {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Tracker{ctx: ctx, progress: progress, total: total}
}

// Step records one more processed record. It returns the context's error if
// the decode has been cancelled.
func (t *Tracker) Step() error {
	t.done++
	if t.progress != nil && t.done%ProgressInterval == 0 {
		t.progress(t.done, t.total)
	}
	if err := t.ctx.Err(); err != nil {
		return errors.Wrapf(err, "cancelled after %d of %d records", t.done, t.total)
	}
	return nil
}

// Finish emits the final progress report.
func (t *Tracker) Finish() {
	if t.progress != nil && t.done%ProgressInterval != 0 {
		t.progress(t.done, t.total)
	}
}
