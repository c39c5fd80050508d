// Package daterange generates sequences of calendar dates from a start date,
// stepping by a number of days until an end date or a count limit is reached.
//
//	Generate(Spec{Start: New(2011, 1, 1), Step: 7, MaxCount: 10}) -> 2011-01-01, 2011-01-08
//	Generate(Spec{Start: New(2011, 1, 1), Step: 1, End: New(2010, 12, 30)}) -> 2011-01-01, 2010-12-31
package daterange

import "iter"

// Spec defines a range. Zero End means no end date, zero MaxCount means no count limit.
// With neither set the sequence is infinite.
type Spec struct {
	Start     Date
	Step      int  // days between dates, sign sets the direction
	End       Date // boundary, excluded unless Inclusive
	MaxCount  int  // compared against the accumulated |Step|, not the number of dates
	Inclusive bool
}

// NewSpec makes a spec starting at start with a step of one day
func NewSpec(start Date) Spec {
	return Spec{Start: start, Step: 1}
}

// Predicate reports whether generation should stop at the candidate date
type Predicate func(candidate Date) bool

// Done makes a Predicate for the end boundary. Without end it never fires.
// For a forward step it fires once the candidate is past end (or on it, if exclusive),
// for a backward step the comparisons are mirrored.
func Done(end Date, step int, exclusive bool) Predicate {
	if end.IsZero() {
		return func(Date) bool { return false }
	}
	return func(day Date) bool {
		c := day.Compare(end)
		if exclusive {
			return (step > 0 && c >= 0) || (step < 0 && c <= 0)
		}
		return (step > 0 && c > 0) || (step < 0 && c < 0)
	}
}

// Generate returns a lazy sequence of dates for spec. Each call of the returned
// sequence starts over from spec.Start.
func Generate(spec Spec) iter.Seq[Date] {
	return func(yield func(Date) bool) {
		it := NewIterator(spec)
		for {
			day, ok := it.Next()
			if !ok || !yield(day) {
				return
			}
		}
	}
}

// Take returns up to limit dates of spec, limit <= 0 means all of them.
// truncated is set if the range has more dates than limit. Nothing past the
// last returned date is generated, the check for more dates can't overflow.
func Take(spec Spec, limit int) (res []Date, truncated bool) {
	it := NewIterator(spec)
	for limit <= 0 || len(res) < limit {
		day, ok := it.Next()
		if !ok {
			return res, false
		}
		res = append(res, day)
	}
	_, more := it.Peek()
	return res, more
}

// Iterator produces dates of a Spec one by one
type Iterator struct {
	current   Date
	step      int
	magnitude int
	maxCount  int
	count     int
	done      Predicate
	started   bool
	finished  bool
}

// NewIterator makes Iterator for spec. Zero start or zero step gives an empty iterator.
// A positive step with End before Start is flipped to count backward. A negative step
// with End after Start is kept as is and gives nothing.
func NewIterator(spec Spec) *Iterator {
	if spec.Start.IsZero() || spec.Step == 0 {
		return &Iterator{finished: true}
	}

	step := spec.Step
	if !spec.End.IsZero() && spec.End.Before(spec.Start) && step > 0 {
		step = -step
	}
	magnitude := step
	if magnitude < 0 {
		magnitude = -magnitude
	}

	return &Iterator{
		current:   spec.Start,
		step:      step,
		magnitude: magnitude,
		maxCount:  spec.MaxCount,
		done:      Done(spec.End, step, !spec.Inclusive),
	}
}

// Next returns the next date, ok is false once the range is exhausted.
// The date after the returned one is not computed until Next is called again.
func (it *Iterator) Next() (day Date, ok bool) {
	if it.finished {
		return Date{}, false
	}
	if it.started {
		it.current = it.current.AddDays(it.step)
		it.count += it.magnitude
	}
	it.started = true

	if it.done(it.current) || (it.maxCount != 0 && it.count >= it.maxCount) {
		it.finished = true
		return Date{}, false
	}
	return it.current, true
}

// Peek reports the date Next would return without advancing. Unlike Next it never panics,
// a step past the representable calendar is reported as no more dates.
func (it *Iterator) Peek() (day Date, ok bool) {
	if it.finished {
		return Date{}, false
	}
	current, count := it.current, it.count
	if it.started {
		if current, ok = current.addDays(it.step); !ok {
			return Date{}, false
		}
		count += it.magnitude
	}
	if it.done(current) || (it.maxCount != 0 && count >= it.maxCount) {
		return Date{}, false
	}
	return current, true
}

// Step returns the effective step, negated if the direction was flipped
func (it *Iterator) Step() int { return it.step }
