package types

import "time"

// DNP3Time is a DNP3 absolute time: milliseconds since the Unix epoch, UTC,
// carried on the wire in 48 bits
type DNP3Time uint64

const timeMask = 1<<48 - 1

// Now is FromTime(time.Now())
func Now() DNP3Time {
	return FromTime(time.Now())
}

// FromTime truncates t to milliseconds and to the 48-bit wire range
func FromTime(t time.Time) DNP3Time {
	return DNP3Time(uint64(t.UnixMilli()) & timeMask)
}

// ToTime returns the time in UTC
func (t DNP3Time) ToTime() time.Time {
	return time.UnixMilli(int64(t & timeMask)).UTC()
}

// IsValid reports whether a time was set. Zero means the sender had none.
func (t DNP3Time) IsValid() bool {
	return t&timeMask != 0
}

func (t DNP3Time) String() string {
	if !t.IsValid() {
		return "unset"
	}
	return t.ToTime().Format("2006-01-02 15:04:05.000")
}
