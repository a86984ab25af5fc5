package logic

// Encode builds the frame a transmitter would send for ts, with BCD fields,
// zone flags, the start-of-time bit and even parity bits set. It is the
// inverse of Decode and drives the simulator.
func Encode(ts Timestamp) Frame {
	var f Frame
	put := func(offset uint, width uint, v int) {
		f |= Frame(uint64(v)&(1<<width-1)) << offset
	}
	putBCD := func(offset, unitsWidth, tensWidth uint, v int) {
		put(offset, unitsWidth, v%10)
		put(offset+unitsWidth, tensWidth, v/10)
	}

	switch ts.Zone {
	case ZoneCEST:
		put(17, 1, 1)
	case ZoneCET, ZoneUnknown:
		put(18, 1, 1)
	}
	put(20, 1, 1)

	putBCD(21, 4, 3, ts.Minute)
	put(28, 1, int(FoldParity(field(f, 21, 7))))

	putBCD(29, 4, 2, ts.Hour)
	put(35, 1, int(FoldParity(field(f, 29, 6))))

	putBCD(36, 4, 2, ts.Day)
	put(42, 3, ts.Weekday)
	putBCD(45, 4, 1, ts.Month)
	putBCD(50, 4, 4, ts.Year-2000)
	put(58, 1, int(FoldParity(field(f, 36, 22))))

	return f
}
