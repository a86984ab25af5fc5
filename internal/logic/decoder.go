package logic

// Field spans as (offset, width) pairs, bit 0 = first bit of the minute.
const (
	minuteOffset, minuteWidth = 21, 8  // 21-27 BCD, 28 parity
	hourOffset, hourWidth     = 29, 7  // 29-34 BCD, 35 parity
	dateOffset, dateWidth     = 36, 23 // 36-57 BCD, 58 parity
)

func field(f Frame, offset, width uint) uint32 {
	return uint32(f>>offset) & (1<<width - 1)
}

// FoldParity XOR-folds x down to one bit: 1 means an odd number of set bits.
func FoldParity(x uint32) uint32 {
	x ^= x >> 16
	x ^= x >> 8
	x ^= x >> 4
	x ^= x >> 2
	x ^= x >> 1
	return x & 1
}

func checkParity(f Frame, name Field, offset, width uint) error {
	data := field(f, offset, width)
	if FoldParity(data) != 0 {
		return &ParityError{Field: name, Data: data}
	}
	return nil
}

func bcd(f Frame, unitsOffset, unitsWidth, tensOffset, tensWidth uint) int {
	return int(field(f, unitsOffset, unitsWidth)) + int(field(f, tensOffset, tensWidth))*10
}

// Decode validates the date, hour and minute parity (in that order) and
// returns the decoded timestamp. Only the first failing field is reported.
func Decode(f Frame) (Timestamp, error) {
	if err := checkParity(f, FieldDate, dateOffset, dateWidth); err != nil {
		return Timestamp{}, err
	}
	if err := checkParity(f, FieldHour, hourOffset, hourWidth); err != nil {
		return Timestamp{}, err
	}
	if err := checkParity(f, FieldMinute, minuteOffset, minuteWidth); err != nil {
		return Timestamp{}, err
	}

	return Timestamp{
		Year:    2000 + bcd(f, 50, 4, 54, 4),
		Month:   bcd(f, 45, 4, 49, 1),
		Day:     bcd(f, 36, 4, 40, 2),
		Weekday: int(field(f, 42, 3)),
		Hour:    bcd(f, 29, 4, 33, 2),
		Minute:  bcd(f, 21, 4, 25, 3),
		Zone:    decodeZone(f),
	}, nil
}

func decodeZone(f Frame) Zone {
	switch field(f, 17, 2) {
	case 0b01:
		return ZoneCEST
	case 0b10:
		return ZoneCET
	}
	return ZoneUnknown
}
