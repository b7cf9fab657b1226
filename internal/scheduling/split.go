package scheduling

import "github.com/clinicore/clinic-scheduling/internal/timeslot"

// SplitSlot returns the slots that replace a free slot once req is booked out
// of it: a leading free remainder and a trailing free remainder, each only if
// non-empty, around a booked slot spanning exactly req. An exact match yields
// a single booked slot. req must be contained in orig.
//
// The function is pure; the caller splices the result over the matched slot's
// index so the record's insertion order is preserved.
func SplitSlot(orig, req timeslot.TimeRange) []TimeSlot {
	out := make([]TimeSlot, 0, 3)
	if req.Start > orig.Start {
		out = append(out, TimeSlot{
			StartTime: timeslot.FormatMinutes(orig.Start),
			EndTime:   timeslot.FormatMinutes(req.Start),
		})
	}
	out = append(out, TimeSlot{
		StartTime: timeslot.FormatMinutes(req.Start),
		EndTime:   timeslot.FormatMinutes(req.End),
		IsBooked:  true,
	})
	if req.End < orig.End {
		out = append(out, TimeSlot{
			StartTime: timeslot.FormatMinutes(req.End),
			EndTime:   timeslot.FormatMinutes(orig.End),
		})
	}
	return out
}

// spliceSlots replaces the slot at idx with the replacement sequence,
// preserving relative order of the surrounding entries.
func spliceSlots(slots []TimeSlot, idx int, replacement []TimeSlot) []TimeSlot {
	out := make([]TimeSlot, 0, len(slots)-1+len(replacement))
	out = append(out, slots[:idx]...)
	out = append(out, replacement...)
	out = append(out, slots[idx+1:]...)
	return out
}

func cloneSlots(slots []TimeSlot) []TimeSlot {
	out := make([]TimeSlot, len(slots))
	copy(out, slots)
	return out
}
