package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/timeslot"
)

// Source identifies which availability record won precedence for a date.
type Source string

const (
	SourceSingle    Source = "single"
	SourceRecurring Source = "recurring"
	SourceNone      Source = "none"
)

// ResolvedDay is the effective bookable state of one doctor on one date.
// Slots holds only unbooked entries.
type ResolvedDay struct {
	Date   timeslot.Date
	Source Source
	Slots  []TimeSlot
}

func (r ResolvedDay) Available() bool {
	return r.Source != SourceNone && len(r.Slots) > 0
}

// ResolveDay applies the precedence rule between a doctor's single-date
// override and recurring weekly template. A single record always wins; a
// single record with zero slots is an explicit block and does not fall
// through to the template.
func ResolveDay(single, recurring *Availability) ResolvedDay {
	if single != nil {
		if len(single.TimeSlots) == 0 {
			return ResolvedDay{Source: SourceNone, Slots: []TimeSlot{}}
		}
		return ResolvedDay{Source: SourceSingle, Slots: single.FreeSlots()}
	}
	if recurring != nil {
		return ResolvedDay{Source: SourceRecurring, Slots: recurring.FreeSlots()}
	}
	return ResolvedDay{Source: SourceNone, Slots: []TimeSlot{}}
}

// GoverningRecord applies the same precedence but returns the raw record so
// that booking and cancellation can mutate it. A blocked day (empty single
// record) yields no governing record.
func GoverningRecord(single, recurring *Availability) (*Availability, Source) {
	if single != nil {
		if len(single.TimeSlots) == 0 {
			return nil, SourceNone
		}
		return single, SourceSingle
	}
	if recurring != nil {
		return recurring, SourceRecurring
	}
	return nil, SourceNone
}

// loadDayRecords fetches the active single record for the date and, only when
// none exists, the active recurring record for the date's weekday. Missing
// records come back as nil.
func (s *Service) loadDayRecords(ctx context.Context, doctorID uuid.UUID, date timeslot.Date) (single, recurring *Availability, err error) {
	single, err = s.repo.GetActiveSingle(ctx, doctorID, date)
	if err != nil {
		if !errors.Is(err, ErrAvailabilityNotFound) {
			return nil, nil, fmt.Errorf("load single availability: %w", err)
		}
		single = nil
	}
	if single != nil {
		return single, nil, nil
	}

	recurring, err = s.repo.GetActiveRecurring(ctx, doctorID, date.Weekday())
	if err != nil {
		if !errors.Is(err, ErrAvailabilityNotFound) {
			return nil, nil, fmt.Errorf("load recurring availability: %w", err)
		}
		recurring = nil
	}
	return nil, recurring, nil
}

// ResolveAvailability returns the effective bookable slots for one doctor on
// one date.
func (s *Service) ResolveAvailability(ctx context.Context, doctorID uuid.UUID, date timeslot.Date) (*ResolvedDay, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	single, recurring, err := s.loadDayRecords(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}

	day := ResolveDay(single, recurring)
	day.Date = date
	return &day, nil
}

var ErrInvalidDateRange = errors.New("from date must not be after to date")

// ResolveRange applies the per-day resolution across a calendar span,
// inclusive of both endpoints.
func (s *Service) ResolveRange(ctx context.Context, doctorID uuid.UUID, from, to timeslot.Date) ([]ResolvedDay, error) {
	if from.After(to) {
		return nil, fmt.Errorf("%w: %s..%s", ErrInvalidDateRange, from, to)
	}
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	var days []ResolvedDay
	for d := from; !d.After(to); d = d.AddDays(1) {
		single, recurring, err := s.loadDayRecords(ctx, doctorID, d)
		if err != nil {
			return nil, err
		}
		day := ResolveDay(single, recurring)
		day.Date = d
		days = append(days, day)
	}
	return days, nil
}

// DoctorAvailability is one search hit: a doctor together with the slots the
// search date (or one of the doctor's own records) offers.
type DoctorAvailability struct {
	Doctor Doctor
	Date   timeslot.Date
	Source Source
	Slots  []TimeSlot
}

// SearchAvailableDoctors finds doctors by display name and, when a date is
// given, resolves each doctor's availability for that date and keeps only
// doctors with free slots. Without a date every doctor holding any active
// availability record is returned, one entry per record, with that record's
// own unbooked slots.
func (s *Service) SearchAvailableDoctors(ctx context.Context, date *timeslot.Date, name string) ([]DoctorAvailability, error) {
	doctors, err := s.repo.SearchDoctors(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("search doctors: %w", err)
	}

	results := []DoctorAvailability{}
	for _, doc := range doctors {
		if date == nil {
			records, err := s.repo.ListActiveAvailability(ctx, doc.ID)
			if err != nil {
				return nil, fmt.Errorf("list availability for doctor %s: %w", doc.ID, err)
			}
			for _, rec := range records {
				if len(rec.TimeSlots) == 0 {
					// blocked day, not an offer
					continue
				}
				src := SourceRecurring
				if rec.Kind == KindSingle {
					src = SourceSingle
				}
				results = append(results, DoctorAvailability{
					Doctor: doc,
					Date:   rec.Date,
					Source: src,
					Slots:  rec.FreeSlots(),
				})
			}
			continue
		}

		single, recurring, err := s.loadDayRecords(ctx, doc.ID, *date)
		if err != nil {
			return nil, err
		}
		day := ResolveDay(single, recurring)
		if !day.Available() {
			continue
		}
		results = append(results, DoctorAvailability{
			Doctor: doc,
			Date:   *date,
			Source: day.Source,
			Slots:  day.Slots,
		})
	}
	return results, nil
}
