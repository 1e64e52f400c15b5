package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// HoursRegistry answers business-hours questions for the admission engine and
// owns the default bootstrap data.
type HoursRegistry struct {
	repo HoursRepository
}

func NewHoursRegistry(repo HoursRepository) *HoursRegistry {
	return &HoursRegistry{repo: repo}
}

// ActiveRule returns the active rule for a weekday, or ErrRuleNotFound when
// the day is not configured for operation.
func (h *HoursRegistry) ActiveRule(ctx context.Context, weekday time.Weekday) (*BusinessHoursRule, error) {
	return h.repo.GetActiveRule(ctx, weekday)
}

// IsOperatingDay reports whether an active rule exists for the weekday.
func (h *HoursRegistry) IsOperatingDay(ctx context.Context, weekday time.Weekday) (bool, error) {
	_, err := h.repo.GetActiveRule(ctx, weekday)
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ActiveRules lists every active rule ordered by weekday.
func (h *HoursRegistry) ActiveRules(ctx context.Context) ([]BusinessHoursRule, error) {
	return h.repo.ListActiveRules(ctx)
}

// UpsertDefault creates or updates the active rule for a weekday. Calling it
// twice with the same input leaves exactly one active rule.
func (h *HoursRegistry) UpsertDefault(ctx context.Context, weekday time.Weekday, opensAt, closesAt TimeOfDay) error {
	if err := h.repo.UpsertDefault(ctx, weekday, opensAt, closesAt); err != nil {
		return fmt.Errorf("upsert business hours for %s: %w", weekday, err)
	}
	return nil
}

// SeedDefaults installs the default Monday-Saturday 09:00-18:00 schedule on
// startup. Sunday deliberately gets no rule: absence of an active rule is the
// closed signal.
func (h *HoursRegistry) SeedDefaults(ctx context.Context) error {
	opensAt := NewTimeOfDay(9, 0)
	closesAt := NewTimeOfDay(18, 0)

	for weekday := time.Monday; weekday <= time.Saturday; weekday++ {
		if err := h.UpsertDefault(ctx, weekday, opensAt, closesAt); err != nil {
			return err
		}
	}

	log.Printf("business hours seeded: Monday-Saturday %s-%s, Sunday closed", opensAt, closesAt)
	return nil
}
