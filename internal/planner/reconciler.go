package planner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"fitdesk/backoffice/internal/client"
	"fitdesk/backoffice/internal/metrics"
	"fitdesk/backoffice/internal/observability"
)

var (
	ErrPeriodNotFound  = errors.New("planner: period not found")
	ErrNotEditing      = errors.New("planner: no period is being edited")
	ErrEmptyName       = errors.New("planner: period name cannot be empty")
	ErrDeleteCancelled = errors.New("planner: delete cancelled")
	ErrInvalidBounds   = errors.New("planner: period ends before it starts")
)

// RangeStore writes range changes back to the backend.
type RangeStore interface {
	UpdateRange(ctx context.Context, templateID, rangeID string, body client.RangeUpdate) error
	DeleteRange(ctx context.Context, templateID, rangeID string) error
}

// TemplateSource fetches a template with its ranges.
type TemplateSource interface {
	GetTemplate(ctx context.Context, templateID string) (*client.Template, error)
}

// Confirmer asks the user a blocking yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// Notifier surfaces failures to the user.
type Notifier interface {
	Alert(msg string)
}

type NotifyFunc func(msg string)

func (f NotifyFunc) Alert(msg string) { f(msg) }

// DetailRefreshFunc re-renders the detail view for a week.
type DetailRefreshFunc func(week int)

type View int

const (
	ViewCalendar View = iota
	ViewPeriodDetail
)

func (v View) String() string {
	if v == ViewPeriodDetail {
		return "period-detail"
	}
	return "calendar"
}

// ScheduledDay is one plan day placed on the flat day index.
type ScheduledDay struct {
	DayIndex  int
	Week      int
	DayOfWeek int
	Sessions  []client.Session
}

// Reconciler owns the period list of the loaded template. Local edits are
// applied before the backend is called; when the call fails the edit is
// reverted and the user is alerted.
type Reconciler struct {
	mu sync.Mutex

	store   RangeStore
	confirm Confirmer
	notify  Notifier
	refresh DetailRefreshFunc
	logger  *zap.Logger

	templateID string
	totalWeeks int
	weeks      []client.PlanWeek
	generation int

	periods      []Period
	selected     string
	editing      string
	view         View
	listExpanded bool
	detailWeek   int
	detailRev    int
}

// NewReconciler creates an empty Reconciler. A nil confirm declines every
// deletion of a saved period; a nil notify drops alerts.
func NewReconciler(store RangeStore, confirm Confirmer, notify Notifier, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		store:        store,
		confirm:      confirm,
		notify:       notify,
		logger:       logger,
		listExpanded: true,
	}
}

// SetDetailRefresher installs the callback run when the open detail view must be re-fetched.
func (r *Reconciler) SetDetailRefresher(fn DetailRefreshFunc) {
	r.mu.Lock()
	r.refresh = fn
	r.mu.Unlock()
}

// Load replaces the local state with periods derived from t.Ranges.
func (r *Reconciler) Load(t client.Template) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.templateID = t.ID
	r.totalWeeks = t.TotalWeeks
	r.weeks = t.Weeks
	r.periods = Derive(t.Ranges)
	r.generation++
	r.selected = ""
	r.editing = ""
	r.view = ViewCalendar
	r.listExpanded = true
	r.detailWeek = 0

	r.logger.Debug("template loaded",
		zap.String("template_id", t.ID),
		zap.Int("total_weeks", t.TotalWeeks),
		zap.Int("periods", len(r.periods)))
}

// LoadFrom fetches templateID from src and loads it.
func (r *Reconciler) LoadFrom(ctx context.Context, src TemplateSource, templateID string) error {
	t, err := src.GetTemplate(ctx, templateID)
	if err != nil {
		r.logger.Warn("load template failed", zap.String("template_id", templateID), zap.Error(err))
		return fmt.Errorf("load template %s: %w", templateID, err)
	}
	r.Load(*t)
	return nil
}

func (r *Reconciler) TemplateID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.templateID
}

func (r *Reconciler) TotalWeeks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalWeeks
}

// Periods returns a copy of the local list.
func (r *Reconciler) Periods() []Period {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.periods)
}

// Period returns the entry at index.
func (r *Reconciler) Period(index int) (Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.periods) {
		return Period{}, ErrPeriodNotFound
	}
	return r.periods[index], nil
}

// Selected returns the period chosen for the detail view, if any.
func (r *Reconciler) Selected() (Period, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOf(r.selected); i >= 0 {
		return r.periods[i], true
	}
	return Period{}, false
}

// SelectPeriod shows the detail view for the period and collapses the list panel.
func (r *Reconciler) SelectPeriod(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(key)
	if i < 0 {
		return ErrPeriodNotFound
	}
	r.selected = key
	r.view = ViewPeriodDetail
	r.listExpanded = false
	r.detailWeek = r.periods[i].StartWeek()
	return nil
}

// OpenWeek shows the detail view for a single week without selecting a period.
func (r *Reconciler) OpenWeek(week int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.view = ViewPeriodDetail
	r.detailWeek = week
}

// ShowCalendar closes the detail view and expands the list panel again.
func (r *Reconciler) ShowCalendar() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.view = ViewCalendar
	r.listExpanded = true
	r.detailWeek = 0
}

func (r *Reconciler) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

func (r *Reconciler) ListExpanded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listExpanded
}

// DetailWeek returns the week the detail view is keyed to.
func (r *Reconciler) DetailWeek() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.detailWeek, r.detailWeek > 0
}

// DetailRevision increases every time the detail view is forced to refresh.
func (r *Reconciler) DetailRevision() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.detailRev
}

// SelectedDays lists the plan days covered by the selected period.
func (r *Reconciler) SelectedDays() []ScheduledDay {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(r.selected)
	if i < 0 {
		return nil
	}
	return r.daysBetween(r.periods[i].StartDay, r.periods[i].EndDay)
}

// WeekDays lists the plan days of one week.
func (r *Reconciler) WeekDays(week int) []ScheduledDay {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.daysBetween(WeekDayToIndex(week, 1), WeekDayToIndex(week, DaysPerWeek))
}

// BeginEdit puts the period into editing state.
func (r *Reconciler) BeginEdit(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(key) < 0 {
		return ErrPeriodNotFound
	}
	r.editing = key
	return nil
}

// Editing returns the period being edited, if any.
func (r *Reconciler) Editing() (Period, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOf(r.editing); i >= 0 {
		return r.periods[i], true
	}
	return Period{}, false
}

// CancelEdit leaves editing state without touching the list.
func (r *Reconciler) CancelEdit() {
	r.mu.Lock()
	r.editing = ""
	r.mu.Unlock()
}

// SaveEdit renames the period being edited.
func (r *Reconciler) SaveEdit(ctx context.Context, newName string) error {
	r.mu.Lock()
	key := r.editing
	r.mu.Unlock()
	if key == "" {
		return ErrNotEditing
	}
	return r.RenamePeriod(ctx, key, newName)
}

// RenamePeriod renames the period locally and, when it is persisted, saves
// the name with its recomputed week/day bounds. A failed save restores the
// previous name.
func (r *Reconciler) RenamePeriod(ctx context.Context, key, newName string) error {
	name := strings.TrimSpace(newName)
	if name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	i := r.indexOf(key)
	if i < 0 {
		r.mu.Unlock()
		return ErrPeriodNotFound
	}
	prev := r.periods[i]
	if !prev.Valid() {
		r.mu.Unlock()
		return fmt.Errorf("%w: days %d-%d", ErrInvalidBounds, prev.StartDay, prev.EndDay)
	}
	r.periods[i].Name = name
	if r.editing == key {
		r.editing = ""
	}
	updated := r.periods[i]
	templateID, gen := r.templateID, r.generation
	r.mu.Unlock()

	rangeID, ok := prev.Persisted()
	if !ok {
		r.logger.Debug("renamed unsaved period", zap.String("key", key), zap.String("name", name))
		return nil
	}

	err := r.store.UpdateRange(ctx, templateID, rangeID, updated.RangeUpdate(name))
	metrics.ObserveSync("rename", err)
	if err == nil {
		r.logger.Info("range renamed",
			zap.String("template_id", templateID),
			zap.String("range_id", rangeID),
			zap.String("name", name))
		return nil
	}

	r.logger.Error("range rename failed",
		zap.String("template_id", templateID),
		zap.String("range_id", rangeID),
		zap.Error(err))
	observability.CaptureErr(err, "op", "rename", "range_id", rangeID)

	r.mu.Lock()
	if r.generation == gen {
		if j := r.indexOf(key); j >= 0 && r.periods[j].Name == name {
			r.periods[j].Name = prev.Name
		}
	}
	r.mu.Unlock()

	r.alert(fmt.Sprintf("Could not rename %q: %v", prev.DisplayName(), err))
	return fmt.Errorf("rename range %s: %w", rangeID, err)
}

// DeletePeriod removes the period at index. Saved periods need confirmation
// and are deleted on the backend; a failed delete puts the entry back.
func (r *Reconciler) DeletePeriod(ctx context.Context, index int) error {
	p, err := r.Period(index)
	if err != nil {
		return err
	}

	rangeID, persisted := p.Persisted()
	if persisted {
		prompt := fmt.Sprintf("Delete period %q (days %d-%d)?", p.DisplayName(), p.StartDay, p.EndDay)
		if r.confirm == nil || !r.confirm.Confirm(ctx, prompt) {
			return ErrDeleteCancelled
		}
	}

	r.mu.Lock()
	pos := r.indexOf(p.Key)
	if pos < 0 {
		r.mu.Unlock()
		return ErrPeriodNotFound
	}
	wasSelected := r.selected == p.Key
	r.periods = slices.Delete(r.periods, pos, pos+1)
	if wasSelected {
		r.selected = ""
	}
	if r.editing == p.Key {
		r.editing = ""
	}
	templateID, gen := r.templateID, r.generation
	refresh, week := r.touchDetail(p)
	r.mu.Unlock()

	if refresh != nil {
		refresh(week)
	}

	if !persisted {
		r.logger.Debug("removed unsaved period", zap.String("key", p.Key))
		return nil
	}

	err = r.store.DeleteRange(ctx, templateID, rangeID)
	metrics.ObserveSync("delete", err)
	if err == nil {
		r.logger.Info("range deleted", zap.String("template_id", templateID), zap.String("range_id", rangeID))
		return nil
	}

	r.logger.Error("range delete failed",
		zap.String("template_id", templateID),
		zap.String("range_id", rangeID),
		zap.Error(err))
	observability.CaptureErr(err, "op", "delete", "range_id", rangeID)

	r.mu.Lock()
	restored := false
	if r.generation == gen && r.indexOf(p.Key) < 0 {
		// Other deletes may have failed back in first; place by load order.
		at := slices.IndexFunc(r.periods, func(q Period) bool { return q.seq > p.seq })
		if at < 0 {
			at = len(r.periods)
		}
		r.periods = slices.Insert(r.periods, at, p)
		if wasSelected && r.selected == "" {
			r.selected = p.Key
		}
		restored = true
	}
	if restored {
		refresh, week = r.touchDetail(p)
	} else {
		refresh = nil
	}
	r.mu.Unlock()

	if refresh != nil {
		refresh(week)
	}

	r.alert(fmt.Sprintf("Could not delete %q: %v", p.DisplayName(), err))
	return fmt.Errorf("delete range %s: %w", rangeID, err)
}

// touchDetail bumps the detail revision when the open detail view shows a
// week covered by p. Caller holds r.mu.
func (r *Reconciler) touchDetail(p Period) (DetailRefreshFunc, int) {
	if r.view != ViewPeriodDetail || r.detailWeek < p.StartWeek() || r.detailWeek > p.EndWeek() {
		return nil, 0
	}
	r.detailRev++
	fn := r.refresh
	if fn == nil {
		fn = func(int) {}
	}
	return fn, r.detailWeek
}

func (r *Reconciler) alert(msg string) {
	if r.notify != nil {
		r.notify.Alert(msg)
	}
}

// indexOf returns the position of key or -1. Caller holds r.mu.
func (r *Reconciler) indexOf(key string) int {
	if key == "" {
		return -1
	}
	for i := range r.periods {
		if r.periods[i].Key == key {
			return i
		}
	}
	return -1
}

// daysBetween collects plan days whose index lies in [from, to]. Caller holds r.mu.
func (r *Reconciler) daysBetween(from, to int) []ScheduledDay {
	var out []ScheduledDay
	for _, w := range r.weeks {
		for _, d := range w.Days {
			idx := WeekDayToIndex(w.Number, d.DayOfWeek)
			if idx < from || idx > to {
				continue
			}
			out = append(out, ScheduledDay{
				DayIndex:  idx,
				Week:      w.Number,
				DayOfWeek: d.DayOfWeek,
				Sessions:  d.Sessions,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayIndex < out[j].DayIndex })
	return out
}
