package planner

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"fitdesk/backoffice/internal/client"
)

type updateCall struct {
	templateID string
	rangeID    string
	body       client.RangeUpdate
}

type fakeStore struct {
	updates   []updateCall
	deletes   []string
	updateErr error
	deleteErr error
}

func (f *fakeStore) UpdateRange(_ context.Context, templateID, rangeID string, body client.RangeUpdate) error {
	f.updates = append(f.updates, updateCall{templateID: templateID, rangeID: rangeID, body: body})
	return f.updateErr
}

func (f *fakeStore) DeleteRange(_ context.Context, _ string, rangeID string) error {
	f.deletes = append(f.deletes, rangeID)
	return f.deleteErr
}

type alerts []string

func (a *alerts) Alert(msg string) { *a = append(*a, msg) }

func yes() Confirmer {
	return ConfirmFunc(func(context.Context, string) bool { return true })
}

func no() Confirmer {
	return ConfirmFunc(func(context.Context, string) bool { return false })
}

func threeRangeTemplate() client.Template {
	return client.Template{
		ID:         "tpl-1",
		TotalWeeks: 6,
		Ranges: []client.Range{
			{ID: "ra", Name: "A", StartWeek: 1, StartDayOfWeek: 1, EndWeek: 2, EndDayOfWeek: 7},
			{ID: "rb", Name: "B", StartWeek: 3, StartDayOfWeek: 1, EndWeek: 4, EndDayOfWeek: 7},
			{ID: "rc", Name: "C", StartWeek: 5, StartDayOfWeek: 1, EndWeek: 6, EndDayOfWeek: 7},
		},
	}
}

func setupReconciler(t *testing.T, store *fakeStore, confirm Confirmer) (*Reconciler, *alerts) {
	t.Helper()
	a := &alerts{}
	r := NewReconciler(store, confirm, a, zap.NewNop())
	r.Load(threeRangeTemplate())
	return r, a
}

func names(ps []Period) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReconciler_LoadReplacesState(t *testing.T) {
	r, _ := setupReconciler(t, &fakeStore{}, yes())
	first := r.Periods()
	if err := r.SelectPeriod(first[1].Key); err != nil {
		t.Fatal(err)
	}

	r.Load(client.Template{ID: "tpl-2", TotalWeeks: 2, Ranges: []client.Range{
		{ID: "rx", StartWeek: 1, StartDayOfWeek: 3, EndWeek: 1, EndDayOfWeek: 5},
	}})

	ps := r.Periods()
	if len(ps) != 1 || ps[0].StartDay != 3 || ps[0].EndDay != 5 {
		t.Fatalf("unexpected periods after reload: %+v", ps)
	}
	if _, ok := r.Selected(); ok {
		t.Error("reload should clear the selection")
	}
	if r.TemplateID() != "tpl-2" || r.TotalWeeks() != 2 {
		t.Errorf("template = %s/%d", r.TemplateID(), r.TotalWeeks())
	}
	if r.View() != ViewCalendar || !r.ListExpanded() {
		t.Error("reload should return to the calendar with the list expanded")
	}
}

type fakeSource struct {
	tpl *client.Template
	err error
}

func (f fakeSource) GetTemplate(context.Context, string) (*client.Template, error) {
	return f.tpl, f.err
}

func TestReconciler_LoadFrom(t *testing.T) {
	r := NewReconciler(&fakeStore{}, yes(), nil, nil)
	tpl := threeRangeTemplate()
	if err := r.LoadFrom(context.Background(), fakeSource{tpl: &tpl}, "tpl-1"); err != nil {
		t.Fatal(err)
	}
	if len(r.Periods()) != 3 {
		t.Fatalf("want 3 periods, got %d", len(r.Periods()))
	}

	boom := errors.New("boom")
	if err := r.LoadFrom(context.Background(), fakeSource{err: boom}, "tpl-1"); !errors.Is(err, boom) {
		t.Errorf("want wrapped boom, got %v", err)
	}
	if len(r.Periods()) != 3 {
		t.Error("failed load must keep the current list")
	}
}

func TestReconciler_SelectPeriod(t *testing.T) {
	r, _ := setupReconciler(t, &fakeStore{}, yes())
	ps := r.Periods()

	if err := r.SelectPeriod(ps[1].Key); err != nil {
		t.Fatal(err)
	}
	sel, ok := r.Selected()
	if !ok || sel.Key != ps[1].Key {
		t.Fatalf("selected = %+v, %v", sel, ok)
	}
	if r.View() != ViewPeriodDetail || r.ListExpanded() {
		t.Error("selecting should open the detail view and collapse the list")
	}
	if w, ok := r.DetailWeek(); !ok || w != 3 {
		t.Errorf("detail week = %d,%v, want 3", w, ok)
	}
	if err := r.SelectPeriod("missing"); !errors.Is(err, ErrPeriodNotFound) {
		t.Errorf("want ErrPeriodNotFound, got %v", err)
	}

	r.ShowCalendar()
	if r.View() != ViewCalendar || !r.ListExpanded() {
		t.Error("ShowCalendar should restore the calendar view")
	}
}

func TestReconciler_SelectedDays(t *testing.T) {
	store := &fakeStore{}
	r := NewReconciler(store, yes(), nil, zap.NewNop())
	tpl := threeRangeTemplate()
	tpl.Weeks = []client.PlanWeek{
		{Number: 3, Days: []client.PlanDay{{DayOfWeek: 2, Sessions: []client.Session{{Name: "Sentadilla"}}}}},
		{Number: 1, Days: []client.PlanDay{{DayOfWeek: 1, Sessions: []client.Session{{Name: "Press banca"}}}}},
		{Number: 4, Days: []client.PlanDay{{DayOfWeek: 7}, {DayOfWeek: 1}}},
	}
	r.Load(tpl)
	if got := r.SelectedDays(); got != nil {
		t.Errorf("no selection should give no days, got %+v", got)
	}

	if err := r.SelectPeriod(r.Periods()[1].Key); err != nil {
		t.Fatal(err)
	}
	days := r.SelectedDays()
	if len(days) != 3 {
		t.Fatalf("want 3 days in weeks 3-4, got %+v", days)
	}
	want := []int{16, 22, 28}
	for i, d := range days {
		if d.DayIndex != want[i] {
			t.Errorf("day %d index = %d, want %d", i, d.DayIndex, want[i])
		}
	}
	if days[0].Sessions[0].Name != "Sentadilla" {
		t.Errorf("sessions not carried: %+v", days[0])
	}
	if wd := r.WeekDays(1); len(wd) != 1 || wd[0].DayIndex != 1 {
		t.Errorf("WeekDays(1) = %+v", wd)
	}
}

func TestReconciler_RenameConcreteScenario(t *testing.T) {
	store := &fakeStore{}
	r := NewReconciler(store, yes(), nil, zap.NewNop())
	r.Load(client.Template{ID: "tpl-9", TotalWeeks: 4, Ranges: []client.Range{
		{ID: "range-1", StartWeek: 1, StartDayOfWeek: 1, EndWeek: 2, EndDayOfWeek: 3},
	}})
	p := r.Periods()[0]
	if p.StartDay != 1 || p.EndDay != 10 {
		t.Fatalf("period = [%d,%d], want [1,10]", p.StartDay, p.EndDay)
	}

	if err := r.RenamePeriod(context.Background(), p.Key, "Bloque de fuerza"); err != nil {
		t.Fatalf("RenamePeriod: %v", err)
	}
	if len(store.updates) != 1 {
		t.Fatalf("want 1 PUT, got %d", len(store.updates))
	}
	call := store.updates[0]
	if call.templateID != "tpl-9" || call.rangeID != "range-1" {
		t.Errorf("PUT target = %s/%s", call.templateID, call.rangeID)
	}
	raw, err := json.Marshal(call.body)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"name":"Bloque de fuerza","startWeek":1,"startDayOfWeek":1,"endWeek":2,"endDayOfWeek":3,"days":[]}`
	if string(raw) != want {
		t.Errorf("PUT body = %s\nwant      %s", raw, want)
	}
	if got := r.Periods()[0]; got.Name != "Bloque de fuerza" || got.StartDay != 1 || got.EndDay != 10 {
		t.Errorf("local entry = %+v", got)
	}
}

func TestReconciler_RenameKeepsDayOrder(t *testing.T) {
	r, _ := setupReconciler(t, &fakeStore{}, yes())
	for i, p := range r.Periods() {
		if err := r.RenamePeriod(context.Background(), p.Key, "Fase"); err != nil {
			t.Fatal(err)
		}
		got := r.Periods()[i]
		if got.StartDay != p.StartDay || got.EndDay != p.EndDay || got.StartDay > got.EndDay {
			t.Errorf("rename changed bounds: %+v -> %+v", p, got)
		}
	}
}

func TestReconciler_RenameLocalOnly(t *testing.T) {
	store := &fakeStore{}
	r := NewReconciler(store, yes(), nil, zap.NewNop())
	r.Load(client.Template{ID: "tpl", Ranges: []client.Range{
		{Name: "sin id", StartWeek: 1, StartDayOfWeek: 1, EndWeek: 1, EndDayOfWeek: 7},
	}})
	p := r.Periods()[0]
	if err := r.RenamePeriod(context.Background(), p.Key, "Local"); err != nil {
		t.Fatal(err)
	}
	if len(store.updates) != 0 {
		t.Errorf("unsaved period must not be written back, got %d PUTs", len(store.updates))
	}
	if r.Periods()[0].Name != "Local" {
		t.Error("local rename not applied")
	}
}

func TestReconciler_RenameFailureReverts(t *testing.T) {
	store := &fakeStore{updateErr: &client.HTTPError{Method: "PUT", StatusCode: 500}}
	r, a := setupReconciler(t, store, yes())
	p := r.Periods()[0]

	err := r.RenamePeriod(context.Background(), p.Key, "Nuevo")
	var httpErr *client.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("want HTTPError, got %v", err)
	}
	if got := r.Periods()[0].Name; got != "A" {
		t.Errorf("name = %q, want reverted to A", got)
	}
	if len(*a) != 1 {
		t.Errorf("want one alert, got %v", *a)
	}
}

func TestReconciler_RenameWithoutToken(t *testing.T) {
	store := &fakeStore{updateErr: client.ErrNoToken}
	r, a := setupReconciler(t, store, yes())
	p := r.Periods()[2]
	if err := r.RenamePeriod(context.Background(), p.Key, "X"); !errors.Is(err, client.ErrNoToken) {
		t.Fatalf("want ErrNoToken, got %v", err)
	}
	if r.Periods()[2].Name != "C" || len(*a) != 1 {
		t.Error("auth failure should revert and alert")
	}
}

func TestReconciler_RenameValidation(t *testing.T) {
	store := &fakeStore{}
	r, _ := setupReconciler(t, store, yes())
	if err := r.RenamePeriod(context.Background(), r.Periods()[0].Key, "   "); !errors.Is(err, ErrEmptyName) {
		t.Errorf("want ErrEmptyName, got %v", err)
	}
	if err := r.RenamePeriod(context.Background(), "nope", "x"); !errors.Is(err, ErrPeriodNotFound) {
		t.Errorf("want ErrPeriodNotFound, got %v", err)
	}
	if len(store.updates) != 0 {
		t.Error("rejected renames must not reach the store")
	}
}

func TestReconciler_EditLifecycle(t *testing.T) {
	store := &fakeStore{}
	r, _ := setupReconciler(t, store, yes())
	p := r.Periods()[1]

	if err := r.SaveEdit(context.Background(), "x"); !errors.Is(err, ErrNotEditing) {
		t.Errorf("want ErrNotEditing, got %v", err)
	}

	if err := r.BeginEdit(p.Key); err != nil {
		t.Fatal(err)
	}
	if e, ok := r.Editing(); !ok || e.Key != p.Key {
		t.Fatal("period should be in editing state")
	}
	r.CancelEdit()
	if _, ok := r.Editing(); ok {
		t.Error("cancel should leave editing state")
	}
	if len(store.updates) != 0 || r.Periods()[1].Name != "B" {
		t.Error("cancel must not mutate or call the backend")
	}

	if err := r.BeginEdit(p.Key); err != nil {
		t.Fatal(err)
	}
	if err := r.SaveEdit(context.Background(), "Hipertrofia"); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Editing(); ok {
		t.Error("save should leave editing state")
	}
	if r.Periods()[1].Name != "Hipertrofia" || len(store.updates) != 1 {
		t.Error("save should rename and sync")
	}
}

func TestReconciler_DeleteSelectedClearsSelection(t *testing.T) {
	store := &fakeStore{}
	r, _ := setupReconciler(t, store, yes())
	b := r.Periods()[1]
	if err := r.SelectPeriod(b.Key); err != nil {
		t.Fatal(err)
	}

	if err := r.DeletePeriod(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if got := names(r.Periods()); !equalStrings(got, []string{"A", "C"}) {
		t.Errorf("list = %v, want [A C]", got)
	}
	if _, ok := r.Selected(); ok {
		t.Error("deleting the selected period should clear the selection")
	}
	if len(store.deletes) != 1 || store.deletes[0] != "rb" {
		t.Errorf("deletes = %v", store.deletes)
	}
}

func TestReconciler_DeleteOtherKeepsSelection(t *testing.T) {
	r, _ := setupReconciler(t, &fakeStore{}, yes())
	c := r.Periods()[2]
	if err := r.SelectPeriod(c.Key); err != nil {
		t.Fatal(err)
	}

	if err := r.DeletePeriod(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if got := names(r.Periods()); !equalStrings(got, []string{"B", "C"}) {
		t.Errorf("list = %v, want [B C]", got)
	}
	sel, ok := r.Selected()
	if !ok || sel.Key != c.Key {
		t.Errorf("selection should still be C, got %+v %v", sel, ok)
	}
	if p, _ := r.Period(1); p.Key != c.Key {
		t.Error("C should now be at index 1")
	}
}

func TestReconciler_DeleteDeclined(t *testing.T) {
	store := &fakeStore{}
	r, _ := setupReconciler(t, store, no())
	if err := r.DeletePeriod(context.Background(), 0); !errors.Is(err, ErrDeleteCancelled) {
		t.Fatalf("want ErrDeleteCancelled, got %v", err)
	}
	if len(r.Periods()) != 3 || len(store.deletes) != 0 {
		t.Error("declined delete must not mutate or call the backend")
	}
}

func TestReconciler_DeleteUnsavedSkipsConfirmation(t *testing.T) {
	store := &fakeStore{}
	asked := false
	confirm := ConfirmFunc(func(context.Context, string) bool { asked = true; return false })
	r := NewReconciler(store, confirm, nil, zap.NewNop())
	r.Load(client.Template{ID: "tpl", Ranges: []client.Range{{StartWeek: 1, StartDayOfWeek: 1, EndWeek: 1, EndDayOfWeek: 2}}})

	if err := r.DeletePeriod(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if asked || len(store.deletes) != 0 || len(r.Periods()) != 0 {
		t.Error("unsaved period should be removed locally without prompt or request")
	}
}

func TestReconciler_DeleteOutOfRange(t *testing.T) {
	r, _ := setupReconciler(t, &fakeStore{}, yes())
	if err := r.DeletePeriod(context.Background(), 3); !errors.Is(err, ErrPeriodNotFound) {
		t.Errorf("want ErrPeriodNotFound, got %v", err)
	}
	if err := r.DeletePeriod(context.Background(), -1); !errors.Is(err, ErrPeriodNotFound) {
		t.Errorf("want ErrPeriodNotFound, got %v", err)
	}
}

func TestReconciler_DeleteFailureRestores(t *testing.T) {
	store := &fakeStore{deleteErr: errors.New("connection refused")}
	r, a := setupReconciler(t, store, yes())
	b := r.Periods()[1]
	if err := r.SelectPeriod(b.Key); err != nil {
		t.Fatal(err)
	}

	if err := r.DeletePeriod(context.Background(), 1); err == nil {
		t.Fatal("want error from failed delete")
	}
	if got := names(r.Periods()); !equalStrings(got, []string{"A", "B", "C"}) {
		t.Errorf("list = %v, want restored [A B C]", got)
	}
	if sel, ok := r.Selected(); !ok || sel.Key != b.Key {
		t.Error("selection should be restored with the entry")
	}
	if len(*a) != 1 {
		t.Errorf("want one alert, got %v", *a)
	}
}

func TestReconciler_DeleteRefreshesOpenDetail(t *testing.T) {
	r, _ := setupReconciler(t, &fakeStore{}, yes())
	var refreshed []int
	r.SetDetailRefresher(func(week int) { refreshed = append(refreshed, week) })

	r.OpenWeek(4)
	rev := r.DetailRevision()
	if err := r.DeletePeriod(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if len(refreshed) != 1 || refreshed[0] != 4 {
		t.Errorf("refreshed = %v, want [4]", refreshed)
	}
	if r.DetailRevision() != rev+1 {
		t.Error("detail revision should advance")
	}
	if w, ok := r.DetailWeek(); !ok || w != 4 {
		t.Errorf("detail week = %d,%v, want 4", w, ok)
	}

	// detail keyed to a week outside the removed period is left alone
	r.OpenWeek(6)
	if err := r.DeletePeriod(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if len(refreshed) != 1 {
		t.Errorf("unexpected refresh: %v", refreshed)
	}
}

// gatedStore holds every DeleteRange call until the test sends its result.
type gatedStore struct {
	fakeStore
	started chan string
	results map[string]chan error
}

func newGatedStore(rangeIDs ...string) *gatedStore {
	g := &gatedStore{started: make(chan string, len(rangeIDs)), results: map[string]chan error{}}
	for _, id := range rangeIDs {
		g.results[id] = make(chan error)
	}
	return g
}

func (g *gatedStore) DeleteRange(_ context.Context, _ string, rangeID string) error {
	g.started <- rangeID
	return <-g.results[rangeID]
}

func TestReconciler_OverlappingDeletesRestoreLoadOrder(t *testing.T) {
	offline := errors.New("offline")
	tests := []struct {
		name    string
		order   []string
		results map[string]error
		want    []string
	}{
		{"first fails first", []string{"ra", "rb"}, map[string]error{"ra": offline, "rb": offline}, []string{"A", "B", "C"}},
		{"second fails first", []string{"rb", "ra"}, map[string]error{"ra": offline, "rb": offline}, []string{"A", "B", "C"}},
		{"only first fails", []string{"rb", "ra"}, map[string]error{"ra": offline, "rb": nil}, []string{"A", "C"}},
		{"only second fails", []string{"ra", "rb"}, map[string]error{"ra": nil, "rb": offline}, []string{"B", "C"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newGatedStore("ra", "rb")
			r := NewReconciler(store, yes(), nil, zap.NewNop())
			r.Load(threeRangeTemplate())
			ctx := context.Background()

			done := map[string]chan error{"ra": make(chan error, 1), "rb": make(chan error, 1)}
			go func() { done["ra"] <- r.DeletePeriod(ctx, 0) }()
			if id := <-store.started; id != "ra" {
				t.Fatalf("first delete hit %s", id)
			}
			go func() { done["rb"] <- r.DeletePeriod(ctx, 0) }()
			if id := <-store.started; id != "rb" {
				t.Fatalf("second delete hit %s", id)
			}
			if got := names(r.Periods()); !equalStrings(got, []string{"C"}) {
				t.Fatalf("while pending = %v, want [C]", got)
			}

			for _, id := range tt.order {
				store.results[id] <- tt.results[id]
				err := <-done[id]
				if (err != nil) != (tt.results[id] != nil) {
					t.Fatalf("delete %s returned %v", id, err)
				}
			}
			if got := names(r.Periods()); !equalStrings(got, tt.want) {
				t.Errorf("list = %v, want %v", got, tt.want)
			}
		})
	}
}

// reloadingStore reloads the reconciler while a write is in flight, then fails it.
type reloadingStore struct {
	reload func()
	err    error
}

func (s *reloadingStore) UpdateRange(context.Context, string, string, client.RangeUpdate) error {
	s.reload()
	return s.err
}

func (s *reloadingStore) DeleteRange(context.Context, string, string) error {
	s.reload()
	return s.err
}

func TestReconciler_ReloadDuringFailedWriteWins(t *testing.T) {
	fresh := client.Template{ID: "tpl-1", TotalWeeks: 6, Ranges: []client.Range{
		{ID: "ra", Name: "A servidor", StartWeek: 1, StartDayOfWeek: 1, EndWeek: 2, EndDayOfWeek: 7},
		{ID: "rc", Name: "C", StartWeek: 5, StartDayOfWeek: 1, EndWeek: 6, EndDayOfWeek: 7},
	}}
	store := &reloadingStore{err: errors.New("gateway timeout")}
	r := NewReconciler(store, yes(), nil, zap.NewNop())
	store.reload = func() { r.Load(fresh) }
	ctx := context.Background()

	r.Load(threeRangeTemplate())
	if err := r.RenamePeriod(ctx, r.Periods()[0].Key, "Nuevo"); err == nil {
		t.Fatal("want rename error")
	}
	if got := names(r.Periods()); !equalStrings(got, []string{"A servidor", "C"}) {
		t.Errorf("after failed rename = %v, want reloaded [A servidor C]", got)
	}

	r.Load(threeRangeTemplate())
	b := r.Periods()[1]
	if err := r.SelectPeriod(b.Key); err != nil {
		t.Fatal(err)
	}
	if err := r.DeletePeriod(ctx, 1); err == nil {
		t.Fatal("want delete error")
	}
	if got := names(r.Periods()); !equalStrings(got, []string{"A servidor", "C"}) {
		t.Errorf("after failed delete = %v, want reloaded [A servidor C]", got)
	}
	if _, ok := r.Selected(); ok {
		t.Error("a stale selection came back after the reload")
	}
}

func TestReconciler_RenameRefusesInvertedRange(t *testing.T) {
	store := &fakeStore{}
	r := NewReconciler(store, yes(), nil, zap.NewNop())
	r.Load(client.Template{ID: "tpl-1", TotalWeeks: 4, Ranges: []client.Range{
		{ID: "rx", Name: "Roto", StartWeek: 3, StartDayOfWeek: 2, EndWeek: 1, EndDayOfWeek: 5},
	}})

	p := r.Periods()[0]
	if err := r.RenamePeriod(context.Background(), p.Key, "Arreglado"); !errors.Is(err, ErrInvalidBounds) {
		t.Fatalf("want ErrInvalidBounds, got %v", err)
	}
	if len(store.updates) != 0 {
		t.Errorf("inverted range was written back: %+v", store.updates)
	}
	if r.Periods()[0].Name != "Roto" {
		t.Error("name changed despite the refusal")
	}
}
