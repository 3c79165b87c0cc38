package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"timetracker-web/internal/datatable"
	"timetracker-web/internal/forms"
	"timetracker-web/internal/format"
	"timetracker-web/internal/ics"
	"timetracker-web/internal/model"
	"timetracker-web/internal/recurrence"
	"timetracker-web/internal/refresh"
	"timetracker-web/internal/store"
	"timetracker-web/internal/tour"
)

// snapshot returns the current payload, triggering a first fetch when
// none exists yet. A failed first fetch degrades to an empty snapshot
// and an error toast; calendar routes never blank-500 on API trouble.
func (s *Server) snapshot(ctx context.Context) refresh.Snapshot {
	if snap, ok := s.refresh.Current(); ok {
		return snap
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	snap, err := s.refresh.RefreshNow(ctx)
	if err != nil {
		s.log.Warn("initial fetch failed", "err", err)
		s.toasts.Error("Error loading calendar data", "The calendar API is unreachable and nothing is cached yet.")
		return refresh.Snapshot{}
	}
	return snap
}

// snapshotFor returns a payload covering [from, to). Navigating outside
// the currently fetched range moves the refresh window there and fetches
// it, so scheduled refreshes keep tracking whatever is being viewed.
func (s *Server) snapshotFor(ctx context.Context, from, to time.Time) refresh.Snapshot {
	if snap, ok := s.refresh.Current(); ok && s.refresh.Covers(from, to) {
		return snap
	}
	s.refresh.SetWindow(from, to)
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	snap, err := s.refresh.RefreshNow(ctx)
	if err != nil {
		s.log.Warn("window fetch failed", "from", from.Format("2006-01-02"), "err", err)
		s.toasts.Error("Error loading calendar data", "The calendar API is unreachable and nothing is cached for this range.")
		return refresh.Snapshot{}
	}
	return snap
}

// windowRecords expands recurrences into the given window.
func windowRecords(snap refresh.Snapshot, from, to time.Time) []model.Record {
	return recurrence.Expand(snap.Records, from, to)
}

func (s *Server) baseVMFor(view, title, streamURL string, snap refresh.Snapshot) baseVM {
	vm := baseVM{
		Now:        time.Now().In(s.cfg.Loc).Format(time.RFC3339),
		View:       view,
		Title:      title,
		StreamURL:  streamURL,
		Stale:      snap.Stale,
		AppVersion: s.cfg.AppVersion,
	}
	if snap.Stale && !snap.FetchedAt.IsZero() {
		vm.StaleSince = snap.FetchedAt.In(s.cfg.Loc).Format("Jan 2 15:04")
	}
	return vm
}

func (s *Server) rememberView(view string) {
	if s.ui == nil {
		return
	}
	if err := s.ui.SetLastView(view); err != nil {
		s.log.Debug("last-view save failed", "err", err)
	}
}

func (s *Server) tourProgress() tour.Progress {
	if s.ui == nil {
		return tour.Progress{}
	}
	p := s.ui.Tour()
	return tour.Progress{StepIndex: p.StepIndex, Completed: p.Completed, Dismissed: p.Dismissed}
}

func (s *Server) saveTourProgress(p tour.Progress) {
	if s.ui == nil {
		return
	}
	err := s.ui.SetTour(store.TourProgress{StepIndex: p.StepIndex, Completed: p.Completed, Dismissed: p.Dismissed})
	if err != nil {
		s.log.Warn("tour progress save failed", "err", err)
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	view := ""
	if s.ui != nil {
		view = s.ui.LastView()
	}
	if view == "" {
		view = "day"
	}
	http.Redirect(w, r, "/"+view, http.StatusSeeOther)
}

// pathDay resolves the optional {date} segment, defaulting to today.
func (s *Server) pathDay(r *http.Request) (time.Time, bool) {
	raw := strings.TrimSpace(r.PathValue("date"))
	if raw == "" {
		now := time.Now().In(s.cfg.Loc)
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, s.cfg.Loc), true
	}
	day, err := model.ParseDay(raw, s.cfg.Loc)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	day, ok := s.pathDay(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.rememberView("day")

	from, to := dayWindow(day)
	snap := s.snapshotFor(r.Context(), from, to)
	now := time.Now().In(s.cfg.Loc)
	vm := buildDayVM(windowRecords(snap, from, to), day, now, s.cfg.Loc)
	vm.baseVM = s.baseVMFor("day", vm.DayTitle, "/updates/calendar?view=day&date="+vm.Date, snap)

	s.writePage(w, "day.html", pageVM{Base: vm.baseVM, Day: &vm, Toasts: buildToastVMs(s.toasts.Active()), Tour: buildTourVM(s.tourProgress())})
}

func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	day, ok := s.pathDay(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.rememberView("week")
	weekStart := s.startOfWeek(day)

	from, to := weekStart, weekStart.AddDate(0, 0, 7)
	snap := s.snapshotFor(r.Context(), from, to)
	now := time.Now().In(s.cfg.Loc)
	vm := buildWeekVM(windowRecords(snap, from, to), weekStart, now, s.cfg.Loc)
	vm.baseVM = s.baseVMFor("week", vm.WeekTitle, "/updates/calendar?view=week&date="+weekStart.Format("2006-01-02"), snap)

	s.writePage(w, "week.html", pageVM{Base: vm.baseVM, Week: &vm, Toasts: buildToastVMs(s.toasts.Active()), Tour: buildTourVM(s.tourProgress())})
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	day, ok := s.pathDay(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.rememberView("month")

	y, m, _ := day.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, s.cfg.Loc)
	from, to := first.AddDate(0, 0, -7), first.AddDate(0, 1, 7)
	snap := s.snapshotFor(r.Context(), from, to)
	now := time.Now().In(s.cfg.Loc)
	vm := buildMonthVM(windowRecords(snap, from, to), day, now, s.cfg.Loc, s.cfg.WeekStart)
	vm.baseVM = s.baseVMFor("month", vm.MonthTitle, "/updates/calendar?view=month&date="+day.Format("2006-01-02"), snap)

	s.writePage(w, "month.html", pageVM{Base: vm.baseVM, Month: &vm, Toasts: buildToastVMs(s.toasts.Active()), Tour: buildTourVM(s.tourProgress())})
}

// renderCalendarRegion re-renders the #calendar fragment for the SSE
// stream of whichever view the client is on.
func (s *Server) renderCalendarRegion(view, date string) (string, error) {
	loc := s.cfg.Loc
	now := time.Now().In(loc)
	ny, nm, nd := now.Date()
	day := time.Date(ny, nm, nd, 0, 0, 0, 0, loc)
	if date != "" {
		if parsed, err := model.ParseDay(date, loc); err == nil {
			day = parsed
		}
	}
	switch view {
	case "week":
		weekStart := s.startOfWeek(day)
		from, to := weekStart, weekStart.AddDate(0, 0, 7)
		// Keep scheduled refreshes on the window being watched.
		s.refresh.SetWindow(from, to)
		snap, _ := s.refresh.Current()
		vm := buildWeekVM(windowRecords(snap, from, to), weekStart, now, loc)
		vm.baseVM = s.baseVMFor("week", vm.WeekTitle, "", snap)
		return s.renderTemplate("week_calendar.html", vm)
	case "month":
		y, m, _ := day.Date()
		first := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		from, to := first.AddDate(0, 0, -7), first.AddDate(0, 1, 7)
		s.refresh.SetWindow(from, to)
		snap, _ := s.refresh.Current()
		vm := buildMonthVM(windowRecords(snap, from, to), day, now, loc, s.cfg.WeekStart)
		vm.baseVM = s.baseVMFor("month", vm.MonthTitle, "", snap)
		return s.renderTemplate("month_calendar.html", vm)
	default:
		from, to := dayWindow(day)
		s.refresh.SetWindow(from, to)
		snap, _ := s.refresh.Current()
		vm := buildDayVM(windowRecords(snap, from, to), day, now, loc)
		vm.baseVM = s.baseVMFor("day", vm.DayTitle, "", snap)
		return s.renderTemplate("day_calendar.html", vm)
	}
}

func dayWindow(day time.Time) (time.Time, time.Time) {
	return day, day.AddDate(0, 0, 1)
}

func (s *Server) startOfWeek(t time.Time) time.Time {
	return model.StartOfWeek(t, s.cfg.WeekStart)
}

func (s *Server) handleItemDetail(w http.ResponseWriter, r *http.Request) {
	kind := model.ItemKind(r.PathValue("kind"))
	switch kind {
	case model.KindEvent, model.KindTask, model.KindTimeEntry:
	default:
		http.NotFound(w, r)
		return
	}

	snap := s.snapshot(r.Context())
	now := time.Now().In(s.cfg.Loc)
	it, ok := findRecordItem(windowRecords(snap, now.AddDate(0, -1, 0), now.AddDate(0, 1, 0)), kind, r.PathValue("id"), s.cfg.Loc)
	if !ok {
		http.NotFound(w, r)
		return
	}

	vm := detailVM{
		baseVM:    s.baseVMFor("detail", it.Title, "", snap),
		Item:      it,
		KindLabel: kind.Label(),
		TimeLabel: format.ClockRange(it.Start, it.End),
		Duration:  format.Duration(it.DurationMinutes),
		NotesHTML: renderMarkdownHTML(it.Notes),
		BackURL:   "/day/" + it.Start.Format("2006-01-02"),
	}
	s.writePage(w, "detail.html", pageVM{Base: vm.baseVM, Detail: &vm, Toasts: buildToastVMs(s.toasts.Active())})
}

type entriesVM struct {
	baseVM
	Result  datatable.Result
	Query   string
	KindSel string
	PrevURL string
	NextURL string
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(r.Context())
	now := time.Now().In(s.cfg.Loc)

	q := r.URL.Query()
	sortSpec := datatable.SortFromQuery(q.Get("sort"), q.Get("dir"))
	if q.Get("sort") == "" && s.ui != nil {
		if pref, ok := s.ui.EntriesSort(); ok {
			sortSpec = datatable.SortFromQuery(pref.Key, dir(pref.Desc))
		}
	} else if s.ui != nil {
		if err := s.ui.SetEntriesSort(store.SortPref{Key: string(sortSpec.Key), Desc: sortSpec.Desc}); err != nil {
			s.log.Debug("sort pref save failed", "err", err)
		}
	}

	filter := datatable.Filter{Query: q.Get("q")}
	if k := model.ItemKind(q.Get("kind")); k == model.KindEvent || k == model.KindTask || k == model.KindTimeEntry {
		filter.Kinds = []model.ItemKind{k}
	}
	page, _ := strconv.Atoi(q.Get("page"))

	rows := datatable.FromRecords(snap.Records, now, s.cfg.Loc)
	result := datatable.Apply(rows, filter, sortSpec, datatable.Page{Number: page})

	vm := entriesVM{
		baseVM:  s.baseVMFor("entries", "Entries", "", snap),
		Result:  result,
		Query:   q.Get("q"),
		KindSel: q.Get("kind"),
	}
	if result.Page > 1 {
		vm.PrevURL = entriesURL(q, result.Page-1)
	}
	if result.Page < result.PageCount {
		vm.NextURL = entriesURL(q, result.Page+1)
	}
	s.writePage(w, "entries.html", pageVM{Base: vm.baseVM, Entries: &vm, Toasts: buildToastVMs(s.toasts.Active()), Tour: buildTourVM(s.tourProgress())})
}

func dir(desc bool) string {
	if desc {
		return "desc"
	}
	return "asc"
}

func entriesURL(q map[string][]string, page int) string {
	u := "/entries?page=" + strconv.Itoa(page)
	for _, k := range []string{"sort", "dir", "q", "kind"} {
		if vs, ok := q[k]; ok && len(vs) > 0 && vs[0] != "" {
			u += "&" + k + "=" + vs[0]
		}
	}
	return u
}

type entryFormVM struct {
	baseVM
	Values forms.Values
	Errors forms.Errors
}

func (s *Server) handleEntryFormGet(w http.ResponseWriter, r *http.Request) {
	snap, _ := s.refresh.Current()
	vm := entryFormVM{
		baseVM: s.baseVMFor("form", "New entry", "", snap),
		Values: forms.Values{Start: time.Now().In(s.cfg.Loc).Format("2006-01-02T15:04")},
		Errors: forms.Errors{},
	}
	s.writePage(w, "entry_form.html", pageVM{Base: vm.baseVM, Form: &vm, Toasts: buildToastVMs(s.toasts.Active())})
}

func (s *Server) handleEntryFormPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	vals := forms.Values{
		Title:  r.PostFormValue("title"),
		Start:  r.PostFormValue("start"),
		End:    r.PostFormValue("end"),
		Color:  r.PostFormValue("color"),
		Notes:  r.PostFormValue("notes"),
		AllDay: r.PostFormValue("allDay") == "on",
	}

	// The all-day checkbox turns the submit into an event; events get
	// the validator that tolerates the flag and a date-only start.
	validate := forms.ValidateEntry
	if vals.AllDay {
		validate = forms.ValidateEvent
	}
	errs := validate(vals, s.cfg.Loc)
	if !errs.Valid() {
		snap, _ := s.refresh.Current()
		vm := entryFormVM{
			baseVM: s.baseVMFor("form", "New entry", "", snap),
			Values: vals,
			Errors: errs,
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		s.writePage(w, "entry_form.html", pageVM{Base: vm.baseVM, Form: &vm, Toasts: buildToastVMs(s.toasts.Active())})
		return
	}

	rec := forms.ToRecord(vals, s.cfg.Loc)
	if s.api != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		if err := s.api.CreateEntry(ctx, rec); err != nil {
			s.log.Error("entry create failed", "err", err)
			s.toasts.Error("Could not save the entry", "The calendar API rejected the request or is unreachable.")
			http.Redirect(w, r, "/entries/new", http.StatusSeeOther)
			return
		}
	}

	s.toasts.Success("Entry saved", strings.TrimSpace(vals.Title))
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_, _ = s.refresh.RefreshNow(ctx)
	}()
	http.Redirect(w, r, "/entries", http.StatusSeeOther)
}

// handleDiscardIdle is the idle prompt's discard action: stop the
// running entry back at the moment the user went idle.
func (s *Server) handleDiscardIdle(w http.ResponseWriter, r *http.Request) {
	at, err := time.Parse(time.RFC3339, r.URL.Query().Get("at"))
	if err != nil {
		http.Error(w, "bad at parameter", http.StatusBadRequest)
		return
	}
	if s.api != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		if err := s.api.StopEntryAt(ctx, r.PathValue("id"), at); err != nil {
			s.log.Error("idle discard failed", "err", err)
			s.toasts.Error("Could not adjust the entry", "The calendar API is unreachable.")
			redirectBack(w, r, "/day")
			return
		}
	}
	s.toasts.Info("Entry stopped", "Stopped at "+at.In(s.cfg.Loc).Format("15:04")+", when you went idle.")
	redirectBack(w, r, "/day")
}

func redirectBack(w http.ResponseWriter, r *http.Request, fallback string) {
	ref := strings.TrimSpace(r.Header.Get("Referer"))
	if ref != "" {
		http.Redirect(w, r, ref, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, fallback, http.StatusSeeOther)
}

func (s *Server) handleTourFragment(w http.ResponseWriter, r *http.Request) {
	s.writeHTMLTemplate(w, "tour.html", buildTourVM(s.tourProgress()))
}

func (s *Server) handleTourAdvance(w http.ResponseWriter, r *http.Request) {
	s.saveTourProgress(tour.Advance(s.tourProgress()))
	redirectBack(w, r, "/day")
}

func (s *Server) handleTourSkip(w http.ResponseWriter, r *http.Request) {
	s.saveTourProgress(tour.Skip(s.tourProgress()))
	redirectBack(w, r, "/day")
}

func (s *Server) handleTourReplay(w http.ResponseWriter, r *http.Request) {
	s.saveTourProgress(tour.Replay())
	redirectBack(w, r, "/day")
}

// handleICS exports a date window as an iCalendar feed.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	loc := s.cfg.Loc
	now := time.Now().In(loc)
	from := s.startOfWeek(now)
	to := from.AddDate(0, 0, 7)
	if raw := r.URL.Query().Get("from"); raw != "" {
		d, err := model.ParseDay(raw, loc)
		if err != nil {
			http.Error(w, "bad from date", http.StatusBadRequest)
			return
		}
		from = d
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		d, err := model.ParseDay(raw, loc)
		if err != nil {
			http.Error(w, "bad to date", http.StatusBadRequest)
			return
		}
		to = d.AddDate(0, 0, 1)
	}

	snap := s.snapshotFor(r.Context(), from, to)
	records := windowRecords(snap, from, to)

	var items []*model.CalendarItem
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		items = append(items, model.BuildDayItems(records, day, loc)...)
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="timetracker.ics"`)
	_, _ = w.Write([]byte(ics.Export(items, now)))
}

func (s *Server) handleOffline(w http.ResponseWriter, r *http.Request) {
	snap, _ := s.refresh.Current()
	s.writePage(w, "offline.html", pageVM{Base: s.baseVMFor("offline", "Offline", "", snap)})
}

// pageVM is the single template payload: the base plus whichever view
// is being rendered.
type pageVM struct {
	Base    baseVM
	Day     *dayVM
	Week    *weekVM
	Month   *monthVM
	Detail  *detailVM
	Entries *entriesVM
	Form    *entryFormVM
	Toasts  []toastVM
	Tour    tourVM
}

func (s *Server) writePage(w http.ResponseWriter, name string, vm pageVM) {
	s.writeHTMLTemplate(w, name, vm)
}
