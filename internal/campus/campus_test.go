package campus_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/p-n-ai/campus/internal/audit"
	"github.com/p-n-ai/campus/internal/campus"
	"github.com/p-n-ai/campus/internal/catalog"
	"github.com/p-n-ai/campus/internal/content"
	"github.com/p-n-ai/campus/internal/editor"
	"github.com/p-n-ai/campus/internal/enrollment"
	"github.com/p-n-ai/campus/internal/platform/apperr"
	"github.com/p-n-ai/campus/internal/platform/config"
	"github.com/p-n-ai/campus/internal/profile"
	"github.com/p-n-ai/campus/internal/progress"
)

type fixture struct {
	app         *campus.App
	catalog     *catalog.Catalog
	profiles    *profile.MemoryStore
	enrollments enrollment.Store
	progress    progress.Store
	events      *audit.Memory
}

type option func(*campus.Deps)

func newFixture(t *testing.T, opts ...option) *fixture {
	t.Helper()
	ctx := context.Background()

	store := catalog.NewMemoryStore()
	if err := store.UpsertSubject(ctx, catalog.Subject{ID: "hist", Name: "History", UnitsCount: 2}); err != nil {
		t.Fatalf("UpsertSubject() error = %v", err)
	}
	if err := store.UpsertSubject(ctx, catalog.Subject{ID: "geo", Name: "Geography"}); err != nil {
		t.Fatalf("UpsertSubject() error = %v", err)
	}
	cat := catalog.New(store)
	for _, u := range []content.Unit{
		{ID: "hist-u1", SubjectID: "hist", Number: 1, Title: "Origins", Available: true, Blocks: []content.Block{
			{ID: "b1", Order: 1, Type: "threshold", CountsForProgress: true},
			{ID: "b2", Order: 2, Type: "core", CountsForProgress: true},
		}},
		{ID: "hist-u2", SubjectID: "hist", Number: 2, Title: "Empires", Available: true},
	} {
		if err := cat.ReplaceUnit(ctx, u); err != nil {
			t.Fatalf("ReplaceUnit() error = %v", err)
		}
	}

	f := &fixture{
		catalog:     cat,
		profiles:    profile.NewMemoryStore(),
		enrollments: enrollment.NewMemoryStore(),
		progress:    progress.NewMemoryStore(),
		events:      audit.NewMemory(),
	}
	deps := campus.Deps{
		Catalog:     cat,
		Progress:    f.progress,
		Enrollments: f.enrollments,
		Profiles:    f.profiles,
		Events:      f.events,
	}
	for _, o := range opts {
		o(&deps)
	}
	f.app = campus.New(deps, campus.Options{
		Timeouts:   config.TimeoutConfig{Request: 100 * time.Millisecond, Bootstrap: 200 * time.Millisecond},
		TeacherIDs: []string{"t1"},
	})
	return f
}

func completeProfile() profile.Profile {
	return profile.Profile{
		FirstName: "Ana",
		LastName:  "Diaz",
		DNI:       "30111222",
		BirthDate: "2008-04-02",
		Address:   "Calle 1",
		City:      "Rosario",
	}
}

// student bootstraps a student with a complete profile.
func (f *fixture) student(t *testing.T, id string) campus.Session {
	t.Helper()
	s, err := f.app.SaveProfile(context.Background(), id, completeProfile())
	if err != nil {
		t.Fatalf("SaveProfile(%s) error = %v", id, err)
	}
	return s
}

func (f *fixture) teacher(t *testing.T) campus.Session {
	t.Helper()
	s, err := f.app.AuthorizeTeacher(context.Background(), "t1")
	if err != nil {
		t.Fatalf("AuthorizeTeacher() error = %v", err)
	}
	return s
}

// approve walks userID's request for subjectID through to approval.
func (f *fixture) approve(t *testing.T, s campus.Session, subjectID string) {
	t.Helper()
	ctx := context.Background()
	rows, err := f.app.RequestEnrollment(ctx, s, subjectID)
	if err != nil {
		t.Fatalf("RequestEnrollment() error = %v", err)
	}
	if _, err := f.app.DecideEnrollment(ctx, f.teacher(t), rows[0].ID, true); err != nil {
		t.Fatalf("DecideEnrollment() error = %v", err)
	}
}

func TestBootstrap_RequiresIdentity(t *testing.T) {
	f := newFixture(t)
	_, err := f.app.Bootstrap(context.Background(), "")
	if !errors.Is(err, campus.ErrIdentityRequired) || apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("Bootstrap(\"\") error = %v, want forbidden ErrIdentityRequired", err)
	}
}

func TestBootstrap_ProvisionsStudent(t *testing.T) {
	f := newFixture(t)
	s, err := f.app.Bootstrap(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if s.Teacher() || s.Complete {
		t.Errorf("session = %+v, want incomplete student", s)
	}
	if len(s.Missing) != 6 || s.Missing[0] != "first_name" {
		t.Errorf("Missing = %v, want the six personal fields", s.Missing)
	}
}

func TestBootstrap_PromotesConfiguredTeachers(t *testing.T) {
	f := newFixture(t)
	s := f.teacher(t)
	if !s.Teacher() {
		t.Fatalf("Role = %s, want teacher", s.Profile.Role)
	}
	stored, _ := f.profiles.Get(context.Background(), "t1")
	if stored.Role != profile.RoleTeacher {
		t.Errorf("stored Role = %s, want teacher", stored.Role)
	}
	// Teachers pass the gate with a blank profile.
	if err := s.Gate(); err != nil {
		t.Errorf("Gate() = %v, want nil", err)
	}
}

type slowProfiles struct{ profile.Store }

func (slowProfiles) EnsureOnFirstLogin(ctx context.Context, _ string) (profile.Profile, bool, error) {
	<-ctx.Done()
	return profile.Profile{}, false, ctx.Err()
}

func TestBootstrap_TimeoutIsSurfaced(t *testing.T) {
	f := newFixture(t, func(d *campus.Deps) { d.Profiles = slowProfiles{profile.NewMemoryStore()} })
	_, err := f.app.Bootstrap(context.Background(), "s1")
	if err == nil {
		t.Fatal("Bootstrap() should fail when the profile store hangs")
	}
	if apperr.KindOf(err) != apperr.KindNetwork {
		t.Errorf("error kind = %s, want network", apperr.KindOf(err))
	}
}

func TestDashboard_GatesIncompleteStudents(t *testing.T) {
	f := newFixture(t)
	d, err := f.app.Dashboard(context.Background(), "s1")
	if !errors.Is(err, profile.ErrProfileIncomplete) {
		t.Fatalf("Dashboard() error = %v, want ErrProfileIncomplete", err)
	}
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("error kind = %s, want forbidden", apperr.KindOf(err))
	}
	if d.Session.Profile.ID != "s1" || len(d.Session.Missing) == 0 {
		t.Errorf("Session = %+v, want the gated profile with missing fields", d.Session)
	}
}

func TestDashboard_StudentFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.student(t, "s1")

	d, err := f.app.Dashboard(ctx, "s1")
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if len(d.Subjects) != 2 {
		t.Fatalf("len(Subjects) = %d, want 2", len(d.Subjects))
	}
	for _, c := range d.Subjects {
		if c.Enrollment != enrollment.StatusNone || len(c.Units) != 0 {
			t.Errorf("%s card = %+v, want unenrolled without units", c.ID, c)
		}
	}

	f.approve(t, s, "hist")
	if _, err := f.app.ToggleBlock(ctx, s, "hist-u1", "b1"); err != nil {
		t.Fatalf("ToggleBlock() error = %v", err)
	}

	d, err = f.app.Dashboard(ctx, "s1")
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	var hist campus.SubjectCard
	for _, c := range d.Subjects {
		if c.ID == "hist" {
			hist = c
		}
	}
	if hist.Enrollment != enrollment.StatusApproved || hist.RequestID == "" {
		t.Errorf("hist enrollment = %s (%q), want approved with id", hist.Enrollment, hist.RequestID)
	}
	if len(hist.Units) != 2 || hist.Units[0].ID != "hist-u1" {
		t.Fatalf("hist units = %+v, want hist-u1, hist-u2", hist.Units)
	}
	if hist.Units[0].Percent != 50 {
		t.Errorf("unit percent = %d, want 50", hist.Units[0].Percent)
	}
	// One visited row over 2 units at 5 rows per unit.
	if hist.Percent != 10 {
		t.Errorf("subject percent = %d, want 10", hist.Percent)
	}
}

func TestDashboard_Teacher(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.student(t, "s1")
	if _, err := f.app.RequestEnrollment(ctx, s, "geo"); err != nil {
		t.Fatalf("RequestEnrollment() error = %v", err)
	}
	f.teacher(t)

	d, err := f.app.Dashboard(ctx, "t1")
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if len(d.Requests) != 1 || d.Requests[0].Status != enrollment.StatusPending {
		t.Errorf("Requests = %+v, want the pending geo request", d.Requests)
	}
	if len(d.Students) != 1 || d.Students[0].ID != "s1" {
		t.Errorf("Students = %+v, want s1", d.Students)
	}
	for _, c := range d.Subjects {
		if c.ID == "hist" && len(c.Units) != 2 {
			t.Errorf("teacher should see every unit, got %+v", c.Units)
		}
	}
}

type failingEnrollments struct{ enrollment.Store }

func (failingEnrollments) List(context.Context, enrollment.Filter) ([]enrollment.Request, error) {
	return nil, errors.New("connection reset")
}

type hangingProgress struct{ progress.Store }

func (hangingProgress) ListByUser(ctx context.Context, _ string) ([]progress.Record, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestDashboard_DegradesFailedSlices(t *testing.T) {
	f := newFixture(t, func(d *campus.Deps) {
		d.Enrollments = failingEnrollments{enrollment.NewMemoryStore()}
		d.Progress = hangingProgress{progress.NewMemoryStore()}
	})
	f.student(t, "s1")

	start := time.Now()
	d, err := f.app.Dashboard(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Dashboard() error = %v, want degraded success", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Dashboard() took %s, want bounded by the request deadline", elapsed)
	}
	if len(d.Subjects) != 2 {
		t.Errorf("len(Subjects) = %d, want 2 despite failing slices", len(d.Subjects))
	}
	if d.Requests == nil || len(d.Requests) != 0 {
		t.Errorf("Requests = %v, want empty", d.Requests)
	}
}

func TestUnit_RequiresApproval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.student(t, "s1")

	_, err := f.app.Unit(ctx, s, "hist-u1")
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("Unit() before approval kind = %s, want forbidden", apperr.KindOf(err))
	}
	if _, err := f.app.Unit(ctx, s, "nope"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("Unit(nope) kind = %s, want not_found", apperr.KindOf(err))
	}

	f.approve(t, s, "hist")
	view, err := f.app.Unit(ctx, s, "hist-u1")
	if err != nil {
		t.Fatalf("Unit() error = %v", err)
	}
	if view.Percent != 0 || len(view.Visited) != 0 {
		t.Errorf("view = %+v, want no progress", view)
	}
}

func TestToggleBlock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.student(t, "s1")
	f.approve(t, s, "hist")

	if _, err := f.app.ToggleBlock(ctx, s, "hist-u1", "missing"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("ToggleBlock(missing) kind = %s, want not_found", apperr.KindOf(err))
	}

	r, err := f.app.ToggleBlock(ctx, s, "hist-u1", "b2")
	if err != nil || !r.Done() || r.SubjectID != "hist" {
		t.Fatalf("ToggleBlock() = %+v, %v; want visited hist record", r, err)
	}
	r, err = f.app.ToggleBlock(ctx, s, "hist-u1", "b2")
	if err != nil || r.Done() {
		t.Fatalf("second ToggleBlock() = %+v, %v; want unvisited", r, err)
	}

	view, _ := f.app.Unit(ctx, s, "hist-u1")
	if view.Visited["b2"] {
		t.Error("b2 should be unvisited after two toggles")
	}
}

func TestEnrollment_Workflow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.student(t, "s1")

	if _, err := f.app.RequestEnrollment(ctx, s, "nope"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("RequestEnrollment(nope) kind = %s, want not_found", apperr.KindOf(err))
	}

	rows, err := f.app.RequestEnrollment(ctx, s, "geo")
	if err != nil || len(rows) != 1 || rows[0].ID == "" {
		t.Fatalf("RequestEnrollment() = %+v, %v", rows, err)
	}
	if _, err := f.app.RequestEnrollment(ctx, s, "geo"); !errors.Is(err, enrollment.ErrInvalidTransition) {
		t.Errorf("duplicate request error = %v, want ErrInvalidTransition", err)
	}

	if _, err := f.app.DecideEnrollment(ctx, s, rows[0].ID, true); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("student DecideEnrollment() kind = %s, want forbidden", apperr.KindOf(err))
	}

	rows, err = f.app.CancelEnrollment(ctx, s, rows[0].ID)
	if err != nil || len(rows) != 0 {
		t.Fatalf("CancelEnrollment() = %+v, %v; want empty", rows, err)
	}

	// Another student cannot cancel someone else's request.
	other := f.student(t, "s2")
	mine, _ := f.app.RequestEnrollment(ctx, s, "geo")
	if _, err := f.app.CancelEnrollment(ctx, other, mine[0].ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("foreign CancelEnrollment() kind = %s, want not_found", apperr.KindOf(err))
	}

	queue, err := f.app.DecideEnrollment(ctx, f.teacher(t), mine[0].ID, false)
	if err != nil || len(queue) != 0 {
		t.Fatalf("DecideEnrollment(deny) = %+v, %v; want empty queue", queue, err)
	}
	if ok, _ := f.app.CanView(ctx, s, "geo"); ok {
		t.Error("denied student should not view geo")
	}
}

func TestPublishUnit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.student(t, "s1")
	teacher := f.teacher(t)

	form := editor.Form{SubjectID: "geo", Number: "1", Title: "Maps", Body: `{"blocks":[{"id":"m1","type":"closing","title":"Done"}]}`}
	if _, err := f.app.PublishUnit(ctx, s, "", form); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("student PublishUnit() kind = %s, want forbidden", apperr.KindOf(err))
	}

	res, err := f.app.PublishUnit(ctx, teacher, "", form)
	if err != nil {
		t.Fatalf("PublishUnit() error = %v", err)
	}
	if res.Unit.ID != "geo-u1" {
		t.Errorf("new unit id = %q, want geo-u1", res.Unit.ID)
	}

	draft, err := f.app.Draft(ctx, teacher, "geo-u1")
	if err != nil {
		t.Fatalf("Draft() error = %v", err)
	}
	draft.Title = "World maps"
	res, err = f.app.PublishUnit(ctx, teacher, "geo-u1", draft)
	if err != nil {
		t.Fatalf("republish error = %v", err)
	}
	stored, _ := f.catalog.Unit(ctx, "geo-u1")
	if stored.Title != "World maps" || len(stored.Blocks) != 1 {
		t.Errorf("stored unit = %q with %d blocks, want World maps with 1", stored.Title, len(stored.Blocks))
	}
	if diff := cmp.Diff(stored, res.Unit); diff != "" {
		t.Errorf("published unit differs from stored (-stored +returned):\n%s", diff)
	}
	if _, err := f.app.PublishUnit(ctx, teacher, "ghost", draft); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("PublishUnit(ghost) kind = %s, want not_found", apperr.KindOf(err))
	}
}

func TestSaveProfile_Validation(t *testing.T) {
	f := newFixture(t)
	in := completeProfile()
	in.DNI = "  "
	_, err := f.app.SaveProfile(context.Background(), "s1", in)
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("SaveProfile() error = %v, want ValidationError", err)
	}
	if _, ok := ve.Field("dni"); !ok {
		t.Errorf("fields = %+v, want dni", ve.Fields)
	}
}

func TestReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.student(t, "s1")
	f.approve(t, s, "hist")

	var buf bytes.Buffer
	if err := f.app.Report(ctx, s, "hist", &buf); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("student Report() kind = %s, want forbidden", apperr.KindOf(err))
	}
	if err := f.app.Report(ctx, f.teacher(t), "hist", &buf); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("PK")) {
		t.Error("report is not a zip container")
	}
	if err := f.app.Report(ctx, f.teacher(t), "nope", &buf); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("Report(nope) kind = %s, want not_found", apperr.KindOf(err))
	}
}
