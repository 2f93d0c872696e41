package profile_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/p-n-ai/campus/internal/profile"
)

func full() profile.Profile {
	return profile.Profile{
		ID:        "s1",
		Role:      profile.RoleStudent,
		FirstName: "Lucía",
		LastName:  "Pérez",
		DNI:       "30111222",
		BirthDate: "2008-04-12",
		Address:   "Calle 1",
		City:      "Rosario",
	}
}

func TestMissing(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*profile.Profile)
		want   []string
	}{
		{"complete", func(*profile.Profile) {}, nil},
		{"phone and course are optional", func(p *profile.Profile) { p.Phone, p.CourseID = "", "" }, nil},
		{"blank city", func(p *profile.Profile) { p.City = "  " }, []string{"city"}},
		{"several", func(p *profile.Profile) { p.FirstName, p.DNI, p.Address = "", "", "" }, []string{"first_name", "dni", "address"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := full()
			tt.mutate(&p)
			if diff := cmp.Diff(tt.want, profile.Missing(p)); diff != "" {
				t.Errorf("Missing() mismatch (-want +got):\n%s", diff)
			}
			if got := profile.Complete(p); got != (len(tt.want) == 0) {
				t.Errorf("Complete() = %v", got)
			}
		})
	}
}

func TestGate(t *testing.T) {
	blank := profile.Profile{ID: "s2", Role: profile.RoleStudent}
	if err := profile.Gate(blank); !errors.Is(err, profile.ErrProfileIncomplete) {
		t.Errorf("Gate(blank student) error = %v, want ErrProfileIncomplete", err)
	}
	if err := profile.Gate(full()); err != nil {
		t.Errorf("Gate(complete student) error = %v", err)
	}
	if err := profile.Gate(profile.Profile{ID: "t1", Role: profile.RoleTeacher}); err != nil {
		t.Errorf("Gate(teacher) error = %v, teachers are never gated", err)
	}
}

func TestDisplayName(t *testing.T) {
	p := full()
	if got := p.DisplayName(); got != "Lucía Pérez" {
		t.Errorf("DisplayName() = %q", got)
	}
	p.FullName = "Lucía M. Pérez"
	if got := p.DisplayName(); got != "Lucía M. Pérez" {
		t.Errorf("DisplayName() = %q", got)
	}
}
