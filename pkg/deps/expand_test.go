package deps

import (
	"errors"
	"testing"
)

func TestExpand(t *testing.T) {
	id := NPM("a", "1.0.0")
	md := &Metadata{
		Name:       "a",
		Version:    "1.0.0",
		License:    "mit",
		Deprecated: "use b instead",
		Dependencies: []Dependency{
			{Name: "zeta", Spec: "^1.0.0"},
			{Name: "alpha", Spec: "~2.1.0"},
			{Name: "alpha-again", Spec: "npm:alpha@2.1.0"},
			{Name: "local", Spec: "file:../local"},
			{Name: "gh", Spec: "github:o/r#abc"},
		},
	}

	rec, children := Expand(id, md)
	if rec.License != "mit" || rec.Status != StatusOK {
		t.Errorf("record = %+v, want declared license mit/ok", rec)
	}
	if rec.Expiration != "use b instead" {
		t.Errorf("Expiration = %q", rec.Expiration)
	}
	if rec.LicenseURL != "https://opensource.org/licenses/MIT" {
		t.Errorf("LicenseURL = %q", rec.LicenseURL)
	}
	if rec.ID != "npm:a@1.0.0" || rec.Identity != id {
		t.Errorf("identity fields = %q %+v", rec.ID, rec.Identity)
	}

	want := []Identity{GitHub("o/r", "abc"), NPM("alpha", "2.1.0"), NPM("zeta", "1.0.0")}
	if len(children) != len(want) {
		t.Fatalf("children = %v, want %v", children, want)
	}
	for i := range want {
		if children[i] != want[i] {
			t.Errorf("children[%d] = %v, want %v", i, children[i], want[i])
		}
	}
}

func TestExpandNoLicense(t *testing.T) {
	rec, children := Expand(NPM("a", "1.0.0"), &Metadata{})
	if rec.License != UnknownLicense || rec.Status != StatusUnknown {
		t.Errorf("record = %+v, want UNKNOWN/unknown", rec)
	}
	if len(children) != 0 {
		t.Errorf("children = %v", children)
	}
	if rec.LicenseURL != "" {
		t.Errorf("LicenseURL = %q, want empty", rec.LicenseURL)
	}
}

func TestExpandSkipsSelf(t *testing.T) {
	id := NPM("a", "1.0.0")
	_, children := Expand(id, &Metadata{License: "MIT", Dependencies: []Dependency{{Name: "a", Spec: "1.0.0"}}})
	if len(children) != 0 {
		t.Errorf("children = %v, want none", children)
	}
}

func TestDegrade(t *testing.T) {
	id := GitHub("x/y", "abc")
	tests := []struct {
		err  error
		want Status
	}{
		{NewFetchError(KindNotFound, id, nil), StatusNotFound},
		{NewFetchError(KindMalformed, id, errors.New("bad json")), StatusMalformed},
		{NewFetchError(KindRateLimited, id, nil), StatusRateLimited},
		{errors.New("connection reset"), StatusTransient},
	}
	for _, tt := range tests {
		rec := Degrade(id, tt.err)
		if rec.Status != tt.want || rec.License != UnknownLicense {
			t.Errorf("Degrade(%v) = %s/%s, want %s/UNKNOWN", tt.err, rec.Status, rec.License, tt.want)
		}
		if !rec.Status.Degraded() {
			t.Errorf("%s should be degraded", rec.Status)
		}
	}
}
