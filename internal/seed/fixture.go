// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

// Package seed loads tournament fixtures and writes them to the store.
//
// A fixture declares a tournament with its roles, staff members and
// permission grants. Roles and staff members are referenced from grants by
// their fixture-local key, so fixtures can be written before ids exist.
package seed

import (
	"bytes"
	"os"
	"regexp"
	"slices"

	"github.com/Masterminds/semver/v3"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/rostercraft/rostercraft/internal/tournament"
)

// CodeInvalidFixture marks fixtures that fail schema or semantic checks.
const CodeInvalidFixture = "INVALID_FIXTURE"

// SupportedFormats is the range of fixture format versions this build reads.
const SupportedFormats = ">= 1.0.0, < 2.0.0"

// MinFormat is the oldest fixture format accepted.
var MinFormat = semver.MustParse("1.0.0")

var keyPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Fixture is a seed file.
type Fixture struct {
	Format      string                      `yaml:"format" jsonschema:"required,description=Fixture format version (semver)"`
	Tournament  TournamentSpec              `yaml:"tournament" jsonschema:"required"`
	Roles       []RoleSpec                  `yaml:"roles,omitempty"`
	Staff       []StaffSpec                 `yaml:"staff,omitempty"`
	Permissions map[tournament.Action]Grant `yaml:"permissions,omitempty" jsonschema:"description=Grants keyed by action"`
}

// TournamentSpec declares the tournament. A fixed ID makes seeding idempotent.
type TournamentSpec struct {
	ID   string `yaml:"id,omitempty" jsonschema:"minLength=26,maxLength=26"`
	Name string `yaml:"name" jsonschema:"required,minLength=1"`
}

// RoleSpec declares a role. Roles are created in file order.
type RoleSpec struct {
	Key       string `yaml:"key" jsonschema:"required,pattern=^[a-z][a-z0-9_-]*$"`
	ID        string `yaml:"id,omitempty" jsonschema:"minLength=26,maxLength=26"`
	Name      string `yaml:"name" jsonschema:"required,minLength=1"`
	Hidden    bool   `yaml:"hidden,omitempty"`
	Protected bool   `yaml:"protected,omitempty"`
}

// StaffSpec declares a staff member.
type StaffSpec struct {
	Key  string `yaml:"key" jsonschema:"required,pattern=^[a-z][a-z0-9_-]*$"`
	ID   string `yaml:"id,omitempty" jsonschema:"minLength=26,maxLength=26"`
	Name string `yaml:"name" jsonschema:"required,minLength=1"`
}

// Grant lists the role and staff keys granted one action.
type Grant struct {
	Roles       []string                    `yaml:"roles,omitempty"`
	Staff       []string                    `yaml:"staff,omitempty"`
}

// LoadFile reads and parses a fixture file.
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, oops.Code(CodeInvalidFixture).With("path", path).Wrap(err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return f, nil
}

// Parse checks data against the fixture schema, decodes it and validates it.
func Parse(data []byte) (*Fixture, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, oops.Code(CodeInvalidFixture).Wrapf(err, "invalid YAML")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the constraints the schema cannot express: format
// version, ids, unique keys, known actions and resolvable references.
func (f *Fixture) Validate() error {
	errb := oops.Code(CodeInvalidFixture)

	v, err := semver.NewVersion(f.Format)
	if err != nil {
		return errb.With("format", f.Format).Wrapf(err, "format must be a semantic version")
	}
	constraint, err := semver.NewConstraint(SupportedFormats)
	if err != nil {
		return errb.Wrap(err)
	}
	if !constraint.Check(v) {
		return errb.With("format", f.Format).
			Errorf("unsupported fixture format %s (need %s, e.g. %s)", v, SupportedFormats, MinFormat)
	}

	if f.Tournament.Name == "" {
		return errb.Errorf("tournament.name is required")
	}
	if err := checkID("tournament.id", f.Tournament.ID); err != nil {
		return err
	}

	roleKeys := make(map[string]bool, len(f.Roles))
	roleNames := make(map[string]bool, len(f.Roles))
	for _, r := range f.Roles {
		if !keyPattern.MatchString(r.Key) {
			return errb.With("key", r.Key).Errorf("role key %q is invalid", r.Key)
		}
		if roleKeys[r.Key] {
			return errb.With("key", r.Key).Errorf("duplicate role key %q", r.Key)
		}
		if roleNames[r.Name] {
			return errb.With("role_name", r.Name).Errorf("duplicate role name %q", r.Name)
		}
		if err := checkID("roles."+r.Key+".id", r.ID); err != nil {
			return err
		}
		roleKeys[r.Key] = true
		roleNames[r.Name] = true
	}

	staffKeys := make(map[string]bool, len(f.Staff))
	for _, s := range f.Staff {
		if !keyPattern.MatchString(s.Key) {
			return errb.With("key", s.Key).Errorf("staff key %q is invalid", s.Key)
		}
		if staffKeys[s.Key] {
			return errb.With("key", s.Key).Errorf("duplicate staff key %q", s.Key)
		}
		if err := checkID("staff."+s.Key+".id", s.ID); err != nil {
			return err
		}
		staffKeys[s.Key] = true
	}

	for _, action := range f.Actions() {
		if !action.Valid() {
			return oops.Code(tournament.CodeUnknownAction).With("action", string(action)).Wrap(tournament.ErrUnknownAction)
		}
		g := f.Permissions[action]
		for _, key := range g.Roles {
			if !roleKeys[key] {
				return errb.With("action", string(action)).With("key", key).Errorf("grant references unknown role %q", key)
			}
		}
		for _, key := range g.Staff {
			if !staffKeys[key] {
				return errb.With("action", string(action)).With("key", key).Errorf("grant references unknown staff member %q", key)
			}
		}
	}
	return nil
}

// Actions returns the actions the fixture grants, sorted.
func (f *Fixture) Actions() []tournament.Action {
	actions := make([]tournament.Action, 0, len(f.Permissions))
	for a := range f.Permissions {
		actions = append(actions, a)
	}
	slices.Sort(actions)
	return actions
}

func checkID(field, id string) error {
	if id == "" {
		return nil
	}
	if _, err := ulid.ParseStrict(id); err != nil {
		return oops.Code(CodeInvalidFixture).With("field", field).Wrapf(err, "%s is not a valid ULID", field)
	}
	return nil
}

func parseOptionalID(id string) ulid.ULID {
	if id == "" {
		return ulid.ULID{}
	}
	return ulid.MustParseStrict(id)
}
