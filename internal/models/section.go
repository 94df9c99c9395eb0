package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Section identifies a form section of the admission record.
type Section string

const (
	SectionPersonal   Section = "personal"
	SectionCourse     Section = "course"
	SectionEducation  Section = "education"
	SectionIDs        Section = "ids"
	SectionCenter     Section = "center"
	SectionUploads    Section = "uploads"
	SectionSignatures Section = "signatures"
)

// FieldPrefix returns the key prefix used for field-level flags within the section,
// or "" when the section only supports section-level granularity.
func (s Section) FieldPrefix() string {
	switch s {
	case SectionPersonal:
		return "pf_"
	case SectionUploads:
		return "up_"
	case SectionSignatures:
		return "sg_"
	case SectionEducation:
		return "ed_"
	default:
		return ""
	}
}

// SupportsFieldFlags reports whether counselors may flag individual fields in
// the section. Course, ids and center are reviewed as a whole; education rows
// carry per-row keys but are opened as a full table.
func (s Section) SupportsFieldFlags() bool {
	switch s {
	case SectionPersonal, SectionUploads, SectionSignatures:
		return true
	default:
		return false
	}
}

// Valid reports whether the section name is known.
func (s Section) Valid() bool {
	switch s {
	case SectionPersonal, SectionCourse, SectionEducation, SectionIDs, SectionCenter, SectionUploads, SectionSignatures:
		return true
	}
	return false
}

// AllSections enumerates every known section.
func AllSections() []Section {
	return []Section{
		SectionPersonal,
		SectionCourse,
		SectionEducation,
		SectionIDs,
		SectionCenter,
		SectionUploads,
		SectionSignatures,
	}
}

// SectionForField resolves the owning section from a namespaced field key.
func SectionForField(field string) (Section, bool) {
	switch {
	case strings.HasPrefix(field, "pf_"):
		return SectionPersonal, true
	case strings.HasPrefix(field, "up_"):
		return SectionUploads, true
	case strings.HasPrefix(field, "sg_"):
		return SectionSignatures, true
	case strings.HasPrefix(field, "ed_"):
		return SectionEducation, true
	case strings.HasPrefix(field, "cr_"):
		return SectionCourse, true
	}
	return "", false
}

// EducationFieldRef is a parsed education field key of the form ed_<type>_<row>.
type EducationFieldRef struct {
	CourseType string
	RowIndex   int
}

// ParseEducationField splits an ed_<type>_<rowIndex> key into its parts.
func ParseEducationField(field string) (EducationFieldRef, error) {
	if !strings.HasPrefix(field, "ed_") {
		return EducationFieldRef{}, fmt.Errorf("not an education field key: %s", field)
	}
	rest := strings.TrimPrefix(field, "ed_")
	idx := strings.LastIndex(rest, "_")
	if idx <= 0 || idx == len(rest)-1 {
		return EducationFieldRef{}, fmt.Errorf("malformed education field key: %s", field)
	}
	row, err := strconv.Atoi(rest[idx+1:])
	if err != nil || row < 0 {
		return EducationFieldRef{}, fmt.Errorf("malformed education row index in %s", field)
	}
	return EducationFieldRef{CourseType: rest[:idx], RowIndex: row}, nil
}

// FieldDecision is the counselor verdict for a single field.
type FieldDecision string

const (
	DecisionOK  FieldDecision = "ok"
	DecisionFix FieldDecision = "fix"
)

// ReviewFlags carries the counselor's per-field decisions plus explicit
// section-level marks for sections without field breakdown.
type ReviewFlags struct {
	Fields   map[string]FieldDecision `json:"fields"`
	Sections []Section                `json:"sections"`
	Notes    string                   `json:"notes"`
}

// FlaggedSections derives the set of sections needing correction: any section
// containing a field marked fix, plus every explicitly marked section.
func (f ReviewFlags) FlaggedSections() []Section {
	seen := make(map[Section]struct{})
	out := make([]Section, 0, len(f.Sections))
	add := func(s Section) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, s := range f.Sections {
		if s.Valid() {
			add(s)
		}
	}
	for field, decision := range f.Fields {
		if decision != DecisionFix {
			continue
		}
		if s, ok := SectionForField(field); ok {
			add(s)
		}
	}
	return out
}

// FlaggedFields returns only the field keys marked fix.
func (f ReviewFlags) FlaggedFields() []string {
	out := make([]string, 0, len(f.Fields))
	for field, decision := range f.Fields {
		if decision == DecisionFix {
			out = append(out, field)
		}
	}
	return out
}
