package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionForField(t *testing.T) {
	cases := []struct {
		field   string
		section Section
		ok      bool
	}{
		{"pf_email", SectionPersonal, true},
		{"up_photo", SectionUploads, true},
		{"sg_parent", SectionSignatures, true},
		{"ed_hsc_1", SectionEducation, true},
		{"cr_name", SectionCourse, true},
		{"unknown_key", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		section, ok := SectionForField(tc.field)
		assert.Equal(t, tc.ok, ok, tc.field)
		assert.Equal(t, tc.section, section, tc.field)
	}
}

func TestParseEducationField(t *testing.T) {
	ref, err := ParseEducationField("ed_hsc_1")
	require.NoError(t, err)
	assert.Equal(t, "hsc", ref.CourseType)
	assert.Equal(t, 1, ref.RowIndex)

	ref, err = ParseEducationField("ed_post_grad_2")
	require.NoError(t, err)
	assert.Equal(t, "post_grad", ref.CourseType)
	assert.Equal(t, 2, ref.RowIndex)

	for _, bad := range []string{"ed_hsc", "ed__3", "ed_hsc_x", "ed_hsc_-1", "pf_email"} {
		_, err := ParseEducationField(bad)
		assert.Error(t, err, bad)
	}
}

func TestIsFieldEditableTwoLevelModel(t *testing.T) {
	grant := &EditGrant{
		AdmissionID: "adm-1",
		Sections:    []Section{SectionPersonal, SectionUploads, SectionCourse},
		Fields:      []string{"up_photo"},
	}

	// Uploads carries a field key, so only that key is open.
	assert.True(t, grant.IsFieldEditable(SectionUploads, "up_photo"))
	assert.False(t, grant.IsFieldEditable(SectionUploads, "up_pan"))

	// Personal has no keys of its own in the grant: fully open.
	assert.True(t, grant.IsFieldEditable(SectionPersonal, "pf_email"))
	assert.True(t, grant.IsFieldEditable(SectionPersonal, "pf_firstName"))

	// Course is section-level only; membership in the grant opens it whole.
	assert.True(t, grant.IsFieldEditable(SectionCourse, "cr_name"))

	// Sections outside the grant stay closed regardless of fields.
	assert.False(t, grant.IsFieldEditable(SectionSignatures, "sg_student"))
	assert.False(t, grant.IsFieldEditable(SectionIDs, ""))
}

func TestEditGrantExpiry(t *testing.T) {
	now := time.Now()
	grant := &EditGrant{ExpiresAt: now.Add(time.Hour)}
	assert.False(t, grant.Expired(now))
	assert.True(t, grant.Expired(now.Add(2*time.Hour)))

	// Zero expiry means no TTL.
	open := &EditGrant{}
	assert.False(t, open.Expired(now))
}

func TestReviewFlagsDerivation(t *testing.T) {
	flags := ReviewFlags{
		Fields: map[string]FieldDecision{
			"pf_email": DecisionFix,
			"pf_city":  DecisionOK,
			"up_photo": DecisionFix,
		},
		Sections: []Section{SectionCourse, "bogus"},
	}

	assert.ElementsMatch(t,
		[]Section{SectionCourse, SectionPersonal, SectionUploads},
		flags.FlaggedSections())
	assert.ElementsMatch(t, []string{"pf_email", "up_photo"}, flags.FlaggedFields())
}

func TestPDFRefsCurrentURL(t *testing.T) {
	refs := PDFRefs{
		PendingStudentURL: "pending",
		ApprovedURL:       "approved",
	}
	assert.Equal(t, "pending", refs.CurrentURL(AdmissionStatusPending))
	assert.Equal(t, "approved", refs.CurrentURL(AdmissionStatusApproved))

	// Approved status without an approved artifact falls back to pending.
	refs.ApprovedURL = ""
	assert.Equal(t, "pending", refs.CurrentURL(AdmissionStatusApproved))
}

func TestHasFee(t *testing.T) {
	var a Admission
	assert.False(t, a.HasFee())

	now := time.Now()
	a.Fees = &FeeInfo{Amount: 100, Mode: FeeModeCash}
	assert.False(t, a.HasFee())

	a.Fees.RecordedAt = &now
	assert.True(t, a.HasFee())

	a.Fees.Mode = "cheque"
	assert.False(t, a.HasFee())
}
