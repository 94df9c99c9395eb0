package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-admission-api/internal/models"
	"github.com/noah-isme/sma-admission-api/internal/store"
	appErrors "github.com/noah-isme/sma-admission-api/pkg/errors"
)

type stubAdmissionRepo struct {
	records      map[string]*models.Admission
	editRequests map[string]models.EditRequest
	updateCalls  int
}

func newStubAdmissionRepo(records ...*models.Admission) *stubAdmissionRepo {
	repo := &stubAdmissionRepo{
		records:      make(map[string]*models.Admission),
		editRequests: make(map[string]models.EditRequest),
	}
	for _, r := range records {
		repo.records[r.ID] = r
	}
	return repo
}

func (r *stubAdmissionRepo) GetByID(_ context.Context, id string) (*models.Admission, error) {
	record, ok := r.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return record.Clone(), nil
}

func (r *stubAdmissionRepo) UpdateSections(_ context.Context, a *models.Admission) error {
	if _, ok := r.records[a.ID]; !ok {
		return sql.ErrNoRows
	}
	r.updateCalls++
	r.records[a.ID] = a.Clone()
	return nil
}

func (r *stubAdmissionRepo) SetEditRequest(_ context.Context, id string, req models.EditRequest) error {
	if _, ok := r.records[id]; !ok {
		return sql.ErrNoRows
	}
	r.editRequests[id] = req
	record := r.records[id]
	record.EditRequest = req
	return nil
}

type stubRegenerator struct {
	calls int
}

func (s *stubRegenerator) Regenerate(_ context.Context, _ *models.Admission) { s.calls++ }

func sampleAdmission(id string) *models.Admission {
	return &models.Admission{
		ID:     id,
		Status: models.AdmissionStatusPending,
		Personal: models.PersonalInfo{
			FirstName: "Asha",
			LastName:  "Rao",
			Email:     "asha@example.com",
			Mobile:    "9000000001",
			PhotoPath: "uploads/x/photo.jpg",
		},
		Course: models.CourseSelection{Name: "B.Sc", Stream: "Science"},
		Education: []models.EducationRow{
			{CourseType: "ssc", Board: "State Board", School: "City High", YearPassed: "2022", Marks: "540", Percentage: "90"},
		},
		IDs:    models.IDNumbers{PANNumber: "ABCDE1234F", AadhaarNumber: "123412341234", PANDocPath: "uploads/x/pan.pdf", AadhaarPath: "uploads/x/aadhaar.pdf"},
		Center: models.CenterInfo{Code: "PUN01", Name: "Pune Center", CounselorEmail: "counselor@example.com"},
		Signatures: models.Signatures{
			StudentPath: "uploads/x/student.png",
			ParentPath:  "uploads/x/parent.png",
		},
	}
}

func newEditWindowServiceForTest(t *testing.T, repo *stubAdmissionRepo) (*EditWindowService, *store.MemoryGrantStore, *stubRegenerator, *stubNotifier) {
	t.Helper()
	grants := store.NewMemoryGrantStore()
	regen := &stubRegenerator{}
	dispatch := &stubNotifier{}
	svc := NewEditWindowService(grants, repo, regen, dispatch, NewLocker(), nil, time.Hour, "http://forms.example.com", nil)
	return svc, grants, regen, dispatch
}

func TestGrantValidatesScope(t *testing.T) {
	repo := newStubAdmissionRepo(sampleAdmission("adm-1"))
	svc, _, _, _ := newEditWindowServiceForTest(t, repo)

	err := svc.Grant(context.Background(), "adm-1", []models.Section{"payments"}, nil, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	err = svc.Grant(context.Background(), "adm-1", []models.Section{models.SectionPersonal}, []string{"zz_bogus"}, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	err = svc.Grant(context.Background(), "adm-1", nil, nil, "")
	require.Error(t, err)

	err = svc.Grant(context.Background(), "adm-1", []models.Section{models.SectionEducation}, []string{"ed_hsc_x"}, "")
	require.Error(t, err)
}

func TestGrantStoresWindowAndNotifiesStudent(t *testing.T) {
	repo := newStubAdmissionRepo(sampleAdmission("adm-1"))
	svc, grants, _, dispatch := newEditWindowServiceForTest(t, repo)

	err := svc.Grant(context.Background(), "adm-1",
		[]models.Section{models.SectionPersonal}, []string{"pf_email"}, "email bounced")
	require.NoError(t, err)

	grant, err := grants.Get(context.Background(), "adm-1")
	require.NoError(t, err)
	assert.Equal(t, []models.Section{models.SectionPersonal}, grant.Sections)
	assert.Equal(t, []string{"pf_email"}, grant.Fields)

	req := repo.editRequests["adm-1"]
	assert.Equal(t, models.EditRequestStatusRequested, req.Status)
	assert.Equal(t, "email bounced", req.Notes)
	require.NotNil(t, req.RequestedAt)

	require.Len(t, dispatch.mails, 1)
	assert.Equal(t, []string{"asha@example.com"}, dispatch.mails[0].To)
	assert.Contains(t, dispatch.mails[0].Body, "admission-form?edit=1&id=adm-1")
}

func TestGrantUnknownAdmission(t *testing.T) {
	svc, _, _, _ := newEditWindowServiceForTest(t, newStubAdmissionRepo())

	err := svc.Grant(context.Background(), "missing", []models.Section{models.SectionPersonal}, nil, "")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestFetchForEditRequiresActiveGrant(t *testing.T) {
	repo := newStubAdmissionRepo(sampleAdmission("adm-1"))
	svc, _, _, _ := newEditWindowServiceForTest(t, repo)

	_, err := svc.FetchForEdit(context.Background(), "adm-1")
	require.ErrorIs(t, err, appErrors.ErrNoActiveGrant)

	require.NoError(t, svc.Grant(context.Background(), "adm-1", []models.Section{models.SectionPersonal}, []string{"pf_email"}, ""))

	data, err := svc.FetchForEdit(context.Background(), "adm-1")
	require.NoError(t, err)
	assert.Equal(t, "adm-1", data.Admission.ID)
	assert.Equal(t, []models.Section{models.SectionPersonal}, data.AllowedSections)
	assert.Equal(t, []string{"pf_email"}, data.AllowedFields)
}

func TestApplyEditMergesOnlyGrantedFields(t *testing.T) {
	repo := newStubAdmissionRepo(sampleAdmission("adm-1"))
	svc, _, regen, dispatch := newEditWindowServiceForTest(t, repo)

	require.NoError(t, svc.Grant(context.Background(), "adm-1",
		[]models.Section{models.SectionPersonal}, []string{"pf_email"}, ""))
	dispatch.mails = nil

	updated := json.RawMessage(`{
		"personal": {"email": "new@example.com", "firstName": "Hacked"},
		"course": {"name": "MBA"}
	}`)
	require.NoError(t, svc.ApplyEdit(context.Background(), "adm-1", updated))

	record, err := repo.GetByID(context.Background(), "adm-1")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", record.Personal.Email)
	assert.Equal(t, "Asha", record.Personal.FirstName)
	assert.Equal(t, "B.Sc", record.Course.Name)
	assert.Equal(t, models.AdmissionStatusPending, record.Status)
	assert.Equal(t, models.EditRequestStatusCompleted, record.EditRequest.Status)
	require.NotNil(t, record.EditRequest.ResolvedAt)

	assert.Equal(t, 1, regen.calls)
	require.Len(t, dispatch.mails, 1)
	assert.Equal(t, []string{"counselor@example.com"}, dispatch.mails[0].To)
}

func TestApplyEditSectionWithoutFieldKeysIsFullyOpen(t *testing.T) {
	repo := newStubAdmissionRepo(sampleAdmission("adm-1"))
	svc, _, _, _ := newEditWindowServiceForTest(t, repo)

	require.NoError(t, svc.Grant(context.Background(), "adm-1",
		[]models.Section{models.SectionCourse}, nil, ""))

	updated := json.RawMessage(`{"course": {"name": "BCA", "stream": "CS"}}`)
	require.NoError(t, svc.ApplyEdit(context.Background(), "adm-1", updated))

	record, err := repo.GetByID(context.Background(), "adm-1")
	require.NoError(t, err)
	assert.Equal(t, "BCA", record.Course.Name)
	assert.Equal(t, "CS", record.Course.Stream)
}

func TestApplyEditUploadsFieldScope(t *testing.T) {
	repo := newStubAdmissionRepo(sampleAdmission("adm-1"))
	svc, _, _, _ := newEditWindowServiceForTest(t, repo)

	require.NoError(t, svc.Grant(context.Background(), "adm-1",
		[]models.Section{models.SectionUploads}, []string{"up_photo"}, ""))

	updated := json.RawMessage(`{"uploads": {"photo": "uploads/y/photo2.jpg", "pan": "uploads/y/pan2.pdf"}}`)
	require.NoError(t, svc.ApplyEdit(context.Background(), "adm-1", updated))

	record, err := repo.GetByID(context.Background(), "adm-1")
	require.NoError(t, err)
	assert.Equal(t, "uploads/y/photo2.jpg", record.Personal.PhotoPath)
	assert.Equal(t, "uploads/x/pan.pdf", record.IDs.PANDocPath)
}

func TestApplyEditConsumesGrant(t *testing.T) {
	repo := newStubAdmissionRepo(sampleAdmission("adm-1"))
	svc, grants, _, _ := newEditWindowServiceForTest(t, repo)

	require.NoError(t, svc.Grant(context.Background(), "adm-1",
		[]models.Section{models.SectionPersonal}, nil, ""))

	updated := json.RawMessage(`{"personal": {"city": "Mumbai"}}`)
	require.NoError(t, svc.ApplyEdit(context.Background(), "adm-1", updated))

	_, err := grants.Get(context.Background(), "adm-1")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Replaying the consumed link is rejected for both read and write.
	_, err = svc.FetchForEdit(context.Background(), "adm-1")
	require.ErrorIs(t, err, appErrors.ErrNoActiveGrant)
	err = svc.ApplyEdit(context.Background(), "adm-1", updated)
	require.ErrorIs(t, err, appErrors.ErrNoActiveGrant)
}

func TestApplyEditExpiredGrant(t *testing.T) {
	repo := newStubAdmissionRepo(sampleAdmission("adm-1"))
	grants := store.NewMemoryGrantStore()
	svc := NewEditWindowService(grants, repo, &stubRegenerator{}, &stubNotifier{}, NewLocker(), nil, time.Hour, "http://forms.example.com", nil)

	expired := &models.EditGrant{
		AdmissionID: "adm-1",
		Sections:    []models.Section{models.SectionPersonal},
		CreatedAt:   time.Now().Add(-2 * time.Hour),
		ExpiresAt:   time.Now().Add(-time.Hour),
	}
	require.NoError(t, grants.Put(context.Background(), expired))

	err := svc.ApplyEdit(context.Background(), "adm-1", json.RawMessage(`{"personal": {"city": "Pune"}}`))
	require.ErrorIs(t, err, appErrors.ErrNoActiveGrant)
}
