package sheets

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRegister(t *testing.T) *CSVRegister {
	t.Helper()
	r, err := NewCSVRegister(filepath.Join(t.TempDir(), "register.csv"))
	require.NoError(t, err)
	return r
}

func TestCSVRegisterAppendAndUpdate(t *testing.T) {
	r := newTestRegister(t)
	ctx := context.Background()

	require.NoError(t, r.Append(ctx, Row{AdmissionID: "adm-1", Name: "Asha Rao", Status: "PENDING"}))
	require.NoError(t, r.Append(ctx, Row{AdmissionID: "adm-2", Name: "Vikram Singh", Status: "PENDING"}))

	require.NoError(t, r.Update(ctx, "adm-1", Row{AdmissionID: "adm-1", Name: "Asha R Rao", Status: "PENDING"}))

	rows, err := r.readAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Asha R Rao", rows[0].Name)
}

func TestCSVRegisterUpdateMissingRowAppends(t *testing.T) {
	r := newTestRegister(t)

	require.NoError(t, r.Update(context.Background(), "adm-9", Row{AdmissionID: "adm-9", Status: "PENDING"}))
	rows, err := r.readAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestCSVRegisterSetStatus(t *testing.T) {
	r := newTestRegister(t)
	ctx := context.Background()

	require.NoError(t, r.Append(ctx, Row{AdmissionID: "adm-1", Status: "PENDING"}))
	require.NoError(t, r.SetStatus(ctx, "adm-1", "APPROVED"))

	rows, err := r.readAll()
	require.NoError(t, err)
	require.Equal(t, "APPROVED", rows[0].Status)

	require.Error(t, r.SetStatus(ctx, "missing", "APPROVED"))
}
