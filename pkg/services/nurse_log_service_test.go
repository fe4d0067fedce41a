package services

import (
	"testing"

	"smartcare-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNurseLogService(t *testing.T) *NurseLogService {
	t.Helper()
	dataDir := t.TempDir()
	return NewNurseLogService(dataDir, NewHistoryService(dataDir))
}

func TestNurseLogAppendAdditiveMerge(t *testing.T) {
	ns := newNurseLogService(t)

	first, err := ns.Append("2024-05-01", "2024-05-10", models.NurseLogRequest{
		Fever: intPtr(3),
		Cough: intPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Fever)
	assert.Equal(t, 1, first.Cough)
	assert.Equal(t, 0, first.Diarrhea)

	// 同じ日への追記はカウントを加算する
	second, err := ns.Append("2024-05-01", "2024-05-10", models.NurseLogRequest{
		Fever:    intPtr(2),
		Diarrhea: intPtr(4),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, second.Fever)
	assert.Equal(t, 1, second.Cough)
	assert.Equal(t, 4, second.Diarrhea)
}

func TestNurseLogAppendDefaultsToToday(t *testing.T) {
	ns := newNurseLogService(t)

	entry, err := ns.Append("", "2024-05-10", models.NurseLogRequest{Cold: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-10", entry.Date)

	today := ns.Today("2024-05-10")
	require.NotNil(t, today)
	assert.Equal(t, 1, today.Cold)
}

func TestNurseLogNotesAndByOverwrite(t *testing.T) {
	ns := newNurseLogService(t)

	_, err := ns.Append("2024-05-01", "", models.NurseLogRequest{
		Fever: intPtr(1),
		Notes: strPtr("first note"),
		By:    strPtr("asha"),
	})
	require.NoError(t, err)

	// Notes/Byは指定時のみ上書き（nilなら既存値を維持）
	entry, err := ns.Append("2024-05-01", "", models.NurseLogRequest{
		Notes: strPtr("second note"),
	})
	require.NoError(t, err)
	assert.Equal(t, "second note", entry.Notes)
	assert.Equal(t, "asha", entry.By)
	assert.Equal(t, 1, entry.Fever)
}

func TestNurseLogGetNormalizesDate(t *testing.T) {
	ns := newNurseLogService(t)

	_, err := ns.Append("2024-05-01", "", models.NurseLogRequest{Vomiting: intPtr(2)})
	require.NoError(t, err)

	// 別形式の日付でも正規化されて同じエントリに当たる
	dateNorm, entry, err := ns.Get("2024/5/1")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", dateNorm)
	require.NotNil(t, entry)
	assert.Equal(t, 2, entry.Vomiting)
}

func TestNurseLogGetMissingDate(t *testing.T) {
	ns := newNurseLogService(t)

	dateNorm, entry, err := ns.Get("2024-05-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-02", dateNorm)
	assert.Nil(t, entry)

	_, _, err = ns.Get("bogus")
	var invalid *models.InvalidInputError
	assert.ErrorAs(t, err, &invalid)
}

func TestNurseLogInvalidDateRejected(t *testing.T) {
	ns := newNurseLogService(t)

	_, err := ns.Append("31/31/2024", "2024-05-10", models.NurseLogRequest{Fever: intPtr(1)})
	var invalid *models.InvalidInputError
	assert.ErrorAs(t, err, &invalid)
}
