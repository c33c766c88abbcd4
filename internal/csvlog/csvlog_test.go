package csvlog

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/rowflow/internal/models"
)

func TestWriteLog(t *testing.T) {
	var buf bytes.Buffer
	err := WriteLog(&buf, []models.Entry{{
		Date:        "2024-05-01",
		DistanceKM:  models.Some(12.5),
		SessionType: models.SessionErg,
		Notes:       "intervals, 4x2k",
		CreatedAt:   time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, err)

	want := "date,distance_km,duration_min,speed_kmh,session_type,notes,created_at\n" +
		"2024-05-01,12.50,,,Erg,\"intervals, 4x2k\",2024-05-01T18:00:00Z\n"
	assert.Equal(t, want, buf.String())
}

func TestReadEntries_RoundTrip(t *testing.T) {
	in := []models.Entry{
		{Date: "2024-01-02", DistanceKM: models.Some(5), DurationMin: models.Some(30), SpeedKMH: models.Some(10), SessionType: models.SessionWater, CreatedAt: time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)},
		{Date: "2024-01-01", DistanceKM: models.Some(3.25), SessionType: models.SessionOther, Notes: "say \"hi\""},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteLog(&buf, in))

	out, err := ReadEntries(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("ReadEntries() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadTable_Tolerant(t *testing.T) {
	input := "\ufeffdate, distance_km ,session_type\n" +
		"2024-01-01,5\n" +
		"2024-01-02,6,Erg,extra\n" +
		"\n" +
		"2024-01-03,7,Water\n"

	rows, err := ReadTable(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "5", rows[0]["distance_km"])
	assert.Equal(t, "", rows[0]["session_type"])
	assert.Equal(t, "Erg", rows[1]["session_type"])
	assert.Equal(t, "2024-01-03", rows[2]["date"])
}

func TestReadTable_Empty(t *testing.T) {
	rows, err := ReadTable(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)

	entries, err := ReadEntries(strings.NewReader(strings.Join(models.EntryColumns, ",") + "\n"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadAccounts(t *testing.T) {
	input := "username,password_hash,created_at,storage_id\n" +
		"alice,$2a$10$abc,2024-01-01T00:00:00Z,deadbeef\n" +
		",orphan,,\n"

	accounts, err := ReadAccounts(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "alice", accounts[0].Username)
	assert.Equal(t, "$2a$10$abc", accounts[0].PasswordHash)
	assert.Equal(t, "deadbeef", accounts[0].StorageID)
	assert.Equal(t, 2024, accounts[0].CreatedAt.Year())
}
