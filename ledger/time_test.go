package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krishna78600/Samosa-Man-App/ledger"
)

func TestParseServiceDay(t *testing.T) {
	d, err := ledger.ParseServiceDay("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, ledger.ServiceDay("2025-03-10"), d)

	for _, bad := range []string{"", "2025-3-10", "10/03/2025", "2025-02-30"} {
		_, err := ledger.ParseServiceDay(bad)
		assert.True(t, ledger.IsInvalidInput(err), bad)
	}
}

func TestCalendar_ZeroValueIsUTC(t *testing.T) {
	var c ledger.Calendar
	at := time.Date(2025, time.March, 10, 23, 30, 0, 0, time.FixedZone("PST", -8*3600))

	assert.Equal(t, time.UTC, c.Location())
	assert.Equal(t, ledger.ServiceDay("2025-03-11"), c.Day(at))
}

func TestCalendar_DayOfMillis(t *testing.T) {
	c := ledger.NewCalendar(time.FixedZone("IST", 5*3600+1800))
	ms := time.Date(2025, time.March, 10, 18, 29, 59, 0, time.UTC).UnixMilli()

	assert.Equal(t, ledger.ServiceDay("2025-03-10"), c.DayOfMillis(ms))
	assert.Equal(t, ledger.ServiceDay("2025-03-11"), c.DayOfMillis(ms+1000))
}

func TestLoadCalendar(t *testing.T) {
	c, err := ledger.LoadCalendar("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, c.Location())

	_, err = ledger.LoadCalendar("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestNormalizeEmployeeID(t *testing.T) {
	id, err := ledger.NormalizeEmployeeID("  emp001\t")
	require.NoError(t, err)
	assert.Equal(t, ledger.EmployeeID("EMP001"), id)

	_, err = ledger.NormalizeEmployeeID(" \n ")
	assert.True(t, ledger.IsInvalidInput(err))
}

func TestParseMealWindow(t *testing.T) {
	w, err := ledger.ParseMealWindow(" evening ")
	require.NoError(t, err)
	assert.Equal(t, ledger.MealEvening, w)

	_, err = ledger.ParseMealWindow("LUNCH")
	assert.True(t, ledger.IsInvalidInput(err))
}
