package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCsvRendererImpl_Render(t *testing.T) {
	// given
	budget := Budget{
		Id:              7,
		Number:          "ORC/2025/1/000007",
		Status:          Approved,
		Version:         Version{Major: 1, Minor: 2},
		DiscountPercent: dec("10"),
		GrossTotal:      dec("85"),
		NetTotal:        dec("76.5"),
		IssueDate:       time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Items: []Item{
			{ActivityId: 4, Sequence: 2, HoursEstimated: dec("2"), ComplexitySnapshot: dec("0.5"),
				UnitPriceSnapshot: dec("10"), SubtotalUst: dec("1"), SubtotalGross: dec("10"), Notes: "api, v2"},
			{ActivityId: 3, Sequence: 1, HoursEstimated: dec("3"), ComplexitySnapshot: dec("2.5"),
				UnitPriceSnapshot: dec("10"), SubtotalUst: dec("7.5"), SubtotalGross: dec("75")},
		},
	}

	// when
	document, err := NewCsvRenderer().Render(budget)

	// then
	require.NoError(t, err)
	expected := "Number,ORC/2025/1/000007\n" +
		"Status,APPROVED\n" +
		"Version,1.2\n" +
		"Issue date,2025-03-10\n" +
		"\n" +
		"Seq,Activity,Hours,Complexity,Unit price,UST,Gross,Notes\n" +
		"1,3,3.0000,2.5000,10.0000,7.5000,75.0000,\n" +
		"2,4,2.0000,0.5000,10.0000,1.0000,10.0000,\"api, v2\"\n" +
		"\n" +
		"Gross total,85.0000\n" +
		"Discount %,10.0000\n" +
		"Net total,76.5000\n"
	assert.Equal(t, expected, document)
	assert.Equal(t, 2, budget.Items[0].Sequence, "input order is left untouched")
}
