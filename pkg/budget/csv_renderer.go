package budget

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strconv"

	"github.com/orcaust/orcaust/pkg/pricing"
	log "github.com/sirupsen/logrus"
)

// Renderer turns a budget into a downloadable document.
type Renderer interface {
	Render(budget Budget) (string, error)
}

type CsvRendererImpl struct {
}

func NewCsvRenderer() *CsvRendererImpl {
	return &CsvRendererImpl{}
}

// Render writes a header block, one row per item in sequence order and a totals block.
func (r *CsvRendererImpl) Render(budget Budget) (string, error) {
	items := make([]Item, len(budget.Items))
	copy(items, budget.Items)
	sort.Slice(items, func(i, j int) bool {
		return items[i].Sequence < items[j].Sequence
	})

	data := make([][]string, 0, len(items)+10)
	data = append(data,
		[]string{"Number", budget.Number},
		[]string{"Status", string(budget.Status)},
		[]string{"Version", budget.Version.String()},
		[]string{"Issue date", budget.IssueDate.Format(issueDateLayout)},
		[]string{},
		[]string{"Seq", "Activity", "Hours", "Complexity", "Unit price", "UST", "Gross", "Notes"},
	)
	for _, item := range items {
		data = append(data, []string{
			strconv.Itoa(item.Sequence),
			strconv.Itoa(item.ActivityId),
			pricing.Format(item.HoursEstimated),
			pricing.Format(item.ComplexitySnapshot),
			pricing.Format(item.UnitPriceSnapshot),
			pricing.Format(item.SubtotalUst),
			pricing.Format(item.SubtotalGross),
			item.Notes,
		})
	}
	data = append(data,
		[]string{},
		[]string{"Gross total", pricing.Format(budget.GrossTotal)},
		[]string{"Discount %", pricing.Format(budget.DiscountPercent)},
		[]string{"Net total", pricing.Format(budget.NetTotal)},
	)

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, row := range data {
		if err := writer.Write(row); err != nil {
			log.Errorf("Error writing budget %d to csv: %v", budget.Id, err)
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing budget %d to csv: %v", budget.Id, err)
		return "", err
	}

	return b.String(), nil
}
