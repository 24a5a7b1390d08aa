package budget

import "fmt"

// FormatNumber renders the budget number ORC/{year}/{contractId}/{sequence}.
func FormatNumber(year, contractId, sequence int) string {
	return fmt.Sprintf("ORC/%04d/%d/%06d", year, contractId, sequence)
}
