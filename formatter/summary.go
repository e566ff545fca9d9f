package formatter

import (
	"fmt"
	"strings"

	tt "github.com/gnolang/tverify/internal/types"
)

var summaryOrder = []tt.Status{
	tt.StatusProved,
	tt.StatusRefuted,
	tt.StatusUnsupported,
	tt.StatusMalformed,
	tt.StatusError,
}

// Summary returns a one-line count of the reports by status, for example
// "3 obligations: 2 proved, 1 refuted". Malformed annotations are not
// obligations and are counted separately.
func Summary(reports []tt.Report) string {
	counts := make(map[tt.Status]int)
	obligations := 0
	for _, r := range reports {
		counts[r.Status]++
		if r.Status != tt.StatusMalformed {
			obligations++
		}
	}

	noun := "obligations"
	if obligations == 1 {
		noun = "obligation"
	}
	var parts []string
	for _, status := range summaryOrder {
		n := counts[status]
		if n == 0 {
			continue
		}
		part := fmt.Sprintf("%d %s", n, strings.ToLower(status.String()))
		switch status {
		case tt.StatusProved:
			part = provedStyle.Sprint(part)
		case tt.StatusRefuted:
			part = errorStyle.Sprint(part)
		default:
			part = warningStyle.Sprint(part)
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%d %s", obligations, noun)
	}
	return fmt.Sprintf("%d %s: %s", obligations, noun, strings.Join(parts, ", "))
}
