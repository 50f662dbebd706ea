package inventory

import (
	"fmt"
	"strings"
)

// Queries against PuppetDB's storage schema. Written with ? placeholders;
// Rebind converts them for PostgreSQL.
const (
	// Active nodes: neither deactivated nor expired.
	listNodesSQL = `
		SELECT certname FROM certnames
		WHERE deactivated IS NULL AND expired IS NULL
		ORDER BY certname
	`

	// The report certnames.latest_report_id points at, with its status name.
	latestReportSQL = `
		SELECT COALESCE(rs.status, ''), r.producer_timestamp
		FROM certnames c
		JOIN reports r ON r.id = c.latest_report_id
		LEFT JOIN report_statuses rs ON rs.id = r.status_id
		WHERE c.certname = ?
	`
)

// Rebind rewrites ? placeholders to PostgreSQL's $n form.
func Rebind(query string) string {
	n := 0
	var b strings.Builder
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteString(fmt.Sprintf("$%d", n))
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}
