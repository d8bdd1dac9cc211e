// README: Delimited-text parser for the history/users/rides datasets.
package dataset

import "strings"

// Record is one dataset row keyed by header column name.
type Record map[string]string

// Parse splits comma-delimited text into records keyed by the header row.
//
// The format has no quoting: a comma always separates fields, so values
// cannot contain commas. Fields are trimmed. Blank lines are skipped. A row
// shorter than the header leaves the trailing columns absent; extra fields
// beyond the header are dropped.
func Parse(text string) []Record {
	lines := strings.Split(text, "\n")

	var header []string
	var records []Record
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if header == nil {
			header = make([]string, len(fields))
			for i, f := range fields {
				header[i] = strings.TrimSpace(f)
			}
			continue
		}
		rec := make(Record, len(header))
		for i, name := range header {
			if i >= len(fields) {
				break
			}
			rec[name] = strings.TrimSpace(fields[i])
		}
		records = append(records, rec)
	}
	return records
}

func (r Record) clone() Record {
	cp := make(Record, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}
