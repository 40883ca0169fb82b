package filter

import "github.com/smallbiznis/ispreport/internal/table"

// Criteria is the full set of optional row filters of a report request.
type Criteria struct {
	Serial    NumericCriteria `json:"serial"`
	Date      DateCriteria    `json:"date"`
	Status    string          `json:"status"`
	SibSerial NumericCriteria `json:"sib_serial"`
}

// Pipeline runs stages in order, each on the survivors of the previous one.
type Pipeline []Stage

// NewPipeline builds the serial, date, status and SIB serial stages.
func NewPipeline(c Criteria) Pipeline {
	return Pipeline{
		SerialFilter{
			StageName: "serial",
			Columns:   []string{"UserServiceID", "RowID"},
			Criteria:  c.Serial,
		},
		DateFilter{
			Columns:  []string{"CreateDT", "CreateDate"},
			Criteria: c.Date,
		},
		StatusFilter{
			Status:      c.Status,
			Column:      "ServiceStatus",
			UserColumn:  "Username",
			DateColumns: []string{"CreateDT", "CreateDate"},
		},
		SerialFilter{
			StageName:  "sib_serial",
			Columns:    []string{"UserServiceID"},
			Criteria:   c.SibSerial,
			ValuesOnly: true,
		},
	}
}

// Apply runs every stage. observe, when set, sees the row count after each stage.
func (p Pipeline) Apply(t *table.Table, observe func(stage string, rows int)) *table.Table {
	if t == nil {
		t = table.Empty()
	}
	for _, stage := range p {
		t = stage.Apply(t)
		if observe != nil {
			observe(stage.Name(), t.Len())
		}
	}
	return t
}
