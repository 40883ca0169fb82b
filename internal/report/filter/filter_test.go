package filter

import (
	"testing"
	"time"

	"github.com/smallbiznis/ispreport/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func day(s string) *time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func serialTable(ids ...any) *table.Table {
	rows := make([]table.Row, len(ids))
	for i, id := range ids {
		rows[i] = table.Row{"RowID": id, "Username": "u"}
	}
	return table.New([]string{"RowID", "Username"}, rows)
}

func ids(t *table.Table, col string) []any {
	out := make([]any, 0, t.Len())
	for _, r := range t.Rows {
		out = append(out, r[col])
	}
	return out
}

func TestParseOperator(t *testing.T) {
	tests := map[string]Operator{
		"":        OpEq,
		"EXACT":   OpEq,
		"exact":   OpEq,
		" = ":     OpEq,
		"NONE":    OpNone,
		"between": OpBetween,
		">=":      OpGte,
	}
	for raw, want := range tests {
		got, ok := ParseOperator(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	_, ok := ParseOperator("LIKE")
	assert.False(t, ok)
}

func TestSerialOperators(t *testing.T) {
	src := serialTable(int64(1), int64(5), "7", nil, "x", int64(10))

	tests := []struct {
		name string
		c    NumericCriteria
		want []any
	}{
		{"eq", NumericCriteria{Op: "=", Value: f(5)}, []any{int64(5)}},
		{"gt", NumericCriteria{Op: ">", Value: f(5)}, []any{"7", int64(10)}},
		{"lte", NumericCriteria{Op: "<=", Value: f(5)}, []any{int64(1), int64(5)}},
		{"between", NumericCriteria{Op: "BETWEEN", Min: f(5), Max: f(7)}, []any{int64(5), "7"}},
		{"none disables", NumericCriteria{Op: "NONE", Value: f(5)}, ids(src, "RowID")},
		{"flag without operands skips", NumericCriteria{Enabled: true, Op: ">"}, ids(src, "RowID")},
		{"empty op means eq", NumericCriteria{Value: f(10)}, []any{int64(10)}},
		{"between downgraded", NumericCriteria{Op: "BETWEEN", Value: f(1), Min: f(5)}, []any{int64(1)}},
		{"between missing bound skipped", NumericCriteria{Op: "BETWEEN", Min: f(5)}, ids(src, "RowID")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SerialFilter{StageName: "serial", Columns: []string{"UserServiceID", "RowID"}, Criteria: tt.c}.Apply(src)
			assert.Equal(t, tt.want, ids(got, "RowID"))
		})
	}
}

func TestSerialEqualityWithRangeMatchesBetween(t *testing.T) {
	src := serialTable(int64(1), int64(2), int64(3), int64(4), int64(5))
	cols := []string{"RowID"}

	upgraded := SerialFilter{Columns: cols, Criteria: NumericCriteria{Op: "=", Min: f(2), Max: f(4)}}.Apply(src)
	explicit := SerialFilter{Columns: cols, Criteria: NumericCriteria{Op: "BETWEEN", Min: f(2), Max: f(4)}}.Apply(src)
	assert.Equal(t, explicit.Rows, upgraded.Rows)
	assert.Equal(t, []any{int64(2), int64(3), int64(4)}, ids(upgraded, "RowID"))

	again := SerialFilter{Columns: cols, Criteria: NumericCriteria{Op: "=", Min: f(2), Max: f(4)}}.Apply(upgraded)
	assert.Equal(t, upgraded.Rows, again.Rows)
}

func TestSerialPrefersUserServiceID(t *testing.T) {
	src := table.New([]string{"UserServiceID", "RowID"}, []table.Row{
		{"UserServiceID": int64(100), "RowID": int64(1)},
		{"UserServiceID": int64(200), "RowID": int64(100)},
	})
	got := SerialFilter{Columns: []string{"UserServiceID", "RowID"}, Criteria: NumericCriteria{Value: f(100)}}.Apply(src)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, int64(1), got.Rows[0]["RowID"])
}

func TestMissingColumnSkipsStage(t *testing.T) {
	src := table.New([]string{"Username"}, []table.Row{{"Username": "a"}})

	assert.Equal(t, 1, SerialFilter{Columns: []string{"RowID"}, Criteria: NumericCriteria{Value: f(1)}}.Apply(src).Len())
	assert.Equal(t, 1, DateFilter{Columns: []string{"CreateDT"}, Criteria: DateCriteria{Value: day("2024-01-01")}}.Apply(src).Len())
	assert.Equal(t, 1, StatusFilter{Status: "active", Column: "ServiceStatus"}.Apply(src).Len())
}

func TestDateFilterComparesDateOnly(t *testing.T) {
	src := table.New([]string{"CreateDT"}, []table.Row{
		{"CreateDT": "2024-01-01 23:59:59"},
		{"CreateDT": "2024-01-02 00:00:01"},
		{"CreateDT": time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)},
		{"CreateDT": nil},
	})
	cols := []string{"CreateDT", "CreateDate"}

	got := DateFilter{Columns: cols, Criteria: DateCriteria{Op: "EXACT", Value: day("2024-01-02")}}.Apply(src)
	assert.Equal(t, []any{"2024-01-02 00:00:01"}, ids(got, "CreateDT"))

	got = DateFilter{Columns: cols, Criteria: DateCriteria{Op: "=", Start: day("2024-01-01"), End: day("2024-01-02")}}.Apply(src)
	assert.Equal(t, 2, got.Len())

	got = DateFilter{Columns: cols, Criteria: DateCriteria{Op: ">", Value: day("2024-01-01")}}.Apply(src)
	assert.Equal(t, 2, got.Len())

	got = DateFilter{Columns: cols, Criteria: DateCriteria{Op: "BETWEEN", Value: day("2024-01-03"), Start: day("2024-01-01")}}.Apply(src)
	assert.Equal(t, 1, got.Len())

	got = DateFilter{Columns: cols, Criteria: DateCriteria{Op: "NONE", Value: day("2024-01-03")}}.Apply(src)
	assert.Equal(t, 4, got.Len())
}

func TestStatusFilter(t *testing.T) {
	src := table.New([]string{"ServiceStatus", "Username"}, []table.Row{
		{"ServiceStatus": " Active ", "Username": "a"},
		{"ServiceStatus": "suspended", "Username": "b"},
		{"ServiceStatus": "ACTIVE", "Username": "c"},
	})
	stage := StatusFilter{Column: "ServiceStatus", UserColumn: "Username", DateColumns: []string{"CreateDT"}}

	stage.Status = "active"
	assert.Equal(t, []any{"a", "c"}, ids(stage.Apply(src), "Username"))

	stage.Status = "NONE"
	assert.Equal(t, 3, stage.Apply(src).Len())
}

func TestPendingKeepsLatestPerUser(t *testing.T) {
	src := table.New([]string{"ServiceStatus", "Username", "CreateDT", "Password"}, []table.Row{
		{"ServiceStatus": "Pending", "Username": "u1", "CreateDT": "2024-01-01", "Password": "x"},
		{"ServiceStatus": "Pending", "Username": "u2", "CreateDT": "2024-01-15", "Password": "y"},
		{"ServiceStatus": "pending", "Username": "u1", "CreateDT": "2024-02-01", "Password": "z"},
		{"ServiceStatus": "active", "Username": "u3", "CreateDT": "2024-03-01", "Password": "w"},
	})

	got := StatusFilter{
		Status:      "pending",
		Column:      "ServiceStatus",
		UserColumn:  "Username",
		DateColumns: []string{"CreateDT", "CreateDate"},
	}.Apply(src)

	require.Equal(t, 2, got.Len())
	assert.Equal(t, []any{"u2", "u1"}, ids(got, "Username"))
	assert.Equal(t, "2024-02-01", got.Rows[1]["CreateDT"])
	assert.NotContains(t, got.Columns, "Password")
	for _, r := range got.Rows {
		assert.NotContains(t, r, "Password")
	}
	assert.Contains(t, src.Rows[0], "Password")
}

func TestPipelineOrderAndObserver(t *testing.T) {
	src := table.New([]string{"RowID", "UserServiceID", "CreateDT", "ServiceStatus", "Username"}, []table.Row{
		{"RowID": int64(1), "UserServiceID": int64(10), "CreateDT": "2024-01-01 10:00:00", "ServiceStatus": "active", "Username": "a"},
		{"RowID": int64(2), "UserServiceID": int64(20), "CreateDT": "2024-01-02 10:00:00", "ServiceStatus": "active", "Username": "b"},
		{"RowID": int64(3), "UserServiceID": int64(30), "CreateDT": "2024-01-02 11:00:00", "ServiceStatus": "expired", "Username": "c"},
		{"RowID": int64(4), "UserServiceID": int64(40), "CreateDT": "2024-01-02 12:00:00", "ServiceStatus": "active", "Username": "d"},
	})

	var seen []string
	got := NewPipeline(Criteria{
		Serial:    NumericCriteria{Op: ">=", Value: f(20)},
		Date:      DateCriteria{Value: day("2024-01-02")},
		Status:    "Active",
		SibSerial: NumericCriteria{Enabled: true, Op: "<"},
	}).Apply(src, func(stage string, rows int) {
		seen = append(seen, stage)
	})

	assert.Equal(t, []string{"serial", "date", "status", "sib_serial"}, seen)
	assert.Equal(t, []any{"b", "d"}, ids(got, "Username"))

	got = NewPipeline(Criteria{SibSerial: NumericCriteria{Op: "BETWEEN", Min: f(35), Max: f(45)}}).Apply(src, nil)
	assert.Equal(t, []any{"d"}, ids(got, "Username"))
}
