package budget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/household-extractor/constants"
	"github.com/joseph-ayodele/household-extractor/internal/statement"
	"github.com/joseph-ayodele/household-extractor/internal/utils"
)

func ymds(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = utils.FormatYMD(t)
	}
	return out
}

func TestOccurrences(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		year  int
		month time.Month
		want  []string
	}{
		{"one-off in month", Entry{Recurrence: None, StartDate: "2025-03-10"}, 2025, time.March, []string{"2025-03-10"}},
		{"one-off later month", Entry{Recurrence: None, StartDate: "2025-03-10"}, 2025, time.April, nil},
		{"one-off earlier month", Entry{StartDate: "2025-03-10"}, 2025, time.February, nil},
		{"monthly clamps to february", Entry{Recurrence: Monthly, StartDate: "2025-01-31"}, 2025, time.February, []string{"2025-02-28"}},
		{"monthly clamps to april", Entry{Recurrence: Monthly, StartDate: "2025-01-31"}, 2025, time.April, []string{"2025-04-30"}},
		{"monthly before start", Entry{Recurrence: Monthly, StartDate: "2025-05-01"}, 2025, time.April, nil},
		{"quarterly hit", Entry{Recurrence: Quarterly, StartDate: "2025-01-15"}, 2025, time.April, []string{"2025-04-15"}},
		{"quarterly miss", Entry{Recurrence: Quarterly, StartDate: "2025-01-15"}, 2025, time.March, nil},
		{"yearly leap day", Entry{Recurrence: Yearly, StartDate: "2024-02-29"}, 2025, time.February, []string{"2025-02-28"}},
		{"weekly", Entry{Recurrence: Weekly, StartDate: "2025-01-01"}, 2025, time.February, []string{"2025-02-05", "2025-02-12", "2025-02-19", "2025-02-26"}},
		{"fortnightly", Entry{Recurrence: Fortnightly, StartDate: "2025-01-01"}, 2025, time.February, []string{"2025-02-12", "2025-02-26"}},
		{"weekly first month", Entry{Recurrence: Weekly, StartDate: "2025-02-20"}, 2025, time.February, []string{"2025-02-20", "2025-02-27"}},
		{"end date cuts month", Entry{Recurrence: Monthly, StartDate: "2025-01-20", EndDate: "2025-03-15"}, 2025, time.March, nil},
		{"end date before month", Entry{Recurrence: Monthly, StartDate: "2025-01-20", EndDate: "2025-03-15"}, 2025, time.April, nil},
		{"inside end date", Entry{Recurrence: Monthly, StartDate: "2025-01-20", EndDate: "2025-03-15"}, 2025, time.February, []string{"2025-02-20"}},
		{"bad start", Entry{Recurrence: Monthly, StartDate: "soon"}, 2025, time.February, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Occurrences(tt.entry, tt.year, tt.month)
			if tt.want == nil {
				assert.Empty(t, got)
				assert.False(t, OccursIn(tt.entry, tt.year, tt.month))
				return
			}
			assert.Equal(t, tt.want, ymds(got))
			assert.True(t, OccursIn(tt.entry, tt.year, tt.month))
		})
	}
}

func TestFilterMonth(t *testing.T) {
	entries := []Entry{
		{ID: "rent", Recurrence: Monthly, StartDate: "2025-01-01"},
		{ID: "boiler", Recurrence: None, StartDate: "2025-02-14"},
		{ID: "insurance", Recurrence: Yearly, StartDate: "2024-03-01"},
	}
	ids := func(es []Entry) []string {
		var out []string
		for _, e := range es {
			out = append(out, e.ID)
		}
		return out
	}
	assert.Equal(t, []string{"rent", "boiler"}, ids(FilterMonth(entries, 2025, time.February)))
	assert.Equal(t, []string{"rent", "insurance"}, ids(FilterMonth(entries, 2025, time.March)))
	assert.Empty(t, FilterMonth(entries, 2024, time.December))
}

func plannedEntries() []Entry {
	return []Entry{
		{ID: "salary", Description: "Salary", Amount: utils.MustMoney("2500"), Direction: constants.Credit, Category: constants.BudgetIncome, Recurrence: Monthly, StartDate: "2025-01-28"},
		{ID: "rent", Description: "Rent", Amount: utils.MustMoney("1200"), Direction: constants.Debit, Category: constants.BudgetHousing, Recurrence: Monthly, StartDate: "2025-01-01"},
		{ID: "netflix", Description: "Netflix", Amount: utils.MustMoney("10.99"), Direction: constants.Debit, Category: constants.BudgetSubscriptions, Recurrence: Monthly, StartDate: "2025-01-15"},
	}
}

func tx(id, date, desc, amount string, dir constants.Direction, cat constants.BudgetCategory) statement.Transaction {
	return statement.Transaction{ID: id, Date: date, Description: desc, Amount: utils.MustMoney(amount), Direction: dir, Category: cat}
}

func TestMonthSummaryMatchesPlanned(t *testing.T) {
	txs := []statement.Transaction{
		tx("t1", "2025-03-02", "RENT TO J SMITH", "1200.00", constants.Debit, constants.BudgetHousing),
		tx("t2", "2025-03-10", "TESCO STORES 2231", "54.20", constants.Debit, constants.BudgetGroceries),
		tx("t3", "2025-03-27", "ACME LTD SALARY", "2500.00", constants.Credit, constants.BudgetIncome),
		tx("t4", "2025-02-27", "ACME LTD SALARY", "2500.00", constants.Credit, constants.BudgetIncome),
	}
	s := MonthSummary(plannedEntries(), txs, 2025, time.March)

	assert.Equal(t, 2025, s.Year)
	assert.Equal(t, 3, s.Month)
	require.Len(t, s.Actual, 3, "february salary is outside the month")
	require.Len(t, s.Planned, 3)

	assert.Equal(t, "rent", s.Planned[0].Entry.ID)
	assert.Equal(t, "2025-03-01", s.Planned[0].Date)
	assert.True(t, s.Planned[0].Matched)
	assert.Equal(t, "t1", s.Planned[0].TransactionID)

	assert.Equal(t, "netflix", s.Planned[1].Entry.ID)
	assert.False(t, s.Planned[1].Matched)

	assert.Equal(t, "salary", s.Planned[2].Entry.ID)
	assert.Equal(t, "t3", s.Planned[2].TransactionID)

	assert.Equal(t, "2500.00", s.Income.String())
	assert.Equal(t, "1265.19", s.Expenses.String())
	assert.Equal(t, "1234.81", s.Net.String())
	assert.Equal(t, "-1200.00", s.ByCategory[constants.BudgetHousing].String())
	assert.Equal(t, "-54.20", s.ByCategory[constants.BudgetGroceries].String())
	assert.Equal(t, "-10.99", s.ByCategory[constants.BudgetSubscriptions].String())
	assert.Equal(t, "2500.00", s.ByCategory[constants.BudgetIncome].String())
}

func TestMonthSummaryMatchRules(t *testing.T) {
	tests := []struct {
		name    string
		tx      statement.Transaction
		matched bool
	}{
		{"within one percent", tx("a", "2025-03-01", "RENT", "1210.00", constants.Debit, constants.BudgetHousing), true},
		{"amount too far", tx("b", "2025-03-01", "RENT", "1250.00", constants.Debit, constants.BudgetHousing), false},
		{"four days late", tx("c", "2025-03-05", "RENT", "1200.00", constants.Debit, constants.BudgetHousing), false},
		{"paid late february", tx("d", "2025-02-27", "RENT", "1200.00", constants.Debit, constants.BudgetHousing), true},
		{"wrong direction", tx("e", "2025-03-01", "RENT", "1200.00", constants.Credit, constants.BudgetHousing), false},
		{"no shared word", tx("f", "2025-03-01", "HALIFAX MORTGAGE", "1200.00", constants.Debit, constants.BudgetHousing), false},
	}
	rent := plannedEntries()[1]
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := MonthSummary([]Entry{rent}, []statement.Transaction{tt.tx}, 2025, time.March)
			require.Len(t, s.Planned, 1)
			assert.Equal(t, tt.matched, s.Planned[0].Matched)
		})
	}
}

func TestMonthSummaryNoDoubleCount(t *testing.T) {
	weekly := Entry{ID: "milk", Description: "Milkman", Amount: utils.MustMoney("6.50"), Direction: constants.Debit, Category: constants.BudgetGroceries, Recurrence: Weekly, StartDate: "2025-03-03"}
	txs := []statement.Transaction{
		tx("m1", "2025-03-03", "MILKMAN DELIVERY", "6.50", constants.Debit, constants.BudgetGroceries),
		tx("m2", "2025-03-10", "MILKMAN DELIVERY", "6.50", constants.Debit, constants.BudgetGroceries),
	}
	s := MonthSummary([]Entry{weekly}, txs, 2025, time.March)
	require.Len(t, s.Planned, 5)
	matched := 0
	for _, p := range s.Planned {
		if p.Matched {
			matched++
		}
	}
	assert.Equal(t, 2, matched, "each payment covers one occurrence")
	assert.Equal(t, "32.50", s.Expenses.String(), "two paid plus three planned")
}

func TestMonthSummaryEmpty(t *testing.T) {
	s := MonthSummary(nil, nil, 2025, time.June)
	assert.Empty(t, s.Planned)
	assert.Empty(t, s.Actual)
	assert.NotNil(t, s.ByCategory)
	assert.True(t, s.Net.IsZero())
}

func TestDedupe(t *testing.T) {
	bal := func(s string) *utils.Money {
		m := utils.MustMoney(s)
		return &m
	}
	a := tx("1", "2025-03-02", "TESCO STORES 2231", "54.20", constants.Debit, constants.BudgetGroceries)
	b := a
	b.ID, b.Description = "2", "Tesco  Stores-2231"
	c := tx("3", "2025-03-02", "TESCO STORES 2231", "54.20", constants.Credit, constants.BudgetGroceries)
	d := tx("4", "2025-03-03", "COFFEE", "3.10", constants.Debit, constants.BudgetEatingOut)
	d.Balance = bal("100.00")
	e := d
	e.ID, e.Balance = "5", bal("96.90")
	f := d
	f.ID = "6"

	kept, dropped := Dedupe([]statement.Transaction{a, b, c, d, e, f})
	var keptIDs, droppedIDs []string
	for _, k := range kept {
		keptIDs = append(keptIDs, k.ID)
	}
	for _, k := range dropped {
		droppedIDs = append(droppedIDs, k.ID)
	}
	assert.Equal(t, []string{"1", "3", "4", "5"}, keptIDs)
	assert.Equal(t, []string{"2", "6"}, droppedIDs)
}

func TestDetectRecurring(t *testing.T) {
	withParty := func(t statement.Transaction, party string) statement.Transaction {
		t.Counterparty = party
		return t
	}
	txs := []statement.Transaction{
		withParty(tx("n1", "2025-01-15", "NETFLIX.COM", "10.99", constants.Debit, constants.BudgetSubscriptions), "Netflix"),
		withParty(tx("n2", "2025-02-15", "NETFLIX.COM", "10.99", constants.Debit, constants.BudgetSubscriptions), "Netflix"),
		withParty(tx("n3", "2025-03-15", "NETFLIX.COM", "11.20", constants.Debit, constants.BudgetSubscriptions), "Netflix"),
		withParty(tx("n4", "2025-04-15", "NETFLIX.COM", "15.99", constants.Debit, constants.BudgetSubscriptions), "Netflix"),
		withParty(tx("s1", "2025-01-05", "TESCO", "54.20", constants.Debit, constants.BudgetGroceries), "Tesco"),
		withParty(tx("s2", "2025-02-05", "TESCO", "30.10", constants.Debit, constants.BudgetGroceries), "Tesco"),
		withParty(tx("s3", "2025-03-05", "TESCO", "80.00", constants.Debit, constants.BudgetGroceries), "Tesco"),
		withParty(tx("c1", "2025-01-02", "COSTA", "3.10", constants.Debit, constants.BudgetEatingOut), "Costa"),
		withParty(tx("c2", "2025-01-09", "COSTA", "3.10", constants.Debit, constants.BudgetEatingOut), "Costa"),
		withParty(tx("c3", "2025-02-02", "COSTA", "3.10", constants.Debit, constants.BudgetEatingOut), "Costa"),
	}
	got := DetectRecurring(txs)
	require.Len(t, got, 1)
	e := got[0]
	assert.Equal(t, "Netflix", e.Description)
	assert.Equal(t, Monthly, e.Recurrence)
	assert.Equal(t, constants.Debit, e.Direction)
	assert.Equal(t, constants.BudgetSubscriptions, e.Category)
	assert.Equal(t, "2025-01-15", e.StartDate)
	assert.Equal(t, "11.10", e.Amount.String(), "median of the four amounts")
	assert.NotEmpty(t, e.ID)

	again := DetectRecurring(txs)
	assert.Equal(t, e.ID, again[0].ID)
}
