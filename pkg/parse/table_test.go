package parse

import "testing"

func TestTable(t *testing.T) {
	text := `Date,Description,Category,In,Out
01/02/2024,Coffee,Dining,,3.50

01/03/2024,"Groceries, weekly",Food,,82.10
short,row
01/04/2024,Salary,Income,5000,`

	rows := Table(text)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	if rows[1]["Description"] != "Groceries, weekly" {
		t.Errorf("quoted comma lost: %q", rows[1]["Description"])
	}
	if rows[2]["In"] != "5000" {
		t.Errorf("expected In=5000, got %q", rows[2]["In"])
	}
}

func TestTableEmpty(t *testing.T) {
	if rows := Table(""); len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
	if rows := Table("Date,Description\n"); len(rows) != 0 {
		t.Errorf("expected no rows for header-only input, got %d", len(rows))
	}
}

func TestRowField(t *testing.T) {
	row := Row{" DATE ": "01/02/2024", "Income": "10"}

	if v, ok := row.Field("Date", "date"); !ok || v != "01/02/2024" {
		t.Errorf("case-insensitive header lookup failed: %q ok=%v", v, ok)
	}
	if v, ok := row.Field("In", "Income", "income"); !ok || v != "10" {
		t.Errorf("synonym lookup failed: %q ok=%v", v, ok)
	}
	if _, ok := row.Field("Balance"); ok {
		t.Error("expected missing header to report !ok")
	}
}
