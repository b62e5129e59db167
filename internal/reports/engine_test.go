package reports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRows implements pgx.Rows over literal values, mimicking pgx's strict
// NULL handling: a nil value only scans into a pointer destination.
type fakeRows struct {
	rows [][]any
	idx  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx <= len(r.rows)
}
func (r *fakeRows) Scan(dest ...any) error { return assignRow(r.rows[r.idx-1], dest) }
func (r *fakeRows) Values() ([]any, error) { return nil, nil }
func (r *fakeRows) RawValues() [][]byte    { return nil }
func (r *fakeRows) Conn() *pgx.Conn        { return nil }

func assignRow(vals []any, dest []any) error {
	if len(vals) != len(dest) {
		return fmt.Errorf("scan: %d values into %d destinations", len(vals), len(dest))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = vals[i].(int64)
		case *int:
			*p = vals[i].(int)
		case *float64:
			*p = vals[i].(float64)
		case *string:
			*p = vals[i].(string)
		case *bool:
			*p = vals[i].(bool)
		case *time.Time:
			if vals[i] == nil {
				return fmt.Errorf("cannot scan NULL into *time.Time")
			}
			*p = vals[i].(time.Time)
		case **time.Time:
			if vals[i] == nil {
				*p = nil
			} else {
				v := vals[i].(time.Time)
				*p = &v
			}
		default:
			return fmt.Errorf("unsupported destination %T", d)
		}
	}
	return nil
}

// fakeQuerier serves queued result sets in call order.
type fakeQuerier struct {
	queries []string
	queue   []*fakeRows
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.queries = append(q.queries, sql)
	if len(q.queue) == 0 {
		return &fakeRows{}, nil
	}
	rows := q.queue[0]
	q.queue = q.queue[1:]
	return rows, nil
}

func (q *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

// orderRow lays out the adisyon columns in select order.
func orderRow(adsno int64, acilis any, masaNo string) []any {
	return []any{adsno, 1, acilis, nil, 120.0, 0.0, "", false, false, masaNo, "", ""}
}

func TestOpenOrdersRescuesUndatedRows(t *testing.T) {
	now := time.Date(2025, 6, 18, 12, 0, 0, 0, time.Local)
	q := &fakeQuerier{queue: []*fakeRows{
		{}, // dated tier finds nothing: NULL acilis_tarihi fails BETWEEN
		{rows: [][]any{orderRow(7, nil, "4")}},
	}}
	engine := NewEngine(nil)
	scope := Scope{Kasalar: []int32{1}, Primary: 1, Start: now.Add(-time.Hour), End: now}

	orders, err := engine.OpenOrders(context.Background(), q, scope)
	if err != nil {
		t.Fatalf("open orders with a NULL open date: %v", err)
	}
	if len(orders) != 1 || orders[0].AdsNo != 7 {
		t.Fatalf("orders = %+v, want the undated row", orders)
	}
	if orders[0].Acilis != nil {
		t.Fatalf("acilis = %v, want nil for a NULL open date", orders[0].Acilis)
	}
	if orders[0].Adtur != AdturAdisyon {
		t.Fatalf("adtur = %q, want inference from the table number", orders[0].Adtur)
	}
	if len(q.queries) != 2 {
		t.Fatalf("cascade must stop at the undated tier, ran %d queries", len(q.queries))
	}
}

func TestOpenOrdersDatedTierWins(t *testing.T) {
	opened := time.Date(2025, 6, 18, 11, 30, 0, 0, time.Local)
	q := &fakeQuerier{queue: []*fakeRows{
		{rows: [][]any{orderRow(3, opened, "7")}},
	}}
	engine := NewEngine(nil)
	scope := Scope{Kasalar: []int32{1}, Primary: 1, Start: opened.Add(-time.Hour), End: opened.Add(time.Hour)}

	orders, err := engine.OpenOrders(context.Background(), q, scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 || orders[0].Acilis == nil || !orders[0].Acilis.Equal(opened) {
		t.Fatalf("orders = %+v, want the dated row", orders)
	}
	if len(q.queries) != 1 {
		t.Fatalf("later tiers must not run after a non-empty result, ran %d queries", len(q.queries))
	}
}
