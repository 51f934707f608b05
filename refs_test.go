package satsledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func rate(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d(s), Valid: true}
}

func day(n int) time.Time {
	return time.Date(2023, time.March, n, 12, 0, 0, 0, time.UTC)
}

func TestRefQueue_Subtract(t *testing.T) {
	testCases := []struct {
		name         string
		queue        []Ref
		amount       string
		wantConsumed []string
		wantResidual []string
	}{
		{
			name: "full consumption of one lot",
			queue: []Ref{
				{ID: "a", Amount: d("0.5")},
			},
			amount:       "0.5",
			wantConsumed: []string{"0.5"},
			wantResidual: nil,
		},
		{
			name: "split of the overshooting lot",
			queue: []Ref{
				{ID: "a", Amount: d("0.2")},
				{ID: "b", Amount: d("0.2")},
			},
			amount:       "0.30000000",
			wantConsumed: []string{"0.2", "0.1"},
			wantResidual: []string{"0.1"},
		},
		{
			name: "zero amount consumes nothing",
			queue: []Ref{
				{ID: "a", Amount: d("1")},
			},
			amount:       "0",
			wantConsumed: nil,
			wantResidual: []string{"1"},
		},
		{
			name: "fractional satoshi split",
			queue: []Ref{
				{ID: "a", Amount: d("0.00000003")},
			},
			amount:       "0.000000015",
			wantConsumed: []string{"0.000000015"},
			wantResidual: []string{"0.000000015"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			queue := &RefQueue{}
			queue.Append(tc.queue...)
			before := queue.Sum()

			consumed, err := queue.Subtract(d(tc.amount))
			if err != nil {
				t.Fatalf("Subtract(%s) error = %v", tc.amount, err)
			}

			if len(consumed) != len(tc.wantConsumed) {
				t.Fatalf("consumed %d lots, want %d", len(consumed), len(tc.wantConsumed))
			}
			for i, want := range tc.wantConsumed {
				if !consumed[i].Amount.Equal(d(want)) {
					t.Errorf("consumed[%d] = %s, want %s", i, consumed[i].Amount, want)
				}
			}

			residual := queue.Refs()
			if len(residual) != len(tc.wantResidual) {
				t.Fatalf("residual %d lots, want %d", len(residual), len(tc.wantResidual))
			}
			for i, want := range tc.wantResidual {
				if !residual[i].Amount.Equal(d(want)) {
					t.Errorf("residual[%d] = %s, want %s", i, residual[i].Amount, want)
				}
			}

			// Conservation must hold exactly, no rounding error is tolerable.
			consumedSum := decimal.Zero
			for _, ref := range consumed {
				consumedSum = consumedSum.Add(ref.Amount)
			}
			if got := queue.Sum().Add(consumedSum); !got.Equal(before) {
				t.Errorf("conservation broken: after+consumed = %s, want %s", got, before)
			}
		})
	}
}

func TestRefQueue_SubtractFIFOOrder(t *testing.T) {
	queue := &RefQueue{}
	queue.Append(
		Ref{ID: "first", Date: day(1), Amount: d("1")},
		Ref{ID: "second", Date: day(2), Amount: d("1")},
	)

	consumed, err := queue.Subtract(d("1"))
	if err != nil {
		t.Fatalf("Subtract() error = %v", err)
	}
	if len(consumed) != 1 || consumed[0].ID != "first" {
		t.Fatalf("consumed %v, want the oldest lot only", consumed)
	}
	residual := queue.Refs()
	if len(residual) != 1 || residual[0].ID != "second" {
		t.Fatalf("residual %v, want the newest lot unchanged", residual)
	}
	if !residual[0].Amount.Equal(d("1")) {
		t.Errorf("residual amount = %s, want 1", residual[0].Amount)
	}
}

func TestRefQueue_SubtractSplitKeepsRate(t *testing.T) {
	queue := &RefQueue{}
	queue.Append(Ref{ID: "a", Amount: d("2"), Rate: rate("10000")})

	consumed, err := queue.Subtract(d("0.5"))
	if err != nil {
		t.Fatalf("Subtract() error = %v", err)
	}
	if !consumed[0].Rate.Valid || !consumed[0].Rate.Decimal.Equal(d("10000")) {
		t.Errorf("consumed rate = %v, want 10000", consumed[0].Rate)
	}
	residual := queue.Refs()
	if !residual[0].Rate.Valid || !residual[0].Rate.Decimal.Equal(d("10000")) {
		t.Errorf("residual rate = %v, want 10000", residual[0].Rate)
	}
}

func TestRefQueue_SubtractInsufficient(t *testing.T) {
	queue := &RefQueue{}
	queue.Append(Ref{ID: "a", Amount: d("0.1")})

	_, err := queue.Subtract(d("0.2"))
	var insufficient *InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Subtract() error = %v, want *InsufficientBalanceError", err)
	}
	// The queue must be left untouched on failure.
	if got := queue.Sum(); !got.Equal(d("0.1")) {
		t.Errorf("queue sum after failed subtract = %s, want 0.1", got)
	}
}

func TestRefQueue_SubtractNegativePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Subtract(-1) did not panic")
		}
	}()
	queue := &RefQueue{}
	queue.Subtract(d("-1"))
}
