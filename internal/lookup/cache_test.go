package lookup

import (
	"context"
	"errors"
	"testing"

	"oriyet/internal/domain"
)

type fakeSource struct {
	ids   map[string]uint // "table/code" -> id
	calls int
}

func (f *fakeSource) LookupID(_ context.Context, table, code string) (uint, error) {
	f.calls++
	id, ok := f.ids[table+"/"+code]
	if !ok {
		return 0, domain.LookupError(table, code)
	}
	return id, nil
}

func TestCache_ID(t *testing.T) {
	t.Parallel()

	src := &fakeSource{ids: map[string]uint{
		"payment_statuses/pending":   1,
		"payment_statuses/completed": 2,
	}}
	cache := NewCache(src)
	ctx := context.Background()

	t.Run("memoizes per code", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			id, err := cache.PaymentStatusID(ctx, domain.PaymentPending)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if id != 1 {
				t.Fatalf("expected id 1, got %d", id)
			}
		}
		if src.calls != 1 {
			t.Fatalf("expected 1 source call, got %d", src.calls)
		}
	})

	t.Run("distinct codes resolve independently", func(t *testing.T) {
		id, err := cache.PaymentStatusID(ctx, domain.PaymentCompleted)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != 2 {
			t.Fatalf("expected id 2, got %d", id)
		}
	})

	t.Run("unknown code is a configuration error", func(t *testing.T) {
		_, err := cache.PaymentStatusID(ctx, "bogus")
		if !errors.Is(err, domain.ErrUnknownLookupCode) {
			t.Fatalf("expected ErrUnknownLookupCode, got %v", err)
		}
	})

	t.Run("errors are not cached", func(t *testing.T) {
		before := src.calls
		_, _ = cache.PaymentStatusID(ctx, "bogus")
		if src.calls != before+1 {
			t.Fatalf("expected a fresh source call after an error")
		}
	})
}

func TestCache_Clear(t *testing.T) {
	t.Parallel()

	src := &fakeSource{ids: map[string]uint{"otp_types/login": 7}}
	cache := NewCache(src)
	ctx := context.Background()

	if _, err := cache.OTPTypeID(ctx, domain.OTPTypeLogin); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	cache.Clear()
	if _, err := cache.OTPTypeID(ctx, domain.OTPTypeLogin); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("expected source re-hit after Clear, got %d calls", src.calls)
	}
}
