package pattern

import (
	"context"
	"testing"

	"github.com/privsentry/pii-sentinel/internal/entity"
	"github.com/privsentry/pii-sentinel/internal/logger"
)

func findCategory(candidates []entity.Candidate, c entity.Category) []entity.Candidate {
	var out []entity.Candidate
	for _, cand := range candidates {
		if cand.Category == c {
			out = append(out, cand)
		}
	}
	return out
}

func TestMatcherDetect(t *testing.T) {
	m := New(logger.Nop())
	ctx := context.Background()

	t.Run("national ID with valid checksum", func(t *testing.T) {
		text := "ID: 123456782, done"
		got, err := m.Detect(ctx, text)
		if err != nil {
			t.Fatal(err)
		}
		ids := findCategory(got, entity.Identification)
		if len(ids) != 1 {
			t.Fatalf("got %d ID candidates, want 1", len(ids))
		}
		if ids[0].Text != "123456782" || ids[0].Start != 4 || ids[0].End != 13 {
			t.Errorf("unexpected span: %+v", ids[0])
		}
		if ids[0].Confidence != 0.95 {
			t.Errorf("confidence = %v, want 0.95", ids[0].Confidence)
		}
	})

	t.Run("checksum failure is a silent drop", func(t *testing.T) {
		got, err := m.Detect(ctx, "ID: 305420905, done")
		if err != nil {
			t.Fatal(err)
		}
		if ids := findCategory(got, entity.Identification); len(ids) != 0 {
			t.Errorf("got %d ID candidates for invalid checksum, want 0", len(ids))
		}
	})

	t.Run("phone numbers", func(t *testing.T) {
		for _, phone := range []string{"050-1234567", "+972-50-123-4567", "03-1234567"} {
			got, err := m.Detect(ctx, "call "+phone+" today")
			if err != nil {
				t.Fatal(err)
			}
			phones := findCategory(got, entity.Phone)
			if len(phones) != 1 {
				t.Fatalf("%q: got %d phone candidates, want 1", phone, len(phones))
			}
			if phones[0].Text != phone {
				t.Errorf("%q: matched %q", phone, phones[0].Text)
			}
		}
	})

	t.Run("email", func(t *testing.T) {
		got, err := m.Detect(ctx, "contact john.doe@example.com please")
		if err != nil {
			t.Fatal(err)
		}
		emails := findCategory(got, entity.Email)
		if len(emails) != 1 || emails[0].Text != "john.doe@example.com" {
			t.Fatalf("unexpected email candidates: %+v", emails)
		}
	})

	t.Run("credit card with Luhn gate", func(t *testing.T) {
		got, err := m.Detect(ctx, "card 4111-1111-1111-1111 and card 4111-1111-1111-1112")
		if err != nil {
			t.Fatal(err)
		}
		cards := findCategory(got, entity.CreditCard)
		if len(cards) != 1 {
			t.Fatalf("got %d card candidates, want 1 (Luhn failure dropped)", len(cards))
		}
		if cards[0].Text != "4111-1111-1111-1111" {
			t.Errorf("matched %q", cards[0].Text)
		}
	})

	t.Run("date of birth formats", func(t *testing.T) {
		for _, text := range []string{"born 15/03/1990 here", "born 1990-03-15 here"} {
			got, err := m.Detect(ctx, text)
			if err != nil {
				t.Fatal(err)
			}
			if dobs := findCategory(got, entity.DateOfBirth); len(dobs) != 1 {
				t.Errorf("%q: got %d DOB candidates, want 1", text, len(dobs))
			}
		}
	})

	t.Run("bank account", func(t *testing.T) {
		got, err := m.Detect(ctx, "account 12-345678-9 closed")
		if err != nil {
			t.Fatal(err)
		}
		if accts := findCategory(got, entity.BankAccount); len(accts) != 1 {
			t.Errorf("got %d bank account candidates, want 1", len(accts))
		}
	})

	t.Run("empty text", func(t *testing.T) {
		got, err := m.Detect(ctx, "")
		if err != nil || got != nil {
			t.Errorf("Detect(\"\") = %v, %v; want nil, nil", got, err)
		}
	})

	t.Run("spans slice back to source", func(t *testing.T) {
		text := "ID: 123456782, call 050-1234567, mail a@b.co today"
		got, err := m.Detect(ctx, text)
		if err != nil {
			t.Fatal(err)
		}
		for _, c := range got {
			if err := c.Validate(text); err != nil {
				t.Errorf("candidate %+v fails validation: %v", c, err)
			}
		}
	})
}
