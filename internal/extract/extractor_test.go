package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindMerchant(t *testing.T) {
	extractor := New(DefaultConfig())

	tests := []struct {
		name          string
		text          string
		wantMerchant  string
		wantCategory  string
		wantFound     bool
	}{
		{
			name:         "brand alias hit",
			text:         "Thank you for your Anthropic subscription",
			wantMerchant: "ANTHROPIC",
			wantCategory: "software",
			wantFound:    true,
		},
		{
			name:         "longer alias wins over prefix",
			text:         "Your Uber Eats order is on the way",
			wantMerchant: "UBER EATS",
			wantCategory: "dining",
			wantFound:    true,
		},
		{
			name:         "sender domain fallback",
			text:         "From: no-reply@mail.squarespace.com",
			wantMerchant: "SQUARESPACE",
			wantCategory: DefaultCategory,
			wantFound:    true,
		},
		{
			name:         "sender domain resolving to known brand",
			text:         "billing@uber.com",
			wantMerchant: "UBER",
			wantCategory: "transport",
			wantFound:    true,
		},
		{
			name:         "from phrase fallback",
			text:         "Receipt from Blue Bottle Coffee for your visit",
			wantMerchant: "BLUE BOTTLE COFFEE FOR YOUR VISIT",
			wantCategory: DefaultCategory,
			wantFound:    true,
		},
		{
			name:      "personal mail domains are skipped",
			text:      "someone@gmail.com says hi",
			wantFound: false,
		},
		{
			name:      "no merchant signal",
			text:      "See you at the meeting tomorrow",
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, found := extractor.findMerchant(tt.text)
			require.Equal(t, tt.wantFound, found)
			if found {
				assert.Equal(t, tt.wantMerchant, hit.canonical)
				assert.Equal(t, tt.wantCategory, hit.category)
			}
		})
	}
}

func TestFindAmount(t *testing.T) {
	extractor := New(DefaultConfig())

	tests := []struct {
		name       string
		text       string
		wantAmount float64
		wantFound  bool
	}{
		{
			name:       "keyword adjacent beats bare currency",
			text:       "Item price $99.99 plus tax. Total: $105.49",
			wantAmount: 105.49,
			wantFound:  true,
		},
		{
			name:       "currency prefix",
			text:       "You were charged for your ride: $42.50",
			wantAmount: 42.50,
			wantFound:  true,
		},
		{
			name:       "currency suffix",
			text:       "We received 19.99 USD",
			wantAmount: 19.99,
			wantFound:  true,
		},
		{
			name:       "thousands separators",
			text:       "Total: $1,234.56",
			wantAmount: 1234.56,
			wantFound:  true,
		},
		{
			name:      "amount above ceiling rejected",
			text:      "Total: $500,000.00",
			wantFound: false,
		},
		{
			name:      "no amount",
			text:      "Your order has shipped",
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, found := extractor.findAmount(tt.text)
			require.Equal(t, tt.wantFound, found)
			if found {
				assert.InDelta(t, tt.wantAmount, amount, 0.001)
			}
		})
	}
}

func TestFindDate(t *testing.T) {
	extractor := New(DefaultConfig())

	tests := []struct {
		name      string
		text      string
		wantDate  time.Time
		wantFound bool
	}{
		{
			name:      "numeric slash",
			text:      "Purchased on 06/28/2025 at the downtown store",
			wantDate:  time.Date(2025, 6, 28, 0, 0, 0, 0, time.UTC),
			wantFound: true,
		},
		{
			name:      "two digit year",
			text:      "Paid 6/28/25",
			wantDate:  time.Date(2025, 6, 28, 0, 0, 0, 0, time.UTC),
			wantFound: true,
		},
		{
			name:      "two digit year with dashes",
			text:      "Paid 6-28-25",
			wantDate:  time.Date(2025, 6, 28, 0, 0, 0, 0, time.UTC),
			wantFound: true,
		},
		{
			name:      "iso format",
			text:      "Invoice date: 2025-06-28",
			wantDate:  time.Date(2025, 6, 28, 0, 0, 0, 0, time.UTC),
			wantFound: true,
		},
		{
			name:      "month name",
			text:      "Delivered June 28, 2025",
			wantDate:  time.Date(2025, 6, 28, 0, 0, 0, 0, time.UTC),
			wantFound: true,
		},
		{
			name:      "abbreviated month with period",
			text:      "Charged Jun. 28, 2025",
			wantDate:  time.Date(2025, 6, 28, 0, 0, 0, 0, time.UTC),
			wantFound: true,
		},
		{
			name:      "invalid calendar date skipped",
			text:      "Ref 02/30/2025",
			wantFound: false,
		},
		{
			name:      "no date",
			text:      "Thanks for your purchase",
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, found := extractor.findDate(tt.text)
			require.Equal(t, tt.wantFound, found)
			if found {
				assert.Equal(t, tt.wantDate.Year(), date.Year())
				assert.Equal(t, tt.wantDate.Month(), date.Month())
				assert.Equal(t, tt.wantDate.Day(), date.Day())
			}
		})
	}
}

func TestExtractConfidence(t *testing.T) {
	extractor := New(DefaultConfig())

	t.Run("all fields plus keywords saturate at 1.0", func(t *testing.T) {
		fields := extractor.Extract(
			"Receipt from Anthropic. Invoice total: $20.00 on 2025-06-28.", 1.0)

		assert.Equal(t, "ANTHROPIC", fields.Merchant)
		assert.InDelta(t, 20.00, fields.Amount, 0.001)
		assert.False(t, fields.Date.IsZero())
		assert.InDelta(t, 1.0, fields.Confidence, 0.001)
	})

	t.Run("amount only", func(t *testing.T) {
		fields := extractor.Extract("$15.00", 1.0)

		assert.Empty(t, fields.Merchant)
		assert.InDelta(t, 15.00, fields.Amount, 0.001)
		// amount contribution only, no keywords
		assert.InDelta(t, 0.3, fields.Confidence, 0.001)
	})

	t.Run("keyword bonus caps at 0.3", func(t *testing.T) {
		fields := extractor.Extract(
			"receipt invoice order payment purchase billed", 1.0)

		assert.InDelta(t, 0.3, fields.Confidence, 0.001)
	})

	t.Run("source weight scales confidence", func(t *testing.T) {
		full := extractor.Extract("Total: $20.00", 1.0)
		half := extractor.Extract("Total: $20.00", 0.5)

		assert.InDelta(t, full.Confidence*0.5, half.Confidence, 0.001)
	})

	t.Run("default category applied", func(t *testing.T) {
		fields := extractor.Extract("$15.00", 1.0)
		assert.Equal(t, DefaultCategory, fields.Category)
	})
}

func TestMerge(t *testing.T) {
	t.Run("higher confidence pass wins per field", func(t *testing.T) {
		low := Fields{Merchant: "FOO", DisplayMerchant: "Foo", Category: "dining", Confidence: 0.2}
		high := Fields{Merchant: "BAR", DisplayMerchant: "Bar", Category: "software", Confidence: 0.6}

		merged := Merge(low, high)
		assert.Equal(t, "BAR", merged.Merchant)
		assert.Equal(t, "software", merged.Category)
	})

	t.Run("fields fill in from any pass", func(t *testing.T) {
		merchantOnly := Fields{Merchant: "FOO", DisplayMerchant: "Foo", Category: "dining", Confidence: 0.3}
		amountOnly := Fields{Amount: 12.50, Confidence: 0.3}
		dateOnly := Fields{Date: time.Date(2025, 6, 28, 0, 0, 0, 0, time.UTC), Confidence: 0.1}

		merged := Merge(merchantOnly, amountOnly, dateOnly)
		assert.Equal(t, "FOO", merged.Merchant)
		assert.InDelta(t, 12.50, merged.Amount, 0.001)
		assert.False(t, merged.Date.IsZero())
		assert.InDelta(t, 0.7, merged.Confidence, 0.001)
	})

	t.Run("total confidence clamps at 1.0", func(t *testing.T) {
		a := Fields{Amount: 10, Confidence: 0.7}
		b := Fields{Amount: 10, Confidence: 0.7}

		merged := Merge(a, b)
		assert.InDelta(t, 1.0, merged.Confidence, 0.001)
	})

	t.Run("empty merge yields default category", func(t *testing.T) {
		merged := Merge()
		assert.Equal(t, DefaultCategory, merged.Category)
		assert.Zero(t, merged.Confidence)
	})
}
