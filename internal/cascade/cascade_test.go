package cascade

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/extract"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

type stubOCR struct {
	text  string
	err   error
	calls int
}

func (s *stubOCR) Recognize(_ context.Context, _ []byte) (string, error) {
	s.calls++
	return s.text, s.err
}

type stubRenderer struct {
	page        []byte
	renderErr   error
	box         *service.BoundingBox
	healthy     bool
	renderCalls int
}

func (s *stubRenderer) Render(_ context.Context, _ string) ([]byte, error) {
	s.renderCalls++
	return s.page, s.renderErr
}

func (s *stubRenderer) LocateReceiptRegion(_ context.Context, _ []byte) (*service.BoundingBox, error) {
	return s.box, nil
}

func (s *stubRenderer) Crop(_ context.Context, page []byte, _ service.BoundingBox) ([]byte, error) {
	return page, nil
}

func (s *stubRenderer) Healthy(_ context.Context) bool {
	return s.healthy
}

type stubFetcher struct {
	content     []byte
	contentType string
	err         error
	calls       int
}

func (s *stubFetcher) Get(_ context.Context, _ string) ([]byte, string, error) {
	s.calls++
	return s.content, s.contentType, s.err
}

func newCascade(ocr service.OCRClient, renderer service.Renderer, fetcher service.DocumentFetcher) *Cascade {
	return New(extract.New(extract.DefaultConfig()), ocr, renderer, fetcher, DefaultConfig())
}

func TestRunAttachmentResolves(t *testing.T) {
	ocr := &stubOCR{text: "Receipt from Anthropic. Total: $20.00 on 2025-06-28"}
	casc := newCascade(ocr, nil, nil)

	candidate := &model.RawCandidate{
		ID:          "c1",
		Subject:     "Your receipt",
		Attachments: []model.Attachment{{Filename: "receipt.png", MediaType: "image/png", Data: []byte{1}}},
	}

	receipt, state, _ := casc.Run(context.Background(), candidate)
	require.NotNil(t, receipt)
	assert.Equal(t, StateResolved, state)
	assert.Equal(t, model.MethodAttachment, receipt.Method)
	assert.Equal(t, "ANTHROPIC", receipt.Merchant)
	assert.InDelta(t, 20.00, receipt.Amount, 0.001)
	assert.Equal(t, "c1", receipt.CandidateID)
}

func TestRunFallsThroughToTextFallback(t *testing.T) {
	// no attachments, no renderer, no fetcher: every stage skips
	casc := newCascade(&stubOCR{}, nil, nil)

	candidate := &model.RawCandidate{
		ID:      "c1",
		Subject: "Receipt from Anthropic",
		Body:    "Invoice total: $20.00 on 2025-06-28",
		Sender:  "billing@anthropic.com",
	}

	receipt, state, _ := casc.Run(context.Background(), candidate)
	require.NotNil(t, receipt)
	assert.Equal(t, StateExhausted, state)
	assert.Equal(t, model.MethodTextFallback, receipt.Method)
	assert.Equal(t, "ANTHROPIC", receipt.Merchant)
	assert.InDelta(t, 20.00, receipt.Amount, 0.001)
}

func TestRunFallbackAlwaysYieldsReceipt(t *testing.T) {
	casc := newCascade(&stubOCR{}, nil, nil)

	candidate := &model.RawCandidate{ID: "c1", Body: "see you at lunch"}

	receipt, state, _ := casc.Run(context.Background(), candidate)
	require.NotNil(t, receipt)
	assert.Equal(t, StateExhausted, state)
	assert.Equal(t, model.MethodTextFallback, receipt.Method)
	assert.Zero(t, receipt.Confidence)
	assert.Equal(t, extract.DefaultCategory, receipt.Category)
}

func TestRunStageFailureContinuesWithoutBacktracking(t *testing.T) {
	// attachment OCR fails; the cascade must move on, not retry it
	ocr := &stubOCR{err: errors.New("ocr service down")}
	casc := newCascade(ocr, nil, nil)

	candidate := &model.RawCandidate{
		ID:          "c1",
		Subject:     "Receipt from Anthropic",
		Body:        "Invoice total: $20.00 on 2025-06-28",
		Attachments: []model.Attachment{{Filename: "r.png", MediaType: "image/png", Data: []byte{1}}},
	}

	receipt, state, stageErrs := casc.Run(context.Background(), candidate)
	require.NotNil(t, receipt)
	assert.Equal(t, StateExhausted, state)
	assert.Equal(t, model.MethodTextFallback, receipt.Method)
	assert.Equal(t, 1, ocr.calls)

	require.Len(t, stageErrs, 1)
	assert.Equal(t, model.MethodAttachment, stageErrs[0].Method)
	assert.Contains(t, stageErrs[0].Error(), "ocr service down")
}

func TestRunLowConfidenceStageIsNotUsed(t *testing.T) {
	// attachment OCR yields weak text below the sufficiency threshold;
	// the richer body fallback should win instead
	ocr := &stubOCR{text: "$5.00"}
	casc := newCascade(ocr, nil, nil)

	candidate := &model.RawCandidate{
		ID:          "c1",
		Subject:     "Receipt from Anthropic",
		Body:        "Invoice total: $20.00 on 2025-06-28",
		Attachments: []model.Attachment{{Filename: "r.png", MediaType: "image/png", Data: []byte{1}}},
	}

	receipt, state, _ := casc.Run(context.Background(), candidate)
	require.NotNil(t, receipt)
	assert.Equal(t, StateExhausted, state)
	assert.Equal(t, model.MethodTextFallback, receipt.Method)
	assert.InDelta(t, 20.00, receipt.Amount, 0.001)
}

func TestRunBodyStageSkippedWhenRendererUnhealthy(t *testing.T) {
	renderer := &stubRenderer{healthy: false}
	casc := newCascade(&stubOCR{}, renderer, nil)

	candidate := &model.RawCandidate{
		ID:      "c1",
		Subject: "Your receipt",
		Body:    "Order confirmation. Total: $20.00",
	}

	_, state, _ := casc.Run(context.Background(), candidate)
	assert.Equal(t, StateExhausted, state)
	assert.Zero(t, renderer.renderCalls)
}

func TestRunBodyStageRendersWhenGatePasses(t *testing.T) {
	renderer := &stubRenderer{healthy: true, page: []byte{1, 2, 3}}
	ocr := &stubOCR{text: "Receipt from Anthropic. Total: $20.00 on 2025-06-28"}
	casc := newCascade(ocr, renderer, nil)

	candidate := &model.RawCandidate{
		ID:      "c1",
		Subject: "Your receipt",
		Body:    "Order confirmation. Total: $20.00",
	}

	receipt, state, _ := casc.Run(context.Background(), candidate)
	require.NotNil(t, receipt)
	assert.Equal(t, StateResolved, state)
	assert.Equal(t, model.MethodRenderedBody, receipt.Method)
	assert.Equal(t, 1, renderer.renderCalls)
}

func TestRunLinkStageHandlesHTML(t *testing.T) {
	fetcher := &stubFetcher{
		content:     []byte("<html><body><p>Receipt from Anthropic</p>\n\n<p>Invoice total: $20.00 on 2025-06-28</p></body></html>"),
		contentType: "text/html",
	}
	casc := newCascade(&stubOCR{}, nil, fetcher)

	candidate := &model.RawCandidate{
		ID:       "c1",
		Body:     "View your receipt online",
		LinkURIs: []string{"https://pay.stripe.com/receipts/abc123"},
	}

	receipt, state, _ := casc.Run(context.Background(), candidate)
	require.NotNil(t, receipt)
	assert.Equal(t, StateResolved, state)
	assert.Equal(t, model.MethodLinkedDocument, receipt.Method)
	assert.Equal(t, 1, fetcher.calls)
}

func TestRunResolvedStillReportsEarlierFailures(t *testing.T) {
	// attachment OCR fails, then the link stage resolves via HTML; the
	// earlier failure must still come back to the caller
	ocr := &stubOCR{err: errors.New("ocr service down")}
	fetcher := &stubFetcher{
		content:     []byte("<html><body><p>Receipt from Anthropic</p>\n\n<p>Invoice total: $20.00 on 2025-06-28</p></body></html>"),
		contentType: "text/html",
	}
	casc := newCascade(ocr, nil, fetcher)

	candidate := &model.RawCandidate{
		ID:          "c1",
		Body:        "View your receipt online",
		LinkURIs:    []string{"https://pay.stripe.com/receipts/abc123"},
		Attachments: []model.Attachment{{Filename: "r.png", MediaType: "image/png", Data: []byte{1}}},
	}

	receipt, state, stageErrs := casc.Run(context.Background(), candidate)
	require.NotNil(t, receipt)
	assert.Equal(t, StateResolved, state)
	assert.Equal(t, model.MethodLinkedDocument, receipt.Method)
	require.Len(t, stageErrs, 1)
	assert.Equal(t, model.MethodAttachment, stageErrs[0].Method)
}

func TestRunCancelledContextStopsStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ocr := &stubOCR{text: "Receipt from Anthropic. Total: $20.00"}
	casc := newCascade(ocr, nil, nil)

	candidate := &model.RawCandidate{
		ID:          "c1",
		Attachments: []model.Attachment{{Filename: "r.png", MediaType: "image/png", Data: []byte{1}}},
	}

	receipt, state, _ := casc.Run(ctx, candidate)
	require.NotNil(t, receipt)
	assert.Equal(t, StateExhausted, state)
	assert.Zero(t, ocr.calls)
}

func TestGate(t *testing.T) {
	gate := DefaultGateConfig()

	tests := []struct {
		name      string
		candidate model.RawCandidate
		want      bool
	}{
		{
			name: "primary keyword with amount",
			candidate: model.RawCandidate{
				Subject: "Your receipt",
				Body:    "Total: $20.00",
			},
			want: true,
		},
		{
			name: "two secondary keywords with amount",
			candidate: model.RawCandidate{
				Subject: "Thanks",
				Body:    "You were charged a total of $20.00",
			},
			want: true,
		},
		{
			name: "one secondary keyword is not enough",
			candidate: model.RawCandidate{
				Subject: "Thanks",
				Body:    "Balance: $20.00 charged",
			},
			want: false,
		},
		{
			name: "exclusion rejects despite receipt words",
			candidate: model.RawCandidate{
				Subject: "Build failed",
				Body:    "The build process exited. Total time: $0 cost 45.00 USD estimate",
			},
			want: false,
		},
		{
			name: "no amount pattern",
			candidate: model.RawCandidate{
				Subject: "Your receipt",
				Body:    "Thanks for shopping with us",
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gate.Passes(&tt.candidate))
		})
	}
}

func TestFirstReceiptLink(t *testing.T) {
	t.Run("explicit link URIs take priority", func(t *testing.T) {
		candidate := &model.RawCandidate{
			LinkURIs: []string{
				"https://example.com/track/package",
				"https://example.com/billing/invoice-42",
			},
			Body: "https://squareup.com/receipt/12345",
		}
		uri, ok := firstReceiptLink(candidate)
		require.True(t, ok)
		assert.Equal(t, "https://example.com/billing/invoice-42", uri)
	})

	t.Run("body scan fallback", func(t *testing.T) {
		candidate := &model.RawCandidate{
			Body: "View it here: https://pay.stripe.com/receipts/abc123.",
		}
		uri, ok := firstReceiptLink(candidate)
		require.True(t, ok)
		assert.Equal(t, "https://pay.stripe.com/receipts/abc123", uri)
	})

	t.Run("no receipt-indicative link", func(t *testing.T) {
		candidate := &model.RawCandidate{
			Body: "Follow us at https://example.com/social",
		}
		_, ok := firstReceiptLink(candidate)
		assert.False(t, ok)
	})
}

func TestDensestSection(t *testing.T) {
	html := "<html><body>" +
		"<p>Follow us on social media for updates</p>\n\n" +
		"<p>Invoice total: $20.00. Thank you for your payment.</p>\n\n" +
		"<p>Unsubscribe preferences</p>" +
		"</body></html>"

	section := densestSection(html, DefaultGateConfig())
	assert.Contains(t, section, "$20.00")
}

func TestPadBoxClampsAtOrigin(t *testing.T) {
	box := padBox(service.BoundingBox{X: 10, Y: 5, Width: 100, Height: 50}, 24)
	assert.Equal(t, 0, box.X)
	assert.Equal(t, 0, box.Y)
	assert.Greater(t, box.Width, 100)
	assert.Greater(t, box.Height, 50)
}
