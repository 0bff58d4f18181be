package chat

import (
	"encoding/json"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Default segment labels. The cashier model is prompted to fence its
// side-channel payloads with these; they are configuration, not semantics.
const (
	DefaultCartTag      = "CART"
	DefaultAnalyticsTag = "ANALYTICS"
	DefaultOrderTag     = "ORDER"
)

// SegmentState is the outcome of parsing one side-channel block. A malformed
// block never fails the turn; it just degrades to absent payload with the
// state recorded for logging.
type SegmentState string

const (
	SegmentPresent   SegmentState = "present"
	SegmentAbsent    SegmentState = "absent"
	SegmentMalformed SegmentState = "malformed"
)

// Extraction is the result of splitting one raw assistant turn into
// conversational text and typed side-channel payloads.
type Extraction struct {
	DisplayText string
	Cart        CartResult
	Analytics   AnalyticsResult
	Order       OrderResult
}

type CartResult struct {
	State    SegmentState
	Snapshot *CartSnapshot
}

type AnalyticsResult struct {
	State SegmentState
	Event *AnalyticsEvent
}

type OrderResult struct {
	State SegmentState
	Draft *OrderDraft
}

// AnalyticsEvent is the incremental analytics payload reported by the model.
type AnalyticsEvent struct {
	OffMenuRequests []string `json:"off_menu_requests"`
	UpsellAttempts  []string `json:"upsell_attempts"`
	UpsellSuccesses []string `json:"upsell_successes"`
}

// OrderDraft is an order confirmation payload. It only matters when
// Confirmed is explicitly true.
type OrderDraft struct {
	Confirmed    bool        `json:"confirmed"`
	CustomerName string      `json:"customer_name"`
	Items        []DraftLine `json:"items"`
}

// DraftLine mirrors the order service line shape; optional preparation
// fields are defaulted from the menu before submission.
type DraftLine struct {
	Name               string   `json:"name"`
	Size               string   `json:"size,omitempty"`
	Temperature        string   `json:"temperature,omitempty"`
	Milk               string   `json:"milk,omitempty"`
	IceLevel           string   `json:"ice_level,omitempty"`
	Sweetness          string   `json:"sweetness,omitempty"`
	Modifications      []string `json:"modifications,omitempty"`
	BasePrice          float64  `json:"base_price"`
	ModificationsPrice float64  `json:"modifications_price"`
	TotalPrice         float64  `json:"total_price"`
	Quantity           int      `json:"quantity"`
}

type segmentKind int

const (
	kindCart segmentKind = iota
	kindAnalytics
	kindOrder
)

type segmentSpec struct {
	kind   segmentKind
	open   string
	close  string
	schema *jsonschema.Schema
}

// Extractor splits raw assistant turns. It holds no per-turn state and is
// safe for concurrent use.
type Extractor struct {
	specs  []segmentSpec
	logger apt.Logger
}

func NewExtractor(config *apt.Config, logger apt.Logger) *Extractor {
	cartTag := DefaultCartTag
	analyticsTag := DefaultAnalyticsTag
	orderTag := DefaultOrderTag
	if config != nil {
		cartTag = config.GetStringOrDef("extract.tag.cart", cartTag)
		analyticsTag = config.GetStringOrDef("extract.tag.analytics", analyticsTag)
		orderTag = config.GetStringOrDef("extract.tag.order", orderTag)
	}

	return NewExtractorWithTags(cartTag, analyticsTag, orderTag, logger)
}

// NewExtractorWithTags builds an extractor with explicit segment labels.
func NewExtractorWithTags(cartTag, analyticsTag, orderTag string, logger apt.Logger) *Extractor {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	return &Extractor{
		logger: logger,
		specs: []segmentSpec{
			{kind: kindCart, open: "[" + cartTag + "]", close: "[/" + cartTag + "]", schema: cartSchema},
			{kind: kindAnalytics, open: "[" + analyticsTag + "]", close: "[/" + analyticsTag + "]", schema: analyticsSchema},
			{kind: kindOrder, open: "[" + orderTag + "]", close: "[/" + orderTag + "]", schema: orderSchema},
		},
	}
}

type segmentSpan struct {
	spec      segmentSpec
	start     int // index of opening marker
	payloadLo int
	payloadHi int
	end       int // index just past closing marker (or end of text)
	truncated bool
}

// Extract splits one turn of raw assistant text. Segments may appear in any
// order and any subset; a segment with a missing closing marker is parsed
// best-effort to the next marker or end of text. Parse failures degrade that
// segment to malformed without affecting the rest of the turn.
func (e *Extractor) Extract(raw string) Extraction {
	spans := e.findSpans(raw)

	out := Extraction{
		Cart:      CartResult{State: SegmentAbsent},
		Analytics: AnalyticsResult{State: SegmentAbsent},
		Order:     OrderResult{State: SegmentAbsent},
	}

	var display strings.Builder
	cursor := 0
	decoded := make(map[segmentKind]bool)
	for _, span := range spans {
		display.WriteString(raw[cursor:span.start])
		cursor = span.end

		// A repeated tag is still stripped from the display, but only the
		// first block of each kind carries payload.
		if decoded[span.spec.kind] {
			continue
		}
		decoded[span.spec.kind] = true

		payload := raw[span.payloadLo:span.payloadHi]
		e.decodeSegment(span, payload, &out)
	}
	display.WriteString(raw[cursor:])

	out.DisplayText = collapseWhitespace(display.String())
	return out
}

// findSpans scans the text left to right, pairing each opening marker with
// its closing marker before looking for the next segment. A marker occurring
// inside another segment's payload is payload text, not a new segment, so
// spans never overlap. An unclosed segment runs to the next opening marker
// outside it, or end of text.
func (e *Extractor) findSpans(raw string) []segmentSpan {
	var spans []segmentSpan
	cursor := 0
	for cursor < len(raw) {
		span, ok := e.nextSpan(raw, cursor)
		if !ok {
			break
		}
		if span.truncated {
			// Cap a cut-off block at the next opening marker so it does not
			// swallow a later, well-formed one.
			if next, ok := e.nextSpan(raw, span.payloadLo); ok {
				span.payloadHi = next.start
				span.end = next.start
			}
		}
		spans = append(spans, span)
		cursor = span.end
	}
	return spans
}

// nextSpan finds the earliest opening marker at or after from.
func (e *Extractor) nextSpan(raw string, from int) (segmentSpan, bool) {
	span := segmentSpan{start: -1}
	for _, spec := range e.specs {
		rel := strings.Index(raw[from:], spec.open)
		if rel < 0 {
			continue
		}
		if start := from + rel; span.start < 0 || start < span.start {
			span = segmentSpan{spec: spec, start: start, payloadLo: start + len(spec.open)}
		}
	}
	if span.start < 0 {
		return segmentSpan{}, false
	}

	if rel := strings.Index(raw[span.payloadLo:], span.spec.close); rel >= 0 {
		span.payloadHi = span.payloadLo + rel
		span.end = span.payloadHi + len(span.spec.close)
	} else {
		span.truncated = true
		span.payloadHi = len(raw)
		span.end = len(raw)
	}
	return span, true
}

func (e *Extractor) decodeSegment(span segmentSpan, payload string, out *Extraction) {
	switch span.spec.kind {
	case kindCart:
		var snapshot CartSnapshot
		state := e.parsePayload(span, payload, &snapshot.Items)
		out.Cart.State = state
		if state == SegmentPresent {
			out.Cart.Snapshot = &snapshot
		}
	case kindAnalytics:
		var event AnalyticsEvent
		state := e.parsePayload(span, payload, &event)
		out.Analytics.State = state
		if state == SegmentPresent {
			out.Analytics.Event = &event
		}
	case kindOrder:
		var draft OrderDraft
		state := e.parsePayload(span, payload, &draft)
		if state == SegmentPresent && !draft.Confirmed {
			// An unconfirmed order block carries no decision yet.
			state = SegmentAbsent
		}
		out.Order.State = state
		if state == SegmentPresent {
			out.Order.Draft = &draft
		}
	}
}

// parsePayload validates the payload against the segment schema and decodes
// it into target. Truncated payloads get one repair attempt: trim back to the
// last closing bracket and retry.
func (e *Extractor) parsePayload(span segmentSpan, payload string, target interface{}) SegmentState {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return SegmentMalformed
	}

	candidate, ok := decodeCandidate(trimmed)
	if !ok && span.truncated {
		if repaired := trimToLastBracket(trimmed); repaired != "" {
			trimmed = repaired
			candidate, ok = decodeCandidate(trimmed)
		}
	}
	if !ok {
		e.logger.Debug("dropping unparseable segment", "tag", span.spec.open)
		return SegmentMalformed
	}

	if err := span.spec.schema.Validate(candidate); err != nil {
		e.logger.Debug("dropping segment failing schema validation", "tag", span.spec.open, "error", err)
		return SegmentMalformed
	}

	if err := json.Unmarshal([]byte(trimmed), target); err != nil {
		e.logger.Debug("dropping undecodable segment", "tag", span.spec.open, "error", err)
		return SegmentMalformed
	}

	return SegmentPresent
}

func decodeCandidate(s string) (interface{}, bool) {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

// trimToLastBracket cuts a truncated JSON fragment back to its last closing
// bracket, which recovers payloads cut off mid-whitespace or mid-value.
func trimToLastBracket(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '}' || s[i] == ']' {
			return s[:i+1]
		}
	}
	return ""
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
