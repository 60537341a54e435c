package pipeline

import (
	"strings"

	"orderscan/internal/parser"
)

type DetectResult struct {
	IsOrder bool
	Score   float64
	Reason  string
	// Variant is set when a line of the text identifies a known layout.
	Variant string
}

var detectKeywords = []string{"order confirmation", "order number", "shipment", "shipped", "estimated order", "thank you for your order"}

// DetectOrder scores subject and text for order keywords. A document whose
// lines identify a known layout always passes.
func DetectOrder(subject, text string, threshold float64) DetectResult {
	lowerSubject := strings.ToLower(subject)
	lowerText := strings.ToLower(text)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(lowerSubject, kw) {
			score += 0.2
		}
		if strings.Contains(lowerText, kw) {
			score += 0.1
		}
	}

	if hits := countCurrencyAmounts(text); hits >= 2 {
		score += 0.3
	} else if hits == 1 {
		score += 0.15
	}

	variant, ok := parser.Identify(text)
	if ok {
		score += 0.5
	}
	if score > 1 {
		score = 1
	}

	res := DetectResult{Score: score, Reason: "rules_negative"}
	if ok {
		res.Variant = variant.Name
	}
	switch {
	case ok:
		res.IsOrder, res.Reason = true, "layout_"+variant.Name
	case score >= threshold:
		res.IsOrder, res.Reason = true, "rules_positive"
	}
	return res
}

// countCurrencyAmounts counts "$" signs followed by a digit, allowing for
// spaces in between.
func countCurrencyAmounts(text string) int {
	count := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '$' {
			continue
		}
		j := i + 1
		for j < len(text) && (text[j] == ' ' || text[j] == '\t') {
			j++
		}
		if j < len(text) && text[j] >= '0' && text[j] <= '9' {
			count++
		}
	}
	return count
}
