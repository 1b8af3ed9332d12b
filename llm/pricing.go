package llm

import "strings"

// ModelPrice is the USD price per one million tokens
type ModelPrice struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

type priceEntry struct {
	match string
	price ModelPrice
}

// Approximate list prices. Entries are matched by substring in order, so
// more specific names come first.
var priceTables = map[string][]priceEntry{
	ProviderOpenAI: {
		{"gpt-4o-mini", ModelPrice{0.15, 0.60}},
		{"gpt-4o", ModelPrice{2.50, 10.00}},
		{"gpt-4.1-nano", ModelPrice{0.10, 0.40}},
		{"gpt-4.1-mini", ModelPrice{0.40, 1.60}},
		{"gpt-4.1", ModelPrice{2.00, 8.00}},
		{"gpt-4-turbo", ModelPrice{10.00, 30.00}},
		{"gpt-4-vision", ModelPrice{10.00, 30.00}},
		{"gpt-3.5-turbo", ModelPrice{0.50, 1.50}},
	},
	ProviderClaude: {
		{"haiku", ModelPrice{0.80, 4.00}},
		{"sonnet", ModelPrice{3.00, 15.00}},
		{"opus", ModelPrice{15.00, 75.00}},
	},
	ProviderGemini: {
		{"flash-lite", ModelPrice{0.075, 0.30}},
		{"flash", ModelPrice{0.10, 0.40}},
		{"pro", ModelPrice{1.25, 5.00}},
	},
}

// defaultPrices applies when a model matches no table entry
var defaultPrices = map[string]ModelPrice{
	ProviderOpenAI: {2.50, 10.00},
	ProviderClaude: {3.00, 15.00},
	ProviderGemini: {0.10, 0.40},
	ProviderOllama: {0, 0}, // local
	ProviderCustom: {1.00, 3.00},
}

// fallbackPrice is used for providers without a table
var fallbackPrice = ModelPrice{2.50, 10.00}

// Share of the total token count attributed to input and output when the
// backend does not report them separately
const (
	inputTokenShare  = 0.7
	outputTokenShare = 0.3
)

// PriceFor returns the price entry for a provider/model pair. It never fails:
// unknown models fall back to the provider default.
func PriceFor(provider, model string) ModelPrice {
	provider = normalizeID(provider)
	model = strings.ToLower(model)
	for _, entry := range priceTables[provider] {
		if strings.Contains(model, entry.match) {
			return entry.price
		}
	}
	if price, ok := defaultPrices[provider]; ok {
		return price
	}
	return fallbackPrice
}

// CalculateCost estimates the USD cost of totalTokens on provider/model
func CalculateCost(provider, model string, totalTokens int) float64 {
	if totalTokens <= 0 {
		return 0
	}
	price := PriceFor(provider, model)
	inputTokens := inputTokenShare * float64(totalTokens)
	outputTokens := outputTokenShare * float64(totalTokens)
	return (inputTokens*price.InputPerMillion + outputTokens*price.OutputPerMillion) / 1_000_000
}

// typicalTokens is the usual total token count of one operation
func typicalTokens(op OperationKind) int {
	switch op {
	case OpAltTag:
		return 1000 // low-detail image plus prompt
	case OpSeoTitle:
		return 600
	case OpSeoDescription:
		return 900
	case OpIconMetadata:
		return 200
	default:
		return 500
	}
}
