// Package extract turns free text into candidate receipt fields using
// pattern rules and brand normalization.
package extract

// Brand maps a known alias to a canonical merchant and a default category.
type Brand struct {
	Name     string
	Category string
}

// Config holds the immutable rule tables for field extraction. Load it
// once and pass it by reference; there is no process-wide mutable state.
type Config struct {
	Brands        map[string]Brand
	Keywords      []string
	AmountCeiling float64
}

// DefaultCategory is used when no rule suggests anything better.
const DefaultCategory = "uncategorized"

// DefaultConfig returns the built-in rule tables. Callers may merge
// additional brand aliases from configuration on top of these.
func DefaultConfig() Config {
	return Config{
		Brands:        defaultBrands(),
		Keywords:      defaultKeywords(),
		AmountCeiling: 100000,
	}
}

// defaultKeywords are receipt-domain words that raise extraction
// confidence when present in the text.
func defaultKeywords() []string {
	return []string{
		"receipt",
		"invoice",
		"total",
		"subtotal",
		"order",
		"payment",
		"purchase",
		"charged",
		"amount due",
		"billed",
	}
}

// defaultBrands maps lowercase aliases to canonical merchants. Aliases
// are matched as substrings of the candidate text.
func defaultBrands() map[string]Brand {
	return map[string]Brand{
		// Grocery
		"whole foods":  {Name: "Whole Foods", Category: "groceries"},
		"trader joe":   {Name: "Trader Joe's", Category: "groceries"},
		"safeway":      {Name: "Safeway", Category: "groceries"},
		"costco":       {Name: "Costco", Category: "groceries"},
		"kroger":       {Name: "Kroger", Category: "groceries"},

		// Food & delivery
		"starbucks": {Name: "Starbucks", Category: "dining"},
		"mcdonald":  {Name: "McDonald's", Category: "dining"},
		"chipotle":  {Name: "Chipotle", Category: "dining"},
		"doordash":  {Name: "DoorDash", Category: "dining"},
		"grubhub":   {Name: "Grubhub", Category: "dining"},
		"uber eats": {Name: "Uber Eats", Category: "dining"},

		// Transport
		"uber": {Name: "Uber", Category: "transport"},
		"lyft": {Name: "Lyft", Category: "transport"},

		// Subscriptions & software
		"anthropic": {Name: "Anthropic", Category: "software"},
		"openai":    {Name: "OpenAI", Category: "software"},
		"github":    {Name: "GitHub", Category: "software"},
		"netflix":   {Name: "Netflix", Category: "entertainment"},
		"spotify":   {Name: "Spotify", Category: "entertainment"},
		"hulu":      {Name: "Hulu", Category: "entertainment"},
		"dropbox":   {Name: "Dropbox", Category: "software"},
		"digitalocean": {Name: "DigitalOcean", Category: "software"},

		// Shopping
		"amazon":  {Name: "Amazon", Category: "shopping"},
		"target":  {Name: "Target", Category: "shopping"},
		"walmart": {Name: "Walmart", Category: "shopping"},
		"ebay":    {Name: "eBay", Category: "shopping"},
		"etsy":    {Name: "Etsy", Category: "shopping"},
		"ikea":    {Name: "IKEA", Category: "shopping"},

		// Travel
		"airbnb":  {Name: "Airbnb", Category: "travel"},
		"expedia": {Name: "Expedia", Category: "travel"},
		"united airlines": {Name: "United Airlines", Category: "travel"},
		"delta":   {Name: "Delta", Category: "travel"},
		"marriott": {Name: "Marriott", Category: "travel"},

		// Utilities
		"verizon":  {Name: "Verizon", Category: "utilities"},
		"comcast":  {Name: "Comcast", Category: "utilities"},
		"t-mobile": {Name: "T-Mobile", Category: "utilities"},
	}
}

// MergeBrands returns a copy of the config with extra aliases layered
// over the built-in table. Extra entries win on conflict.
func (c Config) MergeBrands(extra map[string]Brand) Config {
	merged := make(map[string]Brand, len(c.Brands)+len(extra))
	for alias, brand := range c.Brands {
		merged[alias] = brand
	}
	for alias, brand := range extra {
		merged[alias] = brand
	}
	c.Brands = merged
	return c
}
