package services

import (
	"context"
	"strings"

	"moneta/internal/llm"
	"moneta/internal/logger"
	"moneta/internal/models"
)

// mccCategories maps card-scheme merchant category codes to taxonomy
// categories. Only the codes that actually show up in statements are
// listed; unknown codes fall through to keyword rules.
var mccCategories = map[string]string{
	"5411": "Groceries",
	"5499": "Groceries",
	"5812": "Dining & Cafes",
	"5813": "Dining & Cafes",
	"5814": "Dining & Cafes",
	"4111": "Transport",
	"4121": "Transport",
	"5541": "Transport",
	"5542": "Transport",
	"4900": "Utilities & Bills",
	"4814": "Utilities & Bills",
	"5311": "Shopping",
	"5651": "Shopping",
	"5691": "Shopping",
	"5912": "Health & Pharmacy",
	"8011": "Health & Pharmacy",
	"8021": "Health & Pharmacy",
	"8062": "Health & Pharmacy",
	"7832": "Entertainment",
	"7922": "Entertainment",
	"7994": "Entertainment",
	"3000": "Travel",
	"4511": "Travel",
	"7011": "Travel",
	"8211": "Education",
	"8220": "Education",
	"8299": "Education",
	"7230": "Beauty & Personal Care",
	"7298": "Beauty & Personal Care",
	"5712": "Home & Garden",
	"5200": "Home & Garden",
	"5817": "Subscriptions & Digital",
	"5818": "Subscriptions & Digital",
	"5968": "Subscriptions & Digital",
	"6011": "Cash Withdrawal",
}

// keywordRule assigns a category when any keyword appears in the
// normalized merchant name. Rules are checked in order.
type keywordRule struct {
	keywords []string
	category string
}

var keywordRules = []keywordRule{
	{[]string{"carrefour", "spar", "nikora", "goodwill", "agrohub", "fresco", "market", "supermarket"}, "Groceries"},
	{[]string{"glovo", "wolt", "bolt food", "restaurant", "cafe", "coffee", "bakery", "mcdonald", "kfc"}, "Dining & Cafes"},
	{[]string{"bolt", "yandex", "taxi", "metro", "bus", "wissol", "gulf", "socar", "rompetrol", "parking"}, "Transport"},
	{[]string{"telasi", "tbilisi energy", "gwp", "water", "magti", "silknet", "cellfie", "beeline"}, "Utilities & Bills"},
	{[]string{"zara", "bershka", "h m", "aliexpress", "temu", "amazon", "ebay"}, "Shopping"},
	{[]string{"pharmacy", "aversi", "psp", "gpc", "pharmadepot", "clinic", "hospital", "dental"}, "Health & Pharmacy"},
	{[]string{"cinema", "kinoafisha", "cavea", "steam", "playstation", "concert"}, "Entertainment"},
	{[]string{"wizzair", "wizz air", "turkish airlines", "ryanair", "booking", "airbnb", "hotel"}, "Travel"},
	{[]string{"udemy", "coursera", "school", "university", "course"}, "Education"},
	{[]string{"barber", "salon", "spa", "cosmetic"}, "Beauty & Personal Care"},
	{[]string{"ikea", "domino", "gorgia", "furniture"}, "Home & Garden"},
	{[]string{"netflix", "spotify", "youtube", "apple com", "google", "openai", "subscription", "icloud"}, "Subscriptions & Digital"},
	{[]string{"atm", "cash withdrawal"}, "Cash Withdrawal"},
}

const catchAllCategory = "Other"

// RuleClassifier categorizes merchants with MCC and keyword rules. It
// never errors and always labels every input.
type RuleClassifier struct{}

var _ llm.Classifier = (*RuleClassifier)(nil)

// ClassifyMerchants labels every merchant. Income and transfer rows go to
// Income & Transfers, then MCC wins over keywords, then the catch-all.
func (RuleClassifier) ClassifyMerchants(_ context.Context, merchants []llm.MerchantInput, _ []string) ([]llm.MerchantLabel, error) {
	labels := make([]llm.MerchantLabel, 0, len(merchants))
	for _, merchant := range merchants {
		labels = append(labels, llm.MerchantLabel{
			NormalizedName: merchant.NormalizedName,
			Category:       classifyByRules(merchant),
		})
	}
	return labels, nil
}

func classifyByRules(merchant llm.MerchantInput) string {
	if merchant.Direction == string(models.DirectionIncome) || merchant.Direction == string(models.DirectionTransfer) {
		return "Income & Transfers"
	}
	if merchant.MCCCode != nil {
		if category, ok := mccCategories[*merchant.MCCCode]; ok {
			return category
		}
	}
	haystack := merchant.NormalizedName + " " + strings.ToLower(merchant.DescriptionRaw)
	for _, rule := range keywordRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(haystack, keyword) {
				return rule.category
			}
		}
	}
	return catchAllCategory
}

// CategoryDecision is the category chosen for one merchant and how it
// was chosen.
type CategoryDecision struct {
	Category string
	Source   models.CategorySource
}

// Categorizer labels new merchants, preferring the LLM and falling back
// to rules per merchant when the LLM is absent, fails, or answers with a
// name outside the taxonomy.
type Categorizer struct {
	classifier llm.Classifier
	rules      RuleClassifier
	taxonomy   []string
}

// NewCategorizer builds a Categorizer. classifier may be nil.
func NewCategorizer(classifier llm.Classifier, taxonomy []string) *Categorizer {
	return &Categorizer{classifier: classifier, taxonomy: taxonomy}
}

// Categorize returns a decision for every input, keyed by normalized name.
func (c *Categorizer) Categorize(ctx context.Context, inputs []llm.MerchantInput) map[string]CategoryDecision {
	decisions := make(map[string]CategoryDecision, len(inputs))

	if c.classifier != nil && len(inputs) > 0 {
		labels, err := c.classifier.ClassifyMerchants(ctx, inputs, c.taxonomy)
		if err != nil {
			logger.Get().Warnw("merchant classification fell back to rules", "error", err)
		} else {
			for _, label := range labels {
				if c.inTaxonomy(label.Category) {
					decisions[label.NormalizedName] = CategoryDecision{
						Category: label.Category,
						Source:   models.CategorySourceLLM,
					}
				}
			}
		}
	}

	for _, input := range inputs {
		if _, ok := decisions[input.NormalizedName]; ok {
			continue
		}
		decisions[input.NormalizedName] = CategoryDecision{
			Category: classifyByRules(input),
			Source:   models.CategorySourceRule,
		}
	}
	return decisions
}

func (c *Categorizer) inTaxonomy(category string) bool {
	for _, name := range c.taxonomy {
		if name == category {
			return true
		}
	}
	return false
}
