package valuation

import "creator-market-sim/internal/random"

var factorCatalogue = []string{
	"Rising engagement across the creator's social channels",
	"Recent viral content driving new holder interest",
	"Strong AI quality score relative to peers",
	"Consistent content release schedule",
	"Growing subscription and merchandise revenue",
	"New brand partnership announced",
	"Upcoming product or content launch",
	"Positive community sentiment in recent discussions",
	"Increasing number of unique token holders",
	"Low circulating supply relative to demand",
	"Large holders accumulating recently",
	"Cooling engagement after a recent peak",
	"Broader creator-token market momentum",
	"Platform-wide trading volume trends",
	"Collaboration with a higher-profile creator",
	"Seasonal audience activity patterns",
	"Negative press or controversy risk",
	"Token unlock or supply expansion scheduled",
}

// pickFactors draws 2-4 distinct factors from the catalogue. They describe the prediction
// but do not feed into it.
func pickFactors(r random.Source) []string {
	n := random.IntBetween(r, 2, 4)
	out := make([]string, 0, n)
	for _, i := range random.Sample(r, len(factorCatalogue), n) {
		out = append(out, factorCatalogue[i])
	}
	return out
}
