package anomaly

import "creator-market-sim/internal/models"

var guidance = map[models.AnomalyType]string{
	models.AnomalyWashTrading:      "Review accounts repeatedly trading with the same counterparty for wash trading",
	models.AnomalyCircularTrading:  "Investigate accounts trading the token back and forth between each other",
	models.AnomalyUnusualVolume:    "Verify the source of the volume surge before relying on liquidity figures",
	models.AnomalyRapidPriceChange: "Monitor price volatility closely and consider tighter limit orders",
}

// recommend derives user guidance from the anomalies found and the final risk score.
// It never returns an empty list.
func recommend(anomalies []models.Anomaly, risk, haltScore float64) []string {
	if len(anomalies) == 0 {
		return []string{"No suspicious activity detected in the recent trade window"}
	}
	if risk >= haltScore {
		return []string{"High risk: consider halting trading for this token pending investigation"}
	}
	var recs []string
	for _, a := range anomalies {
		if g, ok := guidance[a.Type]; ok {
			recs = append(recs, g)
		}
	}
	if len(recs) == 0 {
		recs = append(recs, "Unusual activity detected: keep monitoring this token")
	}
	return recs
}
