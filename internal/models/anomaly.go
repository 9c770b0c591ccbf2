package models

import "time"

// AnomalyType classifies a detected anomaly.
type AnomalyType string

const (
	AnomalyUnusualVolume    AnomalyType = "UNUSUAL_VOLUME"
	AnomalyRapidPriceChange AnomalyType = "RAPID_PRICE_CHANGE"
	AnomalyWashTrading      AnomalyType = "WASH_TRADING"
	AnomalyCircularTrading  AnomalyType = "CIRCULAR_TRADING"
)

// Anomaly is one finding produced by a detection pass.
type Anomaly struct {
	Type            AnomalyType `json:"type"`
	Confidence      float64     `json:"confidence"` // 0-100
	Severity        int         `json:"severity"`   // 1-10
	Description     string      `json:"description"`
	AffectedMetrics []string    `json:"affected_metrics"`
	Timestamp       time.Time   `json:"timestamp"`
}

// AnomalyResult is recomputed on every detection call and never mutated afterwards.
type AnomalyResult struct {
	Detected        bool      `json:"detected"`
	Anomalies       []Anomaly `json:"anomalies"`
	RiskScore       float64   `json:"risk_score"` // 0-100
	Recommendations []string  `json:"recommendations"`
}

// Has reports whether an anomaly of type t is present.
func (r *AnomalyResult) Has(t AnomalyType) bool {
	for _, a := range r.Anomalies {
		if a.Type == t {
			return true
		}
	}
	return false
}
