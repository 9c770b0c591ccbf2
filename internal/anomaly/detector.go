package anomaly

import (
	"fmt"
	"math"
	"strings"
	"time"

	"creator-market-sim/internal/models"
	"go.uber.org/zap"
)

// Config holds the thresholds of the four detection passes.
type Config struct {
	MinTrades int // below this the window is insufficient

	VolumeRatioThreshold float64 // window volume / average daily volume

	MinTradesForPriceCheck int
	PriceRangeThreshold    float64 // (max-min)/min

	WashPairMinTrades  int     // trades per ordered pair to count as repeated
	WashRatioThreshold float64 // repeated-pair trades / total trades

	MaxCycleLength int // longest ring reported in circular trading descriptions

	HaltRiskScore float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() *Config {
	return &Config{
		MinTrades:              3,
		VolumeRatioThreshold:   3,
		MinTradesForPriceCheck: 5,
		PriceRangeThreshold:    0.05,
		WashPairMinTrades:      3,
		WashRatioThreshold:     0.2,
		MaxCycleLength:         4,
		HaltRiskScore:          50,
	}
}

const maxRiskScore = 100

// Detector analyzes a trade window for wash trading, circular trading, unusual volume
// and rapid price changes. It keeps no state between calls.
type Detector struct {
	logger *zap.Logger
	config *Config
}

// NewDetector creates a detector. A nil config uses DefaultConfig.
func NewDetector(logger *zap.Logger, config *Config) *Detector {
	if config == nil {
		config = DefaultConfig()
	}
	return &Detector{logger: logger.Named("detector"), config: config}
}

// Detect runs every pass over trades. asOf stamps the reported anomalies.
// Fewer than MinTrades trades yield a zero result with an insufficient-data recommendation.
func (d *Detector) Detect(inst models.Instrument, trades []models.Trade, asOf time.Time) models.AnomalyResult {
	if len(trades) < d.config.MinTrades {
		return models.AnomalyResult{
			Detected:        false,
			Anomalies:       []models.Anomaly{},
			RiskScore:       0,
			Recommendations: []string{fmt.Sprintf("Insufficient trade data for analysis (need at least %d trades)", d.config.MinTrades)},
		}
	}

	var (
		anomalies []models.Anomaly
		risk      float64
	)
	add := func(a *models.Anomaly, weight int) {
		if a == nil {
			return
		}
		a.Timestamp = asOf
		anomalies = append(anomalies, *a)
		risk += float64(a.Severity * weight)
	}

	graph := BuildTradeGraph(trades)
	add(d.checkVolume(inst, trades), 5)
	add(d.checkPriceRange(trades), 6)
	add(d.checkWashTrading(graph), 8)
	add(d.checkCircularTrading(graph), 7)

	risk = math.Min(maxRiskScore, risk)
	if anomalies == nil {
		anomalies = []models.Anomaly{}
	}
	return models.AnomalyResult{
		Detected:        len(anomalies) > 0,
		Anomalies:       anomalies,
		RiskScore:       risk,
		Recommendations: recommend(anomalies, risk, d.config.HaltRiskScore),
	}
}

func (d *Detector) checkVolume(inst models.Instrument, trades []models.Trade) *models.Anomaly {
	// without a baseline there is nothing to compare against
	if inst.AverageDailyVolume <= 0 {
		return nil
	}
	volume := 0.0
	for _, t := range trades {
		volume += t.Quantity
	}
	ratio := volume / inst.AverageDailyVolume
	if ratio <= d.config.VolumeRatioThreshold {
		return nil
	}
	a := &models.Anomaly{
		Type:            models.AnomalyUnusualVolume,
		Confidence:      math.Min(95, 60+ratio*5),
		Severity:        severity(math.Floor(ratio * 1.5)),
		Description:     fmt.Sprintf("Trading volume is %.1fx the average daily volume", ratio),
		AffectedMetrics: []string{"volume", "liquidity"},
	}
	d.logPass(a, zap.Float64("ratio", ratio))
	return a
}

func (d *Detector) checkPriceRange(trades []models.Trade) *models.Anomaly {
	if len(trades) < d.config.MinTradesForPriceCheck {
		return nil
	}
	lo, hi := trades[0].Price, trades[0].Price
	for _, t := range trades[1:] {
		lo = math.Min(lo, t.Price)
		hi = math.Max(hi, t.Price)
	}
	if lo <= 0 {
		return nil
	}
	rng := (hi - lo) / lo
	if rng <= d.config.PriceRangeThreshold {
		return nil
	}
	a := &models.Anomaly{
		Type:            models.AnomalyRapidPriceChange,
		Confidence:      math.Min(95, 60+rng*200),
		Severity:        severity(math.Floor(rng * 100)),
		Description:     fmt.Sprintf("Price moved %.1f%% within the trade window", rng*100),
		AffectedMetrics: []string{"price", "volatility"},
	}
	d.logPass(a, zap.Float64("range", rng))
	return a
}

func (d *Detector) checkWashTrading(g *TradeGraph) *models.Anomaly {
	pairs, washTrades := g.RepeatedPairs(d.config.WashPairMinTrades)
	if len(pairs) == 0 {
		return nil
	}
	ratio := float64(washTrades) / float64(g.TradeCount())
	if ratio <= d.config.WashRatioThreshold {
		return nil
	}
	a := &models.Anomaly{
		Type:       models.AnomalyWashTrading,
		Confidence: math.Min(95, 50+ratio*50),
		Severity:   severity(math.Floor(ratio*10) + 5),
		Description: fmt.Sprintf("%d of %d trades repeat between the same counterparties (%s)",
			washTrades, g.TradeCount(), describePairs(pairs)),
		AffectedMetrics: []string{"volume", "trade_count", "counterparty_concentration"},
	}
	d.logPass(a, zap.Float64("ratio", ratio), zap.Int("wash_trades", washTrades))
	return a
}

func (d *Detector) checkCircularTrading(g *TradeGraph) *models.Anomaly {
	reciprocal := g.ReciprocalEdges()
	if reciprocal == 0 {
		return nil
	}
	desc := fmt.Sprintf("%d reciprocal trading relationships detected", reciprocal)
	if cycles := g.Cycles(d.config.MaxCycleLength); len(cycles) > 0 {
		desc += fmt.Sprintf("; ring %s", strings.Join(append(cycles[0], cycles[0][0]), " -> "))
	}
	a := &models.Anomaly{
		Type:            models.AnomalyCircularTrading,
		Confidence:      math.Min(95, 60+float64(reciprocal)*10),
		Severity:        severity(float64(5 + reciprocal)),
		Description:     desc,
		AffectedMetrics: []string{"ownership", "volume"},
	}
	d.logPass(a, zap.Int("reciprocal_edges", reciprocal))
	return a
}

func (d *Detector) logPass(a *models.Anomaly, fields ...zap.Field) {
	d.logger.Debug("Detection pass fired", append(fields,
		zap.String("type", string(a.Type)),
		zap.Int("severity", a.Severity),
		zap.Float64("confidence", a.Confidence))...)
}

// severity clamps a raw severity to 1..10.
func severity(raw float64) int {
	return int(math.Max(1, math.Min(10, raw)))
}

func describePairs(pairs []Pair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.Buyer+"->"+p.Seller)
	}
	return strings.Join(parts, ", ")
}
