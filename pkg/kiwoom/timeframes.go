package kiwoom

// Transaction IDs per endpoint family.
const (
	trIDMinuteChart = "FHKST03010200"
	trIDTickChart   = "FHKST03010230"
	trIDDailyChart  = "HHDFS00000300"
)

// timeframeSpec pairs the vendor minute code with the transaction ID for a
// human timeframe token.
type timeframeSpec struct {
	// MinuteCode is the chart granularity in minutes as the vendor expects
	// it. Empty for daily and coarser charts.
	MinuteCode string

	// TRID is the transaction ID sent in the tr_id header.
	TRID string
}

// timeframeTable maps human timeframe tokens to their vendor encoding.
// Unknown tokens fall back to the daily chart with no minute code.
var timeframeTable = map[string]timeframeSpec{
	"tick":  {MinuteCode: "0", TRID: trIDTickChart},
	"1m":    {MinuteCode: "1", TRID: trIDMinuteChart},
	"3m":    {MinuteCode: "3", TRID: trIDMinuteChart},
	"5m":    {MinuteCode: "5", TRID: trIDMinuteChart},
	"10m":   {MinuteCode: "10", TRID: trIDMinuteChart},
	"15m":   {MinuteCode: "15", TRID: trIDMinuteChart},
	"30m":   {MinuteCode: "30", TRID: trIDMinuteChart},
	"1h":    {MinuteCode: "60", TRID: trIDMinuteChart},
	"2h":    {MinuteCode: "120", TRID: trIDMinuteChart},
	"4h":    {MinuteCode: "240", TRID: trIDMinuteChart},
	"day":   {TRID: trIDDailyChart},
	"week":  {TRID: trIDDailyChart},
	"month": {TRID: trIDDailyChart},
}

// resolveTimeframe returns the vendor encoding for a timeframe token,
// applying any per-timeframe transaction ID override from configuration.
func (c *Client) resolveTimeframe(timeframe string) timeframeSpec {
	spec, ok := timeframeTable[timeframe]
	if !ok {
		spec = timeframeSpec{TRID: trIDDailyChart}
	}
	if override, ok := c.trIDOverrides[timeframe]; ok && override != "" {
		spec.TRID = override
	}
	return spec
}
