package metrics

const (
	TickerTicksN = "flowtime_ticker_ticks_total"
	TickerTicksH = "Total number of tick events emitted."

	TickerCatchupsN = "flowtime_ticker_catchups_total"
	TickerCatchupsH = "Total number of tick events that coalesced missed intervals."

	TickerMissedN = "flowtime_ticker_missed_intervals_total"
	TickerMissedH = "Total number of nominal intervals folded into catch-up events."

	TickerElapsedN = "flowtime_ticker_elapsed_seconds_total"
	TickerElapsedH = "Sum of elapsed durations carried by tick events."

	tickerLabel = "ticker"
)
