package config

const (
	// ReportingCurrency is the currency every KPI amount is expressed in.
	// FX rates are recorded as foreign units per reporting unit (MXN per USD),
	// so conversion is always amount / rate. One direction, applied everywhere.
	ReportingCurrency = "USD"
	DefaultFXRate     = 20.0

	// AmountEpsilon is the tolerance for allocation conservation checks.
	AmountEpsilon = 0.01

	// SettledThreshold absorbs rounding/tax noise when classifying orders.
	SettledThreshold = 0.99

	// Lead-time deltas outside 0..LeadTimeMaxDays are treated as data errors.
	LeadTimeMaxDays = 180

	// DestinationBufferDays is added after estimated arrival for the final
	// warehouse stage, which has no dedicated per-supplier average.
	DestinationBufferDays = 15

	UploadBatchSize = 1000

	// Supplier averages are recomputed from the full purchase history.
	DefaultRecomputeSchedule = "0 2 * * *"
)
