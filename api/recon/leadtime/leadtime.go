package leadtime

import (
	"math"
	"time"

	"FlujoCorpSaas/api/recon/records"
	"FlujoCorpSaas/internal/config"
)

// Averages holds a supplier's rolling lead-time means in days.
type Averages struct {
	ProductionDays    float64 `json:"avg_production_days"`
	TransportDays     float64 `json:"avg_transport_days"`
	ProductionSamples int     `json:"production_samples"`
	TransportSamples  int     `json:"transport_samples"`
}

// Estimate is the projected date set for a purchase lacking real dates.
type Estimate struct {
	Ship        time.Time `json:"ship_estimated"`
	Arrival     time.Time `json:"arrival_estimated"`
	Destination time.Time `json:"destination_estimated"`
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// SupplierAverages recomputes production and transport means per supplier
// from the full purchase history. Deltas that are negative or beyond the
// sanity bound are data errors: excluded from the mean and flagged.
// Recompute-from-scratch keeps the averages drift-free; the dataset is small.
func SupplierAverages(history []records.Purchase) (map[string]Averages, records.BatchSummary) {
	summary := records.BatchSummary{Processed: len(history)}
	sums := map[string]*Averages{}

	get := func(name string) *Averages {
		if sums[name] == nil {
			sums[name] = &Averages{}
		}
		return sums[name]
	}

	for _, p := range history {
		if p.Supplier == "" {
			continue
		}
		if p.ShipReal != nil {
			d := daysBetween(p.OrderDate, *p.ShipReal)
			switch {
			case d < 0:
				summary.Add(p.PurchaseID, records.FlagNegativeLead, "ship %d days before order date", -d)
			case d > config.LeadTimeMaxDays:
				summary.Add(p.PurchaseID, records.FlagNegativeLead, "production lead of %d days exceeds sanity bound", d)
			default:
				a := get(p.Supplier)
				a.ProductionDays += float64(d)
				a.ProductionSamples++
			}
		}
		if p.ShipReal != nil && p.ArrivalReal != nil {
			d := daysBetween(*p.ShipReal, *p.ArrivalReal)
			switch {
			case d < 0:
				summary.Add(p.PurchaseID, records.FlagNegativeLead, "arrival %d days before ship date", -d)
			case d > config.LeadTimeMaxDays:
				summary.Add(p.PurchaseID, records.FlagNegativeLead, "transport lead of %d days exceeds sanity bound", d)
			default:
				a := get(p.Supplier)
				a.TransportDays += float64(d)
				a.TransportSamples++
			}
		}
	}

	out := make(map[string]Averages, len(sums))
	for name, a := range sums {
		avg := *a
		if a.ProductionSamples > 0 {
			avg.ProductionDays = a.ProductionDays / float64(a.ProductionSamples)
		}
		if a.TransportSamples > 0 {
			avg.TransportDays = a.TransportDays / float64(a.TransportSamples)
		}
		out[name] = avg
	}
	return out, summary
}

// EstimateDates projects ship/arrival/destination dates from the supplier's
// averages: ship = order date + production mean, arrival = ship + transport
// mean, destination = arrival + the fixed downstream buffer.
func EstimateDates(orderDate time.Time, avg Averages) Estimate {
	ship := orderDate.AddDate(0, 0, int(math.Round(avg.ProductionDays)))
	arrival := ship.AddDate(0, 0, int(math.Round(avg.TransportDays)))
	return Estimate{
		Ship:        ship,
		Arrival:     arrival,
		Destination: arrival.AddDate(0, 0, config.DestinationBufferDays),
	}
}

// ShipDate picks the date due-date math runs on: a real ship date always
// wins over an estimate, never blended.
func ShipDate(p records.Purchase) *time.Time {
	if p.ShipReal != nil {
		return p.ShipReal
	}
	return p.ShipEstimated
}

// DueDate computes ship date + credit term. Without a ship date of either
// kind, or a non-positive credit term, the due date is undefined, not zero.
func DueDate(shipReal, shipEstimated *time.Time, creditTermDays int) *time.Time {
	ship := shipReal
	if ship == nil {
		ship = shipEstimated
	}
	if ship == nil || creditTermDays <= 0 {
		return nil
	}
	due := ship.AddDate(0, 0, creditTermDays)
	return &due
}
