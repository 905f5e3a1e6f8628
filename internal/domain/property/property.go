package property

import "time"

type Property struct {
	ID            string
	Name          string
	Location      string
	Description   string
	PricePerShare string
	TotalShares   string
	Valuation     string
	IsActive      bool
}

type Financials struct {
	AccumulatedRentalIncomePerShare string
	LastRentalUpdate                time.Time
	IsActive                        bool
}
