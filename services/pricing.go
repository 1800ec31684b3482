package services

import (
	"github.com/carrental/car-rental-api/models"
	"github.com/shopspring/decimal"
)

// finePercentPerDay is the penalty rate added for each successive late day
const finePercentPerDay = 5

// moneyScale is the number of decimal places kept for currency amounts
const moneyScale = 2

// DayCount returns the inclusive number of days between start and end
func DayCount(start, end models.Date) int {
	return end.DaysSince(start) + 1
}

// QuotePrice is the rental price for an inclusive date range
func QuotePrice(dailyRate decimal.Decimal, start, end models.Date) decimal.Decimal {
	return dailyRate.Mul(decimal.NewFromInt(int64(DayCount(start, end))))
}

// LateDays counts the days a car was kept past its booked end date.
// A car returned on end+1 is one day late.
func LateDays(end, returned models.Date) int {
	firstLateDay := end.AddDays(1)
	if returned.Before(firstLateDay) {
		return 0
	}
	return returned.DaysSince(firstLateDay) + 1
}

// ComputeFine charges the daily rate for every late day plus a penalty that
// grows by 5% of the daily rate per late day: 5% on day one, 10% on day two
// and so on. The penalty is truncated to the currency scale.
func ComputeFine(dailyRate decimal.Decimal, lateDays int) decimal.Decimal {
	if lateDays <= 0 {
		return decimal.Zero
	}
	days := decimal.NewFromInt(int64(lateDays))
	triangular := decimal.NewFromInt(int64(lateDays * (lateDays + 1) / 2))

	percentage := dailyRate.
		Mul(decimal.NewFromInt(finePercentPerDay)).
		Mul(triangular).
		Div(decimal.NewFromInt(100)).
		Truncate(moneyScale)

	return days.Mul(dailyRate).Add(percentage)
}

// ApplyDiscount returns price reduced by percentOff, truncated to the currency scale
func ApplyDiscount(price decimal.Decimal, percentOff float64) decimal.Decimal {
	if percentOff <= 0 {
		return price
	}
	off := price.Mul(decimal.NewFromFloat(percentOff)).Div(decimal.NewFromInt(100))
	return price.Sub(off).Truncate(moneyScale)
}

// MinorUnits converts an amount to the gateway's smallest currency unit
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Truncate(0).IntPart()
}
