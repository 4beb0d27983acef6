// Package categories holds the default category taxonomy and the merge
// with an owner's overrides. The default list is an explicit value handed
// to the engines that need it, never mutated shared state.
package categories

import (
	"sort"

	"github.com/ledgerkit/finrecon/internal/domain"
)

// Defaults returns a fresh copy of the default taxonomy. Buckets are raw
// labels; normalize with analytics.NormalizeBucket before aggregating.
func Defaults() []domain.Category {
	out := make([]domain.Category, len(defaults))
	copy(out, defaults)
	return out
}

// Merge overlays owner-defined categories onto the defaults, by key,
// last write wins. Overrides without a key are ignored. The result is
// sorted by key so merges are deterministic.
func Merge(overrides []domain.Category) []domain.Category {
	merged := make(map[string]domain.Category, len(defaults)+len(overrides))
	for _, c := range defaults {
		merged[c.Key] = c
	}
	for _, c := range overrides {
		if c.Key == "" {
			continue
		}
		existing, ok := merged[c.Key]
		if !ok {
			merged[c.Key] = c
			continue
		}
		if c.Label != "" {
			existing.Label = c.Label
		}
		if c.Bucket != "" {
			existing.Bucket = c.Bucket
		}
		merged[c.Key] = existing
	}

	out := make([]domain.Category, 0, len(merged))
	for _, c := range merged {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

var defaults = []domain.Category{
	{Key: "uncategorized", Label: "Uncategorised", Bucket: "unknown"},
	{Key: "net_salary", Label: "Net Salary", Bucket: "net_salary"},
	{Key: "bonus", Label: "Bonus", Bucket: "irregular_income"},
	{Key: "gift_income", Label: "Gift Income", Bucket: "irregular_income"},
	{Key: "side_gig", Label: "Side Gig", Bucket: "irregular_income"},
	{Key: "refund", Label: "Refund", Bucket: "irregular_income"},
	{Key: "repayment", Label: "Repayment", Bucket: "irregular_income"},
	{Key: "groceries", Label: "Groceries", Bucket: "mandatory"},
	{Key: "mortgage", Label: "Mortgage Repayment", Bucket: "mandatory"},
	{Key: "rent", Label: "Rent", Bucket: "mandatory"},
	{Key: "home_insurance", Label: "Home Insurance", Bucket: "mandatory"},
	{Key: "car_insurance", Label: "Car Insurance", Bucket: "mandatory"},
	{Key: "broadband", Label: "Broadband", Bucket: "mandatory"},
	{Key: "mobile_bill", Label: "Mobile Bill Payment", Bucket: "mandatory"},
	{Key: "home_electricity", Label: "Home Electricity", Bucket: "mandatory"},
	{Key: "home_heating", Label: "Home Heating", Bucket: "mandatory"},
	{Key: "petrol", Label: "Petrol", Bucket: "mandatory"},
	{Key: "car_tax", Label: "Car Tax", Bucket: "mandatory"},
	{Key: "car_maintenance", Label: "Car Maintenance", Bucket: "mandatory"},
	{Key: "dental", Label: "Dental", Bucket: "mandatory"},
	{Key: "personal_care", Label: "Personal Care", Bucket: "mandatory"},
	{Key: "gifts", Label: "Gifts", Bucket: "mandatory"},
	{Key: "tv_licence", Label: "TV Licence", Bucket: "mandatory"},
	{Key: "home", Label: "Home", Bucket: "mandatory"},
	{Key: "eating_out", Label: "Eating Out", Bucket: "discretionary"},
	{Key: "coffee", Label: "Coffee", Bucket: "discretionary"},
	{Key: "cinema", Label: "Cinema", Bucket: "discretionary"},
	{Key: "gym", Label: "Gym", Bucket: "discretionary"},
	{Key: "clothes", Label: "Clothes", Bucket: "discretionary"},
	{Key: "going_out", Label: "Going Out", Bucket: "discretionary"},
	{Key: "gaming", Label: "Gaming", Bucket: "discretionary"},
	{Key: "online_subscription", Label: "Online Subscription", Bucket: "discretionary"},
	{Key: "travel", Label: "Travel", Bucket: "discretionary"},
	{Key: "taxi", Label: "Taxi", Bucket: "discretionary"},
	{Key: "car_parking", Label: "Car Parking", Bucket: "discretionary"},
	{Key: "charity", Label: "Charity", Bucket: "discretionary"},
	{Key: "car_loan", Label: "Car Loan Repayment", Bucket: "debt_repayment"},
	{Key: "credit_card_interest", Label: "Credit Card Interest", Bucket: "debt_repayment"},
	{Key: "snowball", Label: "Debt Snowball Budget", Bucket: "debt_repayment"},
	{Key: "short_term_general", Label: "Short Term Saving", Bucket: "short_saving"},
	{Key: "short_travel", Label: "Short Term Saving - Travel", Bucket: "short_saving"},
	{Key: "emergency_fund", Label: "Emergency Fund", Bucket: "short_saving"},
	{Key: "long_home", Label: "Long Term Saving - Home", Bucket: "long_saving"},
	{Key: "long_safety_net", Label: "Long Term Saving - Safety Net", Bucket: "long_saving"},
	{Key: "investment_traditional", Label: "Investment Traditional", Bucket: "investment"},
	{Key: "retirement", Label: "Retirement", Bucket: "investment"},
	{Key: "bank_transfer", Label: "Bank Transfer", Bucket: "bank_transfer"},
	{Key: "pot_transfer", Label: "Pot Transfer", Bucket: "bank_transfer"},
	{Key: "banking_fee", Label: "Banking Fee", Bucket: "bank_transfer"},
	{Key: "unknown", Label: "Unknown", Bucket: "unknown"},
	{Key: "unknown_expense", Label: "Unknown Expense", Bucket: "unknown"},
	{Key: "returned_payment", Label: "Returned Payment", Bucket: "unknown"},
	{Key: "work_expense", Label: "Work Expense (Reimbursed)", Bucket: "unknown"},
}
