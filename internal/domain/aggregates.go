package domain

import (
	"time"
)

// Bucket is a normalized spending-category class, independent of the raw
// category label carried by a transaction.
type Bucket string

const (
	BucketMandatory    Bucket = "mandatory"
	BucketOptional     Bucket = "optional"
	BucketSavings      Bucket = "savings"
	BucketIncome       Bucket = "income"
	BucketBankTransfer Bucket = "bank_transfer"
	BucketUnknown      Bucket = "unknown"
)

// Category is one entry of the category taxonomy.
type Category struct {
	Key    string
	Label  string
	Bucket string
}

// CategoryBudget is a single per-category budget in the current-format
// store: either a fixed minor-unit amount or a percentage of monthly income.
type CategoryBudget struct {
	AmountMinor int64
	Percent     float64
}

// BudgetSettings is the current-format budget store for one owner.
type BudgetSettings struct {
	Mode               string
	MonthlyIncomeMinor int64
	CategoryBudgets    map[string]CategoryBudget
}

// LegacyBudget is the old flat-amount budget store, in major units.
// Consulted only when the current store yields no rows.
type LegacyBudget struct {
	MonthlyIncome float64
	ByCategory    map[string]float64
}

// CategoryBudgetRow is one row of the budget health report.
type CategoryBudgetRow struct {
	CategoryKey    string
	CategoryLabel  string
	Bucket         Bucket
	BudgetMinor    int64
	ActualMinor    int64
	VarianceMinor  int64
	UtilizationPct float64
	Origin         string // "current" or "legacy"
}

// BucketBudgetRow rolls same-bucket category rows up into one line.
type BucketBudgetRow struct {
	Bucket         Bucket
	BudgetMinor    int64
	ActualMinor    int64
	VarianceMinor  int64
	UtilizationPct float64
}

// BudgetHealth is the full budget report for a date range.
type BudgetHealth struct {
	Mode               string
	MonthlyIncomeMinor int64
	TotalBudgetMinor   int64
	TotalActualMinor   int64
	VarianceMinor      int64
	UtilizationPct     float64
	ByCategory         []CategoryBudgetRow
	ByBucket           []BucketBudgetRow
}

// MonthlyFlow is one month of the cash-flow series. Bank-transfer and
// unknown buckets are excluded from inflow/outflow but still counted
// toward coverage.
type MonthlyFlow struct {
	Month          string
	InflowMinor    int64
	OutflowMinor   int64
	NetMinor       int64
	MandatoryMinor int64
	OptionalMinor  int64
	SavingsMinor   int64
	IncomeMinor    int64
	TotalSpendMinor int64
}

// DebtServiceEntry is one month of the debt-service breakdown for one
// external source.
type DebtServiceEntry struct {
	Month string

	StatementSpendMinor    int64
	StatementPaymentsMinor int64
	ExplicitInterestMinor  int64
	RefundsMinor           int64
	LedgerPaymentsMinor    int64

	EstimatedInterestMinor   int64
	PrincipalRepaymentMinor  int64
}

// DebtServiceTotals sums the per-month components.
type DebtServiceTotals struct {
	StatementSpendMinor     int64
	StatementPaymentsMinor  int64
	ExplicitInterestMinor   int64
	RefundsMinor            int64
	LedgerPaymentsMinor     int64
	EstimatedInterestMinor  int64
	PrincipalRepaymentMinor int64
}

// DebtServiceReport is the persisted debt-service summary for one source.
type DebtServiceReport struct {
	Source   ExternalSource
	PerMonth []DebtServiceEntry
	Totals   DebtServiceTotals
}

// GoalForecast projects when a pot-funded goal will reach its target.
type GoalForecast struct {
	GoalID        string
	GoalTitle     string
	LinkedPotID   string
	LinkedPotName string

	TargetMinor         int64
	CurrentBalanceMinor int64
	RemainingMinor      int64

	// ProgressPct is nil when the goal has no target set.
	ProgressPct *float64

	MonthlyContributionMinor int64
	// EtaMonths is nil when the rolling contribution is not positive.
	EtaMonths          *int
	EtaDate            *time.Time
	ContributionMonths []string
	SampleSize         int
}

// MerchantSpend summarizes optional spend with one merchant in range.
type MerchantSpend struct {
	MerchantKey          string
	MerchantName         string
	TotalSpendMinor      int64
	AvgMonthlySpendMinor int64
	Transactions         int
	ActiveMonths         int
	Recurring            bool
}

// SourceSummary summarizes stored external rows for one source.
type SourceSummary struct {
	Source      ExternalSource
	Rows        int
	SpendMinor  int64
	InflowMinor int64
	FirstDate   *time.Time
	LastDate    *time.Time
}

// MatchSummary counts match outcomes per source.
type MatchSummary struct {
	Source    ExternalSource
	Matched   int
	Unmatched int
}

// Coverage reports how much of the ledger the dashboard range touches.
type Coverage struct {
	Start   *time.Time
	End     *time.Time
	InRange int
	Total   int
}

// Dashboard is the composite read model assembled for one owner+range.
type Dashboard struct {
	RangeStart time.Time
	RangeEnd   time.Time
	Coverage   Coverage

	Monthly      []MonthlyFlow
	TopOptional  []MerchantSpend
	BudgetHealth BudgetHealth
	Goals        []GoalForecast

	ExternalSummary []SourceSummary
	MatchSummary    []MatchSummary
	DebtService     *DebtServiceReport

	GeneratedAt time.Time
}

// ActionType classifies a suggested savings action.
type ActionType string

const (
	ActionCancel           ActionType = "cancel"
	ActionReduce           ActionType = "reduce"
	ActionReview           ActionType = "review"
	ActionDebtOptimization ActionType = "debt_optimization"
)

// Action is one suggested savings action, heuristic or LLM-refined.
type Action struct {
	ID           string
	MerchantKey  string
	MerchantName string
	Origin       string // "heuristic" or "llm"
	Type         ActionType
	Title        string
	Reason       string

	EstimatedMonthlySavingsMinor int64
	Confidence                   float64

	Status      string
	GeneratedAt time.Time
}

// MonthKey formats t as the canonical YYYY-MM month key (UTC).
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
