// Package scoring implements the monthly cash-flow model and the ranking of
// scored listings.
//
// Every listing is financed with a fixed-rate amortized mortgage on part of
// its price. Vacancy, repairs and management are modeled as fractions of the
// median rent; tax and capital expenditure are added as monthly amounts.
// Cash flow is the median rent minus the total of these expenses.
package scoring
