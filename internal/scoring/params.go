package scoring

import (
	"errors"
	"math"
)

// Default model parameters.
const (
	// DefaultLoanToValue is the financed share of the price.
	DefaultLoanToValue = 0.8

	// DefaultAnnualRatePercent is the nominal yearly mortgage rate in percent.
	DefaultAnnualRatePercent = 6.8

	// DefaultTermYears is the mortgage term.
	DefaultTermYears = 30

	// DefaultVacancy is the share of rent lost to vacancy.
	DefaultVacancy = 0.05

	// DefaultRepairs is the share of rent set aside for repairs.
	DefaultRepairs = 0.05

	// DefaultManagement is the share of rent paid for property management.
	DefaultManagement = 0.11

	// DefaultMonthlyCapex is the fixed monthly capital-expenditure reserve.
	DefaultMonthlyCapex = 183.0
)

// ErrInvalidParams is returned by Params.Validate.
var ErrInvalidParams = errors.New("invalid scoring parameters")

// Params holds the inputs of the expense model.
type Params struct {
	LoanToValue       float64 `yaml:"loan_to_value" json:"loan_to_value"`
	AnnualRatePercent float64 `yaml:"annual_rate_percent" json:"annual_rate_percent"`
	TermYears         int     `yaml:"term_years" json:"term_years"`
	Vacancy           float64 `yaml:"vacancy" json:"vacancy"`
	Repairs           float64 `yaml:"repairs" json:"repairs"`
	Management        float64 `yaml:"management" json:"management"`
	MonthlyCapex      float64 `yaml:"monthly_capex" json:"monthly_capex"`
}

// DefaultParams returns the standard model parameters.
func DefaultParams() Params {
	return Params{
		LoanToValue:       DefaultLoanToValue,
		AnnualRatePercent: DefaultAnnualRatePercent,
		TermYears:         DefaultTermYears,
		Vacancy:           DefaultVacancy,
		Repairs:           DefaultRepairs,
		Management:        DefaultManagement,
		MonthlyCapex:      DefaultMonthlyCapex,
	}
}

// Validate checks that the parameters describe a usable model.
func (p Params) Validate() error {
	switch {
	case p.LoanToValue < 0 || p.LoanToValue > 1:
		return ErrInvalidParams
	case p.AnnualRatePercent < 0:
		return ErrInvalidParams
	case p.TermYears <= 0:
		return ErrInvalidParams
	case p.Vacancy < 0 || p.Repairs < 0 || p.Management < 0:
		return ErrInvalidParams
	case p.MonthlyCapex < 0:
		return ErrInvalidParams
	}
	return nil
}

// AmortizedPayment returns the monthly payment of a fixed-rate loan.
// A zero rate spreads the principal evenly over the term.
func AmortizedPayment(principal, annualRatePercent float64, years int) float64 {
	n := float64(years * 12)
	if n <= 0 {
		return 0
	}
	r := annualRatePercent / 100 / 12
	if r == 0 {
		return principal / n
	}
	growth := math.Pow(1+r, n)
	return principal * r * growth / (growth - 1)
}
