// Package installment manages bank installment plans: the global
// configuration, the option catalog, selection validation, and the payment
// schedule arithmetic.
package installment

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartteam/settlement/internal/errs"
	"github.com/smartteam/settlement/internal/store"
)

// Calculation is the full schedule for one option applied to an amount.
type Calculation struct {
	OptionID        string          `json:"option_id"`
	BankName        string          `json:"bank_name"`
	Period          int             `json:"period"`
	InterestPercent decimal.Decimal `json:"interest_percent"`
	OriginalAmount  decimal.Decimal `json:"original_amount"`
	InterestAmount  decimal.Decimal `json:"interest_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	MonthlyPayment  decimal.Decimal `json:"monthly_payment"`
}

// Service manages installment options and configuration.
type Service struct {
	store *store.MemoryStore
}

// NewService creates an installment service.
func NewService(s *store.MemoryStore) *Service {
	return &Service{store: s}
}

// Config returns the global installment configuration.
func (s *Service) Config() store.InstallmentConfig {
	return s.store.Settings().Installments
}

// SetConfig replaces the global installment configuration.
func (s *Service) SetConfig(cfg store.InstallmentConfig) error {
	if cfg.MinimumAmount.IsNegative() {
		return errs.New(errs.KindValidation, "minimum amount must not be negative")
	}
	s.store.SetInstallmentConfig(cfg)
	return nil
}

// Options returns every option, sorted by display order then period.
func (s *Service) Options() []store.InstallmentOption {
	options := s.store.InstallmentOptions.List()
	sortOptions(options)
	return options
}

// ActiveOptions returns the options a buyer may pick for the given amount:
// installments globally enabled, amount at or above the global minimum, and
// at or above each option's own minimum.
func (s *Service) ActiveOptions(amount decimal.Decimal) []store.InstallmentOption {
	cfg := s.Config()
	if !cfg.Enabled || amount.LessThan(cfg.MinimumAmount) {
		return nil
	}

	options := s.store.InstallmentOptions.Filter(func(_ string, o store.InstallmentOption) bool {
		if !o.Active {
			return false
		}
		return o.MinimumAmount == nil || !amount.LessThan(*o.MinimumAmount)
	})
	sortOptions(options)
	return options
}

// Create adds a new option.
func (s *Service) Create(o store.InstallmentOption) (store.InstallmentOption, error) {
	if err := validateOption(o); err != nil {
		return store.InstallmentOption{}, err
	}
	o.ID = uuid.NewString()
	o.CreatedAt = s.store.Clock.Now()
	o.UpdatedAt = nil
	s.store.InstallmentOptions.Set(o.ID, o)
	return o, nil
}

// Update replaces an existing option's fields.
func (s *Service) Update(id string, o store.InstallmentOption) (store.InstallmentOption, error) {
	if err := validateOption(o); err != nil {
		return store.InstallmentOption{}, err
	}
	existing, ok := s.store.InstallmentOptions.Get(id)
	if !ok {
		return store.InstallmentOption{}, errs.New(errs.KindNotFound, "installment option %s not found", id)
	}

	now := s.store.Clock.Now()
	existing.BankName = o.BankName
	existing.Period = o.Period
	existing.InterestPercent = o.InterestPercent
	existing.Active = o.Active
	existing.MinimumAmount = o.MinimumAmount
	existing.DisplayOrder = o.DisplayOrder
	existing.UpdatedAt = &now
	s.store.InstallmentOptions.Set(id, existing)
	return existing, nil
}

// Delete removes an option.
func (s *Service) Delete(id string) error {
	if !s.store.InstallmentOptions.Delete(id) {
		return errs.New(errs.KindNotFound, "installment option %s not found", id)
	}
	return nil
}

// Validate checks whether the option may be applied to the amount.
func (s *Service) Validate(amount decimal.Decimal, optionID string) error {
	cfg := s.Config()
	if !cfg.Enabled {
		return errs.New(errs.KindValidation, "installments are disabled")
	}
	if amount.LessThan(cfg.MinimumAmount) {
		return errs.New(errs.KindValidation, "amount %s below installment minimum %s",
			amount.StringFixed(2), cfg.MinimumAmount.StringFixed(2))
	}

	option, ok := s.store.InstallmentOptions.Get(optionID)
	if !ok || !option.Active {
		return errs.New(errs.KindValidation, "unknown or inactive installment option")
	}
	if option.MinimumAmount != nil && amount.LessThan(*option.MinimumAmount) {
		return errs.New(errs.KindValidation, "amount %s below option minimum %s",
			amount.StringFixed(2), option.MinimumAmount.StringFixed(2))
	}
	return nil
}

// Calculate computes the schedule for an option applied to amount:
// interest = amount * percent / 100, total = amount + interest,
// monthly = total / period, all rounded to 2 decimals.
func (s *Service) Calculate(amount decimal.Decimal, optionID string) (Calculation, error) {
	option, ok := s.store.InstallmentOptions.Get(optionID)
	if !ok {
		return Calculation{}, errs.New(errs.KindNotFound, "installment option %s not found", optionID)
	}
	// Create and Update reject non-positive periods, but a seed file loaded
	// straight into the store bypasses them.
	if option.Period <= 0 {
		return Calculation{}, errs.New(errs.KindValidation, "installment option %s has no period", optionID)
	}

	hundred := decimal.NewFromInt(100)
	interest := amount.Mul(option.InterestPercent).Div(hundred).Round(2)
	total := amount.Add(interest)
	monthly := total.Div(decimal.NewFromInt(int64(option.Period))).Round(2)

	return Calculation{
		OptionID:        option.ID,
		BankName:        option.BankName,
		Period:          option.Period,
		InterestPercent: option.InterestPercent,
		OriginalAmount:  amount,
		InterestAmount:  interest,
		TotalAmount:     total,
		MonthlyPayment:  monthly,
	}, nil
}

func validateOption(o store.InstallmentOption) error {
	if o.BankName == "" {
		return errs.New(errs.KindValidation, "bank name is required")
	}
	if o.Period <= 0 {
		return errs.New(errs.KindValidation, "installment period must be positive")
	}
	if o.InterestPercent.IsNegative() {
		return errs.New(errs.KindValidation, "interest percentage must not be negative")
	}
	return nil
}

func sortOptions(options []store.InstallmentOption) {
	sort.SliceStable(options, func(i, j int) bool {
		if options[i].DisplayOrder != options[j].DisplayOrder {
			return options[i].DisplayOrder < options[j].DisplayOrder
		}
		return options[i].Period < options[j].Period
	})
}
