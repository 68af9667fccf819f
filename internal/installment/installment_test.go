package installment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartteam/settlement/internal/errs"
	"github.com/smartteam/settlement/internal/store"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	s := store.New()
	return NewService(s), s
}

func enable(s *store.MemoryStore, minimum string) {
	s.SetInstallmentConfig(store.InstallmentConfig{
		Enabled:       true,
		MinimumAmount: dec(minimum),
	})
}

func TestCalculate(t *testing.T) {
	svc, s := newService(t)
	enable(s, "100")

	option, err := svc.Create(store.InstallmentOption{
		BankName:        "Kapital Bank",
		Period:          6,
		InterestPercent: dec("5"),
		Active:          true,
	})
	require.NoError(t, err)

	calc, err := svc.Calculate(dec("1000"), option.ID)
	require.NoError(t, err)

	assert.True(t, calc.InterestAmount.Equal(dec("50.00")), "interest = %s", calc.InterestAmount)
	assert.True(t, calc.TotalAmount.Equal(dec("1050.00")), "total = %s", calc.TotalAmount)
	assert.True(t, calc.MonthlyPayment.Equal(dec("175.00")), "monthly = %s", calc.MonthlyPayment)
	assert.Equal(t, 6, calc.Period)
	assert.Equal(t, "Kapital Bank", calc.BankName)
	assert.True(t, calc.OriginalAmount.Equal(dec("1000")))
}

func TestCalculateRounding(t *testing.T) {
	svc, s := newService(t)
	enable(s, "0")

	option, err := svc.Create(store.InstallmentOption{
		BankName:        "Bank Respublika",
		Period:          3,
		InterestPercent: dec("7.5"),
		Active:          true,
	})
	require.NoError(t, err)

	// 99.99 * 7.5% = 7.49925 -> 7.50; total 107.49; 107.49/3 = 35.83
	calc, err := svc.Calculate(dec("99.99"), option.ID)
	require.NoError(t, err)
	assert.True(t, calc.InterestAmount.Equal(dec("7.50")), "interest = %s", calc.InterestAmount)
	assert.True(t, calc.TotalAmount.Equal(dec("107.49")), "total = %s", calc.TotalAmount)
	assert.True(t, calc.MonthlyPayment.Equal(dec("35.83")), "monthly = %s", calc.MonthlyPayment)
}

func TestCalculateZeroPeriodOption(t *testing.T) {
	svc, s := newService(t)
	enable(s, "0")

	// A seed file can plant an option Create would have rejected.
	s.InstallmentOptions.Set("seeded", store.InstallmentOption{
		ID: "seeded", BankName: "A", Period: 0, InterestPercent: dec("5"), Active: true,
	})

	_, err := svc.Calculate(dec("1000"), "seeded")
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestCalculateUnknownOption(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Calculate(dec("1000"), "ghost")
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestValidate(t *testing.T) {
	svc, s := newService(t)
	enable(s, "100")

	optMin := dec("500")
	option, err := svc.Create(store.InstallmentOption{
		BankName:        "Kapital Bank",
		Period:          12,
		InterestPercent: dec("10"),
		Active:          true,
		MinimumAmount:   &optMin,
	})
	require.NoError(t, err)

	assert.NoError(t, svc.Validate(dec("600"), option.ID))

	// Below the option's own floor but above the global one.
	err = svc.Validate(dec("200"), option.ID)
	assert.True(t, errs.Is(err, errs.KindValidation))

	// Below the global floor.
	err = svc.Validate(dec("50"), option.ID)
	assert.True(t, errs.Is(err, errs.KindValidation))

	// Unknown option.
	err = svc.Validate(dec("600"), "ghost")
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestValidateDisabledGlobally(t *testing.T) {
	svc, s := newService(t)
	s.SetInstallmentConfig(store.InstallmentConfig{Enabled: false})

	option, err := svc.Create(store.InstallmentOption{
		BankName: "Kapital Bank", Period: 6, InterestPercent: dec("5"), Active: true,
	})
	require.NoError(t, err)

	err = svc.Validate(dec("1000"), option.ID)
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestValidateInactiveOption(t *testing.T) {
	svc, s := newService(t)
	enable(s, "0")

	option, err := svc.Create(store.InstallmentOption{
		BankName: "Kapital Bank", Period: 6, InterestPercent: dec("5"), Active: false,
	})
	require.NoError(t, err)

	err = svc.Validate(dec("1000"), option.ID)
	assert.True(t, errs.Is(err, errs.KindValidation))
}

func TestActiveOptions(t *testing.T) {
	svc, s := newService(t)
	enable(s, "100")

	highMin := dec("2000")
	mustCreate := func(o store.InstallmentOption) store.InstallmentOption {
		created, err := svc.Create(o)
		require.NoError(t, err)
		return created
	}
	mustCreate(store.InstallmentOption{BankName: "A", Period: 6, InterestPercent: dec("5"), Active: true, DisplayOrder: 2})
	mustCreate(store.InstallmentOption{BankName: "B", Period: 3, InterestPercent: dec("3"), Active: true, DisplayOrder: 1})
	mustCreate(store.InstallmentOption{BankName: "C", Period: 12, InterestPercent: dec("9"), Active: false, DisplayOrder: 0})
	mustCreate(store.InstallmentOption{BankName: "D", Period: 18, InterestPercent: dec("12"), Active: true, DisplayOrder: 3, MinimumAmount: &highMin})

	options := svc.ActiveOptions(dec("500"))
	require.Len(t, options, 2)
	assert.Equal(t, "B", options[0].BankName)
	assert.Equal(t, "A", options[1].BankName)

	// Above bank D's floor it appears too.
	options = svc.ActiveOptions(dec("2500"))
	require.Len(t, options, 3)
	assert.Equal(t, "D", options[2].BankName)

	// Below the global floor nothing is offered.
	assert.Empty(t, svc.ActiveOptions(dec("50")))
}

func TestActiveOptionsDisabled(t *testing.T) {
	svc, s := newService(t)
	s.SetInstallmentConfig(store.InstallmentConfig{Enabled: false})

	_, err := svc.Create(store.InstallmentOption{
		BankName: "A", Period: 6, InterestPercent: dec("5"), Active: true,
	})
	require.NoError(t, err)

	assert.Empty(t, svc.ActiveOptions(dec("1000")))
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Create(store.InstallmentOption{Period: 6, InterestPercent: dec("5")})
	assert.True(t, errs.Is(err, errs.KindValidation), "missing bank name")

	_, err = svc.Create(store.InstallmentOption{BankName: "A", Period: 0, InterestPercent: dec("5")})
	assert.True(t, errs.Is(err, errs.KindValidation), "non-positive period")

	_, err = svc.Create(store.InstallmentOption{BankName: "A", Period: 6, InterestPercent: dec("-1")})
	assert.True(t, errs.Is(err, errs.KindValidation), "negative interest")
}

func TestUpdate(t *testing.T) {
	svc, _ := newService(t)

	option, err := svc.Create(store.InstallmentOption{
		BankName: "A", Period: 6, InterestPercent: dec("5"), Active: true,
	})
	require.NoError(t, err)

	updated, err := svc.Update(option.ID, store.InstallmentOption{
		BankName: "A", Period: 9, InterestPercent: dec("6"), Active: false,
	})
	require.NoError(t, err)
	assert.Equal(t, 9, updated.Period)
	assert.False(t, updated.Active)
	assert.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, option.ID, updated.ID)

	_, err = svc.Update("ghost", store.InstallmentOption{
		BankName: "A", Period: 6, InterestPercent: dec("5"),
	})
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestDelete(t *testing.T) {
	svc, _ := newService(t)

	option, err := svc.Create(store.InstallmentOption{
		BankName: "A", Period: 6, InterestPercent: dec("5"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(option.ID))
	assert.Empty(t, svc.Options())
	assert.True(t, errs.Is(svc.Delete(option.ID), errs.KindNotFound))
}

func TestSetConfig(t *testing.T) {
	svc, _ := newService(t)

	require.NoError(t, svc.SetConfig(store.InstallmentConfig{Enabled: true, MinimumAmount: dec("250")}))
	cfg := svc.Config()
	assert.True(t, cfg.Enabled)
	assert.True(t, cfg.MinimumAmount.Equal(dec("250")))

	err := svc.SetConfig(store.InstallmentConfig{MinimumAmount: dec("-1")})
	assert.True(t, errs.Is(err, errs.KindValidation))
}
