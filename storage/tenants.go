package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
)

// TenantRepo is the Postgres tenant registry. It also backs the credit
// ledger: debits are a single conditional UPDATE so the balance can never be
// observed negative.
type TenantRepo struct {
	db *bun.DB
}

var (
	_ contractx.TenantRepository = (*TenantRepo)(nil)
	_ contractx.CreditStore      = (*TenantRepo)(nil)
)

func NewTenantRepo(db *bun.DB) *TenantRepo {
	return &TenantRepo{db: db}
}

func (r *TenantRepo) GetByPhone(ctx context.Context, phone string) (*contractx.Tenant, error) {
	return r.getWhere(ctx, "phone = ?", strings.TrimSpace(phone))
}

func (r *TenantRepo) GetByEmail(ctx context.Context, email string) (*contractx.Tenant, error) {
	return r.getWhere(ctx, "email = ?", normalizeEmail(email))
}

func (r *TenantRepo) getWhere(ctx context.Context, clause string, arg string) (*contractx.Tenant, error) {
	row := new(tenantRow)
	err := r.db.NewSelect().Model(row).Where(clause, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contractx.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select tenant: %w", err)
	}
	return row.toTenant(), nil
}

// Register inserts a new tenant, filling registration defaults: the
// Principal team member on the primary calendar, the standard price table,
// 09:00-19:00 hours and the free beta plan.
func (r *TenantRepo) Register(ctx context.Context, t *contractx.Tenant, password string) error {
	if t == nil || normalizeEmail(t.Email) == "" {
		return fmt.Errorf("%w: tenant email is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: password is required", contractx.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	row := &tenantRow{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(t.Email),
		PasswordHash: string(hash),
		Phone:        strings.TrimSpace(t.Phone),
		ShopName:     strings.TrimSpace(t.ShopName),
		BotName:      strings.TrimSpace(t.BotName),
		CalendarMode: string(t.CalendarMode),
		VideoEnabled: true,
		PlanActive:   true,
		Plan:         "beta_free",
		Team:         t.Team,
		Prices:       t.Prices,
		Hours:        t.Hours,
		Timezone:     t.Timezone,
	}
	if row.CalendarMode == "" {
		row.CalendarMode = string(contractx.CalendarInternal)
	}
	if len(row.Team) == 0 {
		row.Team = []contractx.TeamMember{{Name: contractx.PrincipalMember, CalendarID: contractx.PrimaryCalendarID}}
	}
	if len(row.Prices) == 0 {
		row.Prices = map[string]contractx.PriceEntry{
			"corte":       {Price: 35, Duration: 30},
			"barba":       {Price: 35, Duration: 30},
			"combo":       {Price: 70, Duration: 50},
			"sobrancelha": {Price: 15, Duration: 15},
		}
	}
	if len(row.Hours) == 0 {
		row.Hours = defaultHours()
	}

	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}

	t.ID = row.ID
	t.Email = row.Email
	t.Team = row.Team
	t.Prices = row.Prices
	t.Hours = row.Hours
	t.PlanActive = row.PlanActive
	t.Plan = row.Plan
	t.VideoEnabled = row.VideoEnabled
	return nil
}

// Authenticate resolves login credentials. Wrong email and wrong password are
// indistinguishable to the caller.
func (r *TenantRepo) Authenticate(ctx context.Context, email, password string) (*contractx.Tenant, error) {
	row := new(tenantRow)
	err := r.db.NewSelect().Model(row).Where("email = ?", normalizeEmail(email)).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contractx.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select tenant: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)) != nil {
		return nil, contractx.ErrTenantNotFound
	}
	return row.toTenant(), nil
}

func (r *TenantRepo) UpdatePrices(ctx context.Context, email string, prices map[string]contractx.PriceEntry) error {
	return r.updateColumn(ctx, email, "prices", prices)
}

func (r *TenantRepo) UpdateTeam(ctx context.Context, email string, team []contractx.TeamMember) error {
	return r.updateColumn(ctx, email, "team", team)
}

func (r *TenantRepo) UpdateHours(ctx context.Context, email string, hours contractx.OperatingHours) error {
	return r.updateColumn(ctx, email, "hours", hours)
}

func (r *TenantRepo) ActivatePlan(ctx context.Context, email, plan string) error {
	res, err := r.db.NewUpdate().Model((*tenantRow)(nil)).
		Set("plan_active = TRUE").
		Set("plan = ?", plan).
		Where("email = ?", normalizeEmail(email)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("activate plan: %w", err)
	}
	return requireRow(res)
}

func (r *TenantRepo) updateColumn(ctx context.Context, email, column string, value any) error {
	res, err := r.db.NewUpdate().Model((*tenantRow)(nil)).
		Set(column+" = ?", value).
		Where("email = ?", normalizeEmail(email)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update tenant %s: %w", column, err)
	}
	return requireRow(res)
}

// Debit is all-or-nothing: the conditional WHERE makes the decrement and the
// balance check one atomic statement.
func (r *TenantRepo) Debit(ctx context.Context, email string, n int) (bool, error) {
	if n <= 0 {
		return false, fmt.Errorf("%w: debit amount must be positive", contractx.ErrValidation)
	}
	res, err := r.db.NewUpdate().Model((*tenantRow)(nil)).
		Set("video_credits = video_credits - ?", n).
		Where("email = ?", normalizeEmail(email)).
		Where("video_credits >= ?", n).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("debit credits: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *TenantRepo) Credit(ctx context.Context, email string, n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: credit amount must be positive", contractx.ErrValidation)
	}
	res, err := r.db.NewUpdate().Model((*tenantRow)(nil)).
		Set("video_credits = video_credits + ?", n).
		Where("email = ?", normalizeEmail(email)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("credit credits: %w", err)
	}
	return requireRow(res)
}

func (r *TenantRepo) Balance(ctx context.Context, email string) (int, error) {
	var balance int
	err := r.db.NewSelect().Model((*tenantRow)(nil)).
		Column("video_credits").
		Where("email = ?", normalizeEmail(email)).
		Limit(1).
		Scan(ctx, &balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, contractx.ErrTenantNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("select balance: %w", err)
	}
	return balance, nil
}

func requireRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return contractx.ErrTenantNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func defaultHours() contractx.OperatingHours {
	hours := make(contractx.OperatingHours, 7)
	for day := 0; day < 7; day++ {
		hours[fmt.Sprint(day)] = contractx.DayHours{Open: "09:00", Close: "19:00"}
	}
	return hours
}
