package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
)

// AppointmentRepo is the internal booking ledger in Postgres.
type AppointmentRepo struct {
	db *bun.DB
}

var _ contractx.AppointmentRepository = (*AppointmentRepo)(nil)

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

func (r *AppointmentRepo) Create(ctx context.Context, a *contractx.Appointment) error {
	if a == nil || a.ID == "" {
		return fmt.Errorf("%w: appointment id is required", contractx.ErrValidation)
	}
	row := &appointmentRow{
		ID:              a.ID,
		TenantID:        a.TenantID,
		Member:          a.Member,
		Start:           a.Start,
		Service:         a.Service,
		Duration:        a.Duration,
		CustomerName:    a.CustomerName,
		ExternalEventID: a.ExternalEventID,
		ExternalCalID:   a.ExternalCalID,
	}
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *AppointmentRepo) ListByTenant(ctx context.Context, tenantID string) ([]contractx.Appointment, error) {
	var rows []appointmentRow
	err := r.db.NewSelect().Model(&rows).
		Where("tenant_id = ?", tenantID).
		Order("start ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	appts := make([]contractx.Appointment, 0, len(rows))
	for i := range rows {
		appts = append(appts, rows[i].toAppointment())
	}
	return appts, nil
}

// Delete removes exactly one entry by id and returns it, so the caller can
// undo the external mirror. Matching is by id only, never by content.
func (r *AppointmentRepo) Delete(ctx context.Context, tenantID, appointmentID string) (*contractx.Appointment, error) {
	var removed *contractx.Appointment

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(appointmentRow)
		err := tx.NewSelect().Model(row).
			Where("tenant_id = ?", tenantID).
			Where("id = ?", appointmentID).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return contractx.ErrAppointmentNotFound
		}
		if err != nil {
			return fmt.Errorf("select appointment: %w", err)
		}

		if _, err := tx.NewDelete().Model((*appointmentRow)(nil)).
			Where("tenant_id = ?", tenantID).
			Where("id = ?", appointmentID).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete appointment: %w", err)
		}

		a := row.toAppointment()
		removed = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *AppointmentRepo) SetExternalRef(ctx context.Context, tenantID, appointmentID, eventID, calendarID string) error {
	res, err := r.db.NewUpdate().Model((*appointmentRow)(nil)).
		Set("external_event_id = ?", eventID).
		Set("external_cal_id = ?", calendarID).
		Where("tenant_id = ?", tenantID).
		Where("id = ?", appointmentID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set external ref: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return contractx.ErrAppointmentNotFound
	}
	return nil
}
