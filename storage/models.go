package storage

import (
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
)

type tenantRow struct {
	bun.BaseModel `bun:"table:tenants,alias:t"`

	ID           string                           `bun:"id,pk"`
	Email        string                           `bun:"email,notnull,unique"`
	PasswordHash string                           `bun:"password_hash,notnull"`
	Phone        string                           `bun:"phone,unique"`
	ShopName     string                           `bun:"shop_name,notnull"`
	BotName      string                           `bun:"bot_name,notnull"`
	CalendarMode string                           `bun:"calendar_mode,notnull,default:'internal'"`
	VideoEnabled bool                             `bun:"video_enabled,notnull,default:true"`
	PlanActive   bool                             `bun:"plan_active,notnull,default:true"`
	Plan         string                           `bun:"plan,notnull,default:'beta_free'"`
	VideoCredits int                              `bun:"video_credits,notnull,default:0"`
	Team         []contractx.TeamMember           `bun:"team,type:jsonb"`
	Prices       map[string]contractx.PriceEntry  `bun:"prices,type:jsonb"`
	Hours        contractx.OperatingHours         `bun:"hours,type:jsonb"`
	Timezone     string                           `bun:"timezone"`
	CreatedAt    time.Time                        `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r *tenantRow) toTenant() *contractx.Tenant {
	return &contractx.Tenant{
		ID:           r.ID,
		Email:        r.Email,
		Phone:        r.Phone,
		ShopName:     r.ShopName,
		BotName:      r.BotName,
		CalendarMode: contractx.CalendarMode(r.CalendarMode),
		VideoEnabled: r.VideoEnabled,
		PlanActive:   r.PlanActive,
		Plan:         r.Plan,
		VideoCredits: r.VideoCredits,
		Team:         r.Team,
		Prices:       r.Prices,
		Hours:        r.Hours,
		Timezone:     r.Timezone,
	}
}

type appointmentRow struct {
	bun.BaseModel `bun:"table:appointments,alias:a"`

	ID              string    `bun:"id,pk"`
	TenantID        string    `bun:"tenant_id,notnull"`
	Member          string    `bun:"member,notnull"`
	Start           string    `bun:"start,notnull"`
	Service         string    `bun:"service,notnull"`
	Duration        int       `bun:"duration,notnull"`
	CustomerName    string    `bun:"customer_name,notnull"`
	ExternalEventID string    `bun:"external_event_id,nullzero"`
	ExternalCalID   string    `bun:"external_cal_id,nullzero"`
	CreatedAt       time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r *appointmentRow) toAppointment() contractx.Appointment {
	return contractx.Appointment{
		ID:              r.ID,
		TenantID:        r.TenantID,
		Member:          r.Member,
		Start:           r.Start,
		Service:         r.Service,
		Duration:        r.Duration,
		CustomerName:    r.CustomerName,
		ExternalEventID: r.ExternalEventID,
		ExternalCalID:   r.ExternalCalID,
	}
}
