// Package gcal talks to the Google Calendar v3 REST API. It is the external
// side of the booking reconciliation: a best-effort mirror of the internal
// ledger, or the source of truth when the tenant configures it that way.
package gcal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
)

const (
	apiBase       = "https://www.googleapis.com/calendar/v3"
	calendarScope = "https://www.googleapis.com/auth/calendar"

	maxResponseSizeBytes = 4 << 20
)

type Config struct {
	ClientID     string        `envconfig:"CLIENT_ID" split_words:"true" required:"true"`
	ClientSecret string        `envconfig:"CLIENT_SECRET" split_words:"true" required:"true"`
	RedirectURL  string        `envconfig:"REDIRECT_URL" split_words:"true" default:"http://localhost:8000/api/auth/google/callback"`
	TokenFile    string        `envconfig:"TOKEN_FILE" split_words:"true" default:"token.json"`
	Timeout      time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
}

type Service struct {
	oauth     *oauth2.Config
	tokenFile string
	timeout   time.Duration
}

var _ contractx.CalendarService = (*Service)(nil)

func NewService(cfg Config) (*Service, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("google client id and secret are required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Service{
		oauth: &oauth2.Config{
			ClientID:     strings.TrimSpace(cfg.ClientID),
			ClientSecret: strings.TrimSpace(cfg.ClientSecret),
			RedirectURL:  strings.TrimSpace(cfg.RedirectURL),
			Scopes:       []string{calendarScope},
			Endpoint:     google.Endpoint,
		},
		tokenFile: cfg.TokenFile,
		timeout:   timeout,
	}, nil
}

// AuthURL builds the consent URL for the tenant authorization flow. State
// carries the tenant email so the callback can attribute the grant.
func (s *Service) AuthURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades the callback code for a token and persists it for later
// API calls. Re-running the flow overwrites a stale grant.
func (s *Service) Exchange(ctx context.Context, code string) error {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: exchange authorization code: %v", contractx.ErrCalendarUnauthorized, err)
	}
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal oauth token: %w", err)
	}
	if err := os.WriteFile(s.tokenFile, raw, 0o600); err != nil {
		return fmt.Errorf("persist oauth token: %w", err)
	}
	return nil
}

func (s *Service) httpClient(ctx context.Context) (*http.Client, error) {
	raw, err := os.ReadFile(s.tokenFile)
	if err != nil {
		return nil, fmt.Errorf("%w: calendar grant missing, run the authorization flow", contractx.ErrCalendarUnauthorized)
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("%w: stored calendar grant is corrupt", contractx.ErrCalendarUnauthorized)
	}

	client := s.oauth.Client(ctx, &token)
	client.Timeout = s.timeout
	return client, nil
}

type eventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type apiEvent struct {
	ID          string    `json:"id,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Description string    `json:"description,omitempty"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
	HTMLLink    string    `json:"htmlLink,omitempty"`
}

type eventList struct {
	Items []apiEvent `json:"items"`
}

func (s *Service) ListUpcoming(ctx context.Context, calendarID string, notBefore time.Time, limit int) ([]contractx.CalendarEvent, error) {
	if limit <= 0 {
		limit = 10
	}

	query := url.Values{}
	query.Set("timeMin", notBefore.UTC().Format(time.RFC3339))
	query.Set("maxResults", strconv.Itoa(limit))
	query.Set("singleEvents", "true")
	query.Set("orderBy", "startTime")

	endpoint := fmt.Sprintf("%s/calendars/%s/events?%s", apiBase, url.PathEscape(calendarID), query.Encode())

	var list eventList
	if err := s.do(ctx, http.MethodGet, endpoint, nil, &list, calendarID); err != nil {
		return nil, err
	}

	events := make([]contractx.CalendarEvent, 0, len(list.Items))
	for _, item := range list.Items {
		start := item.Start.DateTime
		if start == "" {
			start = item.Start.Date
		}
		events = append(events, contractx.CalendarEvent{
			ID:          item.ID,
			Summary:     item.Summary,
			Start:       start,
			Description: item.Description,
		})
	}
	return events, nil
}

func (s *Service) CreateEvent(ctx context.Context, calendarID, summary, startISO, timezone string, duration time.Duration) (contractx.CreatedEvent, error) {
	start, err := time.Parse("2006-01-02T15:04:05", startISO)
	if err != nil {
		return contractx.CreatedEvent{}, fmt.Errorf("%w: invalid start %q, expected AAAA-MM-DDTHH:MM:SS", contractx.ErrValidation, startISO)
	}
	if duration <= 0 {
		duration = time.Hour
	}
	end := start.Add(duration)

	body := apiEvent{
		Summary:     summary,
		Description: "Agendamento automático via Chatbot WhatsApp",
		Start:       eventTime{DateTime: start.Format("2006-01-02T15:04:05"), TimeZone: timezone},
		End:         eventTime{DateTime: end.Format("2006-01-02T15:04:05"), TimeZone: timezone},
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events", apiBase, url.PathEscape(calendarID))

	var created apiEvent
	if err := s.do(ctx, http.MethodPost, endpoint, body, &created, calendarID); err != nil {
		return contractx.CreatedEvent{}, err
	}
	return contractx.CreatedEvent{ID: created.ID, Link: created.HTMLLink}, nil
}

func (s *Service) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	endpoint := fmt.Sprintf("%s/calendars/%s/events/%s", apiBase, url.PathEscape(calendarID), url.PathEscape(eventID))
	return s.do(ctx, http.MethodDelete, endpoint, nil, nil, calendarID)
}

func (s *Service) do(ctx context.Context, method, endpoint string, body, out any, calendarID string) error {
	client, err := s.httpClient(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal calendar request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build calendar request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("execute calendar request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read calendar response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: calendar %q rejected the request (status=%d)", contractx.ErrCalendarUnauthorized, calendarID, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: calendar %q", contractx.ErrCalendarNotFound, calendarID)
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return fmt.Errorf("calendar http status=%d body=%s", resp.StatusCode, string(raw))
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode calendar response: %w", err)
		}
	}
	return nil
}
