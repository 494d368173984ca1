package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"telecom-billing/internal/apperr"
	"telecom-billing/internal/audit"
	"telecom-billing/internal/auth"
	"telecom-billing/internal/billing"
	"telecom-billing/internal/calls"
	"telecom-billing/internal/contacts"
	"telecom-billing/internal/pricing"
	"telecom-billing/internal/reporting"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth     *auth.Service
	Pricing  *pricing.Engine
	Rates    *pricing.AdminService
	Calls    *calls.Recorder
	Contacts *contacts.Service
	Billing  *billing.Service
	Reports  *reporting.Service
	Audit    *audit.Service
}

// --- Auth ---

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	pair, u, err := h.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user":          u,
	})
}

// --- Calls & pricing ---

const headerIdempotencyKey = "Idempotency-Key"

func (h Handlers) RecordCall(c *gin.Context) {
	var req calls.RecordCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader(headerIdempotencyKey)
	}
	call, err := h.Calls.RecordCall(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, call)
}

func (h Handlers) ListCalls(c *gin.Context) {
	f := calls.ListFilter{ContactID: strings.TrimSpace(c.Query("contact_id"))}
	var err error
	if f.From, err = parseTimeParam(c.Query("from"), false); err != nil {
		writeError(c, apperr.Validation("from: "+err.Error()))
		return
	}
	if f.To, err = parseTimeParam(c.Query("to"), true); err != nil {
		writeError(c, apperr.Validation("to: "+err.Error()))
		return
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(c, apperr.Validation("limit must be a non-negative integer"))
			return
		}
		f.Limit = n
	}

	out, err := h.Calls.ListCalls(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": out})
}

type quoteRequest struct {
	OriginNumber      string `json:"origin_number"`
	DestinationNumber string `json:"destination_number"`
	DurationSeconds   *int   `json:"duration_seconds"`
}

// Quote prices a call without recording it.
func (h Handlers) Quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	if strings.TrimSpace(req.DestinationNumber) == "" {
		writeError(c, apperr.Validation("destination_number is required"))
		return
	}
	if req.DurationSeconds == nil || *req.DurationSeconds < 0 || *req.DurationSeconds > pricing.MaxDurationSeconds {
		writeError(c, apperr.Validation(fmt.Sprintf("duration_seconds must be between 0 and %d", pricing.MaxDurationSeconds)))
		return
	}
	q := h.Pricing.PriceCall(c.Request.Context(), req.OriginNumber, req.DestinationNumber, *req.DurationSeconds)
	c.JSON(http.StatusOK, gin.H{"quote": q, "path": q.Path()})
}

// --- Contacts ---

func (h Handlers) ListContacts(c *gin.Context) {
	out, err := h.Contacts.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": out})
}

func (h Handlers) CreateContact(c *gin.Context) {
	var req contacts.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	out, err := h.Contacts.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) DeleteContact(c *gin.Context) {
	if err := h.Contacts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Periods & invoices ---

func (h Handlers) ListPeriods(c *gin.Context) {
	out, err := h.Billing.ListPeriods(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"periods": out})
}

func (h Handlers) EnsureCurrentPeriod(c *gin.Context) {
	p, err := h.Billing.EnsureCurrentPeriod(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h Handlers) GenerateInvoices(c *gin.Context) {
	res, err := h.Billing.GenerateInvoices(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	msg := "invoices generated"
	if res.Empty {
		msg = "no billable calls in this period"
	}
	c.JSON(http.StatusOK, gin.H{"result": res, "message": msg})
}

func (h Handlers) ListInvoices(c *gin.Context) {
	out, err := h.Billing.ListInvoices(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": out})
}

// --- Reports ---

func (h Handlers) Summary(c *gin.Context) {
	from, err := parseTimeParam(c.Query("from"), false)
	if err != nil {
		writeError(c, apperr.Validation("from: "+err.Error()))
		return
	}
	to, err := parseTimeParam(c.Query("to"), true)
	if err != nil {
		writeError(c, apperr.Validation("to: "+err.Error()))
		return
	}
	out, err := h.Reports.Summary(c.Request.Context(), reporting.TimeRange{From: from, To: to})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Dashboard opens the current period and returns the record totals.
func (h Handlers) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := h.Billing.EnsureCurrentPeriod(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	totals, err := h.Reports.Totals(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"current_period": p, "totals": totals})
}

// --- Admin: rates & pulse configuration ---

func (h Handlers) ListRates(c *gin.Context) {
	out, err := h.Rates.ListRates(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rates": out})
}

func (h Handlers) CreateRate(c *gin.Context) {
	var in pricing.RateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c)
		return
	}
	out, err := h.Rates.CreateRate(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) UpdateRate(c *gin.Context) {
	var in pricing.RateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c)
		return
	}
	out, err := h.Rates.UpdateRate(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) DeleteRate(c *gin.Context) {
	if err := h.Rates.DeleteRate(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) GetPulseConfig(c *gin.Context) {
	out, err := h.Rates.CurrentPulseConfig(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type pulseConfigRequest struct {
	PulseDurationSeconds int   `json:"pulse_duration_seconds"`
	RoundUp              *bool `json:"round_up"`
}

func (h Handlers) SetPulseConfig(c *gin.Context) {
	var req pulseConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	roundUp := true
	if req.RoundUp != nil {
		roundUp = *req.RoundUp
	}
	out, err := h.Rates.SetPulseConfig(c.Request.Context(), req.PulseDurationSeconds, roundUp)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) RecentAudit(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(c, apperr.Validation("limit must be a positive integer"))
			return
		}
		limit = n
	}
	out, err := h.Audit.Recent(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

// parseTimeParam accepts RFC 3339 or a bare date. A bare date used as an
// upper bound covers that whole day.
func parseTimeParam(raw string, upper bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	if upper {
		d = d.AddDate(0, 0, 1)
	}
	return d, nil
}
