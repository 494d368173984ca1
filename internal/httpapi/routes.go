package httpapi

import (
	"telecom-billing/internal/rbac"

	"github.com/gin-gonic/gin"
)

// Register mounts the /v1 API. authMW authenticates every route except login.
func Register(r gin.IRouter, h Handlers, authMW gin.HandlerFunc) {
	v1 := r.Group("/v1")
	v1.Use(ClientIP())

	v1.POST("/auth/login", h.Login)

	api := v1.Group("")
	api.Use(authMW)
	api.Use(rbac.RequireAnyRole(rbac.RoleOperator))
	{
		api.POST("/calls", h.RecordCall)
		api.GET("/calls", h.ListCalls)
		api.POST("/pricing/quote", h.Quote)

		api.GET("/contacts", h.ListContacts)
		api.POST("/contacts", h.CreateContact)
		api.DELETE("/contacts/:id", h.DeleteContact)

		api.GET("/periods", h.ListPeriods)
		api.GET("/periods/:id/invoices", h.ListInvoices)

		api.GET("/reports/summary", h.Summary)
		api.GET("/dashboard", h.Dashboard)

		api.GET("/rates", h.ListRates)
	}

	// Invoicing and pricing configuration change billed amounts; admin only.
	admin := v1.Group("")
	admin.Use(authMW)
	admin.Use(rbac.RequireAdmin())
	{
		admin.POST("/periods/current", h.EnsureCurrentPeriod)
		admin.POST("/periods/:id/invoices", h.GenerateInvoices)

		admin.GET("/admin/rates", h.ListRates)
		admin.POST("/admin/rates", h.CreateRate)
		admin.PUT("/admin/rates/:id", h.UpdateRate)
		admin.DELETE("/admin/rates/:id", h.DeleteRate)

		admin.GET("/admin/pulse-config", h.GetPulseConfig)
		admin.PUT("/admin/pulse-config", h.SetPulseConfig)

		admin.GET("/admin/audit", h.RecentAudit)
	}
}
