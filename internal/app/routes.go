package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Budgets
	r.HandleFunc("/api/budgets", deps.BudgetHandler.Create).Methods("POST")
	r.HandleFunc("/api/budgets", deps.BudgetHandler.List).Methods("GET")
	r.HandleFunc("/api/budgets/{id}", deps.BudgetHandler.Get).Methods("GET")
	r.HandleFunc("/api/budgets/{id}", deps.BudgetHandler.Replace).Methods("PUT")
	r.HandleFunc("/api/budgets/{id}", deps.BudgetHandler.Delete).Methods("DELETE")
	r.HandleFunc("/api/budgets/{id}/approve", deps.BudgetHandler.Approve).Methods("PATCH")
	r.HandleFunc("/api/budgets/{id}/discount", deps.BudgetHandler.UpdateDiscount).Methods("PATCH")
	r.HandleFunc("/api/budgets/{id}/refresh", deps.BudgetHandler.Refresh).Methods("POST")

	// Budget items
	r.HandleFunc("/api/budgets/{id}/items", deps.BudgetHandler.AddItem).Methods("POST")
	r.HandleFunc("/api/budgets/{id}/items/{itemId}", deps.BudgetHandler.UpdateItemHours).Methods("PATCH")
	r.HandleFunc("/api/budgets/{id}/items/{itemId}", deps.BudgetHandler.RemoveItem).Methods("DELETE")

	// Audit trail
	r.HandleFunc("/api/audit/budgets/{id}", deps.AuditHandler.ListByBudget).Methods("GET")
	r.HandleFunc("/api/audit/items/{itemId}", deps.AuditHandler.ListByItem).Methods("GET")

	// Catalog
	r.HandleFunc("/api/catalog", deps.CatalogHandler.Create).Methods("POST")
	r.HandleFunc("/api/catalog", deps.CatalogHandler.List).Methods("GET")
	r.HandleFunc("/api/catalog/{id}", deps.CatalogHandler.Get).Methods("GET")
	r.HandleFunc("/api/catalog/{id}", deps.CatalogHandler.Update).Methods("PUT")
	r.HandleFunc("/api/catalog/{id}", deps.CatalogHandler.Delete).Methods("DELETE")

	// Metrics
	r.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")
}
