package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmfranc/stripemirror/api/responses"
	"github.com/dmfranc/stripemirror/pkg/db/models"
	pkgerrors "github.com/dmfranc/stripemirror/pkg/errors"
	"github.com/dmfranc/stripemirror/pkg/logger"
)

// BillingService is the subset of the action layer the billing controllers
// read from.
type BillingService interface {
	UserHasActiveSubscription(ctx context.Context, userRef string) (bool, error)
	CustomerForUserRef(ctx context.Context, userRef string) (*models.Customer, error)
}

type entitlementResponse struct {
	UserRef string `json:"user_ref"`
	Active  bool   `json:"active"`
}

type customerResponse struct {
	StripeID       string     `json:"stripe_id"`
	UserRef        string     `json:"user_ref"`
	AccountBalance string     `json:"account_balance"`
	Currency       string     `json:"currency"`
	Delinquent     bool       `json:"delinquent"`
	DefaultSource  string     `json:"default_source"`
	DatePurged     *time.Time `json:"date_purged,omitempty"`
}

// BillingEntitlement reports whether the calling user holds an active
// subscription.
func BillingEntitlement(svc BillingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userRef := r.Header.Get("X-User-Ref")
		if userRef == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "user reference header required"))
			return
		}

		active, err := svc.UserHasActiveSubscription(ctx, userRef)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, entitlementResponse{UserRef: userRef, Active: active})
	}
}

// BillingCustomer returns the mirrored customer linked to a user.
func BillingCustomer(svc BillingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userRef := chi.URLParam(r, "userRef")
		cust, err := svc.CustomerForUserRef(ctx, userRef)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if cust == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found"))
			return
		}

		resp := customerResponse{
			StripeID:      cust.StripeID,
			Currency:      cust.Currency,
			Delinquent:    cust.Delinquent,
			DefaultSource: cust.DefaultSource,
			DatePurged:    cust.DatePurged,
		}
		if cust.UserRef != nil {
			resp.UserRef = *cust.UserRef
		}
		if cust.AccountBalance != nil {
			resp.AccountBalance = cust.AccountBalance.String()
		}
		responses.WriteSuccess(w, resp)
	}
}
