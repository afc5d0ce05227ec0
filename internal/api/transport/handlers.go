package transport

import (
	"fmt"
	"net/http"
	"time"

	"github.com/deliverykit/calsync/internal/api/apierrors"
	"github.com/deliverykit/calsync/internal/api/calendars"
	"github.com/deliverykit/calsync/internal/api/models"
	"github.com/deliverykit/calsync/internal/api/reconcile"
	"github.com/deliverykit/calsync/internal/api/transportutil"
	"github.com/pkg/errors"
)

type itemJSON struct {
	ID               uint   `json:"id"`
	DeliveryDate     string `json:"delivery_date"`
	ProductVariantID string `json:"product_variant_id"`
	Quantity         int    `json:"quantity"`
	Price            string `json:"price"`
	Status           string `json:"status"`
}

func makeItemJSON(item *models.CalendarItem) itemJSON {
	return itemJSON{
		ID:               item.ID,
		DeliveryDate:     models.FormatDate(item.DeliveryDate),
		ProductVariantID: item.ProductVariantID,
		Quantity:         item.Quantity,
		Price:            item.Price.StringFixed(2),
		Status:           string(item.Status),
	}
}

type service struct {
	hctx       transportutil.HandlerRegContext
	store      calendars.Store
	reconciler *reconcile.Reconciler
}

func RegisterHandlers(hctx transportutil.HandlerRegContext, store calendars.Store, r *reconcile.Reconciler) {
	s := service{hctx: hctx, store: store, reconciler: r}

	v1 := hctx.Router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/webhooks/subscriptions", s.handleWebhook).Methods(http.MethodPost)
	v1.HandleFunc("/calendar/items/{item_id:[0-9]+}", s.handleItemUpdate).Methods(http.MethodPost)
	v1.HandleFunc("/customers/{customer_id}/calendar", s.handleCalendar).Methods(http.MethodGet)
}

func (s service) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := transportutil.ReadBody(r)
	if err != nil {
		s.hctx.HandleError(w, r, err)
		return
	}

	ev, err := reconcile.ParseEvent(body)
	if err != nil {
		if errors.Cause(err) == reconcile.ErrUnsupportedEvent {
			transportutil.RequestLog(r.Context(), s.hctx.Log).Infof("Ignoring webhook: %s", err)
			s.hctx.Respond(w, r, http.StatusOK, map[string]interface{}{"status": "ignored"})
			return
		}
		s.hctx.HandleError(w, r, err)
		return
	}

	res, err := s.reconciler.HandleEvent(r.Context(), ev)
	if err != nil {
		s.hctx.HandleError(w, r, errors.Wrapf(err, "failed to handle %s event", ev.GetType()))
		return
	}

	s.hctx.Respond(w, r, http.StatusOK, map[string]interface{}{
		"status":        "success",
		"miss":          res.Miss,
		"items_updated": res.ItemsUpdated,
	})
}

type itemUpdateRequest struct {
	DeliveryDate     *string `json:"delivery_date"`
	Quantity         *int    `json:"quantity"`
	Status           *string `json:"status"`
	SyncWithProvider bool    `json:"sync_with_provider"`
}

func (req itemUpdateRequest) toEdit() (reconcile.ItemEdit, error) {
	var edit reconcile.ItemEdit
	if req.DeliveryDate != nil {
		d, err := models.ParseDate(*req.DeliveryDate)
		if err != nil {
			return edit, errors.Wrap(apierrors.ErrBadRequest, err.Error())
		}
		edit.DeliveryDate = &d
	}
	edit.Quantity = req.Quantity
	if req.Status != nil {
		status := models.ItemStatus(*req.Status)
		edit.Status = &status
	}

	return edit, nil
}

func (s service) handleItemUpdate(w http.ResponseWriter, r *http.Request) {
	itemID, err := transportutil.URLPartUint(r, "item_id")
	if err != nil {
		s.hctx.HandleError(w, r, err)
		return
	}

	var req itemUpdateRequest
	if err = transportutil.DecodeJSONBody(r, &req); err != nil {
		s.hctx.HandleError(w, r, err)
		return
	}

	edit, err := req.toEdit()
	if err != nil {
		s.hctx.HandleError(w, r, err)
		return
	}

	item, err := s.store.Item(r.Context(), itemID)
	if err != nil {
		s.hctx.HandleError(w, r, errors.Wrapf(err, "failed to fetch item %d", itemID))
		return
	}

	// one push per calendar at a time, the provider has no concurrency control
	mu := s.hctx.Locks.NewMutex(fmt.Sprintf("calsync:calendar:%d", item.CalendarID))
	if err = mu.Lock(); err != nil {
		s.hctx.HandleError(w, r, errors.Wrapf(err, "failed to lock calendar %d", item.CalendarID))
		return
	}
	defer mu.Unlock()

	updated, err := s.reconciler.PushItemUpdate(r.Context(), itemID, edit, req.SyncWithProvider)
	if err != nil {
		if syncErr, ok := err.(*reconcile.ProviderSyncError); ok {
			transportutil.RequestLog(r.Context(), s.hctx.Log).Warnf("%s", syncErr)
			s.hctx.Respond(w, r, http.StatusBadGateway, map[string]interface{}{
				"error": syncErr.Error(),
				"item":  makeItemJSON(updated),
			})
			return
		}

		s.hctx.HandleError(w, r, err)
		return
	}

	s.hctx.Respond(w, r, http.StatusOK, map[string]interface{}{
		"status": "success",
		"item":   makeItemJSON(updated),
	})
}

type calendarQuery struct {
	From string `schema:"from"`
	To   string `schema:"to"`
}

func parseOptionalDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	d, err := models.ParseDate(s)
	if err != nil {
		verr := apierrors.NewValidationError()
		verr.Add(field, err.Error())
		return nil, verr
	}

	return &d, nil
}

func (s service) handleCalendar(w http.ResponseWriter, r *http.Request) {
	customerID, err := transportutil.URLPart(r, "customer_id")
	if err != nil {
		s.hctx.HandleError(w, r, err)
		return
	}

	var q calendarQuery
	if err = transportutil.DecodeQuery(r, &q); err != nil {
		s.hctx.HandleError(w, r, err)
		return
	}

	from, err := parseOptionalDate("from", q.From)
	if err != nil {
		s.hctx.HandleError(w, r, err)
		return
	}
	to, err := parseOptionalDate("to", q.To)
	if err != nil {
		s.hctx.HandleError(w, r, err)
		return
	}

	c, err := s.store.CalendarByCustomerID(r.Context(), customerID)
	if err != nil {
		s.hctx.HandleError(w, r, errors.Wrapf(err, "failed to fetch calendar of customer %s", customerID))
		return
	}

	items, err := s.store.ListItems(r.Context(), c.ID, from, to)
	if err != nil {
		s.hctx.HandleError(w, r, err)
		return
	}

	ret := make([]itemJSON, 0, len(items))
	for i := range items {
		ret = append(ret, makeItemJSON(&items[i]))
	}

	s.hctx.Respond(w, r, http.StatusOK, map[string]interface{}{
		"customer_id":     c.CustomerID,
		"subscription_id": c.ProviderSubscriptionID,
		"items":           ret,
	})
}
