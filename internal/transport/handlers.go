package transport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/liveshop/internal/domain/activity"
	"github.com/rpggio/liveshop/internal/domain/negotiation"
	"github.com/rpggio/liveshop/internal/domain/session"
	"github.com/shopspring/decimal"
)

type createSessionBody struct {
	ClientID string `json:"client_id"`
	Title    string `json:"title"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var body createSessionBody
	if !decodeBody(w, r, &body) {
		return
	}
	sess, err := s.sessions.CreateSession(r.Context(), p, session.CreateSessionRequest{ClientID: body.ClientID, Title: body.Title})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	sessions, err := s.sessions.ListSessions(r.Context(), p, session.ListOptions{
		Status:   session.Status(q.Get("status")),
		ClientID: q.Get("client_id"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

type joinBody struct {
	RoomCode string `json:"room_code"`
}

func (s *Server) handleJoinSession(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var body joinBody
	if !decodeBody(w, r, &body) {
		return
	}
	sess, err := s.sessions.JoinSession(r.Context(), p, body.RoomCode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.GetSession(r.Context(), p, chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleSnapshot serves the polling view. A client passing the revision it
// already holds gets 304 until something changes.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			s.writeError(w, r, errBadParam("since"))
			return
		}
		since = v
	}
	snap, err := s.sessions.GetSnapshot(r.Context(), p, chi.URLParam(r, "sessionID"), since)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("X-Session-Revision", strconv.FormatInt(snap.Session.Revision, 10))
	if snap.NotModified {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.Heartbeat(r.Context(), p, chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleItemsByStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	view, err := s.sessions.GetItemsByStatus(r.Context(), p, chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type addItemBody struct {
	BatchID  string          `json:"batch_id"`
	Quantity decimal.Decimal `json:"quantity"`
	Status   string          `json:"status"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var body addItemBody
	if !decodeBody(w, r, &body) {
		return
	}
	item, err := s.sessions.AddItem(r.Context(), p, chi.URLParam(r, "sessionID"), session.AddItemRequest{
		BatchID:  body.BatchID,
		Quantity: body.Quantity,
		Status:   session.ItemStatus(body.Status),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

type quantityBody struct {
	Quantity decimal.Decimal `json:"quantity"`
}

func (s *Server) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var body quantityBody
	if !decodeBody(w, r, &body) {
		return
	}
	item, err := s.sessions.UpdateQuantity(r.Context(), p, chi.URLParam(r, "sessionID"), chi.URLParam(r, "itemID"), body.Quantity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type statusBody struct {
	Status string `json:"status"`
}

func (s *Server) handleSetItemStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var body statusBody
	if !decodeBody(w, r, &body) {
		return
	}
	item, err := s.sessions.SetItemStatus(r.Context(), p, chi.URLParam(r, "sessionID"), chi.URLParam(r, "itemID"), session.ItemStatus(body.Status))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	if err := s.sessions.RemoveItem(r.Context(), p, chi.URLParam(r, "sessionID"), chi.URLParam(r, "itemID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActiveNegotiations(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	negs, err := s.sessions.GetActiveNegotiations(r.Context(), p, chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"negotiations": negs})
}

func (s *Server) handleNegotiationHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	negs, err := s.sessions.GetNegotiationHistory(r.Context(), p, chi.URLParam(r, "sessionID"), chi.URLParam(r, "itemID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"negotiations": negs})
}

type proposeBody struct {
	Price    decimal.Decimal  `json:"price"`
	Reason   string           `json:"reason"`
	Quantity *decimal.Decimal `json:"quantity,omitempty"`
}

func (s *Server) handleProposePrice(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var body proposeBody
	if !decodeBody(w, r, &body) {
		return
	}
	n, err := s.sessions.ProposePrice(r.Context(), p, chi.URLParam(r, "sessionID"), session.ProposePriceRequest{
		CartItemID: chi.URLParam(r, "itemID"),
		Price:      body.Price,
		Reason:     body.Reason,
		Quantity:   body.Quantity,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

type respondBody struct {
	Response     string           `json:"response"`
	CounterPrice *decimal.Decimal `json:"counter_price,omitempty"`
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var body respondBody
	if !decodeBody(w, r, &body) {
		return
	}
	n, err := s.sessions.RespondToNegotiation(r.Context(), p, chi.URLParam(r, "sessionID"), session.RespondRequest{
		CartItemID:   chi.URLParam(r, "itemID"),
		Response:     negotiation.Response(body.Response),
		CounterPrice: body.CounterPrice,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

type overrideBody struct {
	Price decimal.Decimal `json:"price"`
}

func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var body overrideBody
	if !decodeBody(w, r, &body) {
		return
	}
	result, err := s.sessions.SetOverridePrice(r.Context(), p, chi.URLParam(r, "sessionID"), chi.URLParam(r, "productID"), body.Price)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type highlightBody struct {
	BatchID     string `json:"batch_id"`
	Highlighted *bool  `json:"highlighted"`
}

func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var body highlightBody
	if !decodeBody(w, r, &body) {
		return
	}
	highlighted := true
	if body.Highlighted != nil {
		highlighted = *body.Highlighted
	}
	matched, err := s.sessions.HighlightProduct(r.Context(), p, chi.URLParam(r, "sessionID"), body.BatchID, highlighted)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"batch_id": body.BatchID, "highlighted": highlighted, "items": matched})
}

func (s *Server) handleRequestCheckout(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.RequestCheckout(r.Context(), p, chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sess)
}

type endBody struct {
	ConvertToOrder bool `json:"convert_to_order"`
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	var body endBody
	if !decodeBody(w, r, &body) {
		return
	}
	result, err := s.sessions.EndSession(r.Context(), p, chi.URLParam(r, "sessionID"), body.ConvertToOrder)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	order, err := s.sessions.GetOrder(r.Context(), p, chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	// Visibility follows the session.
	if _, err := s.sessions.GetSession(r.Context(), p, sessionID); err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts := activity.ListActivityOptions{SessionID: sessionID, Limit: limit, Offset: offset}
	if itemID := r.URL.Query().Get("item_id"); itemID != "" {
		opts.CartItemID = &itemID
	}
	if typ := r.URL.Query().Get("type"); typ != "" {
		t := activity.ActivityType(typ)
		opts.ActivityType = &t
	}
	entries, err := s.activity.GetRecentActivity(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": entries})
}

func (s *Server) handleSearchCatalog(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.principal(w, r); !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	batches, err := s.sessions.SearchCatalog(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"batches": batches})
}
