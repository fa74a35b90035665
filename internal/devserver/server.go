// Package devserver is an in-memory implementation of the commerce backend
// contract. It backs integration tests and local development; state lives in
// the process and is lost on restart.
package devserver

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/revive-shop/commerce-core/internal/domain"
)

type couponRule struct {
	Code           string
	Type           string // "fixed" or "percentage"
	Value          float64
	MinOrderAmount float64
}

type storedOrder struct {
	domain.OrderDetail
	GuestEmail string
	Token      string
}

type Server struct {
	mu       sync.Mutex
	products map[string]domain.Product
	coupons  map[string]couponRule
	carts    map[string]*domain.Cart
	// session key (X-Session-Id or bearer token) -> cart id
	sessions map[string]string
	orders   map[string]*storedOrder // keyed by order number
	orderSeq int
	now      func() time.Time

	router chi.Router
}

func New() *Server {
	s := &Server{
		products: map[string]domain.Product{},
		coupons:  map[string]couponRule{},
		carts:    map[string]*domain.Cart{},
		sessions: map[string]string{},
		orders:   map[string]*storedOrder{},
		now:      time.Now,
	}
	s.seed()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/cart", s.getCart)
	r.Post("/cart/items", s.addItem)
	r.Patch("/cart/items", s.updateItem)
	r.Delete("/cart/items/{index}", s.removeItem)
	r.Post("/cart/coupon", s.applyCoupon)
	r.Delete("/cart/coupon", s.removeCoupon)
	r.Get("/cart/totals", s.cartTotals)

	r.Post("/checkout/order", s.createOrder)
	r.Post("/checkout/payment", s.createPayment)
	r.Get("/checkout/order/{orderNumber}", s.checkoutOrder)

	r.Get("/orders", s.listOrders)
	r.Get("/orders/track", s.trackOrder)
	r.Get("/orders/{orderNumber}", s.getOrder)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) seed() {
	for _, p := range []domain.Product{
		{ID: "prod-espresso", Name: "Espresso Beans 1kg", Price: 24.90, SKU: "COF-ESP-1"},
		{ID: "prod-grinder", Name: "Burr Grinder", Price: 89.00, SKU: "EQ-GRD-1"},
		{ID: "prod-mug", Name: "Ceramic Mug", Price: 12.50, SKU: "ACC-MUG-1"},
	} {
		s.products[p.ID] = p
	}
	s.coupons["SAVE5"] = couponRule{Code: "SAVE5", Type: "fixed", Value: 5}
	s.coupons["TENOFF"] = couponRule{Code: "TENOFF", Type: "percentage", Value: 10, MinOrderAmount: 50}
}

// AddProduct registers an extra catalog entry. Test helper.
func (s *Server) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// MarkOrderPaid flips an order to paid, simulating an out-of-band payment
// confirmation (webhook from the payment provider). Test helper.
func (s *Server) MarkOrderPaid(orderNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderNumber]
	if !ok {
		return fmt.Errorf("order %s not found", orderNumber)
	}
	if !o.Status.CanTransitionTo(domain.OrderStatusPaid) {
		return fmt.Errorf("order %s cannot move from %s to paid", orderNumber, o.Status)
	}
	o.Status = domain.OrderStatusPaid
	o.StatusHistory = append(o.StatusHistory, domain.OrderStatusEvent{
		Status: domain.OrderStatusPaid,
		At:     s.now(),
	})
	return nil
}

type envelope map[string]any

func respondJSON(w http.ResponseWriter, status int, data envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, envelope{"success": false, "message": message})
}

func callerKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return "tok:" + strings.TrimPrefix(auth, "Bearer ")
	}
	if sid := r.Header.Get("X-Session-Id"); sid != "" {
		return "sess:" + sid
	}
	return ""
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// cartForCaller returns the caller's cart, creating one when needed. Caller
// must hold s.mu.
func (s *Server) cartForCaller(key string) *domain.Cart {
	if id, ok := s.sessions[key]; ok {
		return s.carts[id]
	}
	cart := &domain.Cart{ID: uuid.NewString(), Items: []domain.CartLine{}}
	s.recompute(cart, "")
	s.carts[cart.ID] = cart
	s.sessions[key] = cart.ID
	return cart
}

func (s *Server) lookupCart(cartID string) (*domain.Cart, bool) {
	c, ok := s.carts[cartID]
	return c, ok
}

func shippingOptions() []domain.ShippingOption {
	return []domain.ShippingOption{
		{ID: "standard", Name: "Standard", Price: 5.90, MinDays: 3, MaxDays: 5},
		{ID: "express", Name: "Express", Price: 14.90, MinDays: 1, MaxDays: 2},
	}
}

// recompute reprices a cart in place. Every mutation goes through here so the
// stored cart always carries a consistent snapshot.
func (s *Server) recompute(cart *domain.Cart, shippingOptionID string) {
	subtotal := 0.0
	for _, line := range cart.Items {
		subtotal += line.Product.Price * float64(line.Quantity)
	}
	cart.Subtotal = round2(subtotal)

	cart.Discount = 0
	if code := cart.ActiveCoupon(); code != "" {
		if rule, ok := s.coupons[code]; ok && subtotal >= rule.MinOrderAmount {
			cart.Discount = discountFor(rule, subtotal)
		}
	}
	cart.AfterDiscount = round2(cart.Subtotal - cart.Discount)

	cart.ShippingOptions = shippingOptions()
	cart.ShippingCost = 0
	if len(cart.Items) > 0 {
		opt := cart.ShippingOptions[0]
		for _, o := range cart.ShippingOptions {
			if o.ID == shippingOptionID {
				opt = o
			}
		}
		cart.ShippingCost = opt.Price
	}
	cart.Total = round2(cart.AfterDiscount + cart.ShippingCost)
}

func discountFor(rule couponRule, subtotal float64) float64 {
	switch rule.Type {
	case "percentage":
		return round2(subtotal * rule.Value / 100)
	default:
		if rule.Value > subtotal {
			return round2(subtotal)
		}
		return round2(rule.Value)
	}
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	key := callerKey(r)
	if key == "" {
		respondError(w, http.StatusBadRequest, "Session required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.cartForCaller(key)
	respondJSON(w, http.StatusOK, envelope{"success": true, "cart": cart})
}

type addItemDTO struct {
	CartID    string `json:"cartId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	VariantID string `json:"variantId"`
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Quantity < 0 {
		respondError(w, http.StatusBadRequest, "Quantity cannot be negative")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.lookupCart(req.CartID)
	if !ok {
		respondError(w, http.StatusNotFound, "Cart not found")
		return
	}
	product, ok := s.products[req.ProductID]
	if !ok {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].Product.ID == req.ProductID && cart.Items[i].VariantID == req.VariantID {
			cart.Items[i].Quantity += req.Quantity
			merged = true
			break
		}
	}
	if !merged && req.Quantity > 0 {
		cart.Items = append(cart.Items, domain.CartLine{
			Product:   product,
			VariantID: req.VariantID,
			Quantity:  req.Quantity,
		})
	}
	s.recompute(cart, "")
	respondJSON(w, http.StatusOK, envelope{"success": true, "cart": cart})
}

type updateItemDTO struct {
	CartID    string `json:"cartId"`
	ItemIndex int    `json:"itemIndex"`
	Quantity  int    `json:"quantity"`
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Quantity < 0 {
		respondError(w, http.StatusBadRequest, "Quantity cannot be negative")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.lookupCart(req.CartID)
	if !ok {
		respondError(w, http.StatusNotFound, "Cart not found")
		return
	}
	if req.ItemIndex < 0 || req.ItemIndex >= len(cart.Items) {
		respondError(w, http.StatusBadRequest, "Invalid item index")
		return
	}
	if req.Quantity == 0 {
		cart.Items = append(cart.Items[:req.ItemIndex], cart.Items[req.ItemIndex+1:]...)
	} else {
		cart.Items[req.ItemIndex].Quantity = req.Quantity
	}
	s.recompute(cart, "")
	respondJSON(w, http.StatusOK, envelope{"success": true, "cart": cart})
}

type cartIDDTO struct {
	CartID string `json:"cartId"`
	Code   string `json:"code"`
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid item index")
		return
	}
	var req cartIDDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.lookupCart(req.CartID)
	if !ok {
		respondError(w, http.StatusNotFound, "Cart not found")
		return
	}
	if index < 0 || index >= len(cart.Items) {
		respondError(w, http.StatusBadRequest, "Invalid item index")
		return
	}
	cart.Items = append(cart.Items[:index], cart.Items[index+1:]...)
	s.recompute(cart, "")
	respondJSON(w, http.StatusOK, envelope{"success": true, "cart": cart})
}

func (s *Server) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req cartIDDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.lookupCart(req.CartID)
	if !ok {
		respondError(w, http.StatusNotFound, "Cart not found")
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	rule, ok := s.coupons[code]
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid coupon code")
		return
	}
	if cart.Subtotal < rule.MinOrderAmount {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("Coupon requires a minimum order of %.2f", rule.MinOrderAmount))
		return
	}
	cart.CouponCode = code
	cart.Coupon = &domain.Coupon{Code: code}
	s.recompute(cart, "")
	respondJSON(w, http.StatusOK, envelope{"success": true, "cart": cart})
}

func (s *Server) removeCoupon(w http.ResponseWriter, r *http.Request) {
	var req cartIDDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.lookupCart(req.CartID)
	if !ok {
		respondError(w, http.StatusNotFound, "Cart not found")
		return
	}
	cart.CouponCode = ""
	cart.Coupon = nil
	s.recompute(cart, "")
	respondJSON(w, http.StatusOK, envelope{"success": true, "cart": cart})
}

func (s *Server) cartTotals(w http.ResponseWriter, r *http.Request) {
	cartID := r.URL.Query().Get("cartId")
	shippingOptionID := r.URL.Query().Get("shippingOptionId")

	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.lookupCart(cartID)
	if !ok {
		respondError(w, http.StatusNotFound, "Cart not found")
		return
	}
	s.recompute(cart, shippingOptionID)

	lines := make([]domain.TotalsLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, domain.TotalsLine{
			ProductID:  item.Product.ID,
			VariantID:  item.VariantID,
			SKU:        item.Product.SKU,
			Name:       item.Product.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.Product.Price,
			TotalPrice: round2(item.Product.Price * float64(item.Quantity)),
		})
	}
	respondJSON(w, http.StatusOK, envelope{
		"success":         true,
		"items":           lines,
		"subtotal":        cart.Subtotal,
		"discount":        cart.Discount,
		"afterDiscount":   cart.AfterDiscount,
		"shippingCost":    cart.ShippingCost,
		"shippingOptions": cart.ShippingOptions,
		"total":           cart.Total,
		"couponCode":      cart.CouponCode,
	})
}

type createOrderDTO struct {
	CartID           string         `json:"cartId"`
	ShippingAddress  domain.Address `json:"shippingAddress"`
	ShippingOptionID string         `json:"shippingOptionId"`
	Notes            string         `json:"notes"`
	GuestEmail       string         `json:"guestEmail"`
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.lookupCart(req.CartID)
	if !ok {
		respondError(w, http.StatusNotFound, "Cart not found")
		return
	}
	if len(cart.Items) == 0 {
		respondError(w, http.StatusBadRequest, "Cart is empty")
		return
	}
	s.recompute(cart, req.ShippingOptionID)

	s.orderSeq++
	now := s.now()
	order := &storedOrder{
		OrderDetail: domain.OrderDetail{
			Order: domain.Order{
				ID:              uuid.NewString(),
				OrderNumber:     fmt.Sprintf("ORD-%04d", 1000+s.orderSeq),
				Status:          domain.OrderStatusPending,
				Total:           cart.Total,
				Subtotal:        cart.Subtotal,
				Discount:        cart.Discount,
				ShippingCost:    cart.ShippingCost,
				Currency:        "CHF",
				ShippingAddress: req.ShippingAddress,
				CreatedAt:       now,
			},
			StatusHistory: []domain.OrderStatusEvent{
				{Status: domain.OrderStatusPending, At: now},
			},
		},
		GuestEmail: strings.ToLower(req.GuestEmail),
		Token:      bearerToken(r),
	}
	for _, item := range cart.Items {
		order.Items = append(order.Items, domain.OrderItem{
			Name:       item.Product.Name,
			SKU:        item.Product.SKU,
			Quantity:   item.Quantity,
			UnitPrice:  item.Product.Price,
			TotalPrice: round2(item.Product.Price * float64(item.Quantity)),
		})
	}
	s.orders[order.OrderNumber] = order

	// checkout consumed the cart
	cart.Items = nil
	cart.Coupon = nil
	cart.CouponCode = ""
	s.recompute(cart, "")

	respondJSON(w, http.StatusCreated, envelope{"success": true, "order": order.Order})
}

type createPaymentDTO struct {
	OrderID  string `json:"orderId"`
	Provider string `json:"provider"`
}

func (s *Server) createPayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var order *storedOrder
	for _, o := range s.orders {
		if o.ID == req.OrderID {
			order = o
			break
		}
	}
	if order == nil {
		respondError(w, http.StatusNotFound, "Order not found")
		return
	}
	if order.Status != domain.OrderStatusPending {
		respondError(w, http.StatusBadRequest, "Order is not awaiting payment")
		return
	}

	switch domain.Provider(req.Provider) {
	case domain.ProviderStripe:
		respondJSON(w, http.StatusOK, envelope{
			"success":      true,
			"clientSecret": "pi_" + uuid.NewString() + "_secret_test",
		})
	case domain.ProviderCoinbase:
		respondJSON(w, http.StatusOK, envelope{
			"success":   true,
			"hostedUrl": "https://commerce.example/charges/" + order.OrderNumber,
		})
	case domain.ProviderTwint:
		respondJSON(w, http.StatusOK, envelope{
			"success":    true,
			"paymentUrl": "https://pay.example/twint/" + order.OrderNumber,
		})
	default:
		respondError(w, http.StatusBadRequest, "Unsupported payment provider")
	}
}

func (s *Server) checkoutOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderNumber]
	if !ok {
		respondError(w, http.StatusNotFound, "Order not found")
		return
	}
	respondJSON(w, http.StatusOK, envelope{"success": true, "order": order.Order})
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Order
	for _, o := range s.orders {
		if o.Token == token {
			out = append(out, o.Order)
		}
	}
	respondJSON(w, http.StatusOK, envelope{"success": true, "orders": out, "total": len(out)})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")
	email := strings.ToLower(r.URL.Query().Get("email"))
	token := bearerToken(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderNumber]
	if !ok || !order.visibleTo(token, email) {
		respondError(w, http.StatusNotFound, "Order not found")
		return
	}
	respondJSON(w, http.StatusOK, envelope{"success": true, "order": order.OrderDetail})
}

func (s *Server) trackOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber := r.URL.Query().Get("orderNumber")
	email := strings.ToLower(r.URL.Query().Get("email"))

	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderNumber]
	if !ok || email == "" || order.GuestEmail != email {
		// never reveal whether the number or the email was wrong
		respondError(w, http.StatusNotFound, "Order not found")
		return
	}
	respondJSON(w, http.StatusOK, envelope{"success": true, "order": order.OrderDetail})
}

func (o *storedOrder) visibleTo(token, email string) bool {
	if token != "" && o.Token == token {
		return true
	}
	return email != "" && o.GuestEmail == email
}
