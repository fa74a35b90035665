package domain

// Product carries the subset of catalog data the cart needs to display a line.
type Product struct {
	ID       string  `json:"_id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	SKU      string  `json:"sku,omitempty"`
	ImageURL string  `json:"imageUrl,omitempty"`
}

type CartLine struct {
	Product   Product `json:"product"`
	VariantID string  `json:"variant,omitempty"`
	Quantity  int     `json:"quantity"`
}

type Coupon struct {
	Code string `json:"code"`
}

// Cart is the authoritative-cached cart. The pricing fields hold the last
// snapshot returned by the server for the current line/coupon combination;
// the client never computes totals itself.
type Cart struct {
	ID              string           `json:"_id"`
	Items           []CartLine       `json:"items"`
	Coupon          *Coupon          `json:"coupon,omitempty"`
	CouponCode      string           `json:"couponCode,omitempty"`
	Subtotal        float64          `json:"subtotal"`
	Discount        float64          `json:"discount"`
	AfterDiscount   float64          `json:"afterDiscount"`
	ShippingCost    float64          `json:"shippingCost"`
	Total           float64          `json:"total"`
	ShippingOptions []ShippingOption `json:"shippingOptions"`
}

// ActiveCoupon returns the applied coupon code, empty when none is active.
func (c *Cart) ActiveCoupon() string {
	if c.CouponCode != "" {
		return c.CouponCode
	}
	if c.Coupon != nil {
		return c.Coupon.Code
	}
	return ""
}

// ShippingOption is a closed enumeration returned by the server per cart.
type ShippingOption struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	MinDays int     `json:"minDays,omitempty"`
	MaxDays int     `json:"maxDays,omitempty"`
}

type TotalsLine struct {
	ProductID  string  `json:"productId"`
	VariantID  string  `json:"variantId,omitempty"`
	SKU        string  `json:"sku"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	TotalPrice float64 `json:"totalPrice"`
	ImageURL   string  `json:"imageUrl,omitempty"`
}

// CartTotals is a server-computed pricing quote for a cart and a chosen
// shipping option. Ephemeral: superseded by any later quote for the same cart.
type CartTotals struct {
	Items           []TotalsLine     `json:"items"`
	Subtotal        float64          `json:"subtotal"`
	Discount        float64          `json:"discount"`
	AfterDiscount   float64          `json:"afterDiscount"`
	ShippingCost    float64          `json:"shippingCost"`
	ShippingOptions []ShippingOption `json:"shippingOptions"`
	Total           float64          `json:"total"`
	CouponCode      string           `json:"couponCode,omitempty"`
}
