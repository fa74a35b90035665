// commerce-cli drives a storefront session from the terminal: cart edits,
// coupons, pricing quotes, checkout and order tracking against a commerce
// backend. Client state (session handle, auth token) persists across runs in
// a local bolt file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/revive-shop/commerce-core/internal/api"
	"github.com/revive-shop/commerce-core/internal/cart"
	"github.com/revive-shop/commerce-core/internal/checkout"
	"github.com/revive-shop/commerce-core/internal/domain"
	"github.com/revive-shop/commerce-core/internal/orders"
	"github.com/revive-shop/commerce-core/internal/payment"
	"github.com/revive-shop/commerce-core/internal/session"
	"github.com/revive-shop/commerce-core/internal/storage"
)

type Config struct {
	APIBaseURL string
	StatePath  string
	Timeout    time.Duration
}

func loadConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		APIBaseURL: getEnv("COMMERCE_API_URL", "http://localhost:8090"),
		StatePath:  getEnv("COMMERCE_STATE_PATH", filepath.Join(home, ".commerce-core", "state.db")),
		Timeout:    30 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

type app struct {
	client  *api.Client
	tokens  *session.TokenProvider
	creds   func(ctx context.Context) api.Credentials
	cart    *cart.Store
	machine *checkout.Machine
}

func main() {
	log.SetFlags(0)
	cfg := loadConfig()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.StatePath), 0o755); err != nil {
		log.Fatalf("state directory: %v", err)
	}
	store, err := storage.NewBoltStore(cfg.StatePath)
	if err != nil {
		// degrade to an in-process session; cart continuity is lost on exit
		log.Printf("state file unavailable (%v), using in-memory session", err)
		store = nil
	}

	var backing storage.Store = storage.NewMemoryStore()
	if store != nil {
		backing = store
		defer store.Close()
	}

	client, err := api.New(api.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.Timeout})
	if err != nil {
		log.Fatalf("api client: %v", err)
	}

	sessions := session.NewManager(backing)
	tokens := session.NewTokenProvider(backing)
	creds := func(ctx context.Context) api.Credentials {
		return api.Credentials{
			SessionID: sessions.GetOrCreate(ctx),
			Token:     tokens.Get(ctx),
		}
	}

	a := &app{
		client:  client,
		tokens:  tokens,
		creds:   creds,
		cart:    cart.NewStore(client, creds),
		machine: checkout.NewMachine(client, creds),
	}

	ctx := context.Background()
	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("%v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: commerce-cli <command> [args]

  cart show
  cart add <productID> <quantity> [variantID]
  cart update <index> <quantity>
  cart remove <index>
  coupon apply <code>
  coupon remove
  totals [shippingOptionID]
  checkout -first .. -last .. -street .. -city .. -postal .. -country .. -phone .. -email .. [-shipping id] [-notes ..] [-provider stripe|coinbase|twint]
  orders list
  orders show <orderNumber> [email]
  track <orderNumber> <email>
  login <token>
  logout`)
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "cart":
		return a.runCart(ctx, args)
	case "coupon":
		return a.runCoupon(ctx, args)
	case "totals":
		return a.runTotals(ctx, args)
	case "checkout":
		return a.runCheckout(ctx, args)
	case "orders":
		return a.runOrders(ctx, args)
	case "track":
		if len(args) != 2 {
			return fmt.Errorf("track needs an order number and an email")
		}
		detail, err := a.client.TrackOrder(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		printOrderDetail(detail)
		return nil
	case "login":
		if len(args) != 1 {
			return fmt.Errorf("login needs a token")
		}
		return a.tokens.Set(ctx, args[0])
	case "logout":
		return a.tokens.Clear(ctx)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) runCart(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("cart needs a subcommand")
	}
	switch args[0] {
	case "show":
		c, err := a.cart.GetOrCreate(ctx)
		if err != nil {
			return err
		}
		printCart(c)
		return nil
	case "add":
		if len(args) < 3 {
			return fmt.Errorf("cart add needs a product id and a quantity")
		}
		qty, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("quantity must be a number")
		}
		variant := ""
		if len(args) > 3 {
			variant = args[3]
		}
		c, err := a.cart.AddItem(ctx, args[1], qty, variant)
		if err != nil {
			return err
		}
		printCart(c)
		return nil
	case "update":
		if len(args) != 3 {
			return fmt.Errorf("cart update needs an index and a quantity")
		}
		index, err1 := strconv.Atoi(args[1])
		qty, err2 := strconv.Atoi(args[2])
		if err1 != nil || err2 != nil {
			return fmt.Errorf("index and quantity must be numbers")
		}
		c, err := a.cart.UpdateQuantity(ctx, index, qty)
		if err != nil {
			return err
		}
		printCart(c)
		return nil
	case "remove":
		if len(args) != 2 {
			return fmt.Errorf("cart remove needs an index")
		}
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("index must be a number")
		}
		c, err := a.cart.RemoveItem(ctx, index)
		if err != nil {
			return err
		}
		printCart(c)
		return nil
	default:
		return fmt.Errorf("unknown cart subcommand %q", args[0])
	}
}

func (a *app) runCoupon(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("coupon needs a subcommand")
	}
	switch args[0] {
	case "apply":
		if len(args) != 2 {
			return fmt.Errorf("coupon apply needs a code")
		}
		c, err := a.cart.ApplyCoupon(ctx, args[1])
		if err != nil {
			return err
		}
		printCart(c)
		return nil
	case "remove":
		c, err := a.cart.RemoveCoupon(ctx)
		if err != nil {
			return err
		}
		printCart(c)
		return nil
	default:
		return fmt.Errorf("unknown coupon subcommand %q", args[0])
	}
}

func (a *app) runTotals(ctx context.Context, args []string) error {
	c, err := a.cart.GetOrCreate(ctx)
	if err != nil {
		return err
	}
	shippingOptionID := ""
	if len(args) > 0 {
		shippingOptionID = args[0]
	}
	totals, err := a.client.CartTotals(ctx, a.creds(ctx), c.ID, shippingOptionID)
	if err != nil {
		return err
	}
	fmt.Printf("subtotal      %8.2f\n", totals.Subtotal)
	if totals.Discount > 0 {
		fmt.Printf("discount      %8.2f  (%s)\n", -totals.Discount, totals.CouponCode)
	}
	fmt.Printf("shipping      %8.2f\n", totals.ShippingCost)
	fmt.Printf("total         %8.2f\n", totals.Total)
	for _, opt := range totals.ShippingOptions {
		fmt.Printf("  option %-10s %6.2f  %d-%d days\n", opt.ID, opt.Price, opt.MinDays, opt.MaxDays)
	}
	return nil
}

func (a *app) runCheckout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ExitOnError)
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	street := fs.String("street", "", "street and number")
	city := fs.String("city", "", "city")
	postal := fs.String("postal", "", "postal code")
	country := fs.String("country", "", "country code")
	phone := fs.String("phone", "", "phone number")
	email := fs.String("email", "", "confirmation email")
	shipping := fs.String("shipping", "", "shipping option id")
	notes := fs.String("notes", "", "order notes")
	provider := fs.String("provider", "twint", "payment provider")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := a.cart.GetOrCreate(ctx)
	if err != nil {
		return err
	}

	address := domain.Address{
		FirstName:  *first,
		LastName:   *last,
		Street:     *street,
		City:       *city,
		PostalCode: *postal,
		Country:    *country,
		Phone:      *phone,
	}
	if err := a.machine.SetAddress(address, *email); err != nil {
		return err
	}
	a.machine.SetNotes(*notes)

	order, err := a.machine.CreateOrder(ctx, c.ID, *shipping)
	if err != nil {
		return err
	}
	fmt.Printf("order %s created, total %.2f %s\n", order.OrderNumber, order.Total, order.Currency)

	p := domain.Provider(*provider)
	if !p.Valid() {
		return fmt.Errorf("unknown payment provider %q", *provider)
	}
	sess, err := a.machine.InitiatePayment(ctx, p)
	if err != nil {
		return err
	}

	switch p {
	case domain.ProviderStripe:
		fmt.Printf("confirm the card payment with client secret %s\n", sess.ClientSecret)
	case domain.ProviderCoinbase:
		fmt.Printf("complete the payment at %s\n", sess.HostedURL)
	case domain.ProviderTwint:
		fmt.Printf("approve the payment in your app: %s\n", sess.HostedURL)
		adapter := payment.NewAsyncPollAdapter(a.client, a.creds, payment.DefaultPollInterval)
		result, err := adapter.Complete(ctx, sess, order)
		if err != nil {
			return err
		}
		if result.Paid {
			if err := a.machine.Complete(); err != nil {
				return err
			}
			fmt.Printf("order %s paid\n", order.OrderNumber)
		}
	}
	return nil
}

func (a *app) runOrders(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("orders needs a subcommand")
	}
	switch args[0] {
	case "list":
		list, err := a.client.ListOrders(ctx, a.creds(ctx), 1, 20)
		if err != nil {
			return err
		}
		for _, o := range list {
			fmt.Printf("%-12s %-10s %8.2f %s\n", o.OrderNumber, o.Status, o.Total, o.Currency)
		}
		return nil
	case "show":
		if len(args) < 2 {
			return fmt.Errorf("orders show needs an order number")
		}
		guestEmail := ""
		if len(args) > 2 {
			guestEmail = args[2]
		}
		detail, err := a.client.GetOrder(ctx, a.creds(ctx), args[1], guestEmail)
		if err != nil {
			return err
		}
		printOrderDetail(detail)
		return nil
	default:
		return fmt.Errorf("unknown orders subcommand %q", args[0])
	}
}

func printCart(c *domain.Cart) {
	for i, line := range c.Items {
		fmt.Printf("%2d  %-30s x%-3d %8.2f\n", i, line.Product.Name, line.Quantity,
			line.Product.Price*float64(line.Quantity))
	}
	if code := c.ActiveCoupon(); code != "" {
		fmt.Printf("    coupon %s  -%.2f\n", code, c.Discount)
	}
	fmt.Printf("    total %.2f\n", c.Total)
}

func printOrderDetail(detail *domain.OrderDetail) {
	fmt.Printf("%s  %s  %.2f %s\n", detail.OrderNumber, detail.Status, detail.Total, detail.Currency)
	for _, step := range orders.Reconstruct(detail) {
		marker := " "
		if step.Current {
			marker = "*"
		}
		fmt.Printf(" %s %-12s %s %s\n", marker, step.Status, step.At.Format("2006-01-02 15:04"), step.Note)
	}
	for _, sh := range detail.Shipments {
		fmt.Printf("shipment %s (%s) %s\n", sh.TrackingNumber, sh.Carrier, sh.Status)
		for _, ev := range orders.RecentTrackingEvents(&sh) {
			fmt.Printf("   %s  %-20s %s\n", ev.Date.Format("2006-01-02 15:04"), ev.Location, ev.Description)
		}
	}
	for _, ret := range detail.Returns {
		fmt.Printf("return %s  %s  %s\n", ret.ReturnNumber, ret.Status, ret.Reason)
	}
}
