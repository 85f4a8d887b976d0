package commerce

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/iamwavecut/tool"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/shopspring/decimal"

	"github.com/iamwavecut/shopkeeper/internal/config"
	"github.com/iamwavecut/shopkeeper/internal/db"
	sk "github.com/iamwavecut/shopkeeper/internal/errors"
	"github.com/iamwavecut/shopkeeper/internal/i18n"
)

type (
	salesStore interface {
		AddProduct(ctx context.Context, product *db.Product) error
		GetProduct(ctx context.Context, id string) (*db.Product, error)
		ListProducts(ctx context.Context, category string, inStockOnly bool) ([]*db.Product, error)
		UpdateProduct(ctx context.Context, id string, update db.ProductUpdate) (*db.Product, error)
		DeleteProduct(ctx context.Context, id string) (bool, error)
		CreateOrder(ctx context.Context, order *db.Order) error
	}

	// cart maps product IDs to quantities. Values stored in the map are never mutated.
	cart map[string]int

	CartLine struct {
		Product  *db.Product
		Quantity int
		Total    decimal.Decimal
	}

	CartSummary struct {
		Lines    []CartLine
		Subtotal decimal.Decimal
	}

	Sales struct {
		store salesStore
		cfg   config.Sales
		lang  string
		carts *xsync.MapOf[string, cart]
		newID func() string
	}
)

var productFields = []string{"name", "price", "stock", "description", "category"}

func NewSales(store salesStore, cfg config.Sales, lang string) *Sales {
	return &Sales{
		store: store,
		cfg:   cfg,
		lang:  lang,
		carts: xsync.NewMapOf[string, cart](),
		newID: newID,
	}
}

func (s *Sales) Currency() string {
	return s.cfg.Currency
}

func (s *Sales) Money(amount decimal.Decimal) string {
	return FormatMoney(amount, s.cfg.Currency, s.lang)
}

func (s *Sales) AddProduct(ctx context.Context, name string, price decimal.Decimal, stock int, description, category string) (*db.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, sk.UserInput(i18n.Get("Product name is required.", s.lang))
	}
	if !price.IsPositive() {
		return nil, sk.UserInput(i18n.Get("Price must be greater than zero.", s.lang))
	}
	if stock < 0 {
		return nil, sk.UserInput(i18n.Get("Stock cannot be negative.", s.lang))
	}
	product := &db.Product{
		ID:          s.newID(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Price:       price.Round(2),
		Stock:       stock,
		Category:    strings.ToLower(strings.TrimSpace(category)),
	}
	if err := s.store.AddProduct(ctx, product); err != nil {
		return nil, sk.Collaborator("add product", err)
	}
	return product, nil
}

func (s *Sales) ListProducts(ctx context.Context, category string) ([]*db.Product, error) {
	products, err := s.store.ListProducts(ctx, strings.ToLower(strings.TrimSpace(category)), true)
	if err != nil {
		return nil, sk.Collaborator("list products", err)
	}
	return products, nil
}

// UpdateProduct changes a single field given as text.
func (s *Sales) UpdateProduct(ctx context.Context, id, field, value string) (*db.Product, error) {
	field = strings.ToLower(field)
	if !tool.In(field, productFields...) {
		return nil, sk.UserInput(tool.ExecTemplate(i18n.Get("Invalid field. Use one of: {{ .fields }}", s.lang), map[string]any{
			"fields": strings.Join(productFields, ", "),
		}))
	}

	var update db.ProductUpdate
	switch field {
	case "name":
		if strings.TrimSpace(value) == "" {
			return nil, sk.UserInput(i18n.Get("Product name is required.", s.lang))
		}
		update.Name = &value
	case "description":
		update.Description = &value
	case "category":
		category := strings.ToLower(value)
		update.Category = &category
	case "price":
		price, err := ParseAmount(value)
		if err != nil || !price.IsPositive() {
			return nil, sk.UserInput(i18n.Get("Price must be greater than zero.", s.lang))
		}
		price = price.Round(2)
		update.Price = &price
	case "stock":
		stock, err := strconv.Atoi(value)
		if err != nil || stock < 0 {
			return nil, sk.UserInput(i18n.Get("Stock cannot be negative.", s.lang))
		}
		update.Stock = &stock
	}

	product, err := s.store.UpdateProduct(ctx, id, update)
	if err != nil {
		return nil, sk.Collaborator("update product", err)
	}
	if product == nil {
		return nil, sk.UserInput(i18n.Get("Product not found.", s.lang))
	}
	return product, nil
}

func (s *Sales) DeleteProduct(ctx context.Context, id string) error {
	deleted, err := s.store.DeleteProduct(ctx, id)
	if err != nil {
		return sk.Collaborator("delete product", err)
	}
	if !deleted {
		return sk.UserInput(i18n.Get("Product not found.", s.lang))
	}
	return nil
}

// AddToCart adds qty units and returns the product and the new quantity in the cart.
func (s *Sales) AddToCart(ctx context.Context, userID, productID string, qty int) (*db.Product, int, error) {
	if qty < 1 {
		return nil, 0, sk.UserInput(i18n.Get("Quantity must be at least 1.", s.lang))
	}
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, 0, sk.Collaborator("get product", err)
	}
	if product == nil {
		return nil, 0, sk.UserInput(i18n.Get("Product not found.", s.lang))
	}

	var (
		total     int
		overStock bool
	)
	s.carts.Compute(userID, func(old cart, _ bool) (cart, bool) {
		total = old[productID] + qty
		if total > product.Stock {
			overStock = true
			return old, len(old) == 0
		}
		next := make(cart, len(old)+1)
		for k, v := range old {
			next[k] = v
		}
		next[productID] = total
		return next, false
	})
	if overStock {
		return nil, 0, s.insufficientStock(product)
	}
	return product, total, nil
}

func (s *Sales) RemoveFromCart(userID, productID string) bool {
	var removed bool
	s.carts.Compute(userID, func(old cart, _ bool) (cart, bool) {
		if _, ok := old[productID]; !ok {
			return old, len(old) == 0
		}
		removed = true
		next := make(cart, len(old))
		for k, v := range old {
			if k != productID {
				next[k] = v
			}
		}
		return next, len(next) == 0
	})
	return removed
}

func (s *Sales) ClearCart(userID string) {
	s.carts.Delete(userID)
}

// Cart prices the cart with current product data; vanished products are skipped.
func (s *Sales) Cart(ctx context.Context, userID string) (*CartSummary, error) {
	items, _ := s.carts.Load(userID)
	summary := &CartSummary{Subtotal: decimal.Zero}
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		product, err := s.store.GetProduct(ctx, id)
		if err != nil {
			return nil, sk.Collaborator("get product", err)
		}
		if product == nil {
			continue
		}
		qty := items[id]
		line := CartLine{
			Product:  product,
			Quantity: qty,
			Total:    product.Price.Mul(decimal.NewFromInt(int64(qty))),
		}
		summary.Lines = append(summary.Lines, line)
		summary.Subtotal = summary.Subtotal.Add(line.Total)
	}
	return summary, nil
}

// Checkout turns the cart into an order. Stock is taken atomically by the store.
func (s *Sales) Checkout(ctx context.Context, userID string) (*db.Order, error) {
	summary, err := s.Cart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(summary.Lines) == 0 {
		return nil, sk.UserInput(i18n.Get("Your cart is empty.", s.lang))
	}

	order := &db.Order{
		ID:     s.newID(),
		UserID: userID,
		Status: db.OrderStatusPending,
	}
	for _, line := range summary.Lines {
		if line.Quantity > line.Product.Stock {
			return nil, s.insufficientStock(line.Product)
		}
		order.Items = append(order.Items, db.OrderItem{
			ProductID: line.Product.ID,
			Quantity:  line.Quantity,
			Price:     line.Product.Price,
		})
	}

	minValue := decimal.NewFromFloat(s.cfg.MinOrderValue)
	maxValue := decimal.NewFromFloat(s.cfg.MaxOrderValue)
	if summary.Subtotal.LessThan(minValue) {
		return nil, sk.UserInput(tool.ExecTemplate(i18n.Get("Minimum order value is {{ .amount }}.", s.lang), map[string]any{
			"amount": s.Money(minValue),
		}))
	}
	if summary.Subtotal.GreaterThan(maxValue) {
		return nil, sk.UserInput(tool.ExecTemplate(i18n.Get("Maximum order value is {{ .amount }}.", s.lang), map[string]any{
			"amount": s.Money(maxValue),
		}))
	}

	order.Subtotal = summary.Subtotal
	order.Tax = summary.Subtotal.Mul(decimal.NewFromFloat(s.cfg.TaxRate)).Round(2)
	order.DeliveryFee = decimal.NewFromFloat(s.cfg.DeliveryFee).Round(2)
	order.Total = order.Subtotal.Add(order.Tax).Add(order.DeliveryFee)

	if err := s.store.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, db.ErrInsufficientStock) {
			return nil, sk.UserInput(i18n.Get("Some products are no longer available in the requested quantity.", s.lang))
		}
		return nil, sk.Collaborator("create order", err)
	}
	s.ClearCart(userID)
	return order, nil
}

func (s *Sales) insufficientStock(product *db.Product) error {
	return sk.UserInput(tool.ExecTemplate(i18n.Get("Insufficient stock for {{ .name }}. Available: {{ .stock }}", s.lang), map[string]any{
		"name":  product.Name,
		"stock": product.Stock,
	}))
}
