package commands

import (
	"context"
	"strconv"
	"strings"

	"github.com/iamwavecut/tool"

	sk "github.com/iamwavecut/shopkeeper/internal/errors"
	"github.com/iamwavecut/shopkeeper/internal/i18n"
)

func (reg *registry) cartCommand() *Command {
	return &Command{
		Name:        "cart",
		Description: i18n.Get("Manages the shopping cart", reg.lang),
		Usage:       "cart <add/remove/list/clear/checkout> [parameters]",
		Category:    CategorySales,
		Handler:     reg.cart,
	}
}

func (reg *registry) cart(ctx context.Context, req *Request) error {
	user := req.Msg.SenderID
	action, args := req.Sub()
	switch action {
	case "add":
		return reg.cartAdd(ctx, req, args)
	case "remove":
		if len(args) != 1 {
			return reg.usage(ctx, req, i18n.Get("Usage: {{ .prefix }}cart remove <product_id>", reg.lang))
		}
		if !reg.Sales.RemoveFromCart(user, args[0]) {
			return sk.UserInput(i18n.Get("Product not found.", reg.lang))
		}
		return req.Reply(ctx, i18n.Get("✅ Product removed from cart!", reg.lang))
	case "list":
		return reg.cartList(ctx, req)
	case "clear":
		reg.Sales.ClearCart(user)
		return req.Reply(ctx, i18n.Get("🛒 Cart cleared!", reg.lang))
	case "checkout":
		return reg.cartCheckout(ctx, req)
	}
	return reg.usage(ctx, req, i18n.Get("Usage: {{ .prefix }}cart <add/remove/list/clear/checkout> [parameters]", reg.lang))
}

func (reg *registry) cartAdd(ctx context.Context, req *Request, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return reg.usage(ctx, req, i18n.Get("Usage: {{ .prefix }}cart add <product_id> [quantity]", reg.lang))
	}
	qty := 1
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return sk.UserInput(i18n.Get("Quantity must be at least 1.", reg.lang))
		}
		qty = n
	}
	product, total, err := reg.Sales.AddToCart(ctx, req.Msg.SenderID, args[0], qty)
	if err != nil {
		return err
	}
	return req.Reply(ctx, tool.ExecTemplate(i18n.Get("✅ {{ .name }} added to cart ({{ .qty }} in cart).", reg.lang), map[string]any{
		"name": product.Name,
		"qty":  total,
	}))
}

func (reg *registry) cartList(ctx context.Context, req *Request) error {
	summary, err := reg.Sales.Cart(ctx, req.Msg.SenderID)
	if err != nil {
		return err
	}
	if len(summary.Lines) == 0 {
		return req.Reply(ctx, i18n.Get("🛒 Your cart is empty!", reg.lang))
	}

	var sb strings.Builder
	sb.WriteString(i18n.Get("🛒 *Your cart*", reg.lang))
	sb.WriteString("\n\n")
	for _, line := range summary.Lines {
		sb.WriteString(tool.ExecTemplate(i18n.Get("*{{ .name }}*\nQuantity: {{ .qty }}\nPrice: {{ .price }}\nSubtotal: {{ .total }}", reg.lang), map[string]any{
			"name":  line.Product.Name,
			"qty":   line.Quantity,
			"price": reg.Sales.Money(line.Product.Price),
			"total": reg.Sales.Money(line.Total),
		}))
		sb.WriteString("\n\n")
	}
	sb.WriteString(tool.ExecTemplate(i18n.Get("*Total: {{ .total }}*", reg.lang), map[string]any{
		"total": reg.Sales.Money(summary.Subtotal),
	}))
	return req.Reply(ctx, sb.String())
}

func (reg *registry) cartCheckout(ctx context.Context, req *Request) error {
	order, err := reg.Sales.Checkout(ctx, req.Msg.SenderID)
	if err != nil {
		return err
	}
	return req.Reply(ctx, tool.ExecTemplate(i18n.Get("🧾 *Order {{ .id }}*\n\nSubtotal: {{ .subtotal }}\nTax: {{ .tax }}\nDelivery: {{ .delivery }}\n*Total: {{ .total }}*\n\nStatus: {{ .status }}", reg.lang), map[string]any{
		"id":       order.ID,
		"subtotal": reg.Sales.Money(order.Subtotal),
		"tax":      reg.Sales.Money(order.Tax),
		"delivery": reg.Sales.Money(order.DeliveryFee),
		"total":    reg.Sales.Money(order.Total),
		"status":   order.Status,
	}))
}
