package commands

import (
	"context"
	"strconv"
	"strings"

	"github.com/iamwavecut/tool"

	"github.com/iamwavecut/shopkeeper/internal/commerce"
	sk "github.com/iamwavecut/shopkeeper/internal/errors"
	"github.com/iamwavecut/shopkeeper/internal/i18n"
	"github.com/iamwavecut/shopkeeper/internal/policy/permissions"
)

func (reg *registry) productCommand() *Command {
	return &Command{
		Name:         "product",
		Description:  i18n.Get("Manages products", reg.lang),
		Usage:        "product <add/list/update/delete> [parameters]",
		Category:     CategorySales,
		Requirements: permissions.Requirements{RequiresAdmin: true},
		Handler:      reg.product,
	}
}

func (reg *registry) product(ctx context.Context, req *Request) error {
	action, args := req.Sub()
	switch action {
	case "add":
		return reg.productAdd(ctx, req, args)
	case "list":
		return reg.productList(ctx, req, args)
	case "update":
		return reg.productUpdate(ctx, req, args)
	case "delete":
		return reg.productDelete(ctx, req, args)
	}
	return reg.usage(ctx, req, i18n.Get("Usage: {{ .prefix }}product <add/list/update/delete> [parameters]", reg.lang))
}

// splitDetails splits "description | category".
func splitDetails(args []string) (string, string) {
	description, category, _ := strings.Cut(strings.Join(args, " "), "|")
	return strings.TrimSpace(description), strings.TrimSpace(category)
}

func (reg *registry) productAdd(ctx context.Context, req *Request, args []string) error {
	if len(args) < 3 {
		return reg.usage(ctx, req, i18n.Get("Usage: {{ .prefix }}product add <name> <price> <stock> [description | category]", reg.lang))
	}
	price, err := commerce.ParseAmount(args[1])
	if err != nil {
		return sk.UserInput(i18n.Get("Price must be greater than zero.", reg.lang))
	}
	stock, err := strconv.Atoi(args[2])
	if err != nil {
		return sk.UserInput(i18n.Get("Stock cannot be negative.", reg.lang))
	}
	description, category := splitDetails(args[3:])
	product, err := reg.Sales.AddProduct(ctx, args[0], price, stock, description, category)
	if err != nil {
		return err
	}
	return req.Reply(ctx, tool.ExecTemplate(i18n.Get("✅ Product added! ID: {{ .id }}", reg.lang), map[string]any{
		"id": product.ID,
	}))
}

func (reg *registry) productList(ctx context.Context, req *Request, args []string) error {
	category := ""
	if len(args) > 0 {
		category = args[0]
	}
	products, err := reg.Sales.ListProducts(ctx, category)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return req.Reply(ctx, i18n.Get("❌ No products found.", reg.lang))
	}

	var sb strings.Builder
	sb.WriteString(i18n.Get("📦 *Product list*", reg.lang))
	sb.WriteString("\n\n")
	for _, p := range products {
		sb.WriteString(tool.ExecTemplate(i18n.Get("*ID:* {{ .id }}\n*Name:* {{ .name }}\n*Price:* {{ .price }}\n*Stock:* {{ .stock }}", reg.lang), map[string]any{
			"id":    p.ID,
			"name":  p.Name,
			"price": reg.Sales.Money(p.Price),
			"stock": p.Stock,
		}))
		sb.WriteString("\n")
		if p.Description != "" {
			sb.WriteString(i18n.Get("*Description:*", reg.lang) + " " + p.Description + "\n")
		}
		if p.Category != "" {
			sb.WriteString(i18n.Get("*Category:*", reg.lang) + " " + p.Category + "\n")
		}
		sb.WriteString("\n")
	}
	return req.Reply(ctx, strings.TrimSpace(sb.String()))
}

func (reg *registry) productUpdate(ctx context.Context, req *Request, args []string) error {
	if len(args) < 3 {
		return reg.usage(ctx, req, i18n.Get("Usage: {{ .prefix }}product update <id> <field> <value>", reg.lang))
	}
	product, err := reg.Sales.UpdateProduct(ctx, args[0], args[1], strings.Join(args[2:], " "))
	if err != nil {
		return err
	}
	return req.Reply(ctx, tool.ExecTemplate(i18n.Get("✅ Product {{ .name }} updated!", reg.lang), map[string]any{
		"name": product.Name,
	}))
}

func (reg *registry) productDelete(ctx context.Context, req *Request, args []string) error {
	if len(args) != 1 {
		return reg.usage(ctx, req, i18n.Get("Usage: {{ .prefix }}product delete <id>", reg.lang))
	}
	if err := reg.Sales.DeleteProduct(ctx, args[0]); err != nil {
		return err
	}
	return req.Reply(ctx, i18n.Get("✅ Product deleted!", reg.lang))
}

// usage renders a translated usage template with the configured prefix.
func (reg *registry) usage(ctx context.Context, req *Request, template string) error {
	return req.Reply(ctx, tool.ExecTemplate(template, map[string]any{
		"prefix": reg.Config.Prefix,
	}))
}
