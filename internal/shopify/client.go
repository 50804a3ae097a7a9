package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mkaralis/storeforge/internal/config"
	"github.com/mkaralis/storeforge/internal/types"
)

// Theme is a storefront theme summary.
type Theme struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Product is the subset of the admin product resource the tool works with.
type Product struct {
	ID             int64          `json:"id,omitempty"`
	Title          string         `json:"title"`
	BodyHTML       string         `json:"body_html,omitempty"`
	Handle         string         `json:"handle,omitempty"`
	Status         string         `json:"status,omitempty"`
	TemplateSuffix string         `json:"template_suffix,omitempty"`
	Images         []ProductImage `json:"images,omitempty"`
	Variants       []Variant      `json:"variants,omitempty"`
}

// ProductImage is an image attached to a product.
type ProductImage struct {
	ID  int64  `json:"id,omitempty"`
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// Variant is a product variant.
type Variant struct {
	ID    int64  `json:"id,omitempty"`
	Price string `json:"price,omitempty"`
	SKU   string `json:"sku,omitempty"`
}

// Client talks to the storefront admin REST API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates an admin API client from configuration. Returns an
// error when the store is not configured.
func NewClient(cfg config.ShopifyConfig, logger *slog.Logger) (*Client, error) {
	if cfg.StoreURL == "" || cfg.AccessToken == "" {
		return nil, types.ErrStoreNotConnected
	}

	storeURL := cfg.StoreURL
	if !strings.HasSuffix(storeURL, ".myshopify.com") {
		storeURL += ".myshopify.com"
	}

	return &Client{
		baseURL: fmt.Sprintf("https://%s/admin/api/%s", storeURL, cfg.APIVersion),
		token:   cfg.AccessToken,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With("component", "shopify_client"),
	}, nil
}

// GetThemes lists the store's themes.
func (c *Client) GetThemes(ctx context.Context) ([]Theme, error) {
	var result struct {
		Themes []Theme `json:"themes"`
	}
	if err := c.do(ctx, http.MethodGet, "/themes.json", nil, &result); err != nil {
		return nil, err
	}
	return result.Themes, nil
}

// GetActiveTheme returns the theme with the "main" role.
func (c *Client) GetActiveTheme(ctx context.Context) (*Theme, error) {
	themes, err := c.GetThemes(ctx)
	if err != nil {
		return nil, err
	}
	for i := range themes {
		if themes[i].Role == "main" {
			return &themes[i], nil
		}
	}
	return nil, &types.StoreError{Operation: "get active theme", Err: types.ErrNoActiveTheme}
}

// Asset is a theme asset summary.
type Asset struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// GetThemeAssets lists the assets of one theme.
func (c *Client) GetThemeAssets(ctx context.Context, themeID int64) ([]Asset, error) {
	var result struct {
		Assets []Asset `json:"assets"`
	}
	path := fmt.Sprintf("/themes/%d/assets.json", themeID)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Assets, nil
}

// CreateAsset writes a JSON asset under key in the active theme.
func (c *Client) CreateAsset(ctx context.Context, key string, content any) error {
	theme, err := c.GetActiveTheme(ctx)
	if err != nil {
		return err
	}

	value, err := json.Marshal(content)
	if err != nil {
		return &types.StoreError{Operation: "create asset", Err: err}
	}

	payload := map[string]any{
		"asset": map[string]string{
			"key":   key,
			"value": string(value),
		},
	}
	path := fmt.Sprintf("/themes/%d/assets.json", theme.ID)
	c.logger.Info("creating theme asset", "key", key, "theme_id", theme.ID)
	return c.do(ctx, http.MethodPut, path, payload, nil)
}

// DeleteAsset removes an asset from the active theme.
func (c *Client) DeleteAsset(ctx context.Context, key string) error {
	theme, err := c.GetActiveTheme(ctx)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/themes/%d/assets.json?asset[key]=%s", theme.ID, url.QueryEscape(key))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// GetProduct fetches one product by id.
func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var result struct {
		Product Product `json:"product"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d.json", id), nil, &result); err != nil {
		return nil, err
	}
	return &result.Product, nil
}

// GetProducts lists products.
func (c *Client) GetProducts(ctx context.Context) ([]Product, error) {
	var result struct {
		Products []Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/products.json", nil, &result); err != nil {
		return nil, err
	}
	return result.Products, nil
}

// CreateProduct creates a product.
func (c *Client) CreateProduct(ctx context.Context, product *Product) (*Product, error) {
	payload := map[string]any{"product": product}
	var result struct {
		Product Product `json:"product"`
	}
	if err := c.do(ctx, http.MethodPost, "/products.json", payload, &result); err != nil {
		return nil, err
	}
	return &result.Product, nil
}

// UpdateProduct applies a partial update to a product.
func (c *Client) UpdateProduct(ctx context.Context, id int64, fields map[string]any) (*Product, error) {
	fields["id"] = id
	payload := map[string]any{"product": fields}
	var result struct {
		Product Product `json:"product"`
	}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/products/%d.json", id), payload, &result); err != nil {
		return nil, err
	}
	return &result.Product, nil
}

// DeleteProduct removes a product and its template asset, when one
// exists. Asset cleanup failures are logged, not fatal; the product
// delete itself decides the outcome.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	product, err := c.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	if product.TemplateSuffix != "" {
		key := fmt.Sprintf("templates/product.%s.json", product.TemplateSuffix)
		if err := c.DeleteAsset(ctx, key); err != nil {
			c.logger.Warn("failed to delete template asset", "key", key, "error", err)
		} else {
			c.logger.Info("deleted template asset", "key", key)
		}
	}

	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/products/%d.json", id), nil, nil)
}

// DuplicateProduct copies a product with its variants and images. When
// the original carries a template suffix, the template asset is copied
// under a fresh suffix and assigned to the duplicate.
func (c *Client) DuplicateProduct(ctx context.Context, id int64, newSuffix string) (*Product, error) {
	original, err := c.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	clone := &Product{
		Title:    original.Title + " (Copy)",
		BodyHTML: original.BodyHTML,
		Status:   "draft",
		Images:   original.Images,
		Variants: original.Variants,
	}
	for i := range clone.Images {
		clone.Images[i].ID = 0
	}
	for i := range clone.Variants {
		clone.Variants[i].ID = 0
	}

	created, err := c.CreateProduct(ctx, clone)
	if err != nil {
		return nil, err
	}

	if original.TemplateSuffix != "" {
		if err := c.copyTemplateAsset(ctx, original.TemplateSuffix, newSuffix); err != nil {
			c.logger.Warn("failed to copy template asset", "error", err)
			return created, nil
		}
		return c.UpdateProduct(ctx, created.ID, map[string]any{"template_suffix": newSuffix})
	}
	return created, nil
}

func (c *Client) copyTemplateAsset(ctx context.Context, fromSuffix, toSuffix string) error {
	theme, err := c.GetActiveTheme(ctx)
	if err != nil {
		return err
	}

	fromKey := fmt.Sprintf("templates/product.%s.json", fromSuffix)
	path := fmt.Sprintf("/themes/%d/assets.json?asset[key]=%s", theme.ID, url.QueryEscape(fromKey))

	var result struct {
		Asset struct {
			Value string `json:"value"`
		} `json:"asset"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return err
	}

	payload := map[string]any{
		"asset": map[string]string{
			"key":   fmt.Sprintf("templates/product.%s.json", toSuffix),
			"value": result.Asset.Value,
		},
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/themes/%d/assets.json", theme.ID), payload, nil)
}

// do runs one admin API request, mapping error statuses onto StoreError
// with operator-friendly messages.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return &types.StoreError{Operation: method + " " + path, Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &types.StoreError{Operation: method + " " + path, Err: err}
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &types.StoreError{Operation: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &types.StoreError{
			Operation:  method + " " + path,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", storeErrorMessage(resp.StatusCode, string(respBody))),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &types.StoreError{Operation: method + " " + path, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

func storeErrorMessage(status int, body string) string {
	switch status {
	case http.StatusUnauthorized:
		return "invalid access token, check the store credentials"
	case http.StatusNotFound:
		return "resource not found"
	case http.StatusUnprocessableEntity:
		return "invalid data: " + body
	case http.StatusTooManyRequests:
		return "rate limit exceeded, try again later"
	default:
		return fmt.Sprintf("unexpected response: %s", body)
	}
}
