// Package catalogsync pushes the product list to the external commerce
// catalog. Sync is best effort; ordering never depends on it.
package catalogsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/smallbiznis/ordena/internal/config"
	productdomain "github.com/smallbiznis/ordena/internal/product/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("catalog_sync_not_configured")

type Importer interface {
	Import(ctx context.Context, catalogID string, products []productdomain.Product) error
}

type wireItem struct {
	RetailerID   string `json:"retailer_id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Price        int64  `json:"price"`
	Currency     string `json:"currency"`
	Availability string `json:"availability"`
}

type httpImporter struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

type ImporterParam struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

func NewImporter(p ImporterParam) Importer {
	return &httpImporter{
		baseURL: p.Config.Catalog.BaseURL,
		apiKey:  p.Config.Catalog.APIKey,
		http:    &http.Client{Timeout: 20 * time.Second},
		log:     p.Log.Named("catalogsync"),
	}
}

func (i *httpImporter) Import(ctx context.Context, catalogID string, products []productdomain.Product) error {
	if i.baseURL == "" || catalogID == "" {
		return ErrNotConfigured
	}

	items := make([]wireItem, 0, len(products))
	for _, p := range products {
		availability := "in stock"
		if !p.Available {
			availability = "out of stock"
		}
		items = append(items, wireItem{
			RetailerID:   p.RetailerID,
			Name:         p.Name,
			Description:  p.Description,
			Price:        p.Price,
			Currency:     "ARS",
			Availability: availability,
		})
	}

	body, err := json.Marshal(map[string]interface{}{"items": items})
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	url := fmt.Sprintf("%s/catalogs/%s/items/batch", i.baseURL, catalogID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+i.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("catalog status %d: %s", resp.StatusCode, string(respBody))
	}

	i.log.Info("catalog synced",
		zap.String("catalog_id", catalogID),
		zap.Int("items", len(items)),
	)
	return nil
}

var Module = fx.Module("catalogsync",
	fx.Provide(NewImporter),
)
