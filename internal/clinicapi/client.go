// Package clinicapi is the HTTP client for the clinic API. It converts wire
// payloads into catalog and composer types at the boundary.
package clinicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ariefcatur/clinic-orders/internal/catalog"
	"github.com/ariefcatur/clinic-orders/internal/composer"
	"github.com/ariefcatur/clinic-orders/internal/orders"
	"github.com/ariefcatur/clinic-orders/internal/session"
)

// APIError is any non-2xx answer from the API.
type APIError struct {
	Status   int
	Code     string
	Message  string
	Problems []string
	Details  []orders.StockRejectedDetail
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clinic api: %d %s: %s", e.Status, e.Code, e.Message)
}

var ErrUnauthorized = errors.New("clinic api: unauthorized")

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

type Client struct {
	base  string
	http  *http.Client
	token string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithToken(token string) Option { return func(c *Client) { c.token = token } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e orders.ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&e)
		return &APIError{
			Status: resp.StatusCode, Code: e.Error, Message: e.Message,
			Problems: e.Problems, Details: e.Details,
		}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*session.Session, error) {
	var resp orders.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", orders.LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	s, err := session.New(resp.Token, session.Role(resp.Role), session.User{
		ID: resp.User.ID, Name: resp.User.Name, Email: resp.User.Email,
	})
	if err != nil {
		return nil, err
	}
	c.token = resp.Token
	return s, nil
}

// ListMedicines implements catalog.Source.
func (c *Client) ListMedicines(ctx context.Context) ([]catalog.Medicine, error) {
	var ms []orders.Medicine
	if err := c.do(ctx, http.MethodGet, "/medicines", nil, &ms); err != nil {
		return nil, err
	}
	out := make([]catalog.Medicine, 0, len(ms))
	for _, m := range ms {
		out = append(out, catalog.Medicine{
			ID: m.ID, Name: m.Name, UnitPrice: m.Price, Stock: m.Stock, LowStockThreshold: m.LowStockThreshold,
		})
	}
	return out, nil
}

// ListServices implements catalog.Source.
func (c *Client) ListServices(ctx context.Context) ([]catalog.Service, error) {
	var ss []orders.Service
	if err := c.do(ctx, http.MethodGet, "/services", nil, &ss); err != nil {
		return nil, err
	}
	out := make([]catalog.Service, 0, len(ss))
	for _, s := range ss {
		svc := catalog.Service{ID: s.ID, Name: s.Name, Variants: make([]catalog.ServiceVariant, 0, len(s.Variants))}
		for _, v := range s.Variants {
			svc.Variants = append(svc.Variants, catalog.ServiceVariant{Label: v.Label, Count: v.Count, Price: v.Price})
		}
		out = append(out, svc)
	}
	return out, nil
}

// Commit implements composer.Sink. Validation and stock rejections come back
// as *composer.SubmissionConflict; everything else is left for the composer
// to treat as a transport failure.
func (c *Client) Commit(ctx context.Context, s composer.Submission) (composer.Commit, error) {
	req := orders.AdministrationRequest{SubmissionID: s.ID, PatientName: s.PatientName}
	for _, l := range s.Lines {
		req.Items = append(req.Items, orders.AdministrationItem{
			Kind:     orders.ItemKind(l.Kind),
			ItemID:   l.ItemID,
			Variant:  l.Variant,
			Quantity: l.Quantity,
			Price:    l.UnitPrice,
		})
	}

	var res orders.AdministrationResult
	err := c.do(ctx, http.MethodPost, "/administrations/bulk", req, &res)
	var ae *APIError
	if errors.As(err, &ae) && (ae.Status == http.StatusConflict || ae.Status == http.StatusBadRequest) {
		return composer.Commit{}, toConflict(ae)
	}
	if err != nil {
		return composer.Commit{}, err
	}
	return composer.Commit{OrderID: res.OrderID, Total: res.Total}, nil
}

func toConflict(e *APIError) *composer.SubmissionConflict {
	reason := e.Message
	if len(e.Problems) > 0 {
		reason = strings.Join(e.Problems, "; ")
	}
	sc := &composer.SubmissionConflict{Reason: reason}
	for _, d := range e.Details {
		sc.Shortages = append(sc.Shortages, composer.Shortage{
			ItemID: d.MedicineID, Required: d.Required, Available: d.Available,
		})
	}
	return sc
}

func (c *Client) MedicinesForDelivery(ctx context.Context) ([]orders.Medicine, error) {
	var ms []orders.Medicine
	err := c.do(ctx, http.MethodGet, "/medicines/for-delivery", nil, &ms)
	return ms, err
}

func (c *Client) Restock(ctx context.Context, items []orders.RestockItem) ([]orders.StockLevel, error) {
	var resp struct {
		Levels []orders.StockLevel `json:"levels"`
	}
	err := c.do(ctx, http.MethodPost, "/medicines/delivery", orders.RestockRequest{Items: items}, &resp)
	return resp.Levels, err
}

func (c *Client) CreateMedicine(ctx context.Context, in orders.MedicineInput) (orders.Medicine, error) {
	var m orders.Medicine
	err := c.do(ctx, http.MethodPost, "/medicines", in, &m)
	return m, err
}

func (c *Client) UpdateMedicine(ctx context.Context, id string, in orders.MedicineInput) (orders.Medicine, error) {
	var m orders.Medicine
	err := c.do(ctx, http.MethodPut, "/medicines/"+url.PathEscape(id), in, &m)
	return m, err
}

func (c *Client) DeleteMedicine(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/medicines/"+url.PathEscape(id), nil, nil)
}

func (c *Client) CreateService(ctx context.Context, in orders.ServiceInput) (orders.Service, error) {
	var s orders.Service
	err := c.do(ctx, http.MethodPost, "/services", in, &s)
	return s, err
}

func (c *Client) DeleteService(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/services/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Summary(ctx context.Context) (orders.Summary, error) {
	var s orders.Summary
	err := c.do(ctx, http.MethodGet, "/reports/summary", nil, &s)
	return s, err
}

func (c *Client) Receipt(ctx context.Context, orderID string) (orders.Administration, error) {
	var a orders.Administration
	err := c.do(ctx, http.MethodGet, "/administrations/public/orders/"+url.PathEscape(orderID), nil, &a)
	return a, err
}
