package clinicapi

import (
	"context"
	"net/http"

	"clinicdesk/internal/model"
)

// OrderRequest books a lab panel for a date and slot.
type OrderRequest struct {
	PanelID int64      `json:"panelId"`
	Date    model.Date `json:"date"`
	Slot    model.Slot `json:"slot"`
}

// ListSlots returns the slot enumerator. Cached when Redis is configured.
func (c *Client) ListSlots(ctx context.Context) ([]model.SlotInfo, error) {
	var out []model.SlotInfo
	if err := c.getCached(ctx, "/enumerators/slots", "enum:slots", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPanels returns the lab panel catalogue. Cached when Redis is configured.
func (c *Client) ListPanels(ctx context.Context) ([]model.Panel, error) {
	var out []model.Panel
	if err := c.getCached(ctx, "/panels", "panels", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListExaminations(ctx context.Context) ([]model.Examination, error) {
	var out []model.Examination
	if err := c.doJSON(ctx, http.MethodGet, "/examinations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) OrderExamination(ctx context.Context, order OrderRequest) (*model.Examination, error) {
	var out model.Examination
	if err := c.doJSON(ctx, http.MethodPost, "/examinations", order, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
